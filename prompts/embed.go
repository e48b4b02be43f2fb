// Package prompts embeds the mock backend's question bank.
package prompts

import _ "embed"

//go:embed bank.yaml
var QuestionBank []byte
