package mockbackend

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/panelsim/panelsim/prompts"
)

// Executive is a panelist persona.
type Executive struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Image string `yaml:"image"`
}

// Bank holds the personas and questions the mock panel draws from.
type Bank struct {
	Executives map[string]Executive `yaml:"executives"`
	Questions  map[string][]string  `yaml:"questions"`
	FollowUps  []string             `yaml:"followups"`
	Closing    string               `yaml:"closing"`
}

// LoadBank parses a YAML question bank.
func LoadBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}
	if len(b.Questions) == 0 {
		return nil, fmt.Errorf("question bank has no questions")
	}
	for role := range b.Questions {
		if _, ok := b.Executives[role]; !ok {
			return nil, fmt.Errorf("question bank: questions for unknown executive %q", role)
		}
	}
	if strings.TrimSpace(b.Closing) == "" {
		b.Closing = "Thank you. That concludes our session."
	}
	return &b, nil
}

// DefaultBank returns the embedded question bank.
func DefaultBank() (*Bank, error) {
	return LoadBank(prompts.QuestionBank)
}

// Roles returns the executives that have questions, in the order given by
// want. Unknown roles are skipped; an empty result falls back to every
// role in the bank.
func (b *Bank) Roles(want []string) []string {
	var roles []string
	for _, r := range want {
		r = strings.ToUpper(strings.TrimSpace(r))
		if len(b.Questions[r]) > 0 {
			roles = append(roles, r)
		}
	}
	if len(roles) > 0 {
		return roles
	}
	for _, r := range []string{"CEO", "CFO", "CTO", "CMO", "COO"} {
		if len(b.Questions[r]) > 0 {
			roles = append(roles, r)
		}
	}
	return roles
}

// expand substitutes the company and report placeholders.
func expand(text, company, report string) string {
	if company == "" {
		company = "the company"
	}
	if report == "" {
		report = "report"
	}
	return strings.NewReplacer("{company}", company, "{report}", report).Replace(text)
}
