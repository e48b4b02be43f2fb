// Command panelsim runs simulated executive panel sessions.
package main

import (
	"context"

	"github.com/panelsim/panelsim/internal/cli"
)

func main() {
	cli.Execute(context.Background())
}
