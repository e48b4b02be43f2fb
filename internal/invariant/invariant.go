// Package invariant reports programming defects. Builds tagged paneldebug
// panic on a violated invariant; release builds log it and let the caller
// drop the offending operation.
package invariant

import (
	"fmt"
	"os"
)

// Check reports whether cond holds. When it does not, the violation is
// reported according to the build mode and false is returned.
func Check(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	violated(fmt.Sprintf(format, args...))
	return false
}

func report(msg string) {
	fmt.Fprintf(os.Stderr, "Warning: invariant violated: %s\n", msg)
}
