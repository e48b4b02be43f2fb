//go:build paneldebug

package invariant

// Debug reports whether assertions panic.
const Debug = true

func violated(msg string) {
	report(msg)
	panic("invariant violated: " + msg)
}
