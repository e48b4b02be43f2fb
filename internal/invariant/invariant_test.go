package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_Holds(t *testing.T) {
	assert.True(t, Check(true, "never printed"))
}

func TestCheck_Violated(t *testing.T) {
	if Debug {
		assert.Panics(t, func() { Check(false, "two recordings") })
		return
	}
	assert.False(t, Check(false, "two recordings %d", 2))
}
