package sequencer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioBreakerTrips(t *testing.T) {
	b := newAudioBreaker(3)
	assert.False(t, b.recordFailure())
	assert.False(t, b.recordFailure())
	assert.True(t, b.recordFailure())
	assert.True(t, b.open())
}

func TestAudioBreakerSuccessResets(t *testing.T) {
	b := newAudioBreaker(2)
	b.recordFailure()
	b.recordFailure()
	b.recordSuccess()

	assert.False(t, b.open())
	assert.Equal(t, 0, b.consecutive())
	assert.False(t, b.recordFailure())
}

func TestAudioBreakerDefaultThreshold(t *testing.T) {
	b := newAudioBreaker(0)
	assert.Equal(t, 3, b.threshold)
}

func TestAudioBreakerConcurrent(t *testing.T) {
	b := newAudioBreaker(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.recordFailure()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, b.consecutive())
	assert.False(t, b.open())
}
