package sequencer

import "sync"

// audioBreaker counts consecutive failed audio uploads. Once the threshold
// is reached the user is nudged to type instead of recording again.
type audioBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	tripped   bool
}

func newAudioBreaker(threshold int) *audioBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &audioBreaker{threshold: threshold}
}

// recordFailure counts one failure and reports whether the breaker is open.
func (b *audioBreaker) recordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.tripped = true
	}
	return b.tripped
}

func (b *audioBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.tripped = false
}

func (b *audioBreaker) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

func (b *audioBreaker) consecutive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
