package stream

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyChannels is returned when every channel slot is taken.
var ErrTooManyChannels = errors.New("too many open channels")

// Slots caps the number of concurrently open channels.
type Slots struct {
	sem *semaphore.Weighted
}

// NewSlots creates a limiter allowing n open channels
func NewSlots(n int) *Slots {
	return &Slots{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire takes a slot without waiting. The returned release func may be
// called more than once.
func (s *Slots) Acquire() (release func(), err error) {
	if !s.sem.TryAcquire(1) {
		return nil, ErrTooManyChannels
	}
	var once sync.Once
	return func() { once.Do(func() { s.sem.Release(1) }) }, nil
}
