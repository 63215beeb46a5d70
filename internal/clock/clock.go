package clock

import (
	"sync"
	"time"
)

var now = time.Now

// Clock is the time source the settlement engine reads deadlines against.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock, truncated to whole seconds.
type System struct{}

func (System) Now() time.Time {
	return now().UTC().Truncate(time.Second)
}

// Manual is a clock that only moves when told to.
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{t: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
	return m.t
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t.UTC()
}
