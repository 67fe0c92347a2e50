package clock

import (
	"errors"
	"sync"
	"time"
)

// System is the wall-clock implementation of domain.Clock.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (*System) Now() time.Time {
	return time.Now().UTC()
}

func (*System) ScheduleOnce(delay time.Duration, fn func()) error {
	if fn == nil {
		return errors.New("callback must not be nil")
	}
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, fn)
	return nil
}

// Manual is a hand-cranked clock for tests: time only moves when Advance
// is called, and due callbacks fire synchronously during the advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	pending []scheduled
}

type scheduled struct {
	at time.Time
	fn func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) ScheduleOnce(delay time.Duration, fn func()) error {
	if fn == nil {
		return errors.New("callback must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, scheduled{at: m.now.Add(delay), fn: fn})
	return nil
}

// Advance moves the clock forward and fires every callback that came due,
// in schedule order. Callbacks run without the lock held so they may
// schedule further events.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now

	var due, rest []scheduled
	for _, s := range m.pending {
		if !s.at.After(now) {
			due = append(due, s)
		} else {
			rest = append(rest, s)
		}
	}
	m.pending = rest
	m.mu.Unlock()

	for _, s := range due {
		s.fn()
	}
}
