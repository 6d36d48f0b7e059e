package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int
	resetTime time.Time
}

// Memory keeps counters in process memory. State is lost on restart and is
// not shared between instances; use Redis for multi-instance deployments.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// WithClock swaps the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Check(_ context.Context, identifier string) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[identifier]
	if !ok || now.After(e.resetTime) {
		m.entries[identifier] = entry{count: 1, resetTime: now.Add(Window)}
		m.sweep(now)
		return nil
	}
	if e.count >= MaxAttempts {
		return ErrLimited
	}
	e.count++
	m.entries[identifier] = e
	return nil
}

func (m *Memory) Clear(_ context.Context, identifier string) error {
	m.mu.Lock()
	delete(m.entries, identifier)
	m.mu.Unlock()
	return nil
}

// sweep drops lapsed windows once the map grows, keeping memory bounded by
// the number of identifiers seen in the last Window.
func (m *Memory) sweep(now time.Time) {
	if len(m.entries) < 1024 {
		return
	}
	for k, e := range m.entries {
		if now.After(e.resetTime) {
			delete(m.entries, k)
		}
	}
}
