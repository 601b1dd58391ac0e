package deadline

import (
	"sync"
	"time"
)

// Clock is a monotonic millisecond time source.
type Clock interface {
	Now() int64
}

// SystemClock reports milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock starts a clock at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns elapsed milliseconds using the monotonic reading of time.Now.
func (c *SystemClock) Now() int64 {
	return time.Since(c.start).Milliseconds()
}

// Until converts a wake time into a duration from now, never negative.
func (c *SystemClock) Until(at int64) time.Duration {
	d := time.Duration(at-c.Now()) * time.Millisecond
	if d < 0 {
		return 0
	}
	return d
}

// MockClock is a controllable clock for tests and scripted replays.
type MockClock struct {
	mu  sync.RWMutex
	now int64
}

// NewMockClock creates a mock clock at start.
func NewMockClock(start int64) *MockClock {
	return &MockClock{now: start}
}

// Now returns the current mocked time.
func (m *MockClock) Now() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the clock to ms. Moving backwards is ignored.
func (m *MockClock) Set(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms > m.now {
		m.now = ms
	}
}

// Advance moves the clock forward by ms and returns the new time.
func (m *MockClock) Advance(ms int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms > 0 {
		m.now += ms
	}
	return m.now
}
