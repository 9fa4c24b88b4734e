// Package timeutil lets throttled logging run against a fake clock in tests.
package timeutil

import (
	"sync/atomic"
	"time"
)

// Clock reads the current time.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock only moves when told to. Safe for concurrent use.
type MockClock struct {
	base    time.Time
	elapsed atomic.Int64 // nanoseconds past base
}

// NewMockClock returns a clock reading t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{base: t}
}

func (c *MockClock) Now() time.Time {
	return c.base.Add(time.Duration(c.elapsed.Load()))
}

// Set jumps to t, which may be before the current reading.
func (c *MockClock) Set(t time.Time) {
	c.elapsed.Store(int64(t.Sub(c.base)))
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.elapsed.Add(int64(d))
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
