// Package clock provides an injectable time source. Engines sample the clock
// exactly once per operation so every timestamp within one operation agrees.
package clock

import "time"

// Clock yields the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time { return time.Now() }

// Fixed is a settable clock for tests.
type Fixed struct {
	t time.Time
}

// NewFixed returns a Fixed clock pinned to t.
func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

// Now returns the pinned time.
func (f *Fixed) Now() time.Time { return f.t }

// Set pins the clock to t.
func (f *Fixed) Set(t time.Time) { f.t = t }

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.t = f.t.Add(d) }
