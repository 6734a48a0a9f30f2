// Package clock abstracts time provisioning. The engine never reads a wall
// clock itself; every time-gated operation receives an explicit instant.
package clock

import "time"

// Clock supplies the current instant to callers at the transaction
// boundary.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a manually-advanced clock for tests.
type Fixed struct {
	Current time.Time
}

func (f *Fixed) Now() time.Time { return f.Current }

// Advance moves the fixed clock forward.
func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
