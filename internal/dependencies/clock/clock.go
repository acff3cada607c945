// Package clock abstracts wall-clock reads so schedulers and timeouts
// can be driven deterministically in tests.
package clock

import "time"

// Clock is the time source every time-dependent component takes as a
// dependency.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}
