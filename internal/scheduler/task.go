package scheduler

import (
	"sync/atomic"
	"time"
)

// Task is a unit of work registered with a Scheduler. Tasks are created
// through the Scheduler's Schedule methods and may be cancelled at any
// time before they run.
type Task struct {
	name      string
	fn        func()
	cancelled atomic.Bool

	// runAt is the earliest time a one-shot task becomes due.
	// The zero time means "due on the next tick".
	runAt time.Time

	// repeating tasks run on every tick where at least period has
	// elapsed since lastRun, and are never removed by the tick loop.
	repeating bool
	period    time.Duration
	lastRun   time.Time
}

// Name returns the diagnostic name the task was registered with.
func (t *Task) Name() string {
	return t.name
}

// Cancel marks the task so it will never run again. Cancelling a task
// that already ran, or cancelling twice, is harmless.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

func (t *Task) due(now time.Time) bool {
	if t.repeating {
		return now.Sub(t.lastRun) >= t.period
	}
	return !now.Before(t.runAt)
}
