// Package scheduler implements the cooperative, tick-driven task runner
// that serializes all mutation for one owning component. Every stateful
// component (a game session, the session manager, the connection manager)
// owns one Scheduler backed by a single goroutine, giving that component
// single-writer semantics without per-field locking.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/urnet/gameserver/internal/dependencies/clock"
)

// Scheduler runs tasks serially on a dedicated goroutine that wakes on a
// fixed tick interval. Tasks scheduled from any goroutine only ever
// execute inside the tick loop, one at a time.
type Scheduler struct {
	name   string
	tick   time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu    sync.Mutex
	tasks []*Task

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Scheduler that ticks at the given interval. The scheduler
// does not run until Start is called; tests typically never start it and
// drive it deterministically through Tick.
func New(name string, tick time.Duration, clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		name:   name,
		tick:   tick,
		clock:  clk,
		logger: logger.With(slog.String("scheduler", name)),
		stop:   make(chan struct{}),
	}
}

// Start launches the tick loop on its own goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the tick loop after its current cycle. In-flight tasks
// complete; tasks not yet due never run. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Schedule registers fn to run on the next tick.
func (s *Scheduler) Schedule(name string, fn func()) *Task {
	return s.add(&Task{name: name, fn: fn})
}

// ScheduleIn registers fn to run once after delay has elapsed.
func (s *Scheduler) ScheduleIn(name string, fn func(), delay time.Duration) *Task {
	return s.add(&Task{name: name, fn: fn, runAt: s.clock.Now().Add(delay)})
}

// ScheduleRepeating registers fn to run on every tick where at least
// period has elapsed since its last run.
func (s *Scheduler) ScheduleRepeating(name string, fn func(), period time.Duration) *Task {
	return s.add(&Task{
		name:      name,
		fn:        fn,
		repeating: true,
		period:    period,
		lastRun:   s.clock.Now(),
	})
}

func (s *Scheduler) add(task *Task) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return task
}

func (s *Scheduler) run() {
	next := s.clock.Now().Add(s.tick)
	for {
		if sleep := next.Sub(s.clock.Now()); sleep > 0 {
			select {
			case <-s.stop:
				return
			case <-time.After(sleep):
			}
		} else {
			select {
			case <-s.stop:
				return
			default:
			}
		}

		next = s.clock.Now().Add(s.tick)
		s.Tick()
	}
}

// Tick snapshots and removes all due one-shot tasks (repeating tasks are
// retained), then executes the snapshot serially. A task's panic is
// logged without stopping the loop or skipping the remaining tasks.
// Tick is called by the run loop; tests call it directly.
func (s *Scheduler) Tick() {
	now := s.clock.Now()

	var toRun []*Task
	s.mu.Lock()
	remaining := s.tasks[:0]
	for _, task := range s.tasks {
		if task.Cancelled() {
			continue
		}
		if !task.due(now) {
			remaining = append(remaining, task)
			continue
		}
		toRun = append(toRun, task)
		if task.repeating {
			task.lastRun = now
			remaining = append(remaining, task)
		}
	}
	s.tasks = remaining
	s.mu.Unlock()

	for _, task := range toRun {
		s.runTask(task)
	}
}

func (s *Scheduler) runTask(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked",
				slog.String("task", task.name),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	task.fn()
}
