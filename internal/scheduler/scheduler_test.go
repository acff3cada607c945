package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/urnet/gameserver/internal/dependencies/mocks"
	"github.com/urnet/gameserver/internal/testutil"
)

type SchedulerSuite struct {
	suite.Suite
	clock *mocks.MockClock
	sched *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.sched = New("test", 100*time.Millisecond, s.clock, testutil.NopLogger())
}

func (s *SchedulerSuite) TestScheduleRunsOnNextTick() {
	ran := 0
	s.sched.Schedule("immediate", func() { ran++ })

	s.sched.Tick()
	s.Equal(1, ran)

	// One-shot tasks are removed after running.
	s.sched.Tick()
	s.Equal(1, ran)
}

func (s *SchedulerSuite) TestScheduleInWaitsForDelay() {
	ran := 0
	s.sched.ScheduleIn("delayed", func() { ran++ }, 5*time.Second)

	s.sched.Tick()
	s.Equal(0, ran)

	s.clock.Advance(4 * time.Second)
	s.sched.Tick()
	s.Equal(0, ran)

	s.clock.Advance(time.Second)
	s.sched.Tick()
	s.Equal(1, ran)
}

func (s *SchedulerSuite) TestScheduleRepeatingRunsEachPeriod() {
	ran := 0
	s.sched.ScheduleRepeating("repeating", func() { ran++ }, time.Second)

	// Not yet due: the period has not elapsed since registration.
	s.sched.Tick()
	s.Equal(0, ran)

	s.clock.Advance(time.Second)
	s.sched.Tick()
	s.Equal(1, ran)

	// Period restarts from the last run.
	s.sched.Tick()
	s.Equal(1, ran)

	s.clock.Advance(time.Second)
	s.sched.Tick()
	s.Equal(2, ran)
}

func (s *SchedulerSuite) TestCancelPreventsRun() {
	ran := 0
	task := s.sched.ScheduleIn("cancelled", func() { ran++ }, time.Second)
	task.Cancel()

	s.clock.Advance(2 * time.Second)
	s.sched.Tick()
	s.Equal(0, ran)
}

func (s *SchedulerSuite) TestCancelStopsRepeatingTask() {
	ran := 0
	task := s.sched.ScheduleRepeating("repeating", func() { ran++ }, time.Second)

	s.clock.Advance(time.Second)
	s.sched.Tick()
	s.Equal(1, ran)

	task.Cancel()
	s.clock.Advance(time.Second)
	s.sched.Tick()
	s.Equal(1, ran)
}

func (s *SchedulerSuite) TestPanicDoesNotStopOtherTasks() {
	ran := 0
	s.sched.Schedule("panicking", func() { panic("boom") })
	s.sched.Schedule("surviving", func() { ran++ })

	s.sched.Tick()
	s.Equal(1, ran)
}

func (s *SchedulerSuite) TestTasksRunInRegistrationOrder() {
	var order []string
	s.sched.Schedule("first", func() { order = append(order, "first") })
	s.sched.Schedule("second", func() { order = append(order, "second") })

	s.sched.Tick()
	s.Equal([]string{"first", "second"}, order)
}

func (s *SchedulerSuite) TestStartAndStop() {
	// Smoke test of the real tick loop with a running clock.
	sched := New("live", time.Millisecond, s.clock, testutil.NopLogger())
	done := make(chan struct{})
	sched.Schedule("signal", func() { close(done) })

	sched.Start()
	defer sched.Stop()

	// The mock clock never advances, so the loop polls on real time and
	// runs the immediately-due task on its first tick.
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("scheduled task never ran")
	}
}
