package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock lets tests drive due-ness without waiting.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(start time.Time) (*Scheduler, *fakeClock) {
	clock := &fakeClock{t: start}
	s := New()
	s.now = clock.now
	return s, clock
}

func TestPeriodicTaskRunsWhenDue(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2025, 3, 17, 12, 0, 0, 0, time.Local))
	var runs atomic.Int32

	s.AddTask(Task{Name: "check", Interval: 15, Unit: Minutes, Run: func() { runs.Add(1) }})

	s.runDue()
	if runs.Load() != 0 {
		t.Fatal("task ran before its interval elapsed")
	}

	clock.advance(15 * time.Minute)
	s.runDue()
	if runs.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", runs.Load())
	}

	// Not due again until another full interval.
	clock.advance(time.Minute)
	s.runDue()
	if runs.Load() != 1 {
		t.Fatalf("task re-ran early: %d runs", runs.Load())
	}

	clock.advance(15 * time.Minute)
	s.runDue()
	if runs.Load() != 2 {
		t.Fatalf("expected 2 runs, got %d", runs.Load())
	}
}

func TestDailyTaskHonorsTimeOfDay(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2025, 3, 17, 9, 0, 0, 0, time.Local))
	var runs atomic.Int32

	s.AddTask(Task{Name: "daily", Interval: 1, Unit: Days, At: "10:00", Run: func() { runs.Add(1) }})

	clock.advance(30 * time.Minute) // 09:30
	s.runDue()
	if runs.Load() != 0 {
		t.Fatal("daily task ran before its time of day")
	}

	clock.advance(31 * time.Minute) // 10:01
	s.runDue()
	if runs.Load() != 1 {
		t.Fatalf("expected 1 run at 10:01, got %d", runs.Load())
	}

	// Same day, later: no second run.
	clock.advance(5 * time.Hour)
	s.runDue()
	if runs.Load() != 1 {
		t.Fatal("daily task ran twice in one day")
	}

	// Next day after 10:00.
	clock.advance(20 * time.Hour) // 11:01 next day
	s.runDue()
	if runs.Load() != 2 {
		t.Fatalf("expected 2 runs, got %d", runs.Load())
	}
}

func TestMonthUnitBecomesDailyTick(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2025, 3, 17, 9, 0, 0, 0, time.Local))
	var runs atomic.Int32

	// The callback would gate on calendar.MonthStart; here we only
	// verify the scheduler ticks it daily.
	s.AddTask(Task{Name: "monthly", Interval: 1, Unit: Months, At: "10:00", Run: func() { runs.Add(1) }})

	for day := 0; day < 3; day++ {
		clock.advance(24 * time.Hour)
		s.runDue()
	}
	if runs.Load() != 3 {
		t.Fatalf("month-unit task should tick daily: got %d runs over 3 days", runs.Load())
	}
}

func TestRegistrationOrderPreserved(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2025, 3, 17, 12, 0, 0, 0, time.Local))
	var order []string

	s.AddTask(Task{Name: "b", Interval: 1, Unit: Seconds, Run: func() { order = append(order, "b") }})
	s.AddTask(Task{Name: "a", Interval: 1, Unit: Seconds, Run: func() { order = append(order, "a") }})

	clock.advance(time.Second)
	s.runDue()

	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("due tasks ran out of registration order: %v", order)
	}
}

func TestPanickingTaskDoesNotKillOthers(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2025, 3, 17, 12, 0, 0, 0, time.Local))
	var ran atomic.Bool

	s.AddTask(Task{Name: "bad", Interval: 1, Unit: Seconds, Run: func() { panic("boom") }})
	s.AddTask(Task{Name: "good", Interval: 1, Unit: Seconds, Run: func() { ran.Store(true) }})

	clock.advance(time.Second)
	s.runDue()

	if !ran.Load() {
		t.Error("task after the panicking one did not run")
	}

	// The panicking task is rescheduled, not retried inline.
	clock.advance(time.Second)
	s.runDue() // must not panic the test
}

func TestRemoveTask(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2025, 3, 17, 12, 0, 0, 0, time.Local))
	var runs atomic.Int32

	s.AddTask(Task{Name: "gone", Interval: 1, Unit: Seconds, Run: func() { runs.Add(1) }})
	s.RemoveTask("gone")

	clock.advance(time.Second)
	s.runDue()
	if runs.Load() != 0 {
		t.Error("removed task still ran")
	}
}

func TestAddTaskValidation(t *testing.T) {
	s := New()
	if err := s.AddTask(Task{Name: "x", Interval: 1, Unit: Minutes}); err == nil {
		t.Error("nil callback should be rejected")
	}
	if err := s.AddTask(Task{Name: "x", Interval: 0, Unit: Minutes, Run: func() {}}); err == nil {
		t.Error("zero interval should be rejected")
	}
	if err := s.AddTask(Task{Name: "x", Interval: 1, Unit: "fortnights", Run: func() {}}); err == nil {
		t.Error("unknown unit should be rejected")
	}
}

func TestLifecycle(t *testing.T) {
	s := New()
	s.resolution = 5 * time.Millisecond

	if s.State() != StateIdle {
		t.Fatal("new scheduler should be idle")
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateRunning {
		t.Fatal("started scheduler should be running")
	}
	if err := s.Start(); err == nil {
		t.Error("double start should fail")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not complete within a tick")
	}

	if s.State() != StateStopped {
		t.Error("stopped scheduler should report StateStopped")
	}
	if err := s.AddTask(Task{Name: "late", Interval: 1, Unit: Seconds, Run: func() {}}); err == nil {
		t.Error("stopped scheduler should reject new tasks")
	}
}

func TestLoopRunsDueTasks(t *testing.T) {
	s := New()
	s.resolution = 5 * time.Millisecond
	var runs atomic.Int32

	s.AddTask(Task{Name: "fast", Interval: 1, Unit: Seconds, Run: func() { runs.Add(1) }})

	// Force the task due immediately.
	s.mu.Lock()
	s.tasks[0].next = time.Now().Add(-time.Second)
	s.mu.Unlock()

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	deadline := time.After(time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("loop never ran the due task")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
