// Package scheduler drives the recurring plugin tasks. It polls once
// per second and runs due callbacks synchronously, in registration
// order, on a single worker goroutine.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Unit is the cadence unit of a scheduled task.
type Unit string

const (
	Seconds  Unit = "seconds"
	Minutes  Unit = "minutes"
	Hours    Unit = "hours"
	Days     Unit = "days"
	Months   Unit = "months"
	Quarters Unit = "quarters"
)

// Task is one cadence declared by a plugin.
//
// Months and quarters have no native periodic primitive. Such a task
// is registered as a daily tick at its time-of-day, and the callback
// itself must test the date predicate (calendar.MonthStart /
// calendar.QuarterStart) on every invocation and return immediately
// when it does not hold. This gating stays in the callback on
// purpose; the scheduler only supplies the daily tick.
type Task struct {
	Name     string
	Interval int
	Unit     Unit
	At       string // "HH:MM" local, honored for Days/Months/Quarters
	Run      func()
}

// State of the scheduler. Stopped is terminal: a stopped scheduler is
// never restarted.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

const defaultResolution = time.Second

type entry struct {
	name  string
	run   func()
	every time.Duration // sub-day units
	days  int           // day-based units: interval in days
	at    string
	next  time.Time
}

// Scheduler polls registered tasks for due-ness once per resolution
// tick.
type Scheduler struct {
	mu         sync.Mutex
	state      State
	tasks      []*entry // registration order
	stop       chan struct{}
	done       chan struct{}
	now        func() time.Time
	resolution time.Duration
}

// New creates an idle scheduler.
func New() *Scheduler {
	return &Scheduler{
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
		resolution: defaultResolution,
	}
}

// AddTask registers a task. Sub-day units schedule a plain periodic
// callback; Days honors At; Months and Quarters register a daily tick
// at At (see Task).
func (s *Scheduler) AddTask(t Task) error {
	if t.Run == nil {
		return fmt.Errorf("scheduler: task %q has no callback", t.Name)
	}
	if t.Interval <= 0 {
		return fmt.Errorf("scheduler: task %q has non-positive interval", t.Name)
	}

	e := &entry{name: t.Name, run: t.Run, at: t.At}
	now := s.now()

	switch t.Unit {
	case Seconds:
		e.every = time.Duration(t.Interval) * time.Second
	case Minutes:
		e.every = time.Duration(t.Interval) * time.Minute
	case Hours:
		e.every = time.Duration(t.Interval) * time.Hour
	case Days:
		e.days = t.Interval
	case Months, Quarters:
		// Emulated by a daily tick; the callback gates on the date.
		e.days = 1
	default:
		return fmt.Errorf("scheduler: task %q has unknown unit %q", t.Name, t.Unit)
	}

	if e.days > 0 {
		e.next = nextAt(now, e.at)
	} else {
		e.next = now.Add(e.every)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return fmt.Errorf("scheduler: stopped")
	}
	s.tasks = append(s.tasks, e)

	log.Info().Str("task", t.Name).Int("interval", t.Interval).Str("unit", string(t.Unit)).
		Time("next", e.next).Msg("scheduler: task added")
	return nil
}

// RemoveTask deregisters the named task.
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.tasks {
		if e.name == name {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			log.Info().Str("task", name).Msg("scheduler: task removed")
			return
		}
	}
}

// Start launches the polling loop. Only an idle scheduler starts.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: not idle")
	}
	s.state = StateRunning
	s.mu.Unlock()

	go s.loop()
	log.Info().Msg("scheduler: started")
	return nil
}

// Stop halts the loop. The loop observes the stop within one tick; an
// in-flight callback always runs to completion first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.state = StateStopped
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	log.Info().Msg("scheduler: stopped")
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.runDue()
		}
	}
}

// runDue executes every due task synchronously, in registration
// order. A panicking callback is logged and never terminates the
// loop; the task simply waits for its next natural due time.
func (s *Scheduler) runDue() {
	now := s.now()

	s.mu.Lock()
	due := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		if !now.Before(e.next) {
			due = append(due, e)
			e.next = e.advance(now)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.invoke(e)
	}
}

func (s *Scheduler) invoke(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", e.name).Interface("panic", r).
				Msg("scheduler: task panicked")
		}
	}()
	e.run()
}

func (e *entry) advance(now time.Time) time.Time {
	if e.days > 0 {
		next := nextAt(now, e.at)
		if e.days > 1 {
			next = next.AddDate(0, 0, e.days-1)
		}
		return next
	}
	return now.Add(e.every)
}

// nextAt returns the next strictly future occurrence of the "HH:MM"
// local wall time. An empty or malformed At means midnight.
func nextAt(now time.Time, at string) time.Time {
	var hh, mm int
	if _, err := fmt.Sscanf(at, "%d:%d", &hh, &mm); err != nil || hh > 23 || mm > 59 {
		hh, mm = 0, 0
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
