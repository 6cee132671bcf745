// Package scheduler runs delayed callbacks grouped by mode.
// Cancelling a mode removes all of its pending tasks at once; a task removed
// before it is picked never fires.
//
// The same scheduler runs against the wall clock (Run) or a synthetic one (Advance).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/Nationship/internal/platform/logger"
)

// Mode groups tasks that are cancelled together.
type Mode string

// Handle identifies one scheduled task.
type Handle struct {
	id   uint64
	mode Mode
}

// Mode returns the task's mode.
func (h Handle) Mode() Mode { return h.mode }

type task struct {
	id   uint64
	mode Mode
	at   time.Time
	fn   func()
}

// Scheduler holds pending tasks.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[uint64]*task
	nextID  uint64
	clock   func() time.Time
	manual  bool
	virtual time.Time
	wake    chan struct{}
	logger  *logger.Logger
}

// New creates a scheduler driven by the wall clock through Run.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[uint64]*task),
		clock:  time.Now,
		wake:   make(chan struct{}, 1),
		logger: log,
	}
}

// NewManual creates a scheduler whose time only moves through Advance.
func NewManual(start time.Time, log *logger.Logger) *Scheduler {
	s := New(log)
	s.manual = true
	s.virtual = start
	return s
}

// Now returns the scheduler's notion of the current time.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowLocked()
}

func (s *Scheduler) nowLocked() time.Time {
	if s.manual {
		return s.virtual
	}
	return s.clock()
}

// After schedules fn to run d from now.
func (s *Scheduler) After(mode Mode, d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &task{id: s.nextID, mode: mode, at: s.nowLocked().Add(d), fn: fn}
	s.tasks[t.id] = t
	s.signal()
	return Handle{id: t.id, mode: mode}
}

// Cancel removes one task. It reports whether the task was still pending.
func (s *Scheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[h.id]; !ok {
		return false
	}
	delete(s.tasks, h.id)
	return true
}

// CancelMode removes every pending task of a mode and returns how many were dropped.
func (s *Scheduler) CancelMode(mode Mode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tasks {
		if t.mode == mode {
			delete(s.tasks, id)
			n++
		}
	}
	return n
}

// Pending returns the number of pending tasks of a mode.
func (s *Scheduler) Pending(mode Mode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.mode == mode {
			n++
		}
	}
	return n
}

// popDue removes and returns the earliest task due at or before now.
// Ties fire in scheduling order.
func (s *Scheduler) popDue(now time.Time) *task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due *task
	for _, t := range s.tasks {
		if t.at.After(now) {
			continue
		}
		if due == nil || t.at.Before(due.at) || (t.at.Equal(due.at) && t.id < due.id) {
			due = t
		}
	}
	if due == nil {
		return nil
	}
	delete(s.tasks, due.id)
	if s.manual {
		s.virtual = due.at
	}
	return due
}

func (s *Scheduler) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	found := false
	for _, t := range s.tasks {
		if !found || t.at.Before(next) {
			next = t.at
			found = true
		}
	}
	return next, found
}

// Advance moves synthetic time to now, firing every task due on the way,
// including tasks scheduled by tasks that fired. It returns how many ran.
func (s *Scheduler) Advance(now time.Time) int {
	fired := 0
	for {
		t := s.popDue(now)
		if t == nil {
			break
		}
		s.fire(t)
		fired++
	}
	if s.manual {
		s.mu.Lock()
		if now.After(s.virtual) {
			s.virtual = now
		}
		s.mu.Unlock()
	}
	return fired
}

// Run fires tasks against the wall clock until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		for {
			t := s.popDue(s.clock())
			if t == nil {
				break
			}
			s.fire(t)
		}

		wait := time.Hour
		if next, ok := s.nextDue(); ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

func (s *Scheduler) fire(t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "mode", t.mode, "panic", r)
		}
	}()
	t.fn()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
