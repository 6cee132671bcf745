package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MRamiBalles/Nationship/internal/platform/logger"
)

var start = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func TestAdvanceFiresInOrder(t *testing.T) {
	s := NewManual(start, logger.Discard())
	var order []string
	s.After("a", 3*time.Second, func() { order = append(order, "three") })
	s.After("a", time.Second, func() { order = append(order, "one") })
	s.After("b", 2*time.Second, func() { order = append(order, "two") })
	s.After("b", time.Second, func() { order = append(order, "one-again") })

	if n := s.Advance(start.Add(2 * time.Second)); n != 3 {
		t.Fatalf("Expected 3 tasks fired, got %d", n)
	}
	want := []string{"one", "one-again", "two"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, order)
		}
	}
	if s.Pending("a") != 1 {
		t.Errorf("Expected the 3s task to stay pending")
	}
}

func TestChainedTasksUseTaskTime(t *testing.T) {
	s := NewManual(start, logger.Discard())
	var fired []time.Time
	var loop func()
	loop = func() {
		fired = append(fired, s.Now())
		s.After("loop", 4*time.Second, loop)
	}
	s.After("loop", 5*time.Second, loop)

	s.Advance(start.Add(14 * time.Second))
	if len(fired) != 3 {
		t.Fatalf("Expected fires at 5s, 9s and 13s, got %d", len(fired))
	}
	if !fired[2].Equal(start.Add(13 * time.Second)) {
		t.Errorf("Expected third fire at 13s, got %v", fired[2].Sub(start))
	}
	if !s.Now().Equal(start.Add(14 * time.Second)) {
		t.Errorf("Expected the clock to rest at the advance target")
	}
}

func TestCancelMode(t *testing.T) {
	s := NewManual(start, logger.Discard())
	ran := 0
	for i := 1; i <= 5; i++ {
		s.After("demo", time.Duration(i)*time.Second, func() { ran++ })
	}
	keep := s.After("other", time.Second, func() { ran += 100 })

	if n := s.CancelMode("demo"); n != 5 {
		t.Errorf("Expected 5 demo tasks dropped, got %d", n)
	}
	s.Advance(start.Add(time.Minute))
	if ran != 100 {
		t.Errorf("Expected only the other mode to run, got %d", ran)
	}
	if s.Cancel(keep) {
		t.Errorf("Expected Cancel of a fired task to report false")
	}
}

func TestCancelFromInsideTask(t *testing.T) {
	s := NewManual(start, logger.Discard())
	late := false
	s.After("demo", time.Second, func() { s.CancelMode("demo") })
	s.After("demo", 2*time.Second, func() { late = true })

	s.Advance(start.Add(5 * time.Second))
	if late {
		t.Errorf("Expected a task cancelled by an earlier task not to fire")
	}
}

func TestPanickingTaskDoesNotStopOthers(t *testing.T) {
	s := NewManual(start, logger.Discard())
	ok := false
	s.After("x", time.Second, func() { panic("boom") })
	s.After("x", 2*time.Second, func() { ok = true })

	s.Advance(start.Add(3 * time.Second))
	if !ok {
		t.Errorf("Expected the second task to run after a panic")
	}
}

func TestRunWallClock(t *testing.T) {
	s := New(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	done := make(chan struct{})
	s.After("real", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}
	cancel()
	wg.Wait()
}
