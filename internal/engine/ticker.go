// Package engine contains the rules and the live state of every nation.
// This is the heartbeat of Nationship.
//
// ARCHITECTURAL RULE: Rules never mutate a caller's state. Nation owns the only
// mutable copy and publishes what happened to the EventLog.
package engine

import (
	"context"
	"time"

	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
)

// TickRate defines how often live nations are checked for a communication lapse.
const TickRate = 30 * time.Second

// Ticker drives the decay check of every live nation.
// It does NOT know about stages or resources - only time.
type Ticker struct {
	registry *Registry
	logger   *logger.Logger
	rate     time.Duration
	clock    func() time.Time
	stopChan chan struct{}
}

// NewTicker creates a new decay ticker.
func NewTicker(registry *Registry, log *logger.Logger) *Ticker {
	return &Ticker{
		registry: registry,
		logger:   log,
		rate:     TickRate,
		clock:    time.Now,
		stopChan: make(chan struct{}),
	}
}

// WithRate overrides the tick interval.
func (t *Ticker) WithRate(d time.Duration) *Ticker {
	if d > 0 {
		t.rate = d
	}
	return t
}

// Start begins the decay loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("decay ticker started", "rate", t.rate)

	ticker := time.NewTicker(t.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("decay ticker stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("decay ticker stopped manually")
			return
		case <-ticker.C:
			t.TickOnce(t.clock())
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}

// TickOnce runs one Tick against every live nation and returns how many decayed.
func (t *Ticker) TickOnce(now time.Time) int {
	start := time.Now()
	decayed := 0
	t.registry.Each(func(n *Nation) {
		emitted, err := n.Do(Tick(now))
		if err != nil {
			t.logger.Error("tick failed", "nation_id", n.ID(), "err", err)
			return
		}
		if len(emitted) > 0 {
			decayed++
		}
	})
	metrics.Get().RecordTick(time.Since(start))
	return decayed
}
