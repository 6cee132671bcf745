package storage

import (
	"context"
	"time"

	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
)

// DefaultWriteTimeout bounds a single write-through.
const DefaultWriteTimeout = 5 * time.Second

// Persister adapts an EventRepository to events.EventPersister so the
// in-memory log can write through to the database.
type Persister struct {
	repo    EventRepository
	timeout time.Duration
}

// NewPersister wraps repo. A non-positive timeout uses DefaultWriteTimeout.
func NewPersister(repo EventRepository, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Persister{repo: repo, timeout: timeout}
}

// Append stores one event and records the write latency.
func (p *Persister) Append(event events.GameEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := p.repo.Append(ctx, event)
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}
