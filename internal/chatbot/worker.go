package chatbot

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/engine"
	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/scheduler"
)

// pollInterval is how often the worker reads new events from the log.
const pollInterval = 200 * time.Millisecond

// resolveTimeout bounds the registry lookup behind every bot line or action.
const resolveTimeout = 5 * time.Second

// NationSource resolves live nations.
type NationSource interface {
	Get(ctx context.Context, nationID string) (*engine.Nation, error)
}

// Worker owns the bots of every nation and feeds them the event log.
type Worker struct {
	mu       sync.Mutex
	bots     map[string]*Bot
	nations  NationSource
	eventLog *events.EventLog
	sched    *scheduler.Scheduler
	rng      entropy.Source
	logger   *logger.Logger

	lastProcessedEvent int
}

// NewWorker creates the chatbot worker. Events already in the log are skipped.
func NewWorker(el *events.EventLog, nations NationSource, sched *scheduler.Scheduler, rng entropy.Source, log *logger.Logger) *Worker {
	return &Worker{
		bots:               make(map[string]*Bot),
		nations:            nations,
		eventLog:           el,
		sched:              sched,
		rng:                rng,
		logger:             log,
		lastProcessedEvent: el.Len(),
	}
}

// Bot returns the nation's bot, creating it on first use.
func (w *Worker) Bot(ctx context.Context, nationID string) (*Bot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bots[nationID]; ok {
		return b, nil
	}
	if _, err := w.nations.Get(ctx, nationID); err != nil {
		return nil, err
	}
	target := &liveTarget{id: nationID, nations: w.nations, logger: w.logger}
	b := NewBot(target, w.sched, w.rng, w.logger)
	w.bots[nationID] = b
	return b, nil
}

// Lookup returns an existing bot.
func (w *Worker) Lookup(nationID string) (*Bot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bots[nationID]
	return b, ok
}

// Start runs the scheduler and the event listener until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("chatbot worker started")

	go w.sched.Run(ctx)
	go w.eventListenerLoop(ctx)
}

func (w *Worker) eventListenerLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("chatbot event listener stopped")
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll dispatches every event appended since the last call. It returns how many were read.
func (w *Worker) Poll() int {
	fresh, offset := w.eventLog.Since(w.lastProcessedEvent)
	w.lastProcessedEvent = offset

	for _, e := range fresh {
		if b, ok := w.Lookup(e.NationID); ok {
			b.React(e)
		}
	}
	return len(fresh)
}

// StopAll stops every bot.
func (w *Worker) StopAll() {
	w.mu.Lock()
	bots := make([]*Bot, 0, len(w.bots))
	for _, b := range w.bots {
		bots = append(bots, b)
	}
	w.mu.Unlock()

	for _, b := range bots {
		b.Stop()
	}
}

// liveTarget resolves the nation on every call, so a bot keeps talking to the
// registry's current instance after the original one was evicted and reloaded.
type liveTarget struct {
	id      string
	nations NationSource
	logger  *logger.Logger
}

func (t *liveTarget) ID() string { return t.id }

func (t *liveTarget) nation() (*engine.Nation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	return t.nations.Get(ctx, t.id)
}

func (t *liveTarget) Do(a engine.Action) ([]events.GameEvent, error) {
	n, err := t.nation()
	if err != nil {
		return nil, err
	}
	return n.Do(a)
}

func (t *liveTarget) Snapshot() civilization.Snapshot {
	n, err := t.nation()
	if err != nil {
		t.logger.Warn("chatbot could not resolve nation", "nation_id", t.id, "err", err)
		return civilization.Snapshot{NationID: t.id}
	}
	return n.Snapshot()
}
