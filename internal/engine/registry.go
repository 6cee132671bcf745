package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
)

// SnapshotStore persists nation state between restarts and evictions.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, nationID string) (civilization.State, bool, error)
	SaveSnapshot(ctx context.Context, state civilization.State) error
}

// evictSaveTimeout bounds the write made when a nation falls out of memory.
const evictSaveTimeout = 5 * time.Second

// Registry keeps the most recently used nations in memory.
// Nations that fall out of the cache are saved if they changed.
type Registry struct {
	mu       sync.Mutex
	nations  *lru.Cache[string, *Nation]
	store    SnapshotStore
	rules    *Rules
	eventLog *events.EventLog
	logger   *logger.Logger
	clock    func() time.Time
}

// NewRegistry creates a registry holding at most capacity live nations.
// store may be nil, in which case nations only live in memory.
func NewRegistry(capacity int, rules *Rules, store SnapshotStore, eventLog *events.EventLog, log *logger.Logger) (*Registry, error) {
	r := &Registry{
		store:    store,
		rules:    rules,
		eventLog: eventLog,
		logger:   log,
		clock:    rules.now,
	}
	cache, err := lru.NewWithEvict(capacity, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("nation cache: %w", err)
	}
	r.nations = cache
	return r, nil
}

func (r *Registry) onEvict(id string, n *Nation) {
	if r.store == nil {
		return
	}
	state, dirty := n.TakeDirty()
	if !dirty {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), evictSaveTimeout)
	defer cancel()
	if err := r.store.SaveSnapshot(ctx, state); err != nil {
		r.logger.Error("failed to save evicted nation", "nation_id", id, "err", err)
	}
}

// Get returns the live nation, loading or creating it when needed.
func (r *Registry) Get(ctx context.Context, nationID string) (*Nation, error) {
	nationID = strings.TrimSpace(nationID)
	if nationID == "" {
		return nil, fmt.Errorf("%w: empty nation id", ErrInvalidAction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.nations.Get(nationID); ok {
		return n, nil
	}

	state := civilization.NewState(nationID, r.clock())
	if r.store != nil {
		loaded, found, err := r.store.LoadSnapshot(ctx, nationID)
		if err != nil {
			return nil, fmt.Errorf("load nation %s: %w", nationID, err)
		}
		if found {
			state = loaded
		}
	}

	n := NewNation(state, r.rules, r.eventLog, r.logger)
	r.nations.Add(nationID, n)
	metrics.Get().SetNationsLive(r.nations.Len())
	return n, nil
}

// Lookup returns a live nation without loading it.
func (r *Registry) Lookup(nationID string) (*Nation, bool) {
	return r.nations.Peek(nationID)
}

// Each calls fn for every live nation.
func (r *Registry) Each(fn func(*Nation)) {
	for _, n := range r.nations.Values() {
		fn(n)
	}
}

// Len returns the number of live nations.
func (r *Registry) Len() int {
	return r.nations.Len()
}

// Flush saves every nation that changed since its last save.
func (r *Registry) Flush(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	saved := 0
	var firstErr error
	for _, n := range r.nations.Values() {
		state, dirty := n.TakeDirty()
		if !dirty {
			continue
		}
		if err := r.store.SaveSnapshot(ctx, state); err != nil {
			n.markDirty()
			if firstErr == nil {
				firstErr = fmt.Errorf("save nation %s: %w", state.NationID, err)
			}
			continue
		}
		saved++
	}
	return saved, firstErr
}
