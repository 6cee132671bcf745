package engine

import (
	"fmt"
	"sync"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
)

// Nation owns the state of one match's civilization.
// Actions are serialized; every applied action publishes its events to the EventLog.
type Nation struct {
	mu       sync.Mutex
	state    civilization.State
	rules    *Rules
	eventLog *events.EventLog
	logger   *logger.Logger
	dirty    bool
}

// NewNation wraps an existing state.
func NewNation(state civilization.State, rules *Rules, eventLog *events.EventLog, log *logger.Logger) *Nation {
	return &Nation{
		state:    state,
		rules:    rules,
		eventLog: eventLog,
		logger:   log.With("nation_id", state.NationID),
	}
}

// ID returns the nation identifier.
func (n *Nation) ID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.NationID
}

// Do applies one action. Rejected actions leave the state untouched.
func (n *Nation) Do(a Action) ([]events.GameEvent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	next, emitted, err := n.rules.applyOwned(n.state, a)
	metrics.Get().RecordAction(err)
	if err != nil {
		n.logger.Warn("action rejected", "action", a.Kind, "err", err)
		return nil, err
	}

	n.state = next
	if len(emitted) > 0 {
		n.dirty = true
		n.eventLog.Append(emitted...)
	}
	for _, e := range emitted {
		victory := false
		if p, ok := e.Payload.(events.BattlePayload); ok {
			victory = p.Victory
		}
		metrics.Get().RecordEvent(string(e.Type), victory)
		n.logger.Event(string(e.Type), e.ActorID, describe(e))
	}
	return emitted, nil
}

// Snapshot returns the read-only view. Reading never mutates.
func (n *Nation) Snapshot() civilization.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Snapshot()
}

// State returns a deep copy of the full state.
func (n *Nation) State() civilization.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Clone()
}

// TakeDirty reports whether the state changed since the last call, and clears the flag.
func (n *Nation) TakeDirty() (civilization.State, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.dirty {
		return civilization.State{}, false
	}
	n.dirty = false
	return n.state.Clone(), true
}

func (n *Nation) markDirty() {
	n.mu.Lock()
	n.dirty = true
	n.mu.Unlock()
}

func describe(e events.GameEvent) string {
	switch p := e.Payload.(type) {
	case events.EvolutionPayload:
		return fmt.Sprintf("%s -> %s", p.FromName, p.ToName)
	case events.DecayPayload:
		return p.Reason
	case events.BattlePayload:
		return fmt.Sprintf("victory=%t power=%d enemy=%d damage=%d", p.Victory, p.PlayerPower, p.EnemyPower, p.Damage)
	case events.RaidPayload:
		return fmt.Sprintf("success=%t loot=%d losses=%d", p.Success, p.Loot, p.Losses)
	case events.DiplomacyPayload:
		return p.Name
	case events.MessageAddedPayload:
		return fmt.Sprintf("total=%d", p.TotalMessages)
	}
	return ""
}
