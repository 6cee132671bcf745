// Package events provides the event log for every nation.
// Each engine action emits one or more immutable events; the hub, the chatbot
// and storage consume them by polling offsets.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a nation event.
type EventType string

const (
	EventTypeMessageAdded        EventType = "MESSAGE_ADDED"
	EventTypeEvolutionOccurred   EventType = "EVOLUTION_OCCURRED"
	EventTypeDecayTriggered      EventType = "DECAY_TRIGGERED"
	EventTypeCollapseOccurred    EventType = "COLLAPSE_OCCURRED"
	EventTypeBattleResolved      EventType = "BATTLE_RESOLVED"
	EventTypeRaidResolved        EventType = "RAID_RESOLVED"
	EventTypeDiplomacyResolved   EventType = "DIPLOMACY_RESOLVED"
	EventTypeTerritoryExpanded   EventType = "TERRITORY_EXPANDED"
	EventTypeDefensesFortified   EventType = "DEFENSES_FORTIFIED"
	EventTypeReEngaged           EventType = "RE_ENGAGED"
	EventTypeCivilizationReset   EventType = "CIVILIZATION_RESET"
	EventTypeCivilizationRenamed EventType = "CIVILIZATION_RENAMED"
)

// ActorSystem marks events raised by timers rather than a chat participant.
const ActorSystem = "SYSTEM"

// GameEvent represents an immutable record of something that happened to a nation.
type GameEvent struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type"`
	NationID   string      `json:"nation_id"`
	ActorID    string      `json:"actor_id"` // "user", "partner" or SYSTEM
	Payload    interface{} `json:"payload"`
	StageIndex int         `json:"stage_index"` // Stage after the action
}

// NewEvent stamps a fresh event with an ID.
func NewEvent(t EventType, nationID, actorID string, at time.Time, payload interface{}) GameEvent {
	return GameEvent{
		ID:        GenerateEventID(),
		Timestamp: at,
		Type:      t,
		NationID:  nationID,
		ActorID:   actorID,
		Payload:   payload,
	}
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of nation events.
// Offsets are absolute: they keep counting across trimmed events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	base      int // events dropped from the front
	retain    int // 0 keeps everything
	persister EventPersister
	onError   func(GameEvent, error)
	pending   sync.WaitGroup
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// WithRetention bounds the in-memory log to roughly the newest n events.
// Older events stay in the persister; pollers that fall further behind skip them.
func (el *EventLog) WithRetention(n int) *EventLog {
	el.mu.Lock()
	defer el.mu.Unlock()
	if n > 0 {
		el.retain = n
	}
	return el
}

// OnPersistError registers a callback for write-through failures.
func (el *EventLog) OnPersistError(fn func(GameEvent, error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// Append adds events to the log. Events are immutable once appended.
func (el *EventLog) Append(batch ...GameEvent) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, batch...)
	el.trim()

	if el.persister == nil {
		return
	}
	onError := el.onError
	for _, event := range batch {
		el.pending.Add(1)
		go func(e GameEvent) {
			defer el.pending.Done()
			if err := el.persister.Append(e); err != nil && onError != nil {
				onError(e, err)
			}
		}(event)
	}
}

// trim drops the oldest events once the log passes a quarter over its retention.
func (el *EventLog) trim() {
	if el.retain == 0 || len(el.events) <= el.retain+el.retain/4 {
		return
	}
	drop := len(el.events) - el.retain
	kept := make([]GameEvent, el.retain, el.retain+el.retain/4)
	copy(kept, el.events[drop:])
	el.events = kept
	el.base += drop
}

// Flush blocks until every write-through started so far has finished.
func (el *EventLog) Flush() {
	el.pending.Wait()
}

// Len returns the number of events ever appended, trimmed ones included.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.base + len(el.events)
}

// Since returns the events appended after offset, and the new offset.
// Pollers keep the returned offset for their next call.
func (el *EventLog) Since(offset int) ([]GameEvent, int) {
	el.mu.RLock()
	defer el.mu.RUnlock()
	end := el.base + len(el.events)
	idx := offset - el.base
	if idx < 0 {
		idx = 0
	}
	if idx >= len(el.events) {
		return nil, end
	}
	out := make([]GameEvent, len(el.events)-idx)
	copy(out, el.events[idx:])
	return out, end
}

// GetByNation returns the retained events of a nation.
func (el *EventLog) GetByNation(nationID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.NationID == nationID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns the retained events of a type for a nation.
func (el *EventLog) GetByType(nationID string, t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.NationID == nationID && e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []GameEvent {
	all, _ := el.Since(0)
	return all
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
