// Package storage provides the persistence layer for the nationship server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/survey"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// EventRecord is the row shape of a persisted nation event.
// Timestamps are unix milliseconds so both dialects store them identically.
type EventRecord struct {
	Seq         int64  `db:"seq"`
	ID          string `db:"id"`
	NationID    string `db:"nation_id"`
	TimestampMs int64  `db:"timestamp_ms"`
	EventType   string `db:"event_type"`
	ActorID     string `db:"actor_id"`
	StageIndex  int    `db:"stage_index"`
	Payload     string `db:"payload"` // JSON
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event events.GameEvent) error

	// GetByNation retrieves all events of a nation in append order.
	GetByNation(ctx context.Context, nationID string) ([]events.GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, nationID string, eventType events.EventType) ([]events.GameEvent, error)

	// GetSince retrieves the events at or after a point in time.
	GetSince(ctx context.Context, nationID string, since time.Time) ([]events.GameEvent, error)
}

// SnapshotRecord is the row shape of a nation snapshot.
type SnapshotRecord struct {
	NationID      string `db:"nation_id"`
	Name          string `db:"name"`
	StageIndex    int    `db:"stage_index"`
	TotalMessages int    `db:"total_messages"`
	Food          int    `db:"food"`
	Materials     int    `db:"materials"`
	Population    int    `db:"population"`
	MilitaryPower int    `db:"military_power"`
	DefenseLevel  int    `db:"defense_level"`
	TerritorySize int    `db:"territory_size"`
	IsDecaying    bool   `db:"is_decaying"`
	LastMessageMs int64  `db:"last_message_ms"`
	History       string `db:"history"` // JSON
	UpdatedMs     int64  `db:"updated_ms"`
}

// SnapshotRepository stores the latest state of each nation.
// It satisfies engine.SnapshotStore.
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context, nationID string) (civilization.State, bool, error)
	SaveSnapshot(ctx context.Context, state civilization.State) error
	ListNationIDs(ctx context.Context) ([]string, error)
}

// ProfileRecord is the row shape of a completed survey profile.
type ProfileRecord struct {
	UserID     string `db:"user_id"`
	Name       string `db:"name"`
	Bio        string `db:"bio"`
	Activities string `db:"activities"`
	Goals      string `db:"goals"`
	Values     string `db:"values_text"`
	Survey     string `db:"survey"` // JSON
	CreatedMs  int64  `db:"created_ms"`
}

// ProfileRepository stores completed survey profiles.
type ProfileRepository interface {
	Save(ctx context.Context, profile survey.Profile) error
	Get(ctx context.Context, userID string) (survey.Profile, error)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
