package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/survey"
)

// ---------------------------------------------------------
// SQLEventRepository
// ---------------------------------------------------------

// SQLEventRepository implements EventRepository for both dialects.
type SQLEventRepository struct {
	db *DB
}

func NewSQLEventRepository(db *DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

func (r *SQLEventRepository) Append(ctx context.Context, event events.GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := r.db.conn.Rebind(`
		INSERT INTO nation_events (id, nation_id, timestamp_ms, event_type, actor_id, stage_index, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = r.db.conn.ExecContext(ctx, query,
		event.ID, event.NationID, toMillis(event.Timestamp), string(event.Type),
		event.ActorID, event.StageIndex, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `seq, id, nation_id, timestamp_ms, event_type, actor_id, stage_index, payload`

func (r *SQLEventRepository) getMany(ctx context.Context, where string, args ...interface{}) ([]events.GameEvent, error) {
	query := r.db.conn.Rebind(`SELECT ` + eventColumns + ` FROM nation_events WHERE ` + where + ` ORDER BY seq ASC`)

	var rows []EventRecord
	if err := r.db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	out := make([]events.GameEvent, 0, len(rows))
	for _, row := range rows {
		e := events.GameEvent{
			ID:         row.ID,
			Timestamp:  fromMillis(row.TimestampMs),
			Type:       events.EventType(row.EventType),
			NationID:   row.NationID,
			ActorID:    row.ActorID,
			StageIndex: row.StageIndex,
		}
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", row.ID, err)
		}
		if payload != nil {
			e.Payload = payload
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLEventRepository) GetByNation(ctx context.Context, nationID string) ([]events.GameEvent, error) {
	return r.getMany(ctx, `nation_id = ?`, nationID)
}

func (r *SQLEventRepository) GetByEventType(ctx context.Context, nationID string, eventType events.EventType) ([]events.GameEvent, error) {
	return r.getMany(ctx, `nation_id = ? AND event_type = ?`, nationID, string(eventType))
}

func (r *SQLEventRepository) GetSince(ctx context.Context, nationID string, since time.Time) ([]events.GameEvent, error) {
	return r.getMany(ctx, `nation_id = ? AND timestamp_ms >= ?`, nationID, toMillis(since))
}

// ---------------------------------------------------------
// SQLSnapshotRepository
// ---------------------------------------------------------

// SQLSnapshotRepository implements SnapshotRepository for both dialects.
type SQLSnapshotRepository struct {
	db  *DB
	now func() time.Time
}

func NewSQLSnapshotRepository(db *DB) *SQLSnapshotRepository {
	return &SQLSnapshotRepository{db: db, now: time.Now}
}

func (r *SQLSnapshotRepository) SaveSnapshot(ctx context.Context, s civilization.State) error {
	history, err := json.Marshal(s.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	rec := SnapshotRecord{
		NationID:      s.NationID,
		Name:          s.Name,
		StageIndex:    s.StageIndex,
		TotalMessages: s.TotalMessages,
		Food:          s.Resources.Food,
		Materials:     s.Resources.Materials,
		Population:    s.Resources.Population,
		MilitaryPower: s.MilitaryPower,
		DefenseLevel:  s.DefenseLevel,
		TerritorySize: s.TerritorySize,
		IsDecaying:    s.IsDecaying,
		LastMessageMs: toMillis(s.LastMessageAt),
		History:       string(history),
		UpdatedMs:     toMillis(r.now()),
	}

	query := `
		INSERT INTO nation_snapshots (nation_id, name, stage_index, total_messages, food, materials, population,
			military_power, defense_level, territory_size, is_decaying, last_message_ms, history, updated_ms)
		VALUES (:nation_id, :name, :stage_index, :total_messages, :food, :materials, :population,
			:military_power, :defense_level, :territory_size, :is_decaying, :last_message_ms, :history, :updated_ms)
		ON CONFLICT(nation_id) DO UPDATE SET
			name=excluded.name,
			stage_index=excluded.stage_index,
			total_messages=excluded.total_messages,
			food=excluded.food,
			materials=excluded.materials,
			population=excluded.population,
			military_power=excluded.military_power,
			defense_level=excluded.defense_level,
			territory_size=excluded.territory_size,
			is_decaying=excluded.is_decaying,
			last_message_ms=excluded.last_message_ms,
			history=excluded.history,
			updated_ms=excluded.updated_ms
	`
	if _, err := r.db.conn.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", s.NationID, err)
	}
	return nil
}

func (r *SQLSnapshotRepository) LoadSnapshot(ctx context.Context, nationID string) (civilization.State, bool, error) {
	query := r.db.conn.Rebind(`SELECT nation_id, name, stage_index, total_messages, food, materials, population,
		military_power, defense_level, territory_size, is_decaying, last_message_ms, history, updated_ms
		FROM nation_snapshots WHERE nation_id = ?`)

	var rec SnapshotRecord
	if err := r.db.conn.GetContext(ctx, &rec, query, nationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return civilization.State{}, false, nil
		}
		return civilization.State{}, false, fmt.Errorf("failed to load snapshot %s: %w", nationID, err)
	}

	s := civilization.State{
		NationID:      rec.NationID,
		Name:          rec.Name,
		StageIndex:    rec.StageIndex,
		TotalMessages: rec.TotalMessages,
		Resources:     civilization.Resources{Food: rec.Food, Materials: rec.Materials, Population: rec.Population},
		MilitaryPower: rec.MilitaryPower,
		DefenseLevel:  rec.DefenseLevel,
		TerritorySize: rec.TerritorySize,
		IsDecaying:    rec.IsDecaying,
		LastMessageAt: fromMillis(rec.LastMessageMs),
	}
	if err := json.Unmarshal([]byte(rec.History), &s.History); err != nil {
		return civilization.State{}, false, fmt.Errorf("failed to decode history of %s: %w", nationID, err)
	}
	return s, true, nil
}

func (r *SQLSnapshotRepository) ListNationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.conn.SelectContext(ctx, &ids, `SELECT nation_id FROM nation_snapshots ORDER BY nation_id`); err != nil {
		return nil, fmt.Errorf("failed to list nations: %w", err)
	}
	return ids, nil
}

// ---------------------------------------------------------
// SQLProfileRepository
// ---------------------------------------------------------

// SQLProfileRepository implements ProfileRepository for both dialects.
type SQLProfileRepository struct {
	db *DB
}

func NewSQLProfileRepository(db *DB) *SQLProfileRepository {
	return &SQLProfileRepository{db: db}
}

func (r *SQLProfileRepository) Save(ctx context.Context, p survey.Profile) error {
	answers, err := json.Marshal(p.Survey)
	if err != nil {
		return fmt.Errorf("failed to marshal survey: %w", err)
	}
	rec := ProfileRecord{
		UserID:     p.UserID,
		Name:       p.Name,
		Bio:        p.Bio,
		Activities: p.Activities,
		Goals:      p.Goals,
		Values:     p.Values,
		Survey:     string(answers),
		CreatedMs:  toMillis(p.Created),
	}
	query := `
		INSERT INTO profiles (user_id, name, bio, activities, goals, values_text, survey, created_ms)
		VALUES (:user_id, :name, :bio, :activities, :goals, :values_text, :survey, :created_ms)
	`
	if _, err := r.db.conn.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.UserID, err)
	}
	return nil
}

func (r *SQLProfileRepository) Get(ctx context.Context, userID string) (survey.Profile, error) {
	query := r.db.conn.Rebind(`SELECT user_id, name, bio, activities, goals, values_text, survey, created_ms FROM profiles WHERE user_id = ?`)

	var rec ProfileRecord
	if err := r.db.conn.GetContext(ctx, &rec, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return survey.Profile{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		return survey.Profile{}, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}

	p := survey.Profile{
		UserID:     rec.UserID,
		Name:       rec.Name,
		Bio:        rec.Bio,
		Activities: rec.Activities,
		Goals:      rec.Goals,
		Values:     rec.Values,
		Created:    fromMillis(rec.CreatedMs),
	}
	if err := json.Unmarshal([]byte(rec.Survey), &p.Survey); err != nil {
		return survey.Profile{}, fmt.Errorf("failed to decode survey of %s: %w", userID, err)
	}
	return p, nil
}
