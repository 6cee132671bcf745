package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
)

// Impact classes for recap entries.
const (
	ImpactPositive = "POSITIVE"
	ImpactNegative = "NEGATIVE"
	ImpactNeutral  = "NEUTRAL"
)

// Reconstructor turns the persisted event ledger of a nation into a
// human-readable recap, e.g. to show what happened while a player was away.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new recap builder.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	StageIndex int       `json:"stage_index"`
	Summary    string    `json:"summary"`
	Impact     string    `json:"impact"`
}

// Recap is the summary of a nation's history since a point in time.
type Recap struct {
	NationID   string       `json:"nation_id"`
	Since      time.Time    `json:"since"`
	Events     []RecapEvent `json:"events"`
	Evolutions int          `json:"evolutions"`
	Decays     int          `json:"decays"`
	Collapses  int          `json:"collapses"`
	Messages   int          `json:"messages"`
}

// GenerateRecap summarises every event of nationID at or after since.
// Chat messages are counted but not listed individually.
func (r *Reconstructor) GenerateRecap(ctx context.Context, nationID string, since time.Time) (*Recap, error) {
	history, err := r.eventRepo.GetSince(ctx, nationID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for nation: %w", err)
	}

	recap := &Recap{NationID: nationID, Since: since, Events: []RecapEvent{}}
	for _, e := range history {
		switch e.Type {
		case events.EventTypeMessageAdded:
			recap.Messages++
			continue
		case events.EventTypeEvolutionOccurred:
			recap.Evolutions++
		case events.EventTypeDecayTriggered:
			recap.Decays++
		case events.EventTypeCollapseOccurred:
			recap.Collapses++
		}

		payload := payloadMap(e.Payload)
		recap.Events = append(recap.Events, RecapEvent{
			Timestamp:  e.Timestamp,
			EventType:  string(e.Type),
			StageIndex: e.StageIndex,
			Summary:    summarizeEvent(e.Type, payload),
			Impact:     determineImpact(e.Type, payload),
		})
	}
	return recap, nil
}

// payloadMap normalises typed payloads from the live log and decoded maps
// from the database into one shape.
func payloadMap(p interface{}) map[string]interface{} {
	if m, ok := p.(map[string]interface{}); ok {
		return m
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func intField(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func boolField(m map[string]interface{}, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(t events.EventType, p map[string]interface{}) string {
	switch t {
	case events.EventTypeEvolutionOccurred:
		to := civilization.StageAt(intField(p, "to_stage"))
		return fmt.Sprintf("Evolved into the %s %s", to.Name, to.Emoji)
	case events.EventTypeDecayTriggered:
		return fmt.Sprintf("Decay set in: %s", stringField(p, "reason"))
	case events.EventTypeCollapseOccurred:
		return fmt.Sprintf("The civilization collapsed after %d messages", intField(p, "lost_total_messages"))
	case events.EventTypeReEngaged:
		return "Communication resumed and decay stopped"
	case events.EventTypeBattleResolved:
		if boolField(p, "victory") {
			return fmt.Sprintf("Won a battle against an army of %d", intField(p, "enemy_power"))
		}
		return fmt.Sprintf("Lost a battle and took %d damage", intField(p, "damage"))
	case events.EventTypeRaidResolved:
		if boolField(p, "success") {
			return fmt.Sprintf("Raid brought back %d food", intField(p, "loot"))
		}
		return fmt.Sprintf("Raid failed, %d people lost", intField(p, "losses"))
	case events.EventTypeDiplomacyResolved:
		return fmt.Sprintf("Signed a %s", stringField(p, "name"))
	case events.EventTypeTerritoryExpanded:
		return fmt.Sprintf("Territory grew to %d", intField(p, "territory_size"))
	case events.EventTypeDefensesFortified:
		return fmt.Sprintf("Defenses raised to level %d", intField(p, "defense_level"))
	case events.EventTypeCivilizationReset:
		return "The civilization was started over"
	case events.EventTypeCivilizationRenamed:
		return fmt.Sprintf("Renamed to %s", stringField(p, "name"))
	default:
		return "Something happened in the nation."
	}
}

// determineImpact classifies the event impact.
func determineImpact(t events.EventType, p map[string]interface{}) string {
	switch t {
	case events.EventTypeEvolutionOccurred, events.EventTypeReEngaged,
		events.EventTypeTerritoryExpanded, events.EventTypeDefensesFortified,
		events.EventTypeDiplomacyResolved:
		return ImpactPositive
	case events.EventTypeDecayTriggered, events.EventTypeCollapseOccurred:
		return ImpactNegative
	case events.EventTypeBattleResolved:
		if boolField(p, "victory") {
			return ImpactPositive
		}
		return ImpactNegative
	case events.EventTypeRaidResolved:
		if boolField(p, "success") {
			return ImpactPositive
		}
		return ImpactNegative
	default:
		return ImpactNeutral
	}
}
