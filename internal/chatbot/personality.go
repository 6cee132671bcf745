package chatbot

import (
	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/entropy"
)

// Personality flavours a bot's stage-based lines.
type Personality struct {
	Name   string   `json:"name"`
	Traits []string `json:"traits"`
	Lines  []string `json:"-"`
}

var personalities = []Personality{
	{
		Name:   "Strategic",
		Traits: []string{"analytical", "planning", "military-focused"},
		Lines:  []string{"Let's think about this strategically...", "Our military strategy is key to success."},
	},
	{
		Name:   "Diplomatic",
		Traits: []string{"peaceful", "negotiation", "alliance-building"},
		Lines:  []string{"Maybe we should try diplomacy first...", "Peaceful solutions are often better."},
	},
	{
		Name:   "Explorer",
		Traits: []string{"curious", "adventurous", "expansion-focused"},
		Lines:  []string{"Let's explore new territories!", "Expansion is the key to growth."},
	},
	{
		Name:   "Builder",
		Traits: []string{"creative", "development-focused", "resource-management"},
		Lines:  []string{"Let's focus on building our infrastructure.", "Our resources are our strength."},
	},
}

// PickPersonality draws one of the four personalities.
func PickPersonality(rng entropy.Source) Personality {
	return personalities[entropy.IntN(rng, len(personalities))]
}

// ContextFor picks the phrase pool for a state. Resource levels win over decay,
// decay wins over stage.
func ContextFor(snap civilization.Snapshot) Context {
	total := snap.Resources.Total()
	switch {
	case total < 100:
		return ContextLowResources
	case total > 500:
		return ContextHighResources
	case snap.IsDecaying:
		return ContextDecay
	case snap.StageIndex < 3:
		return ContextBuilding
	case snap.StageIndex < 6:
		return ContextStrategic
	}
	return ContextAdvanced
}

// lineFor draws a line from the context's pool. Stage pools also carry the personality's lines.
func lineFor(ctx Context, p Personality, rng entropy.Source) string {
	pool := phrases[ctx]
	switch ctx {
	case ContextBuilding, ContextStrategic, ContextAdvanced:
		pool = append(append([]string(nil), pool...), p.Lines...)
	}
	return pool[entropy.IntN(rng, len(pool))]
}
