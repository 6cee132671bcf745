// Package civilization defines the core domain entities for a match's nation.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package civilization

import (
	"time"
)

// DefaultName is used until the couple names their nation.
const DefaultName = "New Nation"

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser    Sender = "user"    // The local player, typed from the UI
	SenderPartner Sender = "partner" // The match (or the chatbot standing in for them)
	SenderSystem  Sender = "system"  // Server notices
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderPartner, SenderSystem:
		return true
	}
	return false
}

// Resources are the three stockpiles of a nation. All are floored at 0.
type Resources struct {
	Food       int `json:"food"`
	Materials  int `json:"materials"`
	Population int `json:"population"`
}

// Total is the sum of all stockpiles.
func (r Resources) Total() int {
	return r.Food + r.Materials + r.Population
}

// Message is one entry of the chat history.
type Message struct {
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the full simulation state of one nation.
type State struct {
	NationID string `json:"nation_id"`
	Name     string `json:"name"`

	StageIndex    int       `json:"stage_index"`    // 0-9
	TotalMessages int       `json:"total_messages"` // Reset only by collapse or reset
	Resources     Resources `json:"resources"`
	MilitaryPower int       `json:"military_power"` // >= 1
	DefenseLevel  int       `json:"defense_level"`  // >= 1
	TerritorySize int       `json:"territory_size"` // >= 1
	IsDecaying    bool      `json:"is_decaying"`

	LastMessageAt time.Time `json:"last_message_at"`
	History       []Message `json:"history"`
}

// NewState creates a stage-0 nation.
func NewState(nationID string, now time.Time) State {
	s := State{NationID: nationID, Name: DefaultName}
	s.ResetToDefaults(now)
	return s
}

// ResetToDefaults restores every simulation field to stage-0 values.
// Identity (NationID, Name) survives.
func (s *State) ResetToDefaults(now time.Time) {
	first := StageAt(0)
	s.StageIndex = 0
	s.TotalMessages = 0
	s.Resources = first.Resources
	s.MilitaryPower = first.MilitaryPower
	s.DefenseLevel = 1
	s.TerritorySize = 1
	s.IsDecaying = false
	s.LastMessageAt = now
	s.History = nil
}

// Clone returns a deep copy so that rule functions never alias a caller's history.
func (s State) Clone() State {
	c := s
	if s.History != nil {
		c.History = make([]Message, len(s.History))
		copy(c.History, s.History)
	}
	return c
}

// Stage returns the current stage definition.
func (s State) Stage() Stage {
	return StageAt(s.StageIndex)
}

// Recent returns up to n of the latest history entries.
func (s State) Recent(n int) []Message {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Clamp enforces the resource and military floors.
func (s *State) Clamp() {
	if s.Resources.Food < 0 {
		s.Resources.Food = 0
	}
	if s.Resources.Materials < 0 {
		s.Resources.Materials = 0
	}
	if s.Resources.Population < 0 {
		s.Resources.Population = 0
	}
	if s.MilitaryPower < 1 {
		s.MilitaryPower = 1
	}
}

// Snapshot is the read-only view served to the chatbot and clients.
type Snapshot struct {
	NationID          string    `json:"nation_id"`
	Name              string    `json:"name"`
	StageIndex        int       `json:"stage"`
	StageName         string    `json:"stage_name"`
	StageEmoji        string    `json:"stage_emoji"`
	TotalMessages     int       `json:"total_messages"`
	Resources         Resources `json:"resources"`
	MilitaryPower     int       `json:"military_power"`
	DefenseLevel      int       `json:"defense_level"`
	TerritorySize     int       `json:"territory_size"`
	IsDecaying        bool      `json:"is_decaying"`
	NextStageName     string    `json:"next_stage_name,omitempty"`
	NextStageRequired int       `json:"next_stage_required,omitempty"`
	ProgressPercent   float64   `json:"progress_percent"`
}

// Snapshot builds the read-only view of s.
func (s State) Snapshot() Snapshot {
	cur := s.Stage()
	snap := Snapshot{
		NationID:        s.NationID,
		Name:            s.Name,
		StageIndex:      s.StageIndex,
		StageName:       cur.Name,
		StageEmoji:      cur.Emoji,
		TotalMessages:   s.TotalMessages,
		Resources:       s.Resources,
		MilitaryPower:   s.MilitaryPower,
		DefenseLevel:    s.DefenseLevel,
		TerritorySize:   s.TerritorySize,
		IsDecaying:      s.IsDecaying,
		ProgressPercent: 100,
	}
	if next, ok := NextStage(s.StageIndex); ok {
		snap.NextStageName = next.Name
		snap.NextStageRequired = next.MessagesRequired
		span := float64(next.MessagesRequired - cur.MessagesRequired)
		progress := float64(s.TotalMessages-cur.MessagesRequired) / span * 100
		if progress > 100 {
			progress = 100
		}
		if progress < 0 {
			progress = 0
		}
		snap.ProgressPercent = progress
	}
	return snap
}
