package events

// MessageAddedPayload is attached to EventTypeMessageAdded.
type MessageAddedPayload struct {
	Content       string `json:"content"`
	Sender        string `json:"sender"`
	TotalMessages int    `json:"total_messages"`
}

// EvolutionPayload is attached to EventTypeEvolutionOccurred.
type EvolutionPayload struct {
	FromStage int    `json:"from_stage"`
	ToStage   int    `json:"to_stage"`
	FromName  string `json:"from_name"`
	ToName    string `json:"to_name"`
	Emoji     string `json:"emoji"` // "🦕 → 🪨"
}

// DecayPayload is attached to EventTypeDecayTriggered.
type DecayPayload struct {
	Reason string `json:"reason"`
}

// CollapsePayload records what was lost when a nation collapsed.
type CollapsePayload struct {
	LostStage         int `json:"lost_stage"`
	LostTotalMessages int `json:"lost_total_messages"`
}

// ResourceDelta is a signed change applied by an action.
type ResourceDelta struct {
	Food          int `json:"food,omitempty"`
	Materials     int `json:"materials,omitempty"`
	Population    int `json:"population,omitempty"`
	MilitaryPower int `json:"military_power,omitempty"`
}

// BattlePayload is attached to EventTypeBattleResolved.
type BattlePayload struct {
	Victory     bool          `json:"victory"`
	PlayerPower int           `json:"player_power"`
	EnemyPower  int           `json:"enemy_power"`
	Damage      int           `json:"damage"`
	Delta       ResourceDelta `json:"delta"`
}

// RaidPayload is attached to EventTypeRaidResolved.
type RaidPayload struct {
	Success        bool `json:"success"`
	MaterialsSpent int  `json:"materials_spent"`
	Loot           int  `json:"loot,omitempty"`
	Losses         int  `json:"losses,omitempty"`
}

// DiplomacyPayload is attached to EventTypeDiplomacyResolved.
type DiplomacyPayload struct {
	Option int           `json:"option"`
	Name   string        `json:"name"`
	Delta  ResourceDelta `json:"delta"`
}

// TerritoryPayload is attached to EventTypeTerritoryExpanded.
type TerritoryPayload struct {
	TerritorySize int `json:"territory_size"`
}

// FortifyPayload is attached to EventTypeDefensesFortified.
type FortifyPayload struct {
	DefenseLevel int `json:"defense_level"`
}

// RenamePayload is attached to EventTypeCivilizationRenamed.
type RenamePayload struct {
	Name string `json:"name"`
}
