package civilization

// Stage is one of the ten fixed civilization tiers.
// Entering a stage overwrites resources and military power with the stage's values.
type Stage struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	MessagesRequired int       `json:"messages_required"`
	MilitaryPower    int       `json:"military_power"`
	Resources        Resources `json:"resources"`
	Emoji            string    `json:"emoji"`
}

// stages is ordered by ascending MessagesRequired.
var stages = [...]Stage{
	{
		Name:             "Tribal Beginnings",
		Description:      "Primitive tribes communicating through basic sounds and gestures.",
		MessagesRequired: 0,
		MilitaryPower:    10,
		Resources:        Resources{Food: 50, Materials: 30, Population: 20},
		Emoji:            "🦕",
	},
	{
		Name:             "Stone Age Settlements",
		Description:      "Agriculture and permanent settlements. Basic warfare emerges.",
		MessagesRequired: 50,
		MilitaryPower:    25,
		Resources:        Resources{Food: 100, Materials: 60, Population: 50},
		Emoji:            "🪨",
	},
	{
		Name:             "Bronze Age Kingdoms",
		Description:      "Metalworking, organized armies and the first written laws.",
		MessagesRequired: 100,
		MilitaryPower:    50,
		Resources:        Resources{Food: 200, Materials: 120, Population: 100},
		Emoji:            "⚔️",
	},
	{
		Name:             "Iron Age Empires",
		Description:      "Iron weapons, professional soldiers and expanding borders.",
		MessagesRequired: 200,
		MilitaryPower:    100,
		Resources:        Resources{Food: 400, Materials: 250, Population: 200},
		Emoji:            "🏰",
	},
	{
		Name:             "Classical Civilizations",
		Description:      "Philosophy, democracy and monumental architecture.",
		MessagesRequired: 350,
		MilitaryPower:    200,
		Resources:        Resources{Food: 800, Materials: 500, Population: 400},
		Emoji:            "🏛️",
	},
	{
		Name:             "Medieval Realms",
		Description:      "Feudal kingdoms, castles and knights.",
		MessagesRequired: 500,
		MilitaryPower:    400,
		Resources:        Resources{Food: 1600, Materials: 1000, Population: 800},
		Emoji:            "⚔️",
	},
	{
		Name:             "Renaissance Powers",
		Description:      "Art, science and exploration across the oceans.",
		MessagesRequired: 700,
		MilitaryPower:    800,
		Resources:        Resources{Food: 3200, Materials: 2000, Population: 1600},
		Emoji:            "🎨",
	},
	{
		Name:             "Industrial Nations",
		Description:      "Factories, railways and mass production.",
		MessagesRequired: 1000,
		MilitaryPower:    1600,
		Resources:        Resources{Food: 6400, Materials: 4000, Population: 3200},
		Emoji:            "🏭",
	},
	{
		Name:             "Modern Superpowers",
		Description:      "Global influence, space programs and advanced technology.",
		MessagesRequired: 1500,
		MilitaryPower:    3200,
		Resources:        Resources{Food: 12800, Materials: 8000, Population: 6400},
		Emoji:            "🚀",
	},
	{
		Name:             "Transcendent Civilization",
		Description:      "A civilization beyond conflict, united by understanding.",
		MessagesRequired: 2000,
		MilitaryPower:    6400,
		Resources:        Resources{Food: 25600, Materials: 16000, Population: 12800},
		Emoji:            "🌟",
	},
}

// StageCount is the number of stages in the table.
const StageCount = len(stages)

// StageAt returns the stage at index i. Out-of-range indexes are clamped.
func StageAt(i int) Stage {
	if i < 0 {
		i = 0
	}
	if i >= StageCount {
		i = StageCount - 1
	}
	return stages[i]
}

// NextStage returns the stage after i, or false at the final stage.
func NextStage(i int) (Stage, bool) {
	if i+1 >= StageCount || i+1 < 0 {
		return Stage{}, false
	}
	return stages[i+1], true
}

// Stages returns a copy of the stage table.
func Stages() []Stage {
	out := make([]Stage, StageCount)
	copy(out, stages[:])
	return out
}
