package chatbot

// Context selects which phrase pool a partner line comes from.
type Context string

const (
	ContextInitial       Context = "initial"
	ContextLowResources  Context = "low_resources"
	ContextHighResources Context = "high_resources"
	ContextDecay         Context = "decay"
	ContextBuilding      Context = "building"
	ContextStrategic     Context = "strategic"
	ContextAdvanced      Context = "advanced"
	ContextNewStage      Context = "new_stage"
	ContextBattle        Context = "battle"
	ContextRaid          Context = "raid"
	ContextDiplomacy     Context = "diplomacy"
)

var phrases = map[Context][]string{
	ContextInitial: {
		"Hey! I love this Nationship concept! What kind of civilization should we build?",
		"I'm thinking we should focus on technology first.",
		"I'm excited to see how our nation grows together!",
		"Should we be peaceful or more aggressive?",
	},
	ContextLowResources: {
		"We need to be more careful with our resources!",
		"Let's focus on gathering more materials.",
		"Our civilization is struggling - we need to work together!",
	},
	ContextHighResources: {
		"Our civilization is thriving! Look at all these resources!",
		"We're doing great! Our nation is really prospering.",
		"I love seeing our hard work pay off!",
	},
	ContextDecay: {
		"Oh no! Our civilization is decaying! We need to chat more!",
		"We need to communicate better to keep our nation strong!",
		"Our nation needs our attention - let's chat more!",
	},
	ContextBuilding: {
		"Our resources are looking good! Should we expand our territory?",
		"Let's try some diplomacy - maybe we can make some allies.",
		"Our nation is getting stronger with every message!",
	},
	ContextStrategic: {
		"Ready for battle? I think we can take on that enemy army!",
		"Let's raid that territory - we need more resources.",
		"Let's fortify our defenses - better safe than sorry.",
	},
	ContextAdvanced: {
		"We've built an amazing civilization together!",
		"I can't believe how far we've come from the stone age.",
		"Our nation is a reflection of our teamwork!",
	},
	ContextNewStage: {
		"Amazing! We've evolved to a new stage!",
		"Our civilization is advancing so quickly!",
		"I love how our conversations drive our progress!",
	},
	ContextBattle: {
		"Victory! Our army is unstoppable!",
		"Our military strategy is really paying off!",
		"Our teamwork in battle is incredible!",
	},
	ContextRaid: {
		"Successful raid! We got some great loot!",
		"That raid didn't go as planned, but we learned something.",
		"Let's use these resources wisely.",
	},
	ContextDiplomacy: {
		"Great diplomacy! We made some valuable allies.",
		"Diplomacy is sometimes better than war.",
		"Our nation is becoming a center of culture and trade!",
	},
}

// battleLostLine is sent instead of a battle line after a defeat.
const battleLostLine = "We lost that battle, but we'll learn from it and come back stronger!"

// autoChatLines feed the auto-chat mode.
var autoChatLines = []string{
	"Let's build something amazing together!",
	"I love how our civilization is growing!",
	"What should we focus on next?",
	"Our nation is getting stronger!",
	"We make a great team!",
	"Let's keep building together!",
}

// demoScript is the fixed demo sequence: a partner line, then the action two seconds later.
var demoScript = []struct {
	atSeconds int
	line      string
	action    string
}{
	{15, "Let's try a battle! I think we can take on that enemy army!", "battle"},
	{30, "Time for a raid! Let's gather some resources!", "raid"},
	{45, "Maybe we should try diplomacy instead of fighting?", "diplomacy"},
	{60, "Our territory is getting crowded. Let's expand!", "expand"},
	{75, "We should fortify our defenses before the next battle!", "fortify"},
}
