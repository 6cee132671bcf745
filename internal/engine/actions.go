package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
)

// ErrInsufficientResources is returned when raid, expand or fortify cannot be paid for.
// The state is left untouched.
var ErrInsufficientResources = errors.New("insufficient resources")

// ErrInvalidAction is returned for unknown action kinds and malformed arguments.
var ErrInvalidAction = errors.New("invalid action")

// ActionKind names an inbound action.
type ActionKind string

const (
	ActionSendMessage     ActionKind = "SEND_MESSAGE"
	ActionReengage        ActionKind = "REENGAGE"
	ActionBattle          ActionKind = "BATTLE"
	ActionRaid            ActionKind = "RAID"
	ActionDiplomacy       ActionKind = "DIPLOMACY"
	ActionExpandTerritory ActionKind = "EXPAND_TERRITORY"
	ActionFortify         ActionKind = "FORTIFY_DEFENSES"
	ActionTick            ActionKind = "TICK"
	ActionReset           ActionKind = "RESET"
	ActionRename          ActionKind = "RENAME"
)

// Action is one inbound command for a nation.
type Action struct {
	Kind   ActionKind          `json:"type"`
	Text   string              `json:"text,omitempty"`
	Sender civilization.Sender `json:"sender,omitempty"`
	At     time.Time           `json:"at,omitempty"` // Tick only; zero means "now"
}

// SendMessage appends a chat message. User messages also re-engage a decaying nation.
func SendMessage(text string, sender civilization.Sender) Action {
	return Action{Kind: ActionSendMessage, Text: text, Sender: sender}
}

// Reengage clears the decay flag.
func Reengage() Action { return Action{Kind: ActionReengage} }

// Battle fights an enemy of comparable strength.
func Battle() Action { return Action{Kind: ActionBattle} }

// Raid spends materials for a chance at loot.
func Raid() Action { return Action{Kind: ActionRaid} }

// Diplomacy picks one of the four treaties.
func Diplomacy() Action { return Action{Kind: ActionDiplomacy} }

// ExpandTerritory grows the nation's land.
func ExpandTerritory() Action { return Action{Kind: ActionExpandTerritory} }

// FortifyDefenses raises the defense level.
func FortifyDefenses() Action { return Action{Kind: ActionFortify} }

// Tick runs the periodic communication-lapse check.
func Tick(now time.Time) Action { return Action{Kind: ActionTick, At: now} }

// Reset restores stage-0 defaults.
func Reset() Action { return Action{Kind: ActionReset} }

// Rename sets the civilization name.
func Rename(name string) Action { return Action{Kind: ActionRename, Text: name} }

// ParseActionKind maps transport names ("battle", "EXPAND", ...) onto kinds.
func ParseActionKind(raw string) (ActionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SEND_MESSAGE", "MESSAGE":
		return ActionSendMessage, nil
	case "REENGAGE":
		return ActionReengage, nil
	case "BATTLE":
		return ActionBattle, nil
	case "RAID":
		return ActionRaid, nil
	case "DIPLOMACY":
		return ActionDiplomacy, nil
	case "EXPAND_TERRITORY", "EXPAND":
		return ActionExpandTerritory, nil
	case "FORTIFY_DEFENSES", "FORTIFY":
		return ActionFortify, nil
	case "TICK":
		return ActionTick, nil
	case "RESET":
		return ActionReset, nil
	case "RENAME":
		return ActionRename, nil
	}
	return "", ErrInvalidAction
}

// actorOf reports who the resulting events are attributed to.
func (a Action) actorOf() string {
	if a.Kind == ActionSendMessage && a.Sender != "" {
		return string(a.Sender)
	}
	if a.Kind == ActionTick {
		return "SYSTEM"
	}
	return string(civilization.SenderUser)
}
