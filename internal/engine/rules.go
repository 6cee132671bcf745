package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
)

const (
	// DefaultLapse is how long a conversation may stay silent before Tick decays it.
	DefaultLapse = 5 * time.Minute

	// BalanceWindow is the number of recent messages the balance check looks at.
	BalanceWindow = 10

	// MaxBalanceRatio is the largest tolerated majority/minority sender ratio.
	MaxBalanceRatio = 3.0
)

// Decay reasons carried by DECAY_TRIGGERED.
const (
	ReasonImbalance = "imbalanced conversation"
	ReasonLapse     = "communication lapse"
)

// Rules is the pure transition function of a nation.
// It never holds state of its own; randomness and time are injected.
type Rules struct {
	rng   entropy.Source
	now   func() time.Time
	lapse time.Duration
}

// NewRules creates a rule set. A nil clock falls back to time.Now.
func NewRules(rng entropy.Source, now func() time.Time) *Rules {
	if now == nil {
		now = time.Now
	}
	return &Rules{rng: rng, now: now, lapse: DefaultLapse}
}

// WithLapse overrides the communication-lapse window.
func (r *Rules) WithLapse(d time.Duration) *Rules {
	if d > 0 {
		r.lapse = d
	}
	return r
}

// Lapse returns the configured communication-lapse window.
func (r *Rules) Lapse() time.Duration { return r.lapse }

// transition accumulates the effects of one action on a private copy of the state.
type transition struct {
	state  civilization.State
	events []events.GameEvent
	actor  string
	now    time.Time
}

func (tr *transition) emit(t events.EventType, actor string, payload interface{}) {
	tr.events = append(tr.events, events.NewEvent(t, tr.state.NationID, actor, tr.now, payload))
}

// Apply runs one action. On error the input state is returned as-is with no events.
func (r *Rules) Apply(state civilization.State, a Action) (civilization.State, []events.GameEvent, error) {
	next, emitted, err := r.applyOwned(state.Clone(), a)
	if err != nil {
		return state, nil, err
	}
	return next, emitted, nil
}

// applyOwned runs one action on a state the caller hands over. History is appended
// in place, so the caller must drop state afterwards; on error only slots past its
// length may have been written.
func (r *Rules) applyOwned(state civilization.State, a Action) (civilization.State, []events.GameEvent, error) {
	tr := &transition{state: state, actor: a.actorOf(), now: r.now()}

	var err error
	switch a.Kind {
	case ActionSendMessage:
		err = r.sendMessage(tr, a)
	case ActionReengage:
		r.reengage(tr)
	case ActionTick:
		at := a.At
		if at.IsZero() {
			at = tr.now
		}
		r.tick(tr, at)
	case ActionBattle:
		r.battle(tr)
	case ActionRaid:
		err = r.raid(tr)
	case ActionDiplomacy:
		r.diplomacy(tr)
	case ActionExpandTerritory:
		err = r.expand(tr)
	case ActionFortify:
		err = r.fortify(tr)
	case ActionReset:
		tr.state.ResetToDefaults(tr.now)
		tr.emit(events.EventTypeCivilizationReset, tr.actor, nil)
	case ActionRename:
		err = r.rename(tr, a.Text)
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
	if err != nil {
		return state, nil, err
	}

	for i := range tr.events {
		tr.events[i].StageIndex = tr.state.StageIndex
	}
	return tr.state, tr.events, nil
}

func (r *Rules) sendMessage(tr *transition, a Action) error {
	sender := a.Sender
	if sender == "" {
		sender = civilization.SenderUser
	}
	if !sender.Valid() {
		return fmt.Errorf("%w: unknown sender %q", ErrInvalidAction, sender)
	}

	r.receiveMessage(tr, a.Text, sender)
	if sender == civilization.SenderUser {
		r.reengage(tr)
	}
	return nil
}

// receiveMessage appends to history, then checks balance, then checks evolution once.
func (r *Rules) receiveMessage(tr *transition, content string, sender civilization.Sender) {
	s := &tr.state
	s.TotalMessages++
	s.LastMessageAt = tr.now
	s.History = append(s.History, civilization.Message{Content: content, Sender: sender, Timestamp: tr.now})

	tr.emit(events.EventTypeMessageAdded, string(sender), events.MessageAddedPayload{
		Content:       content,
		Sender:        string(sender),
		TotalMessages: s.TotalMessages,
	})

	if len(s.History) >= BalanceWindow && Imbalanced(s.Recent(BalanceWindow), MaxBalanceRatio) {
		r.decay(tr, ReasonImbalance)
	}
	r.checkEvolution(tr)
}

// Imbalanced reports whether one side dominates the given messages by more than maxRatio.
// A side with zero messages counts as an infinite ratio. A window with no user or
// partner messages at all is balanced.
func Imbalanced(window []civilization.Message, maxRatio float64) bool {
	var user, partner int
	for _, m := range window {
		switch m.Sender {
		case civilization.SenderUser:
			user++
		case civilization.SenderPartner:
			partner++
		}
	}
	hi, lo := user, partner
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 0 {
		return false
	}
	if lo == 0 {
		return true
	}
	return float64(hi)/float64(lo) > maxRatio
}

// checkEvolution advances at most one stage and overwrites resources with the new stage's.
func (r *Rules) checkEvolution(tr *transition) {
	s := &tr.state
	next, ok := civilization.NextStage(s.StageIndex)
	if !ok || s.TotalMessages < next.MessagesRequired {
		return
	}
	from := s.Stage()
	s.StageIndex++
	s.Resources = next.Resources
	s.MilitaryPower = next.MilitaryPower

	tr.emit(events.EventTypeEvolutionOccurred, events.ActorSystem, events.EvolutionPayload{
		FromStage: s.StageIndex - 1,
		ToStage:   s.StageIndex,
		FromName:  from.Name,
		ToName:    next.Name,
		Emoji:     from.Emoji + " → " + next.Emoji,
	})
}

// decay applies the decay penalty and collapses the nation when food or population runs out.
func (r *Rules) decay(tr *transition, reason string) {
	s := &tr.state
	s.IsDecaying = true
	s.Resources.Food -= 10
	s.Resources.Materials -= 5
	s.MilitaryPower -= 2
	s.Clamp()
	tr.emit(events.EventTypeDecayTriggered, events.ActorSystem, events.DecayPayload{Reason: reason})

	if s.Resources.Food <= 0 || s.Resources.Population <= 0 {
		lost := events.CollapsePayload{LostStage: s.StageIndex, LostTotalMessages: s.TotalMessages}
		s.ResetToDefaults(tr.now)
		tr.emit(events.EventTypeCollapseOccurred, events.ActorSystem, lost)
	}
}

func (r *Rules) reengage(tr *transition) {
	if !tr.state.IsDecaying {
		return
	}
	tr.state.IsDecaying = false
	tr.emit(events.EventTypeReEngaged, tr.actor, nil)
}

func (r *Rules) tick(tr *transition, at time.Time) {
	s := &tr.state
	if s.IsDecaying || at.Sub(s.LastMessageAt) <= r.lapse {
		return
	}
	r.decay(tr, ReasonLapse)
}

func (r *Rules) rename(tr *transition, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAction)
	}
	tr.state.Name = name
	tr.emit(events.EventTypeCivilizationRenamed, tr.actor, events.RenamePayload{Name: name})
	return nil
}
