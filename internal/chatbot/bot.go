// Package chatbot stands in for the match partner.
// It reads a nation's snapshot, reacts to its events and talks back through
// ordinary partner messages. All timing goes through the scheduler so that
// stopping a mode drops every pending line and action of that mode.
package chatbot

import (
	"sync"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/engine"
	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
	"github.com/MRamiBalles/Nationship/internal/scheduler"
)

const (
	firstLineDelay   = 5 * time.Second
	lineDelayMin     = 4 * time.Second
	lineDelaySpread  = 3 * time.Second
	scriptActionLag  = 2 * time.Second
	reactionDelay    = 1 * time.Second
	evolutionDelay   = 2 * time.Second
	autoChatInterval = 8 * time.Second
)

// Target is the nation a bot talks to.
type Target interface {
	ID() string
	Do(a engine.Action) ([]events.GameEvent, error)
	Snapshot() civilization.Snapshot
}

// Status is the externally visible state of a bot.
type Status struct {
	NationID    string `json:"nation_id"`
	Personality string `json:"personality"`
	Demo        bool   `json:"demo"`
	AutoChat    bool   `json:"auto_chat"`
}

// Bot is the scripted partner of one nation.
type Bot struct {
	mu          sync.Mutex
	target      Target
	sched       *scheduler.Scheduler
	rng         entropy.Source
	personality Personality
	logger      *logger.Logger

	demo     bool
	autoChat bool

	demoMode     scheduler.Mode
	autoChatMode scheduler.Mode
}

// NewBot creates a bot with a random personality.
func NewBot(target Target, sched *scheduler.Scheduler, rng entropy.Source, log *logger.Logger) *Bot {
	id := target.ID()
	return &Bot{
		target:       target,
		sched:        sched,
		rng:          rng,
		personality:  PickPersonality(rng),
		logger:       log.With("nation_id", id, "component", "chatbot"),
		demoMode:     scheduler.Mode("demo:" + id),
		autoChatMode: scheduler.Mode("autochat:" + id),
	}
}

// Personality returns the bot's personality.
func (b *Bot) Personality() Personality { return b.personality }

// Status reports which modes are running.
func (b *Bot) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		NationID:    b.target.ID(),
		Personality: b.personality.Name,
		Demo:        b.demo,
		AutoChat:    b.autoChat,
	}
}

// StartDemo starts the scripted demo. Starting a running demo does nothing.
func (b *Bot) StartDemo() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.demo {
		return
	}
	b.demo = true

	b.sched.After(b.demoMode, firstLineDelay, func() {
		if b.say(b.demoMode, lineFor(ContextInitial, b.personality, b.rng)) {
			b.scheduleNextLine()
		}
	})
	for _, step := range demoScript {
		step := step
		b.sched.After(b.demoMode, time.Duration(step.atSeconds)*time.Second, func() {
			if !b.say(b.demoMode, step.line) {
				return
			}
			b.sched.After(b.demoMode, scriptActionLag, func() { b.act(step.action) })
		})
	}
	b.logger.Info("demo started", "personality", b.personality.Name)
}

// StopDemo cancels every pending demo task.
func (b *Bot) StopDemo() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.demo {
		return
	}
	b.demo = false
	dropped := b.sched.CancelMode(b.demoMode)
	b.logger.Info("demo stopped", "dropped_tasks", dropped)
}

// ToggleAutoChat flips auto-chat and returns the new setting.
func (b *Bot) ToggleAutoChat() bool {
	b.mu.Lock()
	on := !b.autoChat
	b.mu.Unlock()
	if on {
		b.StartAutoChat()
	} else {
		b.StopAutoChat()
	}
	return on
}

// StartAutoChat sends a partner line every eight seconds.
func (b *Bot) StartAutoChat() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.autoChat {
		return
	}
	b.autoChat = true
	b.scheduleAutoChat()
}

// StopAutoChat cancels the auto-chat loop.
func (b *Bot) StopAutoChat() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.autoChat {
		return
	}
	b.autoChat = false
	b.sched.CancelMode(b.autoChatMode)
}

// Stop cancels both modes.
func (b *Bot) Stop() {
	b.StopDemo()
	b.StopAutoChat()
}

// React schedules a reply to one of the nation's events.
// Replies are only sent while the demo runs; a reset always stops auto-chat.
func (b *Bot) React(e events.GameEvent) {
	if e.Type == events.EventTypeCivilizationReset {
		b.StopAutoChat()
		return
	}

	b.mu.Lock()
	active := b.demo
	b.mu.Unlock()
	if !active {
		return
	}

	delay := reactionDelay
	var line string
	switch e.Type {
	case events.EventTypeBattleResolved:
		if p, ok := e.Payload.(events.BattlePayload); ok && !p.Victory {
			line = battleLostLine
		} else {
			line = lineFor(ContextBattle, b.personality, b.rng)
		}
	case events.EventTypeRaidResolved:
		line = lineFor(ContextRaid, b.personality, b.rng)
	case events.EventTypeDiplomacyResolved:
		line = lineFor(ContextDiplomacy, b.personality, b.rng)
	case events.EventTypeEvolutionOccurred:
		line = lineFor(ContextNewStage, b.personality, b.rng)
		delay = evolutionDelay
	case events.EventTypeDecayTriggered:
		line = lineFor(ContextDecay, b.personality, b.rng)
	default:
		return
	}
	b.sched.After(b.demoMode, delay, func() { b.say(b.demoMode, line) })
}

func (b *Bot) scheduleNextLine() {
	delay := lineDelayMin + time.Duration(b.rng.Float64()*float64(lineDelaySpread))
	b.sched.After(b.demoMode, delay, func() {
		line := lineFor(ContextFor(b.target.Snapshot()), b.personality, b.rng)
		if b.say(b.demoMode, line) {
			b.scheduleNextLine()
		}
	})
}

func (b *Bot) scheduleAutoChat() {
	b.sched.After(b.autoChatMode, autoChatInterval, func() {
		line := autoChatLines[entropy.IntN(b.rng, len(autoChatLines))]
		if b.say(b.autoChatMode, line) {
			b.mu.Lock()
			if b.autoChat {
				b.scheduleAutoChat()
			}
			b.mu.Unlock()
		}
	})
}

// say sends a partner line if the mode is still running.
func (b *Bot) say(mode scheduler.Mode, line string) bool {
	if !b.running(mode) {
		return false
	}
	if _, err := b.target.Do(engine.SendMessage(line, civilization.SenderPartner)); err != nil {
		b.logger.Warn("partner line rejected", "err", err)
		return false
	}
	metrics.Get().RecordChatbotLine()
	return true
}

func (b *Bot) act(name string) {
	if !b.running(b.demoMode) {
		return
	}
	var a engine.Action
	switch name {
	case "battle":
		a = engine.Battle()
	case "raid":
		a = engine.Raid()
	case "diplomacy":
		a = engine.Diplomacy()
	case "expand":
		a = engine.ExpandTerritory()
	case "fortify":
		a = engine.FortifyDefenses()
	default:
		return
	}
	if _, err := b.target.Do(a); err != nil {
		b.logger.Info("demo action refused", "action", name, "err", err)
	}
}

func (b *Bot) running(mode scheduler.Mode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mode == b.demoMode {
		return b.demo
	}
	return b.autoChat
}
