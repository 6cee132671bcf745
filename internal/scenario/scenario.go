// Package scenario runs end-to-end gameplay scenarios in synthetic time.
// Each scenario drives a real nation and its chatbot against a manual
// scheduler, so a full match plays out in microseconds and is repeatable.
package scenario

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/Nationship/internal/chatbot"
	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/engine"
	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/scheduler"
)

// Start is the synthetic wall-clock time every harness begins at.
var Start = time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)

// Harness wires one nation with its chatbot on a manual clock.
type Harness struct {
	Sched  *scheduler.Scheduler
	Log    *events.EventLog
	Nation *engine.Nation
	Bot    *chatbot.Bot
}

// NewHarness builds a fresh stage-0 nation. The seed drives every random draw.
func NewHarness(seed int64, log *logger.Logger) *Harness {
	sched := scheduler.NewManual(Start, log)
	rules := engine.NewRules(entropy.NewSeeded(seed), sched.Now)
	el := events.NewEventLog(nil)
	n := engine.NewNation(civilization.NewState("scenario", Start), rules, el, log)
	return &Harness{
		Sched:  sched,
		Log:    el,
		Nation: n,
		Bot:    chatbot.NewBot(n, sched, entropy.NewSeeded(seed+1), log),
	}
}

// Chat sends count messages from sender.
func (h *Harness) Chat(sender civilization.Sender, count int) error {
	for i := 0; i < count; i++ {
		if _, err := h.Nation.Do(engine.SendMessage(fmt.Sprintf("%s #%d", sender, i), sender)); err != nil {
			return err
		}
	}
	return nil
}

// Converse alternates user and partner messages, starting with the user.
func (h *Harness) Converse(count int) error {
	for i := 0; i < count; i++ {
		sender := civilization.SenderUser
		if i%2 == 1 {
			sender = civilization.SenderPartner
		}
		if err := h.Chat(sender, 1); err != nil {
			return err
		}
	}
	return nil
}

// Count returns how many events of type t were emitted.
func (h *Harness) Count(t events.EventType) int {
	return len(h.Log.GetByType("scenario", t))
}

// Result captures the outcome of one scenario.
type Result struct {
	ScenarioName   string
	Input          string
	ExpectedOutput string
	ActualOutput   string
	Passed         bool
	Reason         string
}

// Scenario is one scripted match.
type Scenario struct {
	Name     string
	Input    string
	Expected string
	// Run plays the scenario and returns what was observed, or an error if the
	// observation contradicts Expected.
	Run func(h *Harness) (string, error)
}

// Run plays every scenario on its own harness.
func Run(scenarios []Scenario, seed int64, log *logger.Logger) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		actual, err := sc.Run(NewHarness(seed, log))
		r := Result{
			ScenarioName:   sc.Name,
			Input:          sc.Input,
			ExpectedOutput: sc.Expected,
			ActualOutput:   actual,
			Passed:         err == nil,
		}
		if err != nil {
			r.Reason = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// Builtin returns the standard smoke scenarios.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:     "First evolution",
			Input:    "50 alternating messages",
			Expected: "Stone Age Settlements, not decaying",
			Run: func(h *Harness) (string, error) {
				if err := h.Converse(50); err != nil {
					return "", err
				}
				snap := h.Nation.Snapshot()
				actual := fmt.Sprintf("%s, decaying=%v", snap.StageName, snap.IsDecaying)
				if snap.StageIndex != 1 || snap.IsDecaying {
					return actual, fmt.Errorf("expected stage 1 without decay")
				}
				return actual, nil
			},
		},
		{
			Name:     "Monologue",
			Input:    "9 user messages then 1 partner message",
			Expected: "one imbalance decay",
			Run: func(h *Harness) (string, error) {
				if err := h.Chat(civilization.SenderUser, 9); err != nil {
					return "", err
				}
				if err := h.Chat(civilization.SenderPartner, 1); err != nil {
					return "", err
				}
				decays := h.Count(events.EventTypeDecayTriggered)
				actual := fmt.Sprintf("%d decay(s)", decays)
				if decays != 1 || !h.Nation.Snapshot().IsDecaying {
					return actual, fmt.Errorf("expected exactly one decay")
				}
				return actual, nil
			},
		},
		{
			Name:     "Silence and reconciliation",
			Input:    "10 balanced messages, 6 minutes of silence, then a user message",
			Expected: "lapse decay then re-engagement",
			Run: func(h *Harness) (string, error) {
				if err := h.Converse(10); err != nil {
					return "", err
				}
				if _, err := h.Nation.Do(engine.Tick(h.Sched.Now().Add(6 * time.Minute))); err != nil {
					return "", err
				}
				decayed := h.Nation.Snapshot().IsDecaying
				if err := h.Chat(civilization.SenderUser, 1); err != nil {
					return "", err
				}
				actual := fmt.Sprintf("decayed=%v reengaged=%d", decayed, h.Count(events.EventTypeReEngaged))
				if !decayed || h.Count(events.EventTypeReEngaged) != 1 || h.Nation.Snapshot().IsDecaying {
					return actual, fmt.Errorf("expected a lapse decay cleared by the user")
				}
				return actual, nil
			},
		},
		{
			Name:     "Starvation",
			Input:    "14 partner messages in a row",
			Expected: "five decays, then collapse to stage 0",
			Run: func(h *Harness) (string, error) {
				if err := h.Chat(civilization.SenderPartner, 14); err != nil {
					return "", err
				}
				snap := h.Nation.Snapshot()
				actual := fmt.Sprintf("decays=%d collapses=%d messages=%d",
					h.Count(events.EventTypeDecayTriggered), h.Count(events.EventTypeCollapseOccurred), snap.TotalMessages)
				if h.Count(events.EventTypeCollapseOccurred) != 1 || snap.TotalMessages != 0 || snap.StageIndex != 0 {
					return actual, fmt.Errorf("expected a single collapse back to stage 0")
				}
				return actual, nil
			},
		},
		{
			Name:     "Chatbot demo",
			Input:    "demo mode for 90 seconds",
			Expected: "partner chatter, one battle and one treaty",
			Run: func(h *Harness) (string, error) {
				h.Bot.StartDemo()
				h.Sched.Advance(Start.Add(90 * time.Second))
				h.Bot.StopDemo()

				battles := h.Count(events.EventTypeBattleResolved)
				treaties := h.Count(events.EventTypeDiplomacyResolved)
				lines := h.Count(events.EventTypeMessageAdded)
				actual := fmt.Sprintf("lines=%d battles=%d treaties=%d", lines, battles, treaties)
				if battles != 1 || treaties != 1 || lines < 10 {
					return actual, fmt.Errorf("demo script did not play out")
				}
				if pending := h.Sched.Pending(scheduler.Mode("demo:scenario")); pending != 0 {
					return actual, fmt.Errorf("%d demo tasks left after stop", pending)
				}
				return actual, nil
			},
		},
	}
}
