package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return epoch }

func newTestRules(values ...float64) (*Rules, *entropy.Sequence) {
	seq := entropy.NewSequence(values...)
	return NewRules(seq, fixedClock), seq
}

func eventTypes(evs []events.GameEvent) []events.EventType {
	out := make([]events.EventType, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func countType(evs []events.GameEvent, t events.EventType) int {
	n := 0
	for _, e := range evs {
		if e.Type == t {
			n++
		}
	}
	return n
}

// seedHistory fills the history with the given senders, oldest first.
func seedHistory(s *civilization.State, senders ...civilization.Sender) {
	for _, sender := range senders {
		s.History = append(s.History, civilization.Message{Content: "x", Sender: sender, Timestamp: epoch})
	}
}

func TestAlternatingConversationReachesStoneAge(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("match-1", epoch)

	var all []events.GameEvent
	for i := 0; i < 50; i++ {
		sender := civilization.SenderUser
		if i%2 == 1 {
			sender = civilization.SenderPartner
		}
		next, evs, err := rules.Apply(state, SendMessage("hello", sender))
		if err != nil {
			t.Fatalf("message %d: unexpected error %v", i, err)
		}
		state = next
		all = append(all, evs...)
	}

	if state.StageIndex != 1 {
		t.Fatalf("Expected stage 1, got %d", state.StageIndex)
	}
	if state.Resources != (civilization.Resources{Food: 100, Materials: 60, Population: 50}) || state.MilitaryPower != 25 {
		t.Errorf("Expected stone age resources, got %+v mp=%d", state.Resources, state.MilitaryPower)
	}
	if n := countType(all, events.EventTypeEvolutionOccurred); n != 1 {
		t.Errorf("Expected exactly one evolution, got %d", n)
	}
	if n := countType(all, events.EventTypeDecayTriggered); n != 0 {
		t.Errorf("Expected no decay in a balanced conversation, got %d", n)
	}
	if state.IsDecaying {
		t.Errorf("Expected nation not decaying")
	}
}

func TestEvolutionAdvancesOneStagePerMessage(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	state.TotalMessages = 149 // enough for stage 2 already

	state, evs, _ := rules.Apply(state, SendMessage("hi", civilization.SenderPartner))
	if state.StageIndex != 1 {
		t.Fatalf("Expected a single step to stage 1, got %d", state.StageIndex)
	}
	if countType(evs, events.EventTypeEvolutionOccurred) != 1 {
		t.Errorf("Expected one evolution event, got %v", eventTypes(evs))
	}

	state, _, _ = rules.Apply(state, SendMessage("hi", civilization.SenderUser))
	if state.StageIndex != 2 {
		t.Errorf("Expected stage 2 on the next message, got %d", state.StageIndex)
	}
}

func TestFinalStageDoesNotEvolve(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	state.StageIndex = civilization.StageCount - 1
	state.TotalMessages = 100000

	next, evs, _ := rules.Apply(state, SendMessage("hi", civilization.SenderUser))
	if next.StageIndex != civilization.StageCount-1 || countType(evs, events.EventTypeEvolutionOccurred) != 0 {
		t.Errorf("Expected no evolution past the last stage, got stage %d", next.StageIndex)
	}
}

func TestImbalancedWindowDecays(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	seedHistory(&state, civilization.SenderUser)
	for i := 0; i < 8; i++ {
		seedHistory(&state, civilization.SenderPartner)
	}

	next, evs, err := rules.Apply(state, SendMessage("partner again", civilization.SenderPartner))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !next.IsDecaying {
		t.Errorf("Expected 9/1 window to start decay")
	}
	if next.Resources.Food != 40 || next.Resources.Materials != 25 || next.MilitaryPower != 8 {
		t.Errorf("Expected decay penalty, got %+v mp=%d", next.Resources, next.MilitaryPower)
	}
	want := []events.EventType{events.EventTypeMessageAdded, events.EventTypeDecayTriggered}
	if !reflect.DeepEqual(eventTypes(evs), want) {
		t.Errorf("Expected %v, got %v", want, eventTypes(evs))
	}
}

func TestUserMessageReengagesAfterBalanceDecay(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	seedHistory(&state, civilization.SenderPartner)
	for i := 0; i < 8; i++ {
		seedHistory(&state, civilization.SenderUser)
	}

	next, evs, _ := rules.Apply(state, SendMessage("me again", civilization.SenderUser))
	want := []events.EventType{events.EventTypeMessageAdded, events.EventTypeDecayTriggered, events.EventTypeReEngaged}
	if !reflect.DeepEqual(eventTypes(evs), want) {
		t.Errorf("Expected %v, got %v", want, eventTypes(evs))
	}
	if next.IsDecaying {
		t.Errorf("Expected the user's own message to clear the decay flag")
	}
	if next.Resources.Food != 40 {
		t.Errorf("Expected the decay penalty to stick, food=%d", next.Resources.Food)
	}
}

func TestBalancedWindowDoesNotDecay(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	seedHistory(&state,
		civilization.SenderUser, civilization.SenderUser, civilization.SenderUser,
		civilization.SenderPartner, civilization.SenderPartner, civilization.SenderPartner, civilization.SenderPartner,
		civilization.SenderUser, civilization.SenderUser)

	next, evs, _ := rules.Apply(state, SendMessage("6/4", civilization.SenderUser))
	if next.IsDecaying || countType(evs, events.EventTypeDecayTriggered) != 0 {
		t.Errorf("Expected a 6/4 window to be tolerated, got %v", eventTypes(evs))
	}
}

func TestShortHistoryNeverDecays(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	for i := 0; i < 9; i++ {
		var evs []events.GameEvent
		state, evs, _ = rules.Apply(state, SendMessage("alone", civilization.SenderPartner))
		if countType(evs, events.EventTypeDecayTriggered) != 0 {
			t.Fatalf("Expected no balance check below 10 messages, decayed at %d", i+1)
		}
	}
	_, evs, _ := rules.Apply(state, SendMessage("alone", civilization.SenderPartner))
	if countType(evs, events.EventTypeDecayTriggered) != 1 {
		t.Errorf("Expected the tenth one-sided message to decay")
	}
}

func TestImbalanced(t *testing.T) {
	msgs := func(user, partner, system int) []civilization.Message {
		var out []civilization.Message
		for i := 0; i < user; i++ {
			out = append(out, civilization.Message{Sender: civilization.SenderUser})
		}
		for i := 0; i < partner; i++ {
			out = append(out, civilization.Message{Sender: civilization.SenderPartner})
		}
		for i := 0; i < system; i++ {
			out = append(out, civilization.Message{Sender: civilization.SenderSystem})
		}
		return out
	}

	cases := []struct {
		name   string
		window []civilization.Message
		want   bool
	}{
		{"even", msgs(5, 5, 0), false},
		{"three to one is tolerated", msgs(6, 2, 2), false},
		{"above three", msgs(7, 2, 1), true},
		{"one side silent", msgs(0, 4, 6), true},
		{"only system", msgs(0, 0, 10), false},
	}
	for _, tc := range cases {
		if got := Imbalanced(tc.window, MaxBalanceRatio); got != tc.want {
			t.Errorf("%s: Imbalanced = %t, expected %t", tc.name, got, tc.want)
		}
	}
}

func TestDecayCollapsesStarvingNation(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch.Add(-time.Hour))
	state.Name = "Atlantis"
	state.StageIndex = 3
	state.TotalMessages = 300
	state.Resources = civilization.Resources{Food: 5, Materials: 100, Population: 80}

	next, evs, err := rules.Apply(state, Tick(epoch))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := []events.EventType{events.EventTypeDecayTriggered, events.EventTypeCollapseOccurred}
	if !reflect.DeepEqual(eventTypes(evs), want) {
		t.Fatalf("Expected %v, got %v", want, eventTypes(evs))
	}

	fresh := civilization.NewState("m", epoch)
	fresh.Name = "Atlantis"
	if !reflect.DeepEqual(next, fresh) {
		t.Errorf("Expected stage-0 defaults with identity kept, got %+v", next)
	}
	if p, ok := evs[1].Payload.(events.CollapsePayload); !ok || p.LostStage != 3 || p.LostTotalMessages != 300 {
		t.Errorf("Unexpected collapse payload %+v", evs[1].Payload)
	}
}

func TestDecayFloors(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch.Add(-10*time.Minute))
	state.Resources = civilization.Resources{Food: 100, Materials: 3, Population: 20}
	state.MilitaryPower = 2

	next, _, _ := rules.Apply(state, Tick(epoch))
	if next.Resources.Materials != 0 || next.MilitaryPower != 1 || next.Resources.Food != 90 {
		t.Errorf("Expected floors, got %+v mp=%d", next.Resources, next.MilitaryPower)
	}
}

func TestTickLapse(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)

	next, evs, _ := rules.Apply(state, Tick(epoch.Add(4*time.Minute)))
	if len(evs) != 0 || next.IsDecaying {
		t.Errorf("Expected no decay inside the lapse window, got %v", eventTypes(evs))
	}

	next, evs, _ = rules.Apply(state, Tick(epoch.Add(6*time.Minute)))
	if !next.IsDecaying || countType(evs, events.EventTypeDecayTriggered) != 1 {
		t.Fatalf("Expected decay after 6 silent minutes, got %v", eventTypes(evs))
	}
	if p := evs[0].Payload.(events.DecayPayload); p.Reason != ReasonLapse {
		t.Errorf("Expected reason %q, got %q", ReasonLapse, p.Reason)
	}

	again, evs, _ := rules.Apply(next, Tick(epoch.Add(20*time.Minute)))
	if len(evs) != 0 || !reflect.DeepEqual(again, next) {
		t.Errorf("Expected an already decaying nation to be left alone, got %v", eventTypes(evs))
	}
}

func TestReengage(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)

	_, evs, _ := rules.Apply(state, Reengage())
	if len(evs) != 0 {
		t.Errorf("Expected no event when not decaying, got %v", eventTypes(evs))
	}

	state.IsDecaying = true
	next, evs, _ := rules.Apply(state, Reengage())
	if next.IsDecaying || countType(evs, events.EventTypeReEngaged) != 1 {
		t.Errorf("Expected RE_ENGAGED, got %v", eventTypes(evs))
	}
}

func TestPartnerMessageDoesNotReengage(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	state.IsDecaying = true

	next, _, _ := rules.Apply(state, SendMessage("hi", civilization.SenderPartner))
	if !next.IsDecaying {
		t.Errorf("Expected partner messages to leave the decay flag set")
	}
}

func TestBattleVictory(t *testing.T) {
	// enemy = floor(100*0.8) = 80, chance 100/180, damage = 10+10
	rules, seq := newTestRules(0, 0.1, 0.5)
	state := civilization.NewState("m", epoch)
	state.MilitaryPower = 100

	next, evs, err := rules.Apply(state, Battle())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	p := evs[0].Payload.(events.BattlePayload)
	if !p.Victory || p.EnemyPower != 80 || p.Damage != 20 {
		t.Fatalf("Unexpected battle %+v", p)
	}
	if next.Resources.Food != 90 || next.Resources.Materials != 50 || next.MilitaryPower != 104 {
		t.Errorf("Expected spoils food+40 materials+20 mp+4, got %+v mp=%d", next.Resources, next.MilitaryPower)
	}
	if seq.Drawn() != 3 {
		t.Errorf("Expected three draws, got %d", seq.Drawn())
	}
}

func TestBattleDefeat(t *testing.T) {
	rules, _ := newTestRules(0, 0.9, 0.96)
	state := civilization.NewState("m", epoch)
	state.MilitaryPower = 100

	next, evs, _ := rules.Apply(state, Battle())
	p := evs[0].Payload.(events.BattlePayload)
	if p.Victory || p.Damage != 29 {
		t.Fatalf("Unexpected battle %+v", p)
	}
	if next.Resources.Food != 21 || next.Resources.Population != 6 || next.MilitaryPower != 98 {
		t.Errorf("Expected losses food-29 pop-14 mp-2, got %+v mp=%d", next.Resources, next.MilitaryPower)
	}
}

func TestBattleDefeatFloors(t *testing.T) {
	rules, _ := newTestRules(0.99, 0.99, 0.99)
	state := civilization.NewState("m", epoch)
	state.Resources = civilization.Resources{Food: 10, Materials: 0, Population: 5}
	state.MilitaryPower = 1

	next, evs, _ := rules.Apply(state, Battle())
	if evs[0].Payload.(events.BattlePayload).Victory {
		t.Fatalf("Expected a defeat")
	}
	if next.Resources.Food != 0 || next.Resources.Population != 0 || next.MilitaryPower != 1 {
		t.Errorf("Expected floors, got %+v mp=%d", next.Resources, next.MilitaryPower)
	}
}

func TestRaidRequiresMaterials(t *testing.T) {
	rules, seq := newTestRules(0.1)
	state := civilization.NewState("m", epoch)
	state.Resources.Materials = 40

	next, evs, err := rules.Apply(state, Raid())
	if !errors.Is(err, ErrInsufficientResources) {
		t.Fatalf("Expected ErrInsufficientResources, got %v", err)
	}
	if len(evs) != 0 || !reflect.DeepEqual(next, state) {
		t.Errorf("Expected state untouched on a refused raid")
	}
	if seq.Drawn() != 0 {
		t.Errorf("Expected no randomness consumed, got %d draws", seq.Drawn())
	}
}

func TestRaidOutcomes(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rules, _ := newTestRules(0.5, 0.25)
		state := civilization.NewState("m", epoch)
		state.Resources.Materials = 100

		next, evs, _ := rules.Apply(state, Raid())
		p := evs[0].Payload.(events.RaidPayload)
		if !p.Success || p.Loot != 75 || p.MaterialsSpent != 50 {
			t.Fatalf("Unexpected raid %+v", p)
		}
		if next.Resources.Food != 125 || next.Resources.Materials != 87 {
			t.Errorf("Expected food 125 materials 87, got %+v", next.Resources)
		}
	})

	t.Run("failure", func(t *testing.T) {
		rules, _ := newTestRules(0.9, 0.5)
		state := civilization.NewState("m", epoch)
		state.Resources.Materials = 50
		state.Resources.Population = 50

		next, evs, _ := rules.Apply(state, Raid())
		p := evs[0].Payload.(events.RaidPayload)
		if p.Success || p.Losses != 20 {
			t.Fatalf("Unexpected raid %+v", p)
		}
		if next.Resources.Materials != 0 || next.Resources.Population != 30 {
			t.Errorf("Expected cost kept and 20 losses, got %+v", next.Resources)
		}
	})
}

func TestDiplomacyOptions(t *testing.T) {
	cases := []struct {
		draw  float64
		name  string
		check func(civilization.State) bool
	}{
		{0.0, "Trade Agreement", func(s civilization.State) bool {
			return s.Resources.Materials == 80 && s.Resources.Food == 20
		}},
		{0.25, "Peace Treaty", func(s civilization.State) bool {
			return s.Resources.Food == 150 && s.Resources.Materials == 80
		}},
		{0.5, "Military Alliance", func(s civilization.State) bool { return s.MilitaryPower == 35 }},
		{0.75, "Cultural Exchange", func(s civilization.State) bool { return s.Resources.Population == 40 }},
	}
	for _, tc := range cases {
		rules, _ := newTestRules(tc.draw)
		state := civilization.NewState("m", epoch)

		next, evs, err := rules.Apply(state, Diplomacy())
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if p := evs[0].Payload.(events.DiplomacyPayload); p.Name != tc.name {
			t.Errorf("draw %.2f: expected %s, got %s", tc.draw, tc.name, p.Name)
		}
		if !tc.check(next) {
			t.Errorf("%s: unexpected result %+v mp=%d", tc.name, next.Resources, next.MilitaryPower)
		}
	}
}

func TestTradeAgreementFloorsFood(t *testing.T) {
	rules, _ := newTestRules(0.1)
	state := civilization.NewState("m", epoch)
	state.Resources.Food = 10

	next, _, _ := rules.Apply(state, Diplomacy())
	if next.Resources.Food != 0 {
		t.Errorf("Expected food floored at 0, got %d", next.Resources.Food)
	}
}

func TestExpandTerritory(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	state.Resources.Materials = 200

	next, evs, err := rules.Apply(state, ExpandTerritory())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next.Resources.Materials != 100 || next.TerritorySize != 2 || next.Resources.Population != 30 || next.Resources.Food != 100 {
		t.Errorf("Unexpected expansion result %+v territory=%d", next.Resources, next.TerritorySize)
	}
	if evs[0].Payload.(events.TerritoryPayload).TerritorySize != 2 {
		t.Errorf("Expected payload to carry the new territory size")
	}

	state.Resources.Materials = 99
	if _, _, err := rules.Apply(state, ExpandTerritory()); !errors.Is(err, ErrInsufficientResources) {
		t.Errorf("Expected ErrInsufficientResources at 99 materials, got %v", err)
	}
}

func TestFortifyDefenses(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	state.Resources.Materials = 75

	next, _, err := rules.Apply(state, FortifyDefenses())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next.Resources.Materials != 0 || next.DefenseLevel != 2 || next.MilitaryPower != 25 {
		t.Errorf("Unexpected fortify result %+v defense=%d mp=%d", next.Resources, next.DefenseLevel, next.MilitaryPower)
	}

	state.Resources.Materials = 74
	if _, _, err := rules.Apply(state, FortifyDefenses()); !errors.Is(err, ErrInsufficientResources) {
		t.Errorf("Expected ErrInsufficientResources at 74 materials, got %v", err)
	}
}

func TestResetAndRename(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch.Add(-time.Hour))
	state.StageIndex = 4
	state.TotalMessages = 400

	renamed, evs, err := rules.Apply(state, Rename("  Lovers' Republic "))
	if err != nil || renamed.Name != "Lovers' Republic" || countType(evs, events.EventTypeCivilizationRenamed) != 1 {
		t.Fatalf("Unexpected rename result %q %v", renamed.Name, err)
	}

	if _, _, err := rules.Apply(state, Rename("   ")); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for a blank name, got %v", err)
	}

	reset, evs, _ := rules.Apply(renamed, Reset())
	want := civilization.NewState("m", epoch)
	want.Name = "Lovers' Republic"
	if !reflect.DeepEqual(reset, want) || countType(evs, events.EventTypeCivilizationReset) != 1 {
		t.Errorf("Expected stage-0 defaults after reset, got %+v", reset)
	}
}

func TestUnknownActionAndSender(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)

	if _, _, err := rules.Apply(state, Action{Kind: "DANCE"}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for unknown kind, got %v", err)
	}
	if _, _, err := rules.Apply(state, SendMessage("hi", "ghost")); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for unknown sender, got %v", err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	seedHistory(&state, civilization.SenderUser)
	before := state.Clone()

	if _, _, err := rules.Apply(state, SendMessage("hi", civilization.SenderPartner)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !reflect.DeepEqual(state, before) {
		t.Errorf("Apply mutated its input")
	}
}

func TestApplyBranchesDoNotShareHistory(t *testing.T) {
	rules, _ := newTestRules(0.5)
	base := civilization.NewState("m", epoch)
	seedHistory(&base, civilization.SenderUser, civilization.SenderPartner, civilization.SenderUser)

	left, _, _ := rules.Apply(base, SendMessage("left", civilization.SenderPartner))
	right, _, _ := rules.Apply(base, SendMessage("right", civilization.SenderPartner))

	if got := left.History[len(left.History)-1].Content; got != "left" {
		t.Errorf("Expected the first branch to keep its message, got %q", got)
	}
	if got := right.History[len(right.History)-1].Content; got != "right" {
		t.Errorf("Expected the second branch to keep its message, got %q", got)
	}
}

func TestRandomActionSequencesKeepInvariants(t *testing.T) {
	now := epoch
	rules := NewRules(entropy.NewSeeded(10), func() time.Time { return now })
	n := NewNation(civilization.NewState("fuzz", epoch), rules, events.NewEventLog(nil), logger.Discard())
	pick := entropy.NewSeeded(9)

	sender := civilization.SenderUser
	maxStage := 0
	for i := 0; i < 20000; i++ {
		var a Action
		switch u := pick.Float64(); {
		case u < 0.70:
			if pick.Float64() > 0.05 {
				if sender == civilization.SenderUser {
					sender = civilization.SenderPartner
				} else {
					sender = civilization.SenderUser
				}
			}
			now = now.Add(time.Duration(1+entropy.IntN(pick, 10)) * time.Second)
			a = SendMessage("msg", sender)
		case u < 0.75:
			a = Battle()
		case u < 0.79:
			a = Raid()
		case u < 0.83:
			a = Diplomacy()
		case u < 0.86:
			a = ExpandTerritory()
		case u < 0.89:
			a = FortifyDefenses()
		case u < 0.94:
			now = now.Add(time.Duration(entropy.IntN(pick, 360)) * time.Second)
			a = Tick(now)
		case u < 0.97:
			a = Reengage()
		case u < 0.999:
			a = Rename("Fuzzland")
		default:
			a = Reset()
		}

		before := n.Snapshot()
		emitted, err := n.Do(a)
		if err != nil && !errors.Is(err, ErrInsufficientResources) {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
		after := n.Snapshot()

		r := after.Resources
		if r.Food < 0 || r.Materials < 0 || r.Population < 0 || after.MilitaryPower < 1 ||
			after.DefenseLevel < 1 || after.TerritorySize < 1 {
			t.Fatalf("step %d (%s): floor broken %+v", i, a.Kind, after)
		}

		restarted := countType(emitted, events.EventTypeCollapseOccurred)+
			countType(emitted, events.EventTypeCivilizationReset) > 0
		if restarted {
			if after.StageIndex != 0 || after.TotalMessages != 0 {
				t.Fatalf("step %d: expected stage-0 defaults after a restart, got %+v", i, after)
			}
			continue
		}
		if after.TotalMessages < before.TotalMessages {
			t.Fatalf("step %d (%s): total messages went %d -> %d", i, a.Kind, before.TotalMessages, after.TotalMessages)
		}
		if step := after.StageIndex - before.StageIndex; step < 0 || step > 1 {
			t.Fatalf("step %d (%s): stage went %d -> %d", i, a.Kind, before.StageIndex, after.StageIndex)
		}
		if after.StageIndex > maxStage {
			maxStage = after.StageIndex
		}
	}
	if maxStage < 1 {
		t.Errorf("Expected the sequence to evolve at least once, reached stage %d", maxStage)
	}
}

func TestEventsCarryFinalStage(t *testing.T) {
	rules, _ := newTestRules(0.5)
	state := civilization.NewState("m", epoch)
	state.TotalMessages = 49

	_, evs, _ := rules.Apply(state, SendMessage("fiftieth", civilization.SenderUser))
	for _, e := range evs {
		if e.StageIndex != 1 || e.NationID != "m" || e.ID == "" {
			t.Errorf("Unexpected event envelope %+v", e)
		}
	}
}

func TestParseActionKind(t *testing.T) {
	cases := map[string]ActionKind{
		"battle":  ActionBattle,
		"EXPAND":  ActionExpandTerritory,
		"fortify": ActionFortify,
		" raid ":  ActionRaid,
		"reset":   ActionReset,
	}
	for in, want := range cases {
		got, err := ParseActionKind(in)
		if err != nil || got != want {
			t.Errorf("ParseActionKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseActionKind("nap"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction, got %v", err)
	}
}
