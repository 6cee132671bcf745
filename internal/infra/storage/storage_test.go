package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/survey"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "test.db"), Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	if _, err := Open(context.Background(), Dialect("mysql"), "x", Options{}); err == nil {
		t.Errorf("Expected an error for an unknown dialect")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLSnapshotRepository(openTestDB(t))
	repo.now = func() time.Time { return base }

	if _, ok, err := repo.LoadSnapshot(ctx, "n1"); err != nil || ok {
		t.Fatalf("Expected no snapshot yet, got ok=%v err=%v", ok, err)
	}

	s := civilization.NewState("n1", base)
	s.Name = "Atlantis"
	s.StageIndex = 3
	s.TotalMessages = 152
	s.Resources = civilization.Resources{Food: 310, Materials: 220, Population: 140}
	s.IsDecaying = true
	s.History = []civilization.Message{
		{Content: "hi", Sender: civilization.SenderUser, Timestamp: base},
		{Content: "hey", Sender: civilization.SenderPartner, Timestamp: base.Add(time.Second)},
	}
	if err := repo.SaveSnapshot(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := repo.LoadSnapshot(ctx, "n1")
	if err != nil || !ok {
		t.Fatalf("Expected a snapshot, got ok=%v err=%v", ok, err)
	}
	if got.Name != "Atlantis" || got.StageIndex != 3 || got.TotalMessages != 152 {
		t.Errorf("Unexpected identity fields %+v", got)
	}
	if got.Resources != s.Resources || !got.IsDecaying {
		t.Errorf("Expected resources %+v and decay, got %+v decaying=%v", s.Resources, got.Resources, got.IsDecaying)
	}
	if !got.LastMessageAt.Equal(base) {
		t.Errorf("Expected last message at %v, got %v", base, got.LastMessageAt)
	}
	if len(got.History) != 2 || got.History[1].Content != "hey" || got.History[1].Sender != civilization.SenderPartner {
		t.Errorf("Unexpected history %+v", got.History)
	}
}

func TestSnapshotUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLSnapshotRepository(openTestDB(t))

	s := civilization.NewState("n1", base)
	if err := repo.SaveSnapshot(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.StageIndex = 5
	if err := repo.SaveSnapshot(ctx, s); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if err := repo.SaveSnapshot(ctx, civilization.NewState("n2", base)); err != nil {
		t.Fatalf("save n2: %v", err)
	}

	got, _, _ := repo.LoadSnapshot(ctx, "n1")
	if got.StageIndex != 5 {
		t.Errorf("Expected the second save to win, got stage %d", got.StageIndex)
	}
	ids, err := repo.ListNationIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "n1" || ids[1] != "n2" {
		t.Errorf("Expected [n1 n2], got %v", ids)
	}
}

func TestEventLedger(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLEventRepository(openTestDB(t))

	batch := []events.GameEvent{
		events.NewEvent(events.EventTypeMessageAdded, "n1", "user", base,
			events.MessageAddedPayload{Content: "hi", Sender: "user", TotalMessages: 1}),
		events.NewEvent(events.EventTypeEvolutionOccurred, "n1", "partner", base.Add(time.Minute),
			events.EvolutionPayload{FromStage: 0, ToStage: 1}),
		events.NewEvent(events.EventTypeMessageAdded, "n2", "user", base, nil),
		events.NewEvent(events.EventTypeDecayTriggered, "n1", events.ActorSystem, base.Add(10*time.Minute),
			events.DecayPayload{Reason: "communication lapse"}),
	}
	batch[1].StageIndex = 1
	for _, e := range batch {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.GetByNation(ctx, "n1")
	if err != nil {
		t.Fatalf("GetByNation: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 events for n1, got %d", len(all))
	}
	if all[0].Type != events.EventTypeMessageAdded || all[2].Type != events.EventTypeDecayTriggered {
		t.Errorf("Expected append order, got %s .. %s", all[0].Type, all[2].Type)
	}
	if all[1].StageIndex != 1 || all[1].ActorID != "partner" || !all[1].Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("Unexpected evolution row %+v", all[1])
	}
	payload, ok := all[0].Payload.(map[string]interface{})
	if !ok || payload["content"] != "hi" {
		t.Errorf("Expected decoded payload, got %#v", all[0].Payload)
	}
	if all[0].ID != batch[0].ID {
		t.Errorf("Expected id %s, got %s", batch[0].ID, all[0].ID)
	}

	decays, _ := repo.GetByEventType(ctx, "n1", events.EventTypeDecayTriggered)
	if len(decays) != 1 {
		t.Errorf("Expected 1 decay, got %d", len(decays))
	}
	recent, _ := repo.GetSince(ctx, "n1", base.Add(time.Minute))
	if len(recent) != 2 {
		t.Errorf("Expected 2 events since the evolution, got %d", len(recent))
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLEventRepository(openTestDB(t))
	e := events.NewEvent(events.EventTypeCivilizationReset, "n1", "user", base, nil)
	if err := repo.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, e); err == nil {
		t.Errorf("Expected a duplicate id to be rejected")
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLProfileRepository(openTestDB(t))

	if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	p := survey.Profile{
		UserID:     "u1",
		Name:       "Ada",
		Bio:        "curious | lake",
		Activities: "owl enthusiast, #fff lover",
		Goals:      "Find someone who shares my moral values",
		Values:     "Nationalism: 2/5, Welfare: yes, Political: 4/5",
		Survey:     survey.Answers{Name: "Ada", FavoriteAnimal: "owl", Nationalism: 2, WelfareSupport: "yes"},
		Created:    base,
	}
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Bio != p.Bio || got.Values != p.Values || got.Survey != p.Survey || !got.Created.Equal(base) {
		t.Errorf("Expected %+v, got %+v", p, got)
	}
}

func TestPersisterWritesThrough(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLEventRepository(openTestDB(t))
	el := events.NewEventLog(NewPersister(repo, 0))

	var failures int
	el.OnPersistError(func(events.GameEvent, error) { failures++ })
	el.Append(
		events.NewEvent(events.EventTypeMessageAdded, "n1", "user", base, nil),
		events.NewEvent(events.EventTypeMessageAdded, "n1", "partner", base, nil),
	)
	el.Flush()

	stored, err := repo.GetByNation(ctx, "n1")
	if err != nil {
		t.Fatalf("GetByNation: %v", err)
	}
	if len(stored) != 2 || failures != 0 {
		t.Errorf("Expected 2 stored events and no failures, got %d and %d", len(stored), failures)
	}
}

func TestGenerateRecap(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLEventRepository(openTestDB(t))
	history := []events.GameEvent{
		events.NewEvent(events.EventTypeMessageAdded, "n1", "user", base.Add(-time.Hour), nil),
		events.NewEvent(events.EventTypeMessageAdded, "n1", "user", base, nil),
		events.NewEvent(events.EventTypeEvolutionOccurred, "n1", "user", base,
			events.EvolutionPayload{FromStage: 0, ToStage: 1}),
		events.NewEvent(events.EventTypeBattleResolved, "n1", "user", base.Add(time.Minute),
			events.BattlePayload{Victory: false, Damage: 29}),
		events.NewEvent(events.EventTypeDecayTriggered, "n1", events.ActorSystem, base.Add(time.Hour),
			events.DecayPayload{Reason: "communication lapse"}),
	}
	for _, e := range history {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recap, err := NewReconstructor(repo).GenerateRecap(ctx, "n1", base)
	if err != nil {
		t.Fatalf("recap: %v", err)
	}
	if recap.Messages != 1 || recap.Evolutions != 1 || recap.Decays != 1 || recap.Collapses != 0 {
		t.Errorf("Unexpected counters %+v", recap)
	}
	if len(recap.Events) != 3 {
		t.Fatalf("Expected 3 recap entries, got %d", len(recap.Events))
	}

	want := []struct {
		summary string
		impact  string
	}{
		{"Evolved into the Stone Age Settlements 🪨", ImpactPositive},
		{"Lost a battle and took 29 damage", ImpactNegative},
		{"Decay set in: communication lapse", ImpactNegative},
	}
	for i, w := range want {
		if recap.Events[i].Summary != w.summary || recap.Events[i].Impact != w.impact {
			t.Errorf("Entry %d: expected %q/%s, got %q/%s", i, w.summary, w.impact, recap.Events[i].Summary, recap.Events[i].Impact)
		}
	}
}

func TestPayloadMapAcceptsTypedPayloads(t *testing.T) {
	m := payloadMap(events.RaidPayload{Success: true, Loot: 75})
	if !boolField(m, "success") || intField(m, "loot") != 75 {
		t.Errorf("Unexpected map %v", m)
	}
	if payloadMap(nil) != nil {
		t.Errorf("Expected nil for a nil payload")
	}
}
