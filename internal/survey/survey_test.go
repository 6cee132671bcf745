package survey

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func complete() Answers {
	return Answers{
		Name:            "Ada",
		FavoriteColor:   "#7dcd85",
		FavoriteAnimal:  "owl",
		ThreeWords:      "curious, kind, stubborn",
		VacationSpot:    "a cabin by a lake",
		Nationalism:     2,
		RightVsCreative: "right",
		WelfareSupport:  "conditional",
		Deserving:       3,
		PoliticalLean:   4,
	}
}

func TestProgress(t *testing.T) {
	if got := Progress(Answers{}); got != 0 {
		t.Errorf("Expected 0 for an empty survey, got %d", got)
	}
	if got := Progress(complete()); got != TotalQuestions {
		t.Errorf("Expected %d, got %d", TotalQuestions, got)
	}
	partial := Answers{Name: "Ada", ThreeWords: "   ", Nationalism: 4}
	if got := Progress(partial); got != 2 {
		t.Errorf("Expected blank answers to be ignored, got %d", got)
	}
}

func TestValidateNamesFirstMissingField(t *testing.T) {
	a := complete()
	a.FavoriteAnimal = ""
	a.VacationSpot = ""

	err := Validate(a)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Expected ErrIncomplete, got %v", err)
	}
	if !strings.Contains(err.Error(), "favorite animal") {
		t.Errorf("Expected the favorite animal question named first, got %q", err)
	}
}

func TestValidateChoices(t *testing.T) {
	cases := map[string]func(*Answers){
		"outlook":      func(a *Answers) { a.RightVsCreative = "neither" },
		"welfare":      func(a *Answers) { a.WelfareSupport = "maybe" },
		"scale":        func(a *Answers) { a.PoliticalLean = 9 },
		"other animal": func(a *Answers) { a.FavoriteAnimal = "other" },
	}
	for name, mutate := range cases {
		a := complete()
		mutate(&a)
		if err := Validate(a); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestBuildProfile(t *testing.T) {
	created := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	b := NewBuilder(func() time.Time { return created })
	b.newID = func() string { return "user-1" }

	p, err := b.Build(complete())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := Profile{
		UserID:     "user-1",
		Name:       "Ada",
		Bio:        "curious, kind, stubborn | a cabin by a lake",
		Activities: "owl enthusiast, #7dcd85 lover",
		Goals:      "Find someone who shares my moral values",
		Values:     "Nationalism: 2/5, Welfare: conditional, Political: 4/5",
	}
	if p.UserID != want.UserID || p.Bio != want.Bio || p.Activities != want.Activities ||
		p.Goals != want.Goals || p.Values != want.Values || !p.Created.Equal(created) {
		t.Errorf("Unexpected profile %+v", p)
	}
}

func TestBuildProfileSubstitutions(t *testing.T) {
	b := NewBuilder(nil)
	a := complete()
	a.FavoriteAnimal = "other"
	a.OtherAnimal = " axolotl "
	a.RightVsCreative = "both"
	a.Nationalism = 0
	a.PoliticalLean = 0

	p, err := b.Build(a)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.HasPrefix(p.Activities, "axolotl enthusiast") {
		t.Errorf("Expected the specified animal, got %q", p.Activities)
	}
	if p.Goals != "Find someone who shares my creative values" {
		t.Errorf("Expected creative values for 'both', got %q", p.Goals)
	}
	if p.Values != "Nationalism: 3/5, Welfare: conditional, Political: 3/5" {
		t.Errorf("Expected untouched sliders to default to 3, got %q", p.Values)
	}
	if p.UserID == "" {
		t.Errorf("Expected a generated user id")
	}
}
