// Package survey turns the onboarding questionnaire into a dating profile.
package survey

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TotalQuestions is the number of questions counted by Progress.
const TotalQuestions = 10

// defaultScale is the value a slider starts at when left untouched.
const defaultScale = 3

var (
	// ErrIncomplete is returned when a required answer is missing.
	ErrIncomplete = errors.New("survey incomplete")
	// ErrInvalidAnswer is returned for answers outside the allowed choices.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// Answers holds one submission of the questionnaire. Scales are 1-5, 0 means unanswered.
type Answers struct {
	Name            string `json:"name" db:"name"`
	FavoriteColor   string `json:"favoriteColor" db:"favorite_color"`
	FavoriteAnimal  string `json:"favoriteAnimal" db:"favorite_animal"`
	OtherAnimal     string `json:"otherAnimal,omitempty" db:"other_animal"`
	ThreeWords      string `json:"threeWords" db:"three_words"`
	VacationSpot    string `json:"vacationSpot" db:"vacation_spot"`
	Nationalism     int    `json:"nationalism" db:"nationalism"`
	RightVsCreative string `json:"rightVsCreative" db:"right_vs_creative"` // right, creative, both
	WelfareSupport  string `json:"welfareSupport" db:"welfare_support"`    // yes, no, conditional, unsure
	Deserving       int    `json:"deserving" db:"deserving"`
	PoliticalLean   int    `json:"politicalLean" db:"political_lean"`
}

// Profile is the result of a completed survey.
type Profile struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	Activities string    `json:"activities"`
	Goals      string    `json:"goals"`
	Values     string    `json:"values"`
	Survey     Answers   `json:"surveyData"`
	Created    time.Time `json:"created"`
}

func filled(s string) bool { return strings.TrimSpace(s) != "" }

// Progress counts the answered questions out of TotalQuestions.
func Progress(a Answers) int {
	n := 0
	for _, s := range []string{a.Name, a.FavoriteColor, a.FavoriteAnimal, a.ThreeWords, a.VacationSpot, a.RightVsCreative, a.WelfareSupport} {
		if filled(s) {
			n++
		}
	}
	for _, v := range []int{a.Nationalism, a.Deserving, a.PoliticalLean} {
		if v != 0 {
			n++
		}
	}
	return n
}

// Validate checks the required questions and the allowed choices.
func Validate(a Answers) error {
	required := []struct {
		label string
		value string
	}{
		{"name", a.Name},
		{"favorite animal", a.FavoriteAnimal},
		{"three words", a.ThreeWords},
		{"vacation spot", a.VacationSpot},
		{"right vs creative", a.RightVsCreative},
		{"welfare support", a.WelfareSupport},
	}
	for _, q := range required {
		if !filled(q.value) {
			return fmt.Errorf("%w: please complete the %s question", ErrIncomplete, q.label)
		}
	}
	if a.FavoriteAnimal == "other" && !filled(a.OtherAnimal) {
		return fmt.Errorf("%w: please specify your favorite animal", ErrIncomplete)
	}

	switch a.RightVsCreative {
	case "right", "creative", "both":
	default:
		return fmt.Errorf("%w: rightVsCreative %q", ErrInvalidAnswer, a.RightVsCreative)
	}
	switch a.WelfareSupport {
	case "yes", "no", "conditional", "unsure":
	default:
		return fmt.Errorf("%w: welfareSupport %q", ErrInvalidAnswer, a.WelfareSupport)
	}
	for name, v := range map[string]int{"nationalism": a.Nationalism, "deserving": a.Deserving, "politicalLean": a.PoliticalLean} {
		if v < 0 || v > 5 {
			return fmt.Errorf("%w: %s must be 1-5, got %d", ErrInvalidAnswer, name, v)
		}
	}
	return nil
}

// Builder composes profiles. The clock and ID source are injectable for tests.
type Builder struct {
	now   func() time.Time
	newID func() string
}

// NewBuilder creates a profile builder.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now, newID: uuid.NewString}
}

// Build validates the answers and composes the profile.
func (b *Builder) Build(a Answers) (Profile, error) {
	if err := Validate(a); err != nil {
		return Profile{}, err
	}
	if a.FavoriteAnimal == "other" {
		a.FavoriteAnimal = strings.TrimSpace(a.OtherAnimal)
	}
	for _, v := range []*int{&a.Nationalism, &a.Deserving, &a.PoliticalLean} {
		if *v == 0 {
			*v = defaultScale
		}
	}

	outlook := "creative"
	if a.RightVsCreative == "right" {
		outlook = "moral"
	}

	return Profile{
		UserID:     b.newID(),
		Name:       strings.TrimSpace(a.Name),
		Bio:        fmt.Sprintf("%s | %s", a.ThreeWords, a.VacationSpot),
		Activities: fmt.Sprintf("%s enthusiast, %s lover", a.FavoriteAnimal, a.FavoriteColor),
		Goals:      fmt.Sprintf("Find someone who shares my %s values", outlook),
		Values:     fmt.Sprintf("Nationalism: %d/5, Welfare: %s, Political: %d/5", a.Nationalism, a.WelfareSupport, a.PoliticalLean),
		Survey:     a,
		Created:    b.now().UTC(),
	}, nil
}
