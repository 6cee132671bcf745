package engine

import (
	"fmt"
	"math"

	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
)

const (
	RaidCost         = 50
	RaidSuccessOdds  = 0.7
	ExpandCost       = 100
	FortifyCost      = 75
	battleDamageBase = 10
)

// Diplomacy outcomes, indexed by a single draw of floor(4u).
type treaty struct {
	name  string
	delta events.ResourceDelta
}

var treaties = [4]treaty{
	{"Trade Agreement", events.ResourceDelta{Materials: 50, Food: -30}},
	{"Peace Treaty", events.ResourceDelta{Food: 100, Materials: 50}},
	{"Military Alliance", events.ResourceDelta{MilitaryPower: 25}},
	{"Cultural Exchange", events.ResourceDelta{Population: 20}},
}

// TreatyName returns the display name of a diplomacy option.
func TreatyName(option int) string {
	if option < 0 || option >= len(treaties) {
		return ""
	}
	return treaties[option].name
}

// battle draws enemy strength, then victory, then damage.
func (r *Rules) battle(tr *transition) {
	s := &tr.state
	power := s.MilitaryPower
	enemy := int(math.Floor(float64(power) * (0.8 + r.rng.Float64()*0.4)))
	chance := float64(power) / float64(power+enemy)
	victory := r.rng.Float64() < chance
	damage := entropy.IntN(r.rng, 20) + battleDamageBase

	var delta events.ResourceDelta
	if victory {
		delta = events.ResourceDelta{Food: damage * 2, Materials: damage, MilitaryPower: damage / 5}
	} else {
		delta = events.ResourceDelta{Food: -damage, Population: -(damage / 2), MilitaryPower: -(damage / 10)}
	}
	applyDelta(tr, delta)

	tr.emit(events.EventTypeBattleResolved, tr.actor, events.BattlePayload{
		Victory:     victory,
		PlayerPower: power,
		EnemyPower:  enemy,
		Damage:      damage,
		Delta:       delta,
	})
}

// raid costs materials up front; the cost is kept whatever the outcome.
func (r *Rules) raid(tr *transition) error {
	s := &tr.state
	if s.Resources.Materials < RaidCost {
		return fmt.Errorf("%w: raid needs %d materials, have %d", ErrInsufficientResources, RaidCost, s.Resources.Materials)
	}
	s.Resources.Materials -= RaidCost

	out := events.RaidPayload{MaterialsSpent: RaidCost}
	if r.rng.Float64() < RaidSuccessOdds {
		out.Success = true
		out.Loot = entropy.IntN(r.rng, 100) + 50
		s.Resources.Food += out.Loot
		s.Resources.Materials += out.Loot / 2
	} else {
		out.Losses = entropy.IntN(r.rng, 20) + 10
		s.Resources.Population -= out.Losses
	}
	s.Clamp()

	tr.emit(events.EventTypeRaidResolved, tr.actor, out)
	return nil
}

func (r *Rules) diplomacy(tr *transition) {
	option := entropy.IntN(r.rng, len(treaties))
	t := treaties[option]
	applyDelta(tr, t.delta)
	tr.emit(events.EventTypeDiplomacyResolved, tr.actor, events.DiplomacyPayload{
		Option: option,
		Name:   t.name,
		Delta:  t.delta,
	})
}

func (r *Rules) expand(tr *transition) error {
	s := &tr.state
	if s.Resources.Materials < ExpandCost {
		return fmt.Errorf("%w: expansion needs %d materials, have %d", ErrInsufficientResources, ExpandCost, s.Resources.Materials)
	}
	s.Resources.Materials -= ExpandCost
	s.TerritorySize++
	s.Resources.Population += 10
	s.Resources.Food += 50

	tr.emit(events.EventTypeTerritoryExpanded, tr.actor, events.TerritoryPayload{TerritorySize: s.TerritorySize})
	return nil
}

func (r *Rules) fortify(tr *transition) error {
	s := &tr.state
	if s.Resources.Materials < FortifyCost {
		return fmt.Errorf("%w: fortification needs %d materials, have %d", ErrInsufficientResources, FortifyCost, s.Resources.Materials)
	}
	s.Resources.Materials -= FortifyCost
	s.DefenseLevel++
	s.MilitaryPower += 15

	tr.emit(events.EventTypeDefensesFortified, tr.actor, events.FortifyPayload{DefenseLevel: s.DefenseLevel})
	return nil
}

func applyDelta(tr *transition, d events.ResourceDelta) {
	s := &tr.state
	s.Resources.Food += d.Food
	s.Resources.Materials += d.Materials
	s.Resources.Population += d.Population
	s.MilitaryPower += d.MilitaryPower
	s.Clamp()
}
