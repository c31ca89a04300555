// Package policy implements the Policy Compiler (C5): it fuses traveler
// profiles and situational context into the single weighted Policy used
// by every downstream component, per spec §4.4. The compiler is pure and
// has no randomness.
package policy

import (
	"fmt"

	"wayfare-backend/internal/planning/domain"
)

// Traveler is one member of the travel party.
type Traveler struct {
	Mobility domain.MobilityTier
	Interest domain.InterestTier
	Weight   float64 // >= 0; a zero (unset) weight counts as 1 in the blend
}

// BudgetBundle is the optional budget/day/head-count triple from spec §4.4.
type BudgetBundle struct {
	Set                   bool
	BudgetPerPersonPerDay float64
	Days                  int
	Headcount             int
}

// Request bundles everything the compiler needs.
type Request struct {
	Travelers []Traveler
	Context   domain.PolicyContext
	TripType  domain.TripType
	Budget    BudgetBundle
}

var mobilityRank = map[domain.MobilityTier]int{
	domain.MobilityIronLegs:     1,
	domain.MobilityCityPotato:   2,
	domain.MobilityActiveSenior: 3,
	domain.MobilityLimited:      4,
}

// weakestLinkMobility returns the max-rank (least capable) tier present,
// defaulting to city-potato when the traveler list is empty.
func weakestLinkMobility(travelers []Traveler) domain.MobilityTier {
	worst := domain.MobilityCityPotato
	worstRank := mobilityRank[domain.MobilityCityPotato]
	found := false
	for _, t := range travelers {
		r := mobilityRank[t.Mobility]
		if !found || r > worstRank {
			worst = t.Mobility
			worstRank = r
			found = true
		}
	}
	return worst
}

// baseTagAffinity is the fixed seed vector over known tags (spec §4.4).
func baseTagAffinity() map[string]float64 {
	return map[string]float64{
		"museum":     0.5,
		"culture":    0.5,
		"nature":     0.5,
		"shopping":   0.4,
		"playground": 0.1,
		"indoor":     0.3,
		"wheelchair": 0.2,
		"stairs":     0.1,
		"photoSpot":  0.4,
		"interactive": 0.3,
	}
}

// interestBlend normalizes traveler weights into per-interest-tier
// fractions summing to 1 (spec §4.4 "Interest blend").
func interestBlend(travelers []Traveler) map[domain.InterestTier]float64 {
	totals := map[domain.InterestTier]float64{}
	sum := 0.0
	for _, t := range travelers {
		w := t.Weight
		if w <= 0 {
			w = 1 // a traveler with an unset/zero weight still counts once
		}
		totals[t.Interest] += w
		sum += w
	}
	mix := map[domain.InterestTier]float64{
		domain.InterestAdult:   0,
		domain.InterestElderly: 0,
		domain.InterestChild:   0,
	}
	if sum == 0 {
		mix[domain.InterestAdult] = 1
		return mix
	}
	for tier, total := range totals {
		mix[tier] = total / sum
	}
	return mix
}

// tagAffinityFromMix additively mixes interest-specific boosts into the
// base tag-affinity vector (spec §4.4).
func tagAffinityFromMix(mix map[domain.InterestTier]float64) map[string]float64 {
	affinity := baseTagAffinity()
	childShare := mix[domain.InterestChild]
	affinity["playground"] += 0.6 * childShare
	affinity["interactive"] += 0.5 * childShare
	affinity["indoor"] += 0.2 * childShare

	elderlyShare := mix[domain.InterestElderly]
	affinity["nature"] += 0.2 * elderlyShare
	affinity["culture"] += 0.2 * elderlyShare
	affinity["stairs"] -= 0.1 * elderlyShare

	adultShare := mix[domain.InterestAdult]
	affinity["photoSpot"] += 0.15 * adultShare
	affinity["shopping"] += 0.1 * adultShare

	return affinity
}

func budgetBase(level domain.SensitivityLevel) float64 {
	switch level {
	case domain.SensitivityLow:
		return 4
	case domain.SensitivityHigh:
		return 0.8
	default:
		return 2
	}
}

func tripTypeMultiplier(t domain.TripType) float64 {
	switch t {
	case domain.TripBusiness:
		return 1.4
	case domain.TripFamily:
		return 0.8
	case domain.TripBackpacking:
		return 0.7
	default:
		return 1.0
	}
}

func timeSensitivityMultiplier(level domain.SensitivityLevel) float64 {
	switch level {
	case domain.SensitivityLow:
		return 0.85
	case domain.SensitivityHigh:
		return 1.3
	default:
		return 1.0
	}
}

func budgetBump(budget BudgetBundle) float64 {
	if !budget.Set || budget.Headcount == 0 || budget.Days == 0 {
		return 1.0
	}
	perPersonPerDay := budget.BudgetPerPersonPerDay
	switch {
	case perPersonPerDay <= 0:
		return 1.0
	case perPersonPerDay < 50:
		return 1.15 // tight budget bumps value-of-time up
	case perPersonPerDay > 500:
		return 0.85 // generous budget relaxes value-of-time
	default:
		return 1.0
	}
}

func mobilityWalkCaps(tier domain.MobilityTier) (continuousMin, dailyMin float64) {
	switch tier {
	case domain.MobilityIronLegs:
		return 90, 360
	case domain.MobilityCityPotato:
		return 60, 240
	case domain.MobilityActiveSenior:
		return 30, 150
	case domain.MobilityLimited:
		return 15, 90
	default:
		return 60, 240
	}
}

// Compile fuses the request into a single Policy, per spec §4.4.
func Compile(req Request) (domain.Policy, error) {
	if len(req.Travelers) == 0 {
		return domain.Policy{}, fmt.Errorf("policy: at least one traveler is required")
	}
	for _, t := range req.Travelers {
		if t.Weight < 0 {
			return domain.Policy{}, fmt.Errorf("policy: traveler weight must be >= 0, got %v", t.Weight)
		}
	}

	worst := weakestLinkMobility(req.Travelers)
	mix := interestBlend(req.Travelers)
	affinity := tagAffinityFromMix(mix)

	vot := budgetBase(req.Context.BudgetSensitivity) *
		tripTypeMultiplier(req.TripType) *
		timeSensitivityMultiplier(req.Context.TimeSensitivity) *
		budgetBump(req.Budget)

	requireWheelchair := req.Context.HasLimitedMobility || worst == domain.MobilityLimited
	forbidStairs := worst == domain.MobilityActiveSenior || worst == domain.MobilityLimited

	maxTransfers := 2
	if req.Context.HasElderly {
		maxTransfers = 1
	}

	continuousCap, dailyCap := mobilityWalkCaps(worst)

	restroomInterval := 180.0
	hasChild := false
	hasElderlyTraveler := false
	for _, t := range req.Travelers {
		if t.Interest == domain.InterestChild {
			hasChild = true
		}
		if t.Interest == domain.InterestElderly {
			hasElderlyTraveler = true
		}
	}
	if hasChild {
		restroomInterval = 90
	} else if hasElderlyTraveler || req.Context.HasElderly {
		restroomInterval = 120
	}

	rainMultiplier := 1.0
	if req.Context.IsRaining {
		rainMultiplier = 2.2
	}
	elderlyMultiplier := 1.0
	if req.Context.HasElderly {
		elderlyMultiplier = 1.6
	}
	luggagePenalty := 0.0
	if req.Context.HasLuggage || req.Context.IsMovingDay {
		luggagePenalty = 18
	}

	planChangePenalty := 10.0
	switch req.Context.PlanStability {
	case domain.SensitivityHigh:
		planChangePenalty = 18
	case domain.SensitivityLow:
		planChangePenalty = 4
	}

	overtimePenalty := 2.0
	switch req.Context.RiskTolerance {
	case domain.SensitivityLow:
		overtimePenalty = 1.2
	case domain.SensitivityHigh:
		overtimePenalty = 3.0
	}

	fatigueParams, hpMax, regenRate := pacingDefaults(worst)

	return domain.Policy{
		Pacing: domain.Pacing{
			HpMax:                 hpMax,
			RegenRatePerHour:      regenRate,
			WalkSpeedMultiplier:   fatigueParams.walkSpeedMultiplier,
			StairPenalty:          fatigueParams.stairPenalty,
			ForcedRestIntervalMin: fatigueParams.forcedRestIntervalMin,
			ForbidStairs:          forbidStairs,
			WheelchairOnly:        requireWheelchair,
			ContinuousWalkCapMin:  continuousCap,
			DailyWalkCapMin:       dailyCap,
		},
		Hard: domain.HardConstraints{
			RequireWheelchairAccess: requireWheelchair,
			ForbidStairs:            forbidStairs,
			MaxTransfers:            maxTransfers,
			MaxSingleWalkMin:        continuousCap,
			MaxDailyWalkMin:         dailyCap,
			RestroomIntervalMin:     restroomInterval,
		},
		Soft: domain.SoftWeights{
			TagAffinity:               affinity,
			DiversityPenalty:          0.3,
			MustSeeBoost:              5.0,
			ValueOfTimePerMin:         vot,
			WalkPainPerMin:            0.5,
			TransferPain:              3.0,
			StairPain:                 2.0,
			CrowdPainPerMin:           0.2,
			RainWalkMultiplier:        rainMultiplier,
			LuggageTransitPenalty:     luggagePenalty,
			ElderlyTransferMultiplier: elderlyMultiplier,
			PlanChangePenalty:         planChangePenalty,
			OvertimePenaltyPerMin:     overtimePenalty,
		},
		Context:  req.Context,
		TripType: req.TripType,
		Derived: domain.PolicyDerived{
			GroupInterestMix:   mix,
			GroupMobilityWorst: worst,
		},
	}, nil
}

type pacingParams struct {
	walkSpeedMultiplier   float64
	stairPenalty          float64
	forcedRestIntervalMin float64
}

// pacingDefaults keys the pacing bundle and HP table off the weakest tier.
// stamina.ParamsFor keeps its own separate per-tier table of per-minute
// rates.
func pacingDefaults(tier domain.MobilityTier) (pacingParams, float64, float64) {
	switch tier {
	case domain.MobilityIronLegs:
		return pacingParams{walkSpeedMultiplier: 1.15, stairPenalty: 0.5, forcedRestIntervalMin: 210}, 120, 0.45
	case domain.MobilityActiveSenior:
		return pacingParams{walkSpeedMultiplier: 0.85, stairPenalty: 2.0, forcedRestIntervalMin: 120}, 85, 0.6
	case domain.MobilityLimited:
		return pacingParams{walkSpeedMultiplier: 0.7, stairPenalty: 3.0, forcedRestIntervalMin: 90}, 70, 0.7
	default:
		return pacingParams{walkSpeedMultiplier: 1.0, stairPenalty: 1.0, forcedRestIntervalMin: 150}, 100, 0.5
	}
}
