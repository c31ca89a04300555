// Package stamina implements the HP Simulator (C4): fatigue accrual from
// walking/standing/stairs and recovery from rest, per spec §4.3.
package stamina

import "wayfare-backend/internal/planning/domain"

// FatigueParams are the per-minute fatigue rates for one mobility tier.
type FatigueParams struct {
	WalkHpPerMin       float64
	StandHpPerMin      float64
	StairsHpPerUnit    float64
	ContinuousLimitMin float64
	ContinuousPenalty  float64
}

// stairsSentinel is the "no-stairs" enforcement value from spec §4.3: a
// tier whose table entry is 999 makes any stairs usage ruinously costly,
// pushing the scheduler away from stair-requiring routes without a hard
// reject at this layer (the hard reject lives in the cost model/policy).
const stairsSentinel = 999.0

// fatigueTable is keyed by the policy's weakest-mobility tier (spec §4.3).
var fatigueTable = map[domain.MobilityTier]FatigueParams{
	domain.MobilityIronLegs: {
		WalkHpPerMin: 0.25, StandHpPerMin: 0.15, StairsHpPerUnit: 0.5,
		ContinuousLimitMin: 90, ContinuousPenalty: 1.15,
	},
	domain.MobilityCityPotato: {
		WalkHpPerMin: 0.40, StandHpPerMin: 0.22, StairsHpPerUnit: 0.9,
		ContinuousLimitMin: 60, ContinuousPenalty: 1.25,
	},
	domain.MobilityActiveSenior: {
		WalkHpPerMin: 0.55, StandHpPerMin: 0.30, StairsHpPerUnit: stairsSentinel,
		ContinuousLimitMin: 45, ContinuousPenalty: 1.35,
	},
	domain.MobilityLimited: {
		WalkHpPerMin: 0.70, StandHpPerMin: 0.38, StairsHpPerUnit: stairsSentinel,
		ContinuousLimitMin: 30, ContinuousPenalty: 1.5,
	},
}

// ParamsFor returns the fatigue table entry for a mobility tier.
func ParamsFor(tier domain.MobilityTier) FatigueParams {
	if p, ok := fatigueTable[tier]; ok {
		return p
	}
	return fatigueTable[domain.MobilityCityPotato]
}

// RestThreshold is the HP floor below which rest is forced (spec §4.3).
func RestThreshold(tier domain.MobilityTier) float64 {
	if tier == domain.MobilityIronLegs {
		return 18
	}
	return 22
}

// State is the mutable HP/fatigue state carried across a day's schedule.
type State struct {
	Hp             float64
	LastBreakAtMin float64
	LastRestAtMin  float64
}

// TravelLoad describes one travel leg's fatigue inputs.
type TravelLoad struct {
	WalkMin     float64
	StairsCount int
	QueueMin    float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApplyTravelFatigue subtracts walking, standing, and stairs fatigue from
// state.Hp, clamped to >= 0, and advances state.LastBreakAtMin (spec §4.3).
func ApplyTravelFatigue(policy domain.Policy, state *State, load TravelLoad, nowMin float64) {
	tier := policy.Derived.GroupMobilityWorst
	params := ParamsFor(tier)

	continuousMultiplier := 1.0
	if load.WalkMin > policy.Pacing.ContinuousWalkCapMin && policy.Pacing.ContinuousWalkCapMin > 0 {
		continuousMultiplier = params.ContinuousPenalty
	}
	rainMultiplier := 1.0
	if policy.Context.IsRaining {
		rainMultiplier = 1.15
	}

	walk := load.WalkMin * params.WalkHpPerMin * continuousMultiplier * rainMultiplier
	stand := load.QueueMin * params.StandHpPerMin
	stair := 0.0
	if load.StairsCount > 0 {
		stair = float64(load.StairsCount) * params.StairsHpPerUnit
	}

	state.Hp = clamp(state.Hp-walk-stand-stair, 0, policy.Pacing.HpMax)
	state.LastBreakAtMin = nowMin
}

// ApplyRestRecovery adds regenerated HP plus any extra rest-stop bonus,
// clamped to hpMax, and resets both rest/break timers (spec §4.3).
func ApplyRestRecovery(policy domain.Policy, state *State, restMin float64, nowMin float64, restBenefitHp float64) {
	gain := policy.Pacing.HpMax*policy.Pacing.RegenRatePerHour*(restMin/60) + restBenefitHp
	state.Hp = clamp(state.Hp+gain, 0, policy.Pacing.HpMax)
	state.LastRestAtMin = nowMin
	state.LastBreakAtMin = nowMin
}

// RestNeeded reports whether a forced rest should be taken now, per the
// forced-rest-interval and HP-floor rules of spec §4.3.
func RestNeeded(policy domain.Policy, hp float64, nowMin float64, state State) bool {
	tier := policy.Derived.GroupMobilityWorst
	if nowMin-state.LastRestAtMin >= policy.Pacing.ForcedRestIntervalMin {
		return true
	}
	return hp <= RestThreshold(tier)
}
