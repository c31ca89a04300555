// Package ranking implements the Ranking Service (C6): the
// feasibility-aware scoring function used by the Day Scheduler's POI
// selection step, per spec §4.5 step 2. Structurally grounded in the teacher's weighted
// validate-and-rank pattern (score, sort descending, take the winner).
package ranking

import (
	"sort"

	"wayfare-backend/internal/planning/domain"
)

// InterestScore sums the policy's tag affinities for the POI plus a
// must-see boost, halved when it is raining and the POI is weather
// sensitive and not tagged "indoor" (spec §4.5 step 2).
func InterestScore(poi *domain.Poi, policy domain.Policy, isMustSee bool) float64 {
	score := 0.0
	for _, tag := range poi.Tags {
		score += policy.Soft.TagAffinity[tag]
	}
	if isMustSee {
		score += policy.Soft.MustSeeBoost
	}
	if policy.Context.IsRaining && poi.WeatherSensitivity > 0 && !poi.HasTag("indoor") {
		score /= 2
	}
	return score
}

// Candidate is one scoreable POI option: the travel cost of reaching it,
// the wait penalty if not immediately open, and the fatigue penalty of
// the trip there.
type Candidate struct {
	Poi            *domain.Poi
	IsMustSee      bool
	TravelCost     float64
	WaitMin        float64
	FatiguePenalty float64
}

// waitPenalty applies the 0.4x-overtime-penalty-per-wait-minute rule
// from spec §4.5 step 2.
func waitPenalty(waitMin float64, policy domain.Policy) float64 {
	return waitMin * 0.4 * policy.Soft.OvertimePenaltyPerMin
}

// Gain computes the scheduler's greedy selection score for one candidate:
// gain = interest*10 - travelCost - waitPenalty - fatiguePenalty.
func Gain(c Candidate, policy domain.Policy) float64 {
	interest := InterestScore(c.Poi, policy, c.IsMustSee)
	return interest*10 - c.TravelCost - waitPenalty(c.WaitMin, policy) - c.FatiguePenalty
}

// Scored pairs a candidate with its computed gain.
type Scored struct {
	Candidate Candidate
	Gain      float64
}

// RankCandidates scores every candidate and returns them sorted by
// descending gain; candidates[0] is the argmax used by the scheduler.
func RankCandidates(candidates []Candidate, policy domain.Policy) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Gain: Gain(c, policy)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Gain > scored[j].Gain
	})
	return scored
}
