// Package cost implements the Cost Model (C2): pure functions that turn a
// transit segment or an itinerary's totals into a single weighted score,
// per spec §4.1. The model carries no state of its own; everything it
// needs is read from the policy and the segment/totals passed in.
package cost

import (
	"math"

	"wayfare-backend/internal/planning/domain"
)

// EdgeCost computes the weighted cost of traveling a single transit
// segment under the given policy and context flags. It returns +Inf when
// the segment violates a hard constraint, matching spec §4.1 exactly:
// the caller is expected to filter out infeasible segments rather than
// treat the infinity as an error.
func EdgeCost(seg domain.TransitSegment, policy domain.Policy) float64 {
	if policy.Hard.RequireWheelchairAccess && !seg.WheelchairAccessible {
		return math.Inf(1)
	}
	if policy.Hard.ForbidStairs && seg.StairsCount != nil && *seg.StairsCount > 0 {
		return math.Inf(1)
	}

	w := policy.Soft

	timeCost := seg.DurationMin * w.ValueOfTimePerMin

	rainMultiplier := 1.0
	if policy.Context.IsRaining {
		rainMultiplier = w.RainWalkMultiplier
	}
	walkPain := seg.WalkMin * w.WalkPainPerMin * rainMultiplier

	elderlyMultiplier := 1.0
	if policy.Context.HasElderly {
		elderlyMultiplier = w.ElderlyTransferMultiplier
	}
	transferCost := float64(seg.TransferCount) * w.TransferPain * elderlyMultiplier

	stairCost := 0.0
	if seg.StairsCount != nil && *seg.StairsCount > 0 {
		stairCost = w.StairPain
	}

	crowdLevel := 0
	if seg.CrowdLevel != nil {
		crowdLevel = *seg.CrowdLevel
	}
	crowdCost := float64(crowdLevel) * 2 * w.CrowdPainPerMin

	luggageCost := 0.0
	if (policy.Context.HasLuggage || policy.Context.IsMovingDay) &&
		(seg.Mode == domain.ModeBus || seg.Mode == domain.ModeSubway) {
		luggageCost = w.LuggageTransitPenalty
	}

	money := seg.CostCny

	return timeCost + walkPain + transferCost + stairCost + crowdCost + luggageCost + money
}

// ItineraryTotals is the aggregate input to ItineraryCost: the sum of
// weighted edge costs already accumulated, plus the overtime and
// plan-change counters that only make sense at the whole-itinerary level.
type ItineraryTotals struct {
	SumEdgeCosts    float64
	OvertimeMin     float64
	PlanChangeCount int
}

// ItineraryCost sums the already-accumulated edge costs plus the
// overtime and plan-change penalties, per spec §4.1.
func ItineraryCost(totals ItineraryTotals, policy domain.Policy) float64 {
	return totals.SumEdgeCosts +
		totals.OvertimeMin*policy.Soft.OvertimePenaltyPerMin +
		float64(totals.PlanChangeCount)*policy.Soft.PlanChangePenalty
}
