package cost

import (
	"math"
	"testing"

	"wayfare-backend/internal/planning/domain"
)

func basePolicy() domain.Policy {
	return domain.Policy{
		Soft: domain.SoftWeights{
			ValueOfTimePerMin:         2.0,
			WalkPainPerMin:            0.5,
			TransferPain:              3.0,
			StairPain:                 2.0,
			CrowdPainPerMin:           0.2,
			RainWalkMultiplier:        2.2,
			LuggageTransitPenalty:     18,
			ElderlyTransferMultiplier: 1.6,
			PlanChangePenalty:         10,
			OvertimePenaltyPerMin:     2.0,
		},
	}
}

func TestEdgeCostBasic(t *testing.T) {
	p := basePolicy()
	seg := domain.TransitSegment{
		Mode:                 domain.ModeWalk,
		DurationMin:          10,
		WalkMin:              10,
		WheelchairAccessible: true,
	}
	got := EdgeCost(seg, p)
	want := 10*2.0 + 10*0.5
	if got != want {
		t.Errorf("EdgeCost = %v, want %v", got, want)
	}
}

func TestEdgeCostWheelchairGate(t *testing.T) {
	p := basePolicy()
	p.Hard.RequireWheelchairAccess = true
	seg := domain.TransitSegment{WheelchairAccessible: false}
	got := EdgeCost(seg, p)
	if !math.IsInf(got, 1) {
		t.Errorf("EdgeCost = %v, want +Inf", got)
	}
}

func TestEdgeCostForbidStairs(t *testing.T) {
	p := basePolicy()
	p.Hard.ForbidStairs = true
	stairs := 3
	seg := domain.TransitSegment{WheelchairAccessible: true, StairsCount: &stairs}
	got := EdgeCost(seg, p)
	if !math.IsInf(got, 1) {
		t.Errorf("EdgeCost = %v, want +Inf", got)
	}
}

func TestEdgeCostRainMultiplier(t *testing.T) {
	p := basePolicy()
	p.Context.IsRaining = true
	seg := domain.TransitSegment{WalkMin: 10, WheelchairAccessible: true}
	got := EdgeCost(seg, p)
	want := 10 * 0.5 * 2.2
	if got != want {
		t.Errorf("EdgeCost (rain) = %v, want %v", got, want)
	}
}

func TestEdgeCostLuggagePenaltyOnlyOnTransit(t *testing.T) {
	p := basePolicy()
	p.Context.HasLuggage = true
	busSeg := domain.TransitSegment{Mode: domain.ModeBus, WheelchairAccessible: true}
	walkSeg := domain.TransitSegment{Mode: domain.ModeWalk, WheelchairAccessible: true}
	if EdgeCost(busSeg, p) != 18 {
		t.Errorf("expected luggage penalty of 18 on bus segment, got %v", EdgeCost(busSeg, p))
	}
	if EdgeCost(walkSeg, p) != 0 {
		t.Errorf("expected no luggage penalty on walk segment, got %v", EdgeCost(walkSeg, p))
	}
}

func TestItineraryCost(t *testing.T) {
	p := basePolicy()
	totals := ItineraryTotals{SumEdgeCosts: 100, OvertimeMin: 5, PlanChangeCount: 2}
	got := ItineraryCost(totals, p)
	want := 100.0 + 5*2.0 + 2*10.0
	if got != want {
		t.Errorf("ItineraryCost = %v, want %v", got, want)
	}
}
