package replan

import (
	"strings"
	"testing"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/scheduler"
)

func basicPolicy() domain.Policy {
	var p domain.Policy
	p.Pacing.HpMax = 100
	p.Pacing.RegenRatePerHour = 30
	p.Pacing.ForcedRestIntervalMin = 240
	p.Pacing.ContinuousWalkCapMin = 90
	p.Hard.MaxSingleWalkMin = 30
	p.Soft.TagAffinity = map[string]float64{"museum": 0.8}
	p.Soft.ValueOfTimePerMin = 0.5
	p.Soft.WalkPainPerMin = 0.2
	p.Soft.TransferPain = 1
	p.Soft.StairPain = 2
	p.Soft.CrowdPainPerMin = 0.1
	p.Soft.RainWalkMultiplier = 1.5
	p.Soft.ElderlyTransferMultiplier = 1.2
	p.Soft.OvertimePenaltyPerMin = 2
	p.Derived.GroupMobilityWorst = domain.MobilityCityPotato
	return p
}

func flatTransit(walkMin float64) scheduler.GetTransitFunc {
	return func(from, to domain.Location, policy domain.Policy) ([]domain.TransitSegment, error) {
		return []domain.TransitSegment{{Mode: domain.ModeWalk, DurationMin: walkMin, WalkMin: walkMin}}, nil
	}
}

func TestFrozenPrefixPreservedStopForStop(t *testing.T) {
	prev := domain.DaySchedule{
		Stops: []domain.PlannedStop{
			{Kind: domain.StopPoi, ID: "poi-1", StartMin: 9 * 60, EndMin: 10 * 60, TransitIn: &domain.TransitSegment{DurationMin: 10}},
			{Kind: domain.StopPoi, ID: "poi-2", StartMin: 14 * 60, EndMin: 15 * 60, TransitIn: &domain.TransitSegment{DurationMin: 10}},
		},
	}
	poi2 := &domain.Poi{ID: "poi-2", Name: "Park", Tags: []string{"museum"}, AvgVisitMin: 60}

	req := Request{
		NowMin:          11 * 60,
		CurrentLocation: domain.Location{},
		Previous:        prev,
		PoiPool:         []*domain.Poi{poi2},
		GetTransit:      flatTransit(10),
		Event:           Event{Kind: EventWeatherChanged, Raining: true},
		DateISO:         "2026-08-01",
		DayOfWeek:       6,
	}

	result := Replan(basicPolicy(), req)

	if result.FrozenCount != 1 {
		t.Fatalf("expected 1 frozen stop, got %d", result.FrozenCount)
	}
	if len(result.Schedule.Stops) == 0 || result.Schedule.Stops[0].ID != "poi-1" {
		t.Fatalf("expected frozen stop poi-1 preserved as schedule[0], got %+v", result.Schedule.Stops)
	}
	if result.Schedule.Stops[0].StartMin != 9*60 || result.Schedule.Stops[0].EndMin != 10*60 {
		t.Errorf("frozen stop poi-1 timing changed: %+v", result.Schedule.Stops[0])
	}
}

func TestReplanPoiClosedOmitsPoiAndExplainsInChinese(t *testing.T) {
	prev := domain.DaySchedule{
		Stops: []domain.PlannedStop{
			{Kind: domain.StopPoi, ID: "poi-1", StartMin: 9 * 60, EndMin: 10 * 60, TransitIn: &domain.TransitSegment{DurationMin: 10}},
			{Kind: domain.StopPoi, ID: "poi-2", StartMin: 11 * 60, EndMin: 12 * 60, TransitIn: &domain.TransitSegment{DurationMin: 10}},
		},
	}
	poi2 := &domain.Poi{ID: "poi-2", Name: "Closed Museum", Tags: []string{"museum"}, AvgVisitMin: 60}

	req := Request{
		NowMin:          9 * 60,
		CurrentLocation: domain.Location{},
		Previous:        prev,
		PoiPool:         []*domain.Poi{poi2},
		GetTransit:      flatTransit(10),
		Event:           Event{Kind: EventPoiClosed, PoiID: "poi-2", EffectiveFromMin: 600},
		DateISO:         "2026-08-01",
		DayOfWeek:       6,
	}

	result := Replan(basicPolicy(), req)

	for _, s := range result.Schedule.Stops {
		if s.ID == "poi-2" {
			t.Errorf("expected poi-2 to be omitted after closure, found %+v", s)
		}
	}
	if !strings.Contains(result.Explanation, "景点闭馆") {
		t.Errorf("expected explanation to include 景点闭馆, got %q", result.Explanation)
	}
}

func TestChangeBudgetRejectsExcessiveShift(t *testing.T) {
	diff := []DiffEntry{{PoiID: "p1", Status: "moved", ShiftMin: 120}}
	budget := ChangeBudget{MaxChangeCount: 3, MaxTimeShiftMin: 60}
	if withinBudget(diff, 1, budget) {
		t.Errorf("expected shift of 120 min to violate a 60 min budget")
	}
}
