package scheduler

import (
	"testing"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/timegeo"
)

func basicPolicy() domain.Policy {
	var p domain.Policy
	p.Pacing.HpMax = 100
	p.Pacing.RegenRatePerHour = 30
	p.Pacing.ForcedRestIntervalMin = 240
	p.Pacing.ContinuousWalkCapMin = 90
	p.Hard.MaxSingleWalkMin = 30
	p.Hard.MaxTransfers = 3
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

func flatTransit(walkMin float64) GetTransitFunc {
	return func(from, to domain.Location, policy domain.Policy) ([]domain.TransitSegment, error) {
		return []domain.TransitSegment{{
			Mode:        domain.ModeWalk,
			DurationMin: walkMin,
			WalkMin:     walkMin,
		}}, nil
	}
}

func TestBuildDaySingleAlwaysOpenPoi(t *testing.T) {
	p := basicPolicy()
	poi := &domain.Poi{ID: "p1", Name: "Museum", Tags: []string{"museum"}, AvgVisitMin: 60}

	req := Request{
		DateISO:       "2026-08-01",
		DayOfWeek:     6,
		StartMin:      9 * 60,
		EndMin:        18 * 60,
		StartLocation: domain.Location{Lat: 0, Lng: 0},
		Pois:          []*domain.Poi{poi},
		GetTransit:    flatTransit(10),
		Holidays:      timegeo.NoHolidays{},
	}

	sched := BuildDay(p, req)
	if len(sched.Stops) == 0 {
		t.Fatal("expected at least one stop")
	}
	found := false
	for _, s := range sched.Stops {
		if s.Kind == domain.StopPoi && s.ID == "p1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected POI p1 to be scheduled, stops: %+v", sched.Stops)
	}
}

func TestBuildDayInsertsForcedRestWhenHpLow(t *testing.T) {
	p := basicPolicy()
	p.Pacing.ForcedRestIntervalMin = 30
	p.Pacing.HpMax = 20 // at or below the city-potato rest threshold (22), so HP starts low
	rest := domain.RestStop{ID: "r1", Name: "Bench", ComfortScore: 5, RegenHp: 10, RecommendedRestMin: 15}

	req := Request{
		DateISO:       "2026-08-01",
		DayOfWeek:     6,
		StartMin:      9 * 60,
		EndMin:        12 * 60,
		StartLocation: domain.Location{Lat: 0, Lng: 0},
		RestStops:     []domain.RestStop{rest},
		GetTransit:    flatTransit(5),
		Holidays:      timegeo.NoHolidays{},
	}

	sched := BuildDay(p, req)
	sawRest := false
	for _, s := range sched.Stops {
		if s.Kind == domain.StopRest {
			sawRest = true
		}
	}
	if !sawRest {
		t.Errorf("expected a forced rest stop to be scheduled, stops: %+v", sched.Stops)
	}
}

func TestBuildDaySkipsPoiBeyondMaxWalk(t *testing.T) {
	p := basicPolicy()
	p.Hard.MaxSingleWalkMin = 5
	poi := &domain.Poi{ID: "far", Name: "Far museum", Tags: []string{"museum"}, AvgVisitMin: 60}

	req := Request{
		DateISO:       "2026-08-01",
		DayOfWeek:     6,
		StartMin:      9 * 60,
		EndMin:        10 * 60,
		StartLocation: domain.Location{Lat: 0, Lng: 0},
		Pois:          []*domain.Poi{poi},
		GetTransit:    flatTransit(20),
		Holidays:      timegeo.NoHolidays{},
	}

	sched := BuildDay(p, req)
	for _, s := range sched.Stops {
		if s.Kind == domain.StopPoi {
			t.Errorf("expected no POI scheduled when walk exceeds cap, got %+v", s)
		}
	}
}

func TestDistanceScoreForPiecewise(t *testing.T) {
	if got := distanceScoreFor(0.2); got != 1.0 {
		t.Errorf("distanceScoreFor(0.2) = %v, want 1.0", got)
	}
	if got := distanceScoreFor(5.0); got != 0.3 {
		t.Errorf("distanceScoreFor(5.0) = %v, want 0.3", got)
	}
	mid := distanceScoreFor(1.25)
	if mid <= 0.3 || mid >= 1.0 {
		t.Errorf("distanceScoreFor(1.25) = %v, want strictly between 0.3 and 1.0", mid)
	}
}
