package robustness

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
	p.Soft.ValueOfTimePerMin = 0.5
	p.Derived.GroupMobilityWorst = domain.MobilityCityPotato
	return p
}

func TestEvaluateDayPerfectSingleStop(t *testing.T) {
	poi := &domain.Poi{ID: "p1", Name: "Plaza", AvgVisitMin: 60, QueueMinMean: 0}
	schedule := domain.DaySchedule{
		Stops: []domain.PlannedStop{
			{
				Kind:     domain.StopPoi,
				ID:       "p1",
				StartMin: 9 * 60,
				EndMin:   10 * 60,
				TransitIn: &domain.TransitSegment{DurationMin: 0},
			},
		},
	}
	lookup := domain.MapPoiLookup{"p1": poi}

	report := EvaluateDay(basicPolicy(), schedule, lookup, 18*60, "2026-08-01", 6, timegeo.NoHolidays{}, Config{Samples: 300, Seed: 42})

	if report.Summary.OnTimeProb < 0.99 {
		t.Errorf("onTimeProb = %v, want >= 0.99", report.Summary.OnTimeProb)
	}
	if report.Summary.TimeWindowMissProb != 0 {
		t.Errorf("timeWindowMissProb = %v, want 0", report.Summary.TimeWindowMissProb)
	}
	if report.Summary.CompletionRateP10 != 1 {
		t.Errorf("completionRateP10 = %v, want 1", report.Summary.CompletionRateP10)
	}
}

func TestEvaluateDayLastEntryMiss(t *testing.T) {
	oh := timegeo.NewOpeningHours()
	oh.Windows = []timegeo.Window{{HasDayOfWeek: true, DayOfWeek: 6, StartMin: 9 * 60, EndMin: 18 * 60}}
	oh.LastEntryByDay = map[int]int{6: 10 * 60}

	poi := &domain.Poi{ID: "p2", Name: "Museum", AvgVisitMin: 60, OpeningHours: &oh}
	schedule := domain.DaySchedule{
		Stops: []domain.PlannedStop{
			{
				Kind:     domain.StopPoi,
				ID:       "p2",
				StartMin: 11*60 + 30,
				EndMin:   12*60 + 30,
				TransitIn: &domain.TransitSegment{DurationMin: 0},
			},
		},
	}
	lookup := domain.MapPoiLookup{"p2": poi}

	report := EvaluateDay(basicPolicy(), schedule, lookup, 18*60, "2026-08-01", 6, timegeo.NoHolidays{}, Config{Samples: 300, Seed: 42})

	stat := report.Summary.PerPoi["p2"]
	if stat == nil {
		t.Fatal("expected per-poi stats for p2")
	}
	if stat.MissProb < 0.99 {
		t.Errorf("missProb = %v, want >= 0.99", stat.MissProb)
	}
	foundReason := false
	for _, r := range stat.TopMissReasons {
		if r == MissMissedLastEntry {
			foundReason = true
		}
	}
	if !foundReason {
		t.Errorf("expected MISSED_LAST_ENTRY among top miss reasons, got %v", stat.TopMissReasons)
	}
}

func TestSeedForSampleMatchesSpecRule(t *testing.T) {
	if got := SeedForSample(42, 0); got != 42 {
		t.Errorf("SeedForSample(42,0) = %v, want 42", got)
	}
	if got := SeedForSample(42, 1); got != 42+9973 {
		t.Errorf("SeedForSample(42,1) = %v, want %v", got, 42+9973)
	}
}

func TestMulberry32Deterministic(t *testing.T) {
	a := newMulberry32(42)
	b := newMulberry32(42)
	for i := 0; i < 5; i++ {
		va, vb := a.next(), b.next()
		if va != vb {
			t.Fatalf("mulberry32 not deterministic at step %d: %v != %v", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("mulberry32 out of [0,1) range: %v", va)
		}
	}
}
