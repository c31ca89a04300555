package feasibility

import (
	"testing"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/timegeo"
)

func mondayPoi() *domain.Poi {
	oh := timegeo.NewOpeningHours()
	oh.Windows = []timegeo.Window{
		{HasDayOfWeek: true, DayOfWeek: 1, StartMin: 9 * 60, EndMin: 18 * 60},
	}
	oh.LastEntryByDay = map[int]int{1: 17 * 60}
	return &domain.Poi{ID: "poi-1", OpeningHours: &oh, WheelchairAccess: true}
}

// Scenario from spec §8 "Opening hours".
func TestIsPoiFeasibleScenario(t *testing.T) {
	poi := mondayPoi()
	var policy domain.Policy

	r := IsPoiFeasible(poi, 9*60, policy, 1, "2026-08-03", timegeo.NoHolidays{})
	if !r.Feasible || !r.InOpenWindow {
		t.Fatalf("09:00 Monday: got %+v, want feasible+inOpenWindow", r)
	}

	r = IsPoiFeasible(poi, 8*60, policy, 1, "2026-08-03", timegeo.NoHolidays{})
	if !r.Feasible || r.WaitMin != 60 || r.InOpenWindow {
		t.Fatalf("08:00 Monday: got %+v, want feasible wait=60 not-in-window", r)
	}

	r = IsPoiFeasible(poi, 17*60+30, policy, 1, "2026-08-03", timegeo.NoHolidays{})
	if r.Feasible || r.Reason != ReasonPastLastEntry {
		t.Fatalf("17:30 Monday: got %+v, want infeasible PAST_LAST_ENTRY", r)
	}

	r = IsPoiFeasible(poi, 9*60, policy, 2, "2026-08-04", timegeo.NoHolidays{})
	if r.Feasible || r.Reason != ReasonNoOpenWindow {
		t.Fatalf("09:00 Tuesday: got %+v, want infeasible NO_OPEN_WINDOW", r)
	}
}

// Scenario 3 from spec §8: wheelchair gate.
func TestWheelchairGate(t *testing.T) {
	poi := &domain.Poi{ID: "poi-1", WheelchairAccess: false}
	var policy domain.Policy
	policy.Hard.RequireWheelchairAccess = true

	r := IsPoiFeasible(poi, 600, policy, 1, "2026-08-03", timegeo.NoHolidays{})
	if r.Feasible || r.Reason != ReasonNotWheelchairAccessible {
		t.Fatalf("got %+v, want infeasible POI_NOT_WHEELCHAIR_ACCESSIBLE", r)
	}
	if r.Reason.String() != "POI_NOT_WHEELCHAIR_ACCESSIBLE" {
		t.Fatalf("String() = %q", r.Reason.String())
	}
}

func TestForbidStairsGate(t *testing.T) {
	poi := &domain.Poi{ID: "poi-1", WheelchairAccess: true, StairsRequired: true}
	var policy domain.Policy
	policy.Hard.ForbidStairs = true

	r := IsPoiFeasible(poi, 600, policy, 1, "2026-08-03", timegeo.NoHolidays{})
	if r.Feasible || r.Reason != ReasonHasStairs {
		t.Fatalf("got %+v, want infeasible POI_HAS_STAIRS", r)
	}
}

func TestAlwaysOpenNoOpeningHours(t *testing.T) {
	poi := &domain.Poi{ID: "poi-1", WheelchairAccess: true}
	var policy domain.Policy
	r := IsPoiFeasible(poi, 0, policy, 0, "2026-08-03", timegeo.NoHolidays{})
	if !r.Feasible || !r.InOpenWindow {
		t.Fatalf("got %+v, want always feasible", r)
	}
}

func TestWaitTooLong(t *testing.T) {
	oh := timegeo.NewOpeningHours()
	oh.Windows = []timegeo.Window{
		{HasDayOfWeek: true, DayOfWeek: 1, StartMin: 20 * 60, EndMin: 22 * 60},
	}
	poi := &domain.Poi{ID: "poi-1", WheelchairAccess: true, OpeningHours: &oh}
	var policy domain.Policy
	r := IsPoiFeasible(poi, 10*60, policy, 1, "2026-08-03", timegeo.NoHolidays{})
	if r.Feasible || r.Reason != ReasonWaitTooLong {
		t.Fatalf("got %+v, want infeasible WAIT_TOO_LONG", r)
	}
}

func TestEstimateWaitClosureEvent(t *testing.T) {
	poi := mondayPoi()
	we := EstimateWait(poi, 700, 1, "2026-08-03", timegeo.NoHolidays{}, &ClosureEvent{Active: true, EffectiveFromMin: 600})
	if we.HasNextOpen {
		t.Fatalf("expected closure to force infinite wait, got %+v", we)
	}
	if we.Reason != ReasonClosedRestOfDay {
		t.Fatalf("got reason %v, want ReasonClosedRestOfDay", we.Reason)
	}
}
