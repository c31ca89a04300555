// Package feasibility implements the Feasibility Service (C3): a decision
// of whether a POI may be entered at a given minute, and an estimate of
// how long a visitor would have to wait if not. See spec §4.2.
package feasibility

import (
	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/timegeo"
)

// Reason is the typed miss/infeasibility reason. The wire boundary
// renders its String() form; internally callers switch on the enum.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotWheelchairAccessible
	ReasonHasStairs
	ReasonClosedDate
	ReasonNoOpenWindow
	ReasonPastLastEntry
	ReasonClosedRestOfDay
	ReasonWaitTooLong
)

func (r Reason) String() string {
	switch r {
	case ReasonNotWheelchairAccessible:
		return "POI_NOT_WHEELCHAIR_ACCESSIBLE"
	case ReasonHasStairs:
		return "POI_HAS_STAIRS"
	case ReasonClosedDate:
		return "CLOSED_DATE"
	case ReasonNoOpenWindow:
		return "NO_OPEN_WINDOW"
	case ReasonPastLastEntry:
		return "PAST_LAST_ENTRY"
	case ReasonClosedRestOfDay:
		return "CLOSED_REST_OF_DAY"
	case ReasonWaitTooLong:
		return "WAIT_TOO_LONG"
	default:
		return ""
	}
}

// MaxAcceptableWaitMin is the §4.2 step 6 threshold: a wait longer than
// this makes the POI infeasible rather than merely delayed.
const MaxAcceptableWaitMin = 180

// Result is the output of IsPoiFeasible.
type Result struct {
	Feasible      bool
	Reason        Reason
	WaitMin       float64
	InOpenWindow  bool
	PastLastEntry bool
	IsClosedDate  bool
}

// IsPoiFeasible decides whether poi may be entered at nowMin on the given
// day, following the short-circuiting decision order of spec §4.2.
func IsPoiFeasible(poi *domain.Poi, nowMin int, policy domain.Policy, dayOfWeek int, dateISO string, holidays timegeo.HolidayChecker) Result {
	// Step 1: hard-constraint accessibility rejects.
	if policy.Hard.RequireWheelchairAccess && !poi.WheelchairAccess {
		return Result{Feasible: false, Reason: ReasonNotWheelchairAccessible}
	}
	if policy.Hard.ForbidStairs && poi.StairsRequired {
		return Result{Feasible: false, Reason: ReasonHasStairs}
	}

	// Step 2: no opening-hours descriptor means always open.
	if poi.OpeningHours == nil {
		return Result{Feasible: true, InOpenWindow: true}
	}
	oh := poi.OpeningHours

	// Step 3: explicit closed dates.
	if oh.IsClosedDate(dateISO) {
		return Result{Feasible: false, Reason: ReasonClosedDate, IsClosedDate: true}
	}

	// Step 4: select applicable windows.
	windows := oh.ApplicableWindows(dayOfWeek, dateISO, holidays)
	if len(windows) == 0 {
		return Result{Feasible: false, Reason: ReasonNoOpenWindow}
	}

	// Step 5: currently inside an applicable window.
	for _, w := range windows {
		if nowMin >= w.StartMin && nowMin < w.EndMin {
			if lastEntry, ok := oh.LastEntryForDay(dayOfWeek); ok && nowMin > lastEntry {
				return Result{Feasible: false, Reason: ReasonPastLastEntry, InOpenWindow: true, PastLastEntry: true}
			}
			return Result{Feasible: true, InOpenWindow: true, WaitMin: 0}
		}
	}

	// Step 6: find the next future applicable start.
	nextStart, found := nextWindowStart(windows, nowMin)
	if !found {
		return Result{Feasible: false, Reason: ReasonClosedRestOfDay}
	}
	wait := float64(nextStart - nowMin)
	if wait > MaxAcceptableWaitMin {
		return Result{Feasible: false, Reason: ReasonWaitTooLong, WaitMin: wait}
	}
	return Result{Feasible: true, WaitMin: wait}
}

func nextWindowStart(windows []timegeo.Window, nowMin int) (int, bool) {
	best := -1
	for _, w := range windows {
		if w.StartMin > nowMin {
			if best == -1 || w.StartMin < best {
				best = w.StartMin
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// WaitEstimate is the output of EstimateWait.
type WaitEstimate struct {
	WaitMin     float64
	Reason      Reason
	NextOpenMin int
	HasNextOpen bool
}

// ClosureEvent models a POI_CLOSED replan event that may be in effect,
// per spec §4.2's wait-estimation note.
type ClosureEvent struct {
	Active           bool
	EffectiveFromMin int
}

// EstimateWait follows the same window logic as IsPoiFeasible but always
// returns a wait estimate: zero with no Reason when the POI is open now or
// has no opening hours, a finite wait with HasNextOpen = true when a later
// window opens today, and an infinite wait signaled by a set Reason
// otherwise. It additionally treats an active POI_CLOSED event whose
// effective minute has arrived as an infinite wait.
func EstimateWait(poi *domain.Poi, nowMin int, dayOfWeek int, dateISO string, holidays timegeo.HolidayChecker, closure *ClosureEvent) WaitEstimate {
	if closure != nil && closure.Active && closure.EffectiveFromMin <= nowMin {
		return WaitEstimate{Reason: ReasonClosedRestOfDay}
	}

	if poi.OpeningHours == nil {
		return WaitEstimate{WaitMin: 0}
	}
	oh := poi.OpeningHours

	if oh.IsClosedDate(dateISO) {
		return WaitEstimate{Reason: ReasonClosedDate}
	}

	windows := oh.ApplicableWindows(dayOfWeek, dateISO, holidays)
	if len(windows) == 0 {
		return WaitEstimate{Reason: ReasonNoOpenWindow}
	}

	for _, w := range windows {
		if nowMin >= w.StartMin && nowMin < w.EndMin {
			if lastEntry, ok := oh.LastEntryForDay(dayOfWeek); ok && nowMin > lastEntry {
				return WaitEstimate{Reason: ReasonPastLastEntry}
			}
			return WaitEstimate{WaitMin: 0}
		}
	}

	nextStart, found := nextWindowStart(windows, nowMin)
	if !found {
		return WaitEstimate{Reason: ReasonClosedRestOfDay}
	}
	return WaitEstimate{
		WaitMin:     float64(nextStart - nowMin),
		NextOpenMin: nextStart,
		HasNextOpen: true,
	}
}
