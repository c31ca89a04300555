// Package replan implements the Replanner (C10): given a previous day's
// schedule, a triggering event, and a change budget, freezes the portion
// of the day that can no longer change and re-runs the Day Scheduler over
// the remainder, per spec §4.8.
package replan

import (
	"fmt"

	"wayfare-backend/internal/planning/cost"
	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/scheduler"
	"wayfare-backend/internal/planning/timegeo"
)

// EventKind enumerates the replan triggers of spec §4.8.
type EventKind int

const (
	EventWeatherChanged EventKind = iota
	EventPoiClosed
	EventCrowdSpike
	EventTrafficDisruption
	EventUserEdit
)

// Event is a tagged-variant replan trigger; only the fields relevant to
// its Kind are meaningful (spec §9: "implicit inheritance -> tagged
// variants").
type Event struct {
	Kind             EventKind `json:"kind"`
	Raining          bool      `json:"raining,omitempty"` // EventWeatherChanged
	PoiID            string    `json:"poiId,omitempty"` // EventPoiClosed
	EffectiveFromMin int       `json:"effectiveFromMin,omitempty"` // EventPoiClosed
	Severity         int       `json:"severity,omitempty"` // EventTrafficDisruption: 1, 2, 3
	RemovedStopIds   []string  `json:"removedStopIds,omitempty"` // EventUserEdit
	PinnedPoiIds     []string  `json:"pinnedPoiIds,omitempty"` // EventUserEdit
}

// DefaultLockWindowMin and DefaultMaxChangeCount/DefaultMaxTimeShiftMin
// are the change-budget defaults of spec §4.8.
const (
	DefaultLockWindowMin   = 30
	DefaultMaxChangeCount  = 3
	DefaultMaxTimeShiftMin = 60
	movedThresholdMin      = 45
	extrasShortListSize    = 10
)

// ChangeBudget limits how much a replan may alter the existing schedule.
type ChangeBudget struct {
	MaxChangeCount     int  `json:"maxChangeCount,omitempty"`
	MaxTimeShiftMin    int  `json:"maxTimeShiftMin,omitempty"`
	AllowAddNewPoi     bool `json:"allowAddNewPoi,omitempty"`
	AllowRemoveMustSee bool `json:"allowRemoveMustSee,omitempty"`
}

func (b ChangeBudget) withDefaults() ChangeBudget {
	if b.MaxChangeCount <= 0 {
		b.MaxChangeCount = DefaultMaxChangeCount
	}
	if b.MaxTimeShiftMin <= 0 {
		b.MaxTimeShiftMin = DefaultMaxTimeShiftMin
	}
	return b
}

// Request is the Replanner's input.
type Request struct {
	NowMin          int
	CurrentLocation domain.Location
	Previous        domain.DaySchedule
	PoiPool         []*domain.Poi
	RestStops       []domain.RestStop
	GetTransit      scheduler.GetTransitFunc
	Event           Event
	PinnedPoiIds    []string
	Budget          ChangeBudget
	LockWindowMin   int // 0 means DefaultLockWindowMin
	DateISO         string
	DayOfWeek       int
	Holidays        timegeo.HolidayChecker
	MustSeePoiIds   []string
}

func (r Request) lockWindowMin() int {
	if r.LockWindowMin > 0 {
		return r.LockWindowMin
	}
	return DefaultLockWindowMin
}

// DiffEntry classifies one POI's fate between the previous and new plan.
type DiffEntry struct {
	PoiID    string `json:"poiId"`
	Status   string `json:"status"` // kept | removed | added | moved
	ShiftMin int    `json:"shiftMin,omitempty"`
}

// Result is the Replanner's output.
type Result struct {
	Schedule    domain.DaySchedule `json:"schedule"`
	FrozenCount int                `json:"frozenCount"`
	Diff        []DiffEntry        `json:"diff,omitempty"`
	ChangeCount int                `json:"changeCount"`
	Explanation string             `json:"explanation"`
	Feasible    bool               `json:"feasible"`
}

// Replan runs the full spec §4.8 algorithm.
func Replan(policy domain.Policy, req Request) Result {
	budget := req.Budget.withDefaults()
	holidays := req.Holidays
	if holidays == nil {
		holidays = timegeo.NoHolidays{}
	}

	frozen, remaining := freezePrefix(req.Previous, req.NowMin, req.lockWindowMin())
	adjustedPolicy := adjustPolicyForEvent(policy, req.Event)
	banned := banList(req.Event)

	pinned := dedupeStrings(append(append([]string{}, req.PinnedPoiIds...), req.Event.PinnedPoiIds...))
	pinned = removeBanned(pinned, banned)

	originalOrder := remainingPoiOrder(remaining, banned)
	extras := extrasFromPool(req.PoiPool, append(pinned, originalOrder...), banned)

	lists := buildCandidateLists(pinned, originalOrder, extras)

	startLoc, startMin := frozenEndpoint(frozen, req)

	var bestSchedule domain.DaySchedule
	var bestDiff []DiffEntry
	var bestChangeCount int
	bestCost := -1.0
	found := false

	for _, list := range lists {
		pois := resolvePois(req.PoiPool, list)
		candSchedule := scheduler.BuildDay(adjustedPolicy, scheduler.Request{
			DateISO:       req.DateISO,
			DayOfWeek:     req.DayOfWeek,
			StartMin:      startMin,
			EndMin:        endOfDay(req.Previous),
			StartLocation: startLoc,
			Pois:          pois,
			RestStops:     req.RestStops,
			GetTransit:    req.GetTransit,
			MustSeePoiIds: req.MustSeePoiIds,
			Holidays:      holidays,
		})

		merged := mergeSchedules(frozen, candSchedule)
		diff := diffSchedules(remaining, candSchedule.Stops)
		changeCount := countChanges(diff)

		if !withinBudget(diff, changeCount, budget) {
			continue
		}

		itineraryCost := scoreSchedule(merged, adjustedPolicy, changeCount)
		if !found || itineraryCost < bestCost {
			bestSchedule = merged
			bestDiff = diff
			bestChangeCount = changeCount
			bestCost = itineraryCost
			found = true
		}
	}

	if !found {
		return Result{
			Schedule:    domain.DaySchedule{Stops: frozen},
			FrozenCount: len(frozen),
			Feasible:    false,
			Explanation: explainNoCandidate(req.Event),
		}
	}

	return Result{
		Schedule:    bestSchedule,
		FrozenCount: len(frozen),
		Diff:        bestDiff,
		ChangeCount: bestChangeCount,
		Feasible:    true,
		Explanation: explainSuccess(req.Event, bestChangeCount),
	}
}

// freezePrefix implements spec §4.8 step 1: a stop is frozen iff it has
// ended, is currently executing, or starts within the lock window.
func freezePrefix(prev domain.DaySchedule, nowMin, lockWindowMin int) ([]domain.PlannedStop, []domain.PlannedStop) {
	var frozen, remaining []domain.PlannedStop
	for _, s := range prev.Stops {
		if s.EndMin <= nowMin || (s.StartMin <= nowMin && nowMin < s.EndMin) || s.StartMin < nowMin+lockWindowMin {
			frozen = append(frozen, s)
		} else {
			remaining = append(remaining, s)
		}
	}
	return frozen, remaining
}

func frozenEndpoint(frozen []domain.PlannedStop, req Request) (domain.Location, int) {
	if len(frozen) == 0 {
		return req.CurrentLocation, req.NowMin
	}
	last := frozen[len(frozen)-1]
	loc := domain.Location{Lat: last.Lat, Lng: last.Lng}
	startMin := last.EndMin
	if startMin < req.NowMin {
		startMin = req.NowMin
	}
	return loc, startMin
}

func endOfDay(prev domain.DaySchedule) int {
	end := 0
	for _, s := range prev.Stops {
		if s.EndMin > end {
			end = s.EndMin
		}
	}
	if end == 0 {
		end = 24 * 60
	}
	return end
}

// adjustPolicyForEvent returns a value-typed, structurally-updated policy
// (spec §9: "deep object copies -> immutable policy"); the input policy
// is never mutated.
func adjustPolicyForEvent(policy domain.Policy, event Event) domain.Policy {
	updated := policy
	switch event.Kind {
	case EventWeatherChanged:
		if event.Raining {
			updated.Context.IsRaining = true
			if updated.Soft.RainWalkMultiplier < 2.2 {
				updated.Soft.RainWalkMultiplier = 2.2
			}
		}
	case EventTrafficDisruption:
		mult := 1.0
		switch event.Severity {
		case 1:
			mult = 1.06
		case 2:
			mult = 1.12
		case 3:
			mult = 1.25
		}
		updated.Soft.ValueOfTimePerMin *= mult
	case EventUserEdit:
		updated.Soft.PlanChangePenalty *= 0.7
	}
	return updated
}

// banList implements spec §4.8 step 3.
func banList(event Event) map[string]bool {
	banned := make(map[string]bool)
	if event.Kind == EventPoiClosed {
		banned[event.PoiID] = true
	}
	if event.Kind == EventUserEdit {
		for _, id := range event.RemovedStopIds {
			banned[id] = true
		}
	}
	return banned
}

func remainingPoiOrder(remaining []domain.PlannedStop, banned map[string]bool) []string {
	var ids []string
	for _, s := range remaining {
		if s.Kind == domain.StopPoi && !banned[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func extrasFromPool(pool []*domain.Poi, already []string, banned map[string]bool) []string {
	usedSet := make(map[string]bool, len(already))
	for _, id := range already {
		usedSet[id] = true
	}
	var extras []string
	for _, p := range pool {
		if usedSet[p.ID] || banned[p.ID] {
			continue
		}
		extras = append(extras, p.ID)
	}
	return extras
}

// buildCandidateLists constructs the three candidate orderings of spec
// §4.8 step 4.
func buildCandidateLists(pinned, original, extras []string) [][]string {
	a := concatUnique(pinned, original, extras)
	shortExtras := extras
	if len(shortExtras) > extrasShortListSize {
		shortExtras = shortExtras[:extrasShortListSize]
	}
	b := concatUnique(pinned, original, shortExtras)
	c := concatUnique(pinned, extras)
	return [][]string{a, b, c}
}

func concatUnique(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func resolvePois(pool []*domain.Poi, ids []string) []*domain.Poi {
	byID := make(map[string]*domain.Poi, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
	}
	var out []*domain.Poi
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func mergeSchedules(frozen []domain.PlannedStop, rest domain.DaySchedule) domain.DaySchedule {
	stops := make([]domain.PlannedStop, 0, len(frozen)+len(rest.Stops))
	stops = append(stops, frozen...)
	stops = append(stops, rest.Stops...)
	return domain.DaySchedule{Stops: stops, Metrics: rest.Metrics}
}

// diffSchedules classifies each POI as kept / removed / added / moved
// (spec §4.8 step 7): moved means the same id shifted start by >= 45 min.
func diffSchedules(previousRemaining, candidateStops []domain.PlannedStop) []DiffEntry {
	prevByID := make(map[string]domain.PlannedStop)
	for _, s := range previousRemaining {
		if s.Kind == domain.StopPoi {
			prevByID[s.ID] = s
		}
	}
	candByID := make(map[string]domain.PlannedStop)
	for _, s := range candidateStops {
		if s.Kind == domain.StopPoi {
			candByID[s.ID] = s
		}
	}

	var diff []DiffEntry
	for id, prevStop := range prevByID {
		candStop, ok := candByID[id]
		if !ok {
			diff = append(diff, DiffEntry{PoiID: id, Status: "removed"})
			continue
		}
		shift := candStop.StartMin - prevStop.StartMin
		if shift < 0 {
			shift = -shift
		}
		if shift >= movedThresholdMin {
			diff = append(diff, DiffEntry{PoiID: id, Status: "moved", ShiftMin: shift})
		} else {
			diff = append(diff, DiffEntry{PoiID: id, Status: "kept", ShiftMin: shift})
		}
	}
	for id := range candByID {
		if _, ok := prevByID[id]; !ok {
			diff = append(diff, DiffEntry{PoiID: id, Status: "added"})
		}
	}
	return diff
}

func countChanges(diff []DiffEntry) int {
	count := 0
	for _, d := range diff {
		if d.Status == "removed" || d.Status == "added" || d.Status == "moved" {
			count++
		}
	}
	return count
}

func withinBudget(diff []DiffEntry, changeCount int, budget ChangeBudget) bool {
	if changeCount > budget.MaxChangeCount {
		return false
	}
	for _, d := range diff {
		if d.Status == "added" && !budget.AllowAddNewPoi {
			return false
		}
		// ShiftMin is only meaningful for stops present in both schedules
		// (kept or moved); check it against the raw budget regardless of
		// the moved/kept classification threshold, since a custom budget
		// can set MaxTimeShiftMin below movedThresholdMin.
		if (d.Status == "kept" || d.Status == "moved") && d.ShiftMin > budget.MaxTimeShiftMin {
			return false
		}
	}
	return true
}

func scoreSchedule(schedule domain.DaySchedule, policy domain.Policy, changeCount int) float64 {
	var totals cost.ItineraryTotals
	for _, s := range schedule.Stops {
		if s.TransitIn != nil {
			totals.SumEdgeCosts += cost.EdgeCost(*s.TransitIn, policy)
		}
	}
	totals.OvertimeMin = schedule.Metrics.OvertimeMin
	totals.PlanChangeCount = changeCount
	return cost.ItineraryCost(totals, policy)
}

func explainSuccess(event Event, changeCount int) string {
	switch event.Kind {
	case EventPoiClosed:
		return fmt.Sprintf("景点闭馆 (POI closed): %s was removed from the remaining plan and %d stop(s) were adjusted.", event.PoiID, changeCount)
	case EventWeatherChanged:
		return fmt.Sprintf("Weather changed; walking routes re-weighted and %d stop(s) adjusted.", changeCount)
	case EventCrowdSpike:
		return fmt.Sprintf("Crowd spike detected; %d stop(s) adjusted to avoid congestion.", changeCount)
	case EventTrafficDisruption:
		return fmt.Sprintf("Traffic disruption; %d stop(s) adjusted for travel-time risk.", changeCount)
	case EventUserEdit:
		return fmt.Sprintf("Plan updated per your edit; %d stop(s) adjusted.", changeCount)
	default:
		return fmt.Sprintf("Plan adjusted; %d stop(s) changed.", changeCount)
	}
}

func explainNoCandidate(event Event) string {
	base := "no feasible alternative found within the change budget; keeping the frozen portion of today's plan"
	if event.Kind == EventPoiClosed {
		return "景点闭馆 (POI closed), but " + base + "."
	}
	return base + "."
}

func dedupeStrings(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	var out []string
	for _, x := range xs {
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}

func removeBanned(xs []string, banned map[string]bool) []string {
	var out []string
	for _, x := range xs {
		if !banned[x] {
			out = append(out, x)
		}
	}
	return out
}
