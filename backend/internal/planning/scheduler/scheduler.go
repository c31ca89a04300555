// Package scheduler implements the Day Scheduler (C7): a single-pass
// greedy construction of a day's timeline under opening-hour windows,
// physical-constraint ceilings, and the simulated stamina budget, per
// spec §4.5. Given identical inputs (including transit query results)
// the scheduler is deterministic.
package scheduler

import (
	"math"
	"sort"

	"wayfare-backend/internal/planning/cost"
	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/feasibility"
	"wayfare-backend/internal/planning/ranking"
	"wayfare-backend/internal/planning/stamina"
	"wayfare-backend/internal/planning/timegeo"
)

// GetTransitFunc resolves candidate transit segments between two
// locations; the caller may cache results across calls within a run.
type GetTransitFunc func(from, to domain.Location, policy domain.Policy) ([]domain.TransitSegment, error)

// DefaultBufferMin is the post-visit buffer applied when req.BufferMin is
// unset (spec §4.5).
const DefaultBufferMin = 10

// endOfDayMarginMin is the "stop scheduling" cutoff before endMin (spec
// §4.5 step loop condition: "until now >= endMin - 30").
const endOfDayMarginMin = 30

// safetyRestHpFloor forces a short rest after committing a POI when HP
// falls to or below this value (spec §4.5 step 5).
const safetyRestHpFloor = 8.0

// fallbackRestMaxMin is the short rest inserted when no POI is gainable
// (spec §4.5 step 3).
const fallbackRestMaxMin = 20.0

// Request is the Day Scheduler's input (spec §4.5).
type Request struct {
	DateISO       string
	DayOfWeek     int
	StartMin      int
	EndMin        int
	StartLocation domain.Location
	Pois          []*domain.Poi
	RestStops     []domain.RestStop
	GetTransit    GetTransitFunc
	MustSeePoiIds []string
	BufferMin     int // 0 means DefaultBufferMin
	Holidays      timegeo.HolidayChecker
}

func (r Request) bufferMin() int {
	if r.BufferMin > 0 {
		return r.BufferMin
	}
	return DefaultBufferMin
}

func mustSeeSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// BuildDay runs the greedy construction described in spec §4.5 and
// returns the resulting timeline plus metrics. It never returns an error
// for an unschedulable day — it returns the short schedule it managed to
// build, with OvertimeMin/metrics reflecting what happened, matching
// spec §7 ("an unschedulable day returns a short schedule").
func BuildDay(policy domain.Policy, req Request) domain.DaySchedule {
	remaining := make([]*domain.Poi, len(req.Pois))
	copy(remaining, req.Pois)
	mustSee := mustSeeSet(req.MustSeePoiIds)

	hp := stamina.State{Hp: policy.Pacing.HpMax, LastRestAtMin: float64(req.StartMin), LastBreakAtMin: float64(req.StartMin)}
	now := req.StartMin
	loc := req.StartLocation
	holidays := req.Holidays
	if holidays == nil {
		holidays = timegeo.NoHolidays{}
	}

	var stops []domain.PlannedStop
	metrics := domain.DayMetrics{}

	for now < req.EndMin-endOfDayMarginMin {
		// Step 1: forced rest check.
		if stamina.RestNeeded(policy, hp.Hp, float64(now), hp) {
			stop, newNow, newLoc, ok := scheduleRest(policy, req, &hp, now, loc, holidays, -1)
			if !ok {
				break
			}
			stops = append(stops, stop)
			now, loc = newNow, newLoc
			metrics.TotalTravelMin += stop.TransitIn.DurationMin
			metrics.TotalWalkMin += stop.TransitIn.WalkMin
			continue
		}

		// Step 2: POI selection.
		chosen, chosenIdx, ok := selectBestPoi(policy, req, remaining, mustSee, now, loc, holidays)
		if !ok {
			// Step 3: fallback short rest.
			stop, newNow, newLoc, restOk := scheduleRest(policy, req, &hp, now, loc, holidays, fallbackRestMaxMin)
			if !restOk {
				break
			}
			stops = append(stops, stop)
			now, loc = newNow, newLoc
			metrics.TotalTravelMin += stop.TransitIn.DurationMin
			metrics.TotalWalkMin += stop.TransitIn.WalkMin
			continue
		}

		// Step 4: commit.
		stairs := 0
		if chosen.Segment.StairsCount != nil {
			stairs = *chosen.Segment.StairsCount
		}
		stamina.ApplyTravelFatigue(policy, &hp, stamina.TravelLoad{WalkMin: chosen.Segment.WalkMin, StairsCount: stairs}, float64(now))
		arriveMin := now + int(math.Round(chosen.Segment.DurationMin))
		if chosen.WaitMin > 0 {
			stamina.ApplyTravelFatigue(policy, &hp, stamina.TravelLoad{QueueMin: chosen.WaitMin}, float64(arriveMin))
		}
		entryMin := arriveMin + int(math.Round(chosen.WaitMin))
		endMin := entryMin + int(math.Round(chosen.Poi.AvgVisitMin))

		stops = append(stops, domain.PlannedStop{
			Kind:      domain.StopPoi,
			ID:        chosen.Poi.ID,
			Name:      chosen.Poi.Name,
			StartMin:  entryMin,
			EndMin:    endMin,
			Lat:       chosen.Poi.Lat,
			Lng:       chosen.Poi.Lng,
			TransitIn: &chosen.Segment,
		})

		metrics.TotalTravelMin += chosen.Segment.DurationMin
		metrics.TotalWalkMin += chosen.Segment.WalkMin
		metrics.TotalQueueMin += chosen.WaitMin
		metrics.Transfers += chosen.Segment.TransferCount

		now = endMin + req.bufferMin()
		loc = domain.Location{Lat: chosen.Poi.Lat, Lng: chosen.Poi.Lng}
		remaining = append(remaining[:chosenIdx], remaining[chosenIdx+1:]...)

		// Step 5: safety rest.
		if hp.Hp <= safetyRestHpFloor {
			stop, newNow, newLoc, ok := scheduleRest(policy, req, &hp, now, loc, holidays, fallbackRestMaxMin)
			if ok {
				stops = append(stops, stop)
				now, loc = newNow, newLoc
				metrics.TotalTravelMin += stop.TransitIn.DurationMin
				metrics.TotalWalkMin += stop.TransitIn.WalkMin
			}
		}
	}

	if now > req.EndMin {
		metrics.OvertimeMin = float64(now - req.EndMin)
	}
	metrics.EndingHP = hp.Hp

	return domain.DaySchedule{Stops: stops, Metrics: metrics}
}

type poiCandidate struct {
	Poi     *domain.Poi
	Segment domain.TransitSegment
	WaitMin float64
}

// selectBestPoi implements spec §4.5 step 2: for each remaining POI, find
// its cheapest feasible transit segment, check the time window, and
// argmax the gain across all gainable candidates.
func selectBestPoi(policy domain.Policy, req Request, remaining []*domain.Poi, mustSee map[string]bool, now int, loc domain.Location, holidays timegeo.HolidayChecker) (poiCandidate, int, bool) {
	var rankable []ranking.Candidate
	var matched []poiCandidate

	for _, poi := range remaining {
		segs, err := req.GetTransit(loc, domain.Location{Lat: poi.Lat, Lng: poi.Lng}, policy)
		if err != nil || len(segs) == 0 {
			continue
		}

		var best *domain.TransitSegment
		bestCost := math.Inf(1)
		for i := range segs {
			seg := segs[i]
			if seg.WalkMin > policy.Hard.MaxSingleWalkMin {
				continue
			}
			c := cost.EdgeCost(seg, policy)
			if math.IsInf(c, 1) {
				continue
			}
			if c < bestCost {
				bestCost = c
				best = &segs[i]
			}
		}
		if best == nil {
			continue
		}

		arriveMin := now + int(math.Round(best.DurationMin))
		feas := feasibility.IsPoiFeasible(poi, arriveMin, policy, req.DayOfWeek, req.DateISO, holidays)
		if !feas.Feasible {
			continue
		}

		cand := poiCandidate{Poi: poi, Segment: *best, WaitMin: feas.WaitMin}
		matched = append(matched, cand)
		rankable = append(rankable, ranking.Candidate{
			Poi:        poi,
			IsMustSee:  mustSee[poi.ID],
			TravelCost: bestCost,
			WaitMin:    feas.WaitMin,
			FatiguePenalty: projectedFatiguePenalty(policy, *best, feas.WaitMin),
		})
	}

	if len(matched) == 0 {
		return poiCandidate{}, -1, false
	}

	scored := ranking.RankCandidates(rankable, policy)
	winner := scored[0].Candidate.Poi

	for _, c := range matched {
		if c.Poi == winner {
			return c, indexOf(remaining, c.Poi), true
		}
	}
	return poiCandidate{}, -1, false
}

func indexOf(pois []*domain.Poi, target *domain.Poi) int {
	for i, p := range pois {
		if p == target {
			return i
		}
	}
	return -1
}

// projectedFatiguePenalty estimates the HP cost of traveling a segment
// plus waiting, expressed in the same units the gain formula subtracts
// directly (spec §4.5 leaves the fatigue-penalty weighting unspecified;
// this uses the stamina table's own per-minute rates so the penalty
// scales consistently with the mobility tier driving the rest of the
// schedule).
func projectedFatiguePenalty(policy domain.Policy, seg domain.TransitSegment, waitMin float64) float64 {
	params := stamina.ParamsFor(policy.Derived.GroupMobilityWorst)
	stairs := 0
	if seg.StairsCount != nil {
		stairs = *seg.StairsCount
	}
	penalty := seg.WalkMin*params.WalkHpPerMin + waitMin*params.StandHpPerMin
	if stairs > 0 {
		penalty += float64(stairs) * params.StairsHpPerUnit
	}
	return penalty
}

// scheduleRest implements the rest-stop selection and commit logic shared
// by the forced-rest (step 1), fallback (step 3), and safety-rest (step
// 5) paths. When capMin >= 0 the rest duration is capped at that value
// (used for the short fallback/safety rests); otherwise the rest stop's
// own RecommendedRestMin is used.
func scheduleRest(policy domain.Policy, req Request, hp *stamina.State, now int, loc domain.Location, holidays timegeo.HolidayChecker, capMin float64) (domain.PlannedStop, int, domain.Location, bool) {
	best, bestSeg, ok := selectBestRestStop(policy, req, loc, now)
	if !ok {
		return domain.PlannedStop{}, now, loc, false
	}

	stairs := 0
	if bestSeg.StairsCount != nil {
		stairs = *bestSeg.StairsCount
	}
	arriveMin := now + int(math.Round(bestSeg.DurationMin))
	stamina.ApplyTravelFatigue(policy, hp, stamina.TravelLoad{WalkMin: bestSeg.WalkMin, StairsCount: stairs}, float64(now))

	restMin := best.RecommendedRestMin
	if capMin >= 0 && capMin < restMin {
		restMin = capMin
	}
	if restMin <= 0 {
		restMin = 15
	}

	stamina.ApplyRestRecovery(policy, hp, restMin, float64(arriveMin)+restMin, best.RegenHp)

	stop := domain.PlannedStop{
		Kind:      domain.StopRest,
		ID:        best.ID,
		Name:      best.Name,
		StartMin:  arriveMin,
		EndMin:    arriveMin + int(math.Round(restMin)),
		Lat:       best.Lat,
		Lng:       best.Lng,
		TransitIn: &bestSeg,
	}
	newLoc := domain.Location{Lat: best.Lat, Lng: best.Lng}
	return stop, arriveMin + int(math.Round(restMin)), newLoc, true
}

// selectBestRestStop scores rest-stop candidates per spec §4.5
// "Rest-stop selection" and returns the argmax plus the transit segment
// used to reach it.
func selectBestRestStop(policy domain.Policy, req Request, loc domain.Location, now int) (domain.RestStop, domain.TransitSegment, bool) {
	type scoredRest struct {
		rest  domain.RestStop
		seg   domain.TransitSegment
		score float64
	}
	var candidates []scoredRest

	for _, rest := range req.RestStops {
		if policy.Hard.RequireWheelchairAccess && !rest.WheelchairReachable {
			continue
		}
		segs, err := req.GetTransit(loc, domain.Location{Lat: rest.Lat, Lng: rest.Lng}, policy)
		if err != nil || len(segs) == 0 {
			continue
		}
		var best *domain.TransitSegment
		bestCost := math.Inf(1)
		for i := range segs {
			c := cost.EdgeCost(segs[i], policy)
			if math.IsInf(c, 1) {
				continue
			}
			if c < bestCost {
				bestCost = c
				best = &segs[i]
			}
		}
		if best == nil {
			continue
		}

		distKm := timegeo.HaversineKm(loc.Lat, loc.Lng, rest.Lat, rest.Lng)
		distanceScore := distanceScoreFor(distKm)

		accessibility := 1.0
		if policy.Hard.RequireWheelchairAccess && rest.WheelchairReachable {
			accessibility = 1.2
		}

		facilitiesBonus := 0.0
		if rest.RestroomAvailable {
			facilitiesBonus += 0.15
		}
		if rest.SeatingAvailable {
			facilitiesBonus += 0.15
		}
		if rest.Indoor {
			facilitiesBonus += 0.1
		}
		if rest.CafeOrMall {
			facilitiesBonus += 0.1
		}

		total := (rest.ComfortScore/10+facilitiesBonus)*accessibility*distanceScore + rest.RegenHp/20

		candidates = append(candidates, scoredRest{rest: rest, seg: *best, score: total})
	}

	if len(candidates) == 0 {
		return domain.RestStop{}, domain.TransitSegment{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates[0].rest, candidates[0].seg, true
}

// distanceScoreFor implements spec §4.5's piecewise distance score: 1 at
// <=0.5km, linear down to 0.5 at 2km, floor of 0.3 beyond.
func distanceScoreFor(distKm float64) float64 {
	switch {
	case distKm <= 0.5:
		return 1.0
	case distKm <= 2.0:
		return 1.0 - (distKm-0.5)/(2.0-0.5)*0.5
	default:
		return 0.3
	}
}
