// Package robustness implements the Robustness Evaluator (C8): a Monte
// Carlo replay of a built day-schedule under transit, queue, and visit
// duration uncertainty, per spec §4.6. Reimplementations in any language
// must reproduce the same trajectory for a fixed seed (spec §6's
// mulberry32 contract, §8's determinism property).
package robustness

import (
	"math"
	"sort"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/stamina"
	"wayfare-backend/internal/planning/timegeo"
)

// DefaultSamples is the default Monte Carlo sample count (spec §4.6).
const DefaultSamples = 300

// visitStandingHpPerMin is the light standing-fatigue rate applied while
// a POI visit is in progress (spec §4.6: "approximately 0.06 hp/min").
const visitStandingHpPerMin = 0.06

// MissReason enumerates why a POI was skipped in a given sample.
type MissReason int

const (
	MissNone MissReason = iota
	MissClosedDate
	MissNoWindowToday
	MissMissedLastEntry
	MissClosedRestOfDay
)

func (r MissReason) String() string {
	switch r {
	case MissClosedDate:
		return "CLOSED_DATE"
	case MissNoWindowToday:
		return "NO_WINDOW_TODAY"
	case MissMissedLastEntry:
		return "MISSED_LAST_ENTRY"
	case MissClosedRestOfDay:
		return "CLOSED_REST_OF_DAY"
	default:
		return ""
	}
}

// DeadlineType tags which bound produced a POI's entry-slack deadline.
type DeadlineType int

const (
	DeadlineWindowEnd DeadlineType = iota
	DeadlineLastEntry
)

func (d DeadlineType) String() string {
	if d == DeadlineLastEntry {
		return "LAST_ENTRY"
	}
	return "WINDOW_END"
}

// RiskLevel buckets a schedule's overall robustness.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskHigh:
		return "HIGH"
	case RiskMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Config configures one evaluation run.
type Config struct {
	Samples        int // 0 means DefaultSamples
	Seed           uint32
	OnTimeSlackMin float64 // additional slack allowed past dayEnd before "late"
}

func (c Config) samples() int {
	if c.Samples > 0 {
		return c.Samples
	}
	return DefaultSamples
}

// PoiStat is the per-POI summary across all samples.
type PoiStat struct {
	PoiID             string
	MissProb          float64
	TopMissReasons    []MissReason
	WaitProb          float64
	WaitP50           float64
	WaitP90           float64
	SlackMean         float64
	SlackP10          float64
	SlackP50          float64
	SlackP90          float64
	SlackNegativeProb float64
	TopDeadlineTypes  []DeadlineType
}

// Summary is the evaluator's aggregate output.
type Summary struct {
	Samples            int
	OnTimeProb         float64
	OvertimeP90        float64
	HpEndP10           float64
	CostP90            float64
	TimeWindowMissProb float64
	WindowWaitProb     float64
	PerPoi             map[string]*PoiStat
	CompletedPoiMean   float64
	CompletedPoiP10    float64
	CompletionRateMean float64
	CompletionRateP10  float64
	RiskLevel          RiskLevel
}

// Suggestion is one optimization hint derived from the summary.
type Suggestion struct {
	Type     string // SHIFT_EARLIER | UPGRADE_TRANSIT | REORDER_AVOID_WAIT
	PoiID    string
	ShiftMin int
}

// Report bundles the summary and the derived suggestions.
type Report struct {
	Summary     Summary
	Suggestions []Suggestion
}

type poiAccumulator struct {
	poiID         string
	samples       int
	missCount     int
	missReasons   map[MissReason]int
	waitCount     int
	waitMinutes   []float64
	slacks        []float64
	deadlineTypes map[DeadlineType]int
}

func newPoiAccumulator(id string) *poiAccumulator {
	return &poiAccumulator{
		poiID:         id,
		missReasons:   make(map[MissReason]int),
		deadlineTypes: make(map[DeadlineType]int),
	}
}

// EvaluateDay runs cfg.samples() Monte Carlo replays of schedule and
// returns the aggregate summary plus optimization suggestions.
func EvaluateDay(policy domain.Policy, schedule domain.DaySchedule, lookup domain.PoiLookup, dayEndMin int, dateISO string, dayOfWeek int, holidays timegeo.HolidayChecker, cfg Config) Report {
	if holidays == nil {
		holidays = timegeo.NoHolidays{}
	}
	n := cfg.samples()

	onTimeCount := 0
	anyMissCount := 0
	anyWaitCount := 0
	overtimes := make([]float64, 0, n)
	hpEnds := make([]float64, 0, n)
	costs := make([]float64, 0, n)
	completedCounts := make([]float64, 0, n)
	completionRates := make([]float64, 0, n)

	accumulators := make(map[string]*poiAccumulator)
	plannedPoiCount := 0
	for _, s := range schedule.Stops {
		if s.Kind == domain.StopPoi {
			plannedPoiCount++
		}
	}

	for i := 0; i < n; i++ {
		rng := newMulberry32(SeedForSample(cfg.Seed, i))
		res := runSample(policy, schedule, lookup, dayOfWeek, dateISO, holidays, rng, accumulators)

		if res.finishMin <= float64(dayEndMin)+cfg.OnTimeSlackMin {
			onTimeCount++
		}
		if res.anyMiss {
			anyMissCount++
		}
		if res.anyWait {
			anyWaitCount++
		}
		overtimes = append(overtimes, math.Max(0, res.finishMin-float64(dayEndMin)))
		hpEnds = append(hpEnds, res.hpEnd)
		costs = append(costs, res.costProxy)
		completedCounts = append(completedCounts, float64(res.completedPoiCount))
		if plannedPoiCount > 0 {
			completionRates = append(completionRates, float64(res.completedPoiCount)/float64(plannedPoiCount))
		} else {
			completionRates = append(completionRates, 1)
		}
	}

	sort.Float64s(overtimes)
	sort.Float64s(hpEnds)
	sort.Float64s(costs)
	sort.Float64s(completedCounts)
	sort.Float64s(completionRates)

	summary := Summary{
		Samples:            n,
		OnTimeProb:         float64(onTimeCount) / float64(n),
		OvertimeP90:        quantile(overtimes, 0.90),
		HpEndP10:           quantile(hpEnds, 0.10),
		CostP90:            quantile(costs, 0.90),
		TimeWindowMissProb: float64(anyMissCount) / float64(n),
		WindowWaitProb:     float64(anyWaitCount) / float64(n),
		PerPoi:             make(map[string]*PoiStat),
		CompletedPoiMean:   mean(completedCounts),
		CompletedPoiP10:    quantile(completedCounts, 0.10),
		CompletionRateMean: mean(completionRates),
		CompletionRateP10:  quantile(completionRates, 0.10),
	}

	for id, acc := range accumulators {
		summary.PerPoi[id] = finalizePoiStat(acc)
	}

	summary.RiskLevel = computeRiskLevel(summary)

	return Report{
		Summary:     summary,
		Suggestions: computeSuggestions(summary),
	}
}

type sampleResult struct {
	finishMin         float64
	hpEnd             float64
	costProxy         float64
	completedPoiCount int
	anyMiss           bool
	anyWait           bool
}

func runSample(policy domain.Policy, schedule domain.DaySchedule, lookup domain.PoiLookup, dayOfWeek int, dateISO string, holidays timegeo.HolidayChecker, rng *mulberry32, accumulators map[string]*poiAccumulator) sampleResult {
	var now float64
	if len(schedule.Stops) > 0 {
		now = float64(schedule.Stops[0].StartMin)
		if schedule.Stops[0].TransitIn != nil {
			now -= schedule.Stops[0].TransitIn.DurationMin
		}
	}
	hp := stamina.State{Hp: policy.Pacing.HpMax, LastRestAtMin: now, LastBreakAtMin: now}
	result := sampleResult{}
	var cost kahanSum

	for _, stop := range schedule.Stops {
		if stop.TransitIn != nil {
			std := transitStd(stop.TransitIn.DurationMin, stop.TransitIn.Reliability)
			sampledDuration := sampleTruncatedNormal(rng, stop.TransitIn.DurationMin, std, 0)
			now += sampledDuration
			cost.add(sampledDuration * policy.Soft.ValueOfTimePerMin)

			stairs := 0
			if stop.TransitIn.StairsCount != nil {
				stairs = *stop.TransitIn.StairsCount
			}
			stamina.ApplyTravelFatigue(policy, &hp, stamina.TravelLoad{WalkMin: stop.TransitIn.WalkMin, StairsCount: stairs}, now)
		}

		switch stop.Kind {
		case domain.StopPoi:
			poi, ok := lookup.GetPoi(stop.ID)
			if !ok {
				continue
			}
			acc, exists := accumulators[stop.ID]
			if !exists {
				acc = newPoiAccumulator(stop.ID)
				accumulators[stop.ID] = acc
			}
			acc.samples++

			outcome, reason, waitMin, deadlineMin, deadlineType := withinTimeWindowForEvaluation(poi, int(math.Round(now)), dayOfWeek, dateISO, holidays)

			if outcome == outcomeMiss {
				acc.missCount++
				acc.missReasons[reason]++
				result.anyMiss = true
				continue
			}

			if outcome == outcomeWait {
				acc.waitCount++
				acc.waitMinutes = append(acc.waitMinutes, waitMin)
				result.anyWait = true
				now += waitMin
				stamina.ApplyTravelFatigue(policy, &hp, stamina.TravelLoad{QueueMin: waitMin}, now)
			}

			entryMin := now
			slack := float64(deadlineMin) - entryMin
			acc.slacks = append(acc.slacks, slack)
			acc.deadlineTypes[deadlineType]++

			queueStd := poi.EffectiveQueueStd()
			if queueStd == 0 {
				queueStd = poi.QueueMinMean * defaultQueueStdRatio
			}
			queueMin := sampleTruncatedNormal(rng, poi.QueueMinMean, queueStd, 0)
			now += queueMin
			stamina.ApplyTravelFatigue(policy, &hp, stamina.TravelLoad{QueueMin: queueMin}, now)

			visitStd := poi.EffectiveVisitStd()
			if visitStd == 0 {
				visitStd = poi.AvgVisitMin * defaultVisitStdRatio
			}
			visitMin := sampleTruncatedNormal(rng, poi.AvgVisitMin, visitStd, minVisitMin)
			now += visitMin
			hp.Hp = clamp(hp.Hp-visitMin*visitStandingHpPerMin, 0, policy.Pacing.HpMax)

			result.completedPoiCount++

		case domain.StopRest:
			restMin := float64(stop.EndMin - stop.StartMin)
			now += restMin
			stamina.ApplyRestRecovery(policy, &hp, restMin, now, 0)

		default:
			now += float64(stop.EndMin - stop.StartMin)
		}
	}

	result.finishMin = now
	result.hpEnd = hp.Hp
	result.costProxy = cost.value()
	return result
}

type timeWindowOutcome int

const (
	outcomeOpen timeWindowOutcome = iota
	outcomeWait
	outcomeMiss
)

// withinTimeWindowForEvaluation is the Monte Carlo analogue of the
// feasibility service's window check: it never rejects for a wait being
// "too long" (spec §4.6 only models miss/wait/open), and additionally
// reports the entry-slack deadline.
func withinTimeWindowForEvaluation(poi *domain.Poi, arrivalMin int, dayOfWeek int, dateISO string, holidays timegeo.HolidayChecker) (timeWindowOutcome, MissReason, float64, int, DeadlineType) {
	if poi.OpeningHours == nil {
		return outcomeOpen, MissNone, 0, arrivalMin, DeadlineWindowEnd
	}
	oh := poi.OpeningHours

	if oh.IsClosedDate(dateISO) {
		return outcomeMiss, MissClosedDate, 0, 0, DeadlineWindowEnd
	}

	windows := oh.ApplicableWindows(dayOfWeek, dateISO, holidays)
	if len(windows) == 0 {
		return outcomeMiss, MissNoWindowToday, 0, 0, DeadlineWindowEnd
	}

	for _, w := range windows {
		if arrivalMin >= w.StartMin && arrivalMin < w.EndMin {
			deadline, deadlineType := effectiveDeadline(oh, dayOfWeek, w)
			if arrivalMin > deadline && deadlineType == DeadlineLastEntry {
				return outcomeMiss, MissMissedLastEntry, 0, 0, DeadlineWindowEnd
			}
			return outcomeOpen, MissNone, 0, deadline, deadlineType
		}
	}

	nextStart, found := nextWindowStart(windows, arrivalMin)
	if !found {
		return outcomeMiss, MissClosedRestOfDay, 0, 0, DeadlineWindowEnd
	}
	for _, w := range windows {
		if w.StartMin == nextStart {
			deadline, deadlineType := effectiveDeadline(oh, dayOfWeek, w)
			return outcomeWait, MissNone, float64(nextStart - arrivalMin), deadline, deadlineType
		}
	}
	return outcomeMiss, MissClosedRestOfDay, 0, 0, DeadlineWindowEnd
}

func effectiveDeadline(oh *timegeo.OpeningHours, dayOfWeek int, w timegeo.Window) (int, DeadlineType) {
	if lastEntry, ok := oh.LastEntryForDay(dayOfWeek); ok && lastEntry < w.EndMin {
		return lastEntry, DeadlineLastEntry
	}
	return w.EndMin, DeadlineWindowEnd
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

func finalizePoiStat(acc *poiAccumulator) *PoiStat {
	stat := &PoiStat{PoiID: acc.poiID}
	if acc.samples == 0 {
		return stat
	}

	stat.MissProb = float64(acc.missCount) / float64(acc.samples)
	stat.TopMissReasons = topMissReasons(acc.missReasons, 3)

	stat.WaitProb = float64(acc.waitCount) / float64(acc.samples)
	waits := append([]float64(nil), acc.waitMinutes...)
	sort.Float64s(waits)
	stat.WaitP50 = quantile(waits, 0.50)
	stat.WaitP90 = quantile(waits, 0.90)

	slacks := append([]float64(nil), acc.slacks...)
	sort.Float64s(slacks)
	stat.SlackMean = mean(slacks)
	stat.SlackP10 = quantile(slacks, 0.10)
	stat.SlackP50 = quantile(slacks, 0.50)
	stat.SlackP90 = quantile(slacks, 0.90)
	negCount := 0
	for _, s := range slacks {
		if s < 0 {
			negCount++
		}
	}
	if len(slacks) > 0 {
		stat.SlackNegativeProb = float64(negCount) / float64(len(slacks))
	}
	stat.TopDeadlineTypes = topDeadlineTypes(acc.deadlineTypes, 2)

	return stat
}

func topMissReasons(counts map[MissReason]int, k int) []MissReason {
	type kv struct {
		r MissReason
		c int
	}
	var pairs []kv
	for r, c := range counts {
		pairs = append(pairs, kv{r, c})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].c > pairs[j].c })
	if len(pairs) > k {
		pairs = pairs[:k]
	}
	out := make([]MissReason, len(pairs))
	for i, p := range pairs {
		out[i] = p.r
	}
	return out
}

func topDeadlineTypes(counts map[DeadlineType]int, k int) []DeadlineType {
	type kv struct {
		d DeadlineType
		c int
	}
	var pairs []kv
	for d, c := range counts {
		pairs = append(pairs, kv{d, c})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].c > pairs[j].c })
	if len(pairs) > k {
		pairs = pairs[:k]
	}
	out := make([]DeadlineType, len(pairs))
	for i, p := range pairs {
		out[i] = p.d
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s kahanSum
	for _, x := range xs {
		s.add(x)
	}
	return s.value() / float64(len(xs))
}

// computeRiskLevel buckets overall robustness per spec §4.6. The final
// "otherwise" bucket's exact thresholds are left unspecified by the
// source design (§9 open question 3 notes hpEndP10 only enters one
// branch); this applies a conservative reading so hpEndP10 still informs
// the low/medium split in the common case.
func computeRiskLevel(s Summary) RiskLevel {
	if s.CompletionRateP10 < 0.5 {
		return RiskHigh
	}
	if s.CompletionRateP10 < 0.7 {
		if s.OnTimeProb < 0.7 {
			return RiskHigh
		}
		return RiskMedium
	}
	if s.OnTimeProb < 0.85 || s.OvertimeP90 > 30 || s.HpEndP10 < 20 {
		return RiskMedium
	}
	return RiskLow
}

// shiftBufferMin is the fixed buffer added to a required shift (spec
// §4.6).
const shiftBufferMin = 12.0

// upgradeTransitThresholdMin is the shift magnitude above which a
// SHIFT_EARLIER suggestion is paired with an UPGRADE_TRANSIT suggestion.
const upgradeTransitThresholdMin = 60.0

func computeSuggestions(s Summary) []Suggestion {
	var out []Suggestion
	seen := make(map[[2]string]bool)

	add := func(sg Suggestion) {
		key := [2]string{sg.Type, sg.PoiID}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, sg)
	}

	if s.CompletionRateP10 < 0.7 {
		add(Suggestion{Type: "REORDER_AVOID_WAIT", PoiID: "GLOBAL"})
	}

	ids := make([]string, 0, len(s.PerPoi))
	for id := range s.PerPoi {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		stat := s.PerPoi[id]

		if stat.MissProb >= 0.10 || stat.SlackP90 < 0 || stat.SlackP50 < 0 {
			target := math.Min(stat.SlackP50, stat.SlackP90)
			shiftMin := int(math.Ceil(math.Max(0, -target) + shiftBufferMin))
			add(Suggestion{Type: "SHIFT_EARLIER", PoiID: id, ShiftMin: shiftMin})
			if shiftMin >= int(upgradeTransitThresholdMin) {
				add(Suggestion{Type: "UPGRADE_TRANSIT", PoiID: id})
			}
		}

		if stat.WaitProb >= 0.30 {
			add(Suggestion{Type: "REORDER_AVOID_WAIT", PoiID: id})
		}
	}

	return out
}
