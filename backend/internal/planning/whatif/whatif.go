// Package whatif implements the What-If Engine (C9): generates candidate
// variations of a base schedule from robustness suggestions, re-evaluates
// each, and selects a winner under admission gates, per spec §4.7.
package whatif

import (
	"hash/fnv"
	"sort"
	"strings"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/robustness"
	"wayfare-backend/internal/planning/timegeo"
)

// DefaultBaseSamples, DefaultCandidateSamples are the sample-count
// defaults from spec §4.7.
const (
	DefaultBaseSamples      = 300
	DefaultCandidateSamples = 300
	maxCandidateSuggestions = 3
	fnvModulus              = 100000
)

// SeedForCandidate derives a candidate's Monte Carlo seed from the base
// seed and its id, per spec §4.7/§8: (baseSeed + FNV1a(id) mod 100000)
// mod 2^32. This rule is part of the wire interface — any re-evaluator
// elsewhere in the system must reproduce the same value.
func SeedForCandidate(baseSeed uint32, candidateID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(candidateID))
	return baseSeed + (h.Sum32() % fnvModulus)
}

// Action is a candidate transformation request derived from a robustness
// suggestion.
type Action struct {
	Type     string // SHIFT_EARLIER | REORDER_AVOID_WAIT
	PoiID    string
	ShiftMin int
}

// Candidate is one generated schedule plus its provenance and any
// non-fatal structural warnings.
type Candidate struct {
	ID           string
	Action       Action
	Schedule     domain.DaySchedule
	Warnings     []string
	ClampedCount int
}

// EvalResult bundles a candidate with its re-evaluated summary.
type EvalResult struct {
	Candidate Candidate
	Summary   robustness.Summary
	Seed      uint32
}

// DeltaSummary expresses signed improvements in percentage points,
// positive = better: base minus candidate for the miss and wait
// probabilities, candidate minus base for completion P10 and on-time.
type DeltaSummary struct {
	MissDeltaPp          float64 // percentage points, positive = improvement (fewer misses)
	WaitDeltaPp          float64
	CompletionP10DeltaPp float64
	OnTimeDeltaPp        float64
}

// ImpactCost summarizes how disruptive a candidate's change is.
type ImpactCost struct {
	AbsShiftMinutes int
	MovedStopCount  int
	OrderChanged    bool
	Severity        string // LOW | MEDIUM | HIGH
}

// Confidence is the engine's qualitative trust in a candidate's benefit.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Evaluated is one fully-scored candidate, ready for winner selection.
type Evaluated struct {
	Candidate    Candidate
	Summary      robustness.Summary
	Seed         uint32
	Delta        DeltaSummary
	Impact       ImpactCost
	Confidence   Confidence
	TopDrivers   []string
	BenefitScore float64
}

// Report is the complete what-if response (spec §4.7 step "complete report").
type Report struct {
	Base             robustness.Summary
	BaseSeed         uint32
	BaseSamples      int
	CandidateSamples int
	Candidates       []Evaluated
	WinnerID         string
	HasWinner        bool
	Warning          string
}

// GenerateCandidates builds candidates from up to 3 of the
// highest-priority robustness suggestions (spec §4.7 step 2); a reorder
// suggestion can contribute two candidates. UPGRADE_TRANSIT is excluded
// (v1 does not act on it directly).
func GenerateCandidates(base domain.DaySchedule, suggestions []robustness.Suggestion) []Candidate {
	var candidates []Candidate
	used := 0
	for _, sug := range suggestions {
		if used >= maxCandidateSuggestions {
			break
		}
		switch sug.Type {
		case "SHIFT_EARLIER":
			cand, ok := shiftEarlierCandidate(base, sug.PoiID, sug.ShiftMin)
			if ok {
				candidates = append(candidates, cand)
				used++
			}
		case "REORDER_AVOID_WAIT":
			if sug.PoiID == "GLOBAL" {
				continue
			}
			candidates = append(candidates, reorderCandidates(base, sug.PoiID)...)
			used++
		default:
			continue
		}
	}
	return candidates
}

func candidateID(action Action) string {
	return action.Type + ":" + action.PoiID + ":" + itoa(action.ShiftMin)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// shiftEarlierCandidate shifts every stop from the targeted POI onward
// by minutes, clamped to 0 (no transit-leg re-threading, spec §4.7 step
// 2 / §9 open question 2).
func shiftEarlierCandidate(base domain.DaySchedule, poiID string, minutes int) (Candidate, bool) {
	targetIdx := -1
	for i, s := range base.Stops {
		if s.Kind == domain.StopPoi && s.ID == poiID {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return Candidate{}, false
	}

	stops := make([]domain.PlannedStop, len(base.Stops))
	copy(stops, base.Stops)
	clamped := 0
	for i := targetIdx; i < len(stops); i++ {
		newStart := stops[i].StartMin - minutes
		newEnd := stops[i].EndMin - minutes
		if newStart < 0 {
			newStart = 0
			clamped++
		}
		if newEnd < newStart {
			newEnd = newStart
		}
		stops[i].StartMin = newStart
		stops[i].EndMin = newEnd
	}

	action := Action{Type: "SHIFT_EARLIER", PoiID: poiID, ShiftMin: minutes}
	return Candidate{
		ID:           candidateID(action),
		Action:       action,
		Schedule:     domain.DaySchedule{Stops: stops, Metrics: base.Metrics},
		ClampedCount: clamped,
	}, true
}

// reorderCandidates swaps the targeted POI with each of its two nearest
// POI neighbors in schedule order (spec §4.7 step 2), producing up to
// two candidates.
func reorderCandidates(base domain.DaySchedule, poiID string) []Candidate {
	poiIdx := make([]int, 0)
	for i, s := range base.Stops {
		if s.Kind == domain.StopPoi {
			poiIdx = append(poiIdx, i)
		}
	}
	targetPos := -1
	for pos, idx := range poiIdx {
		if base.Stops[idx].ID == poiID {
			targetPos = pos
			break
		}
	}
	if targetPos == -1 {
		return nil
	}

	var out []Candidate
	if targetPos > 0 {
		out = append(out, swapCandidate(base, poiIdx[targetPos-1], poiIdx[targetPos], poiID))
	}
	if targetPos < len(poiIdx)-1 {
		out = append(out, swapCandidate(base, poiIdx[targetPos], poiIdx[targetPos+1], poiID))
	}
	return out
}

func swapCandidate(base domain.DaySchedule, i, j int, poiID string) Candidate {
	stops := make([]domain.PlannedStop, len(base.Stops))
	copy(stops, base.Stops)

	startI, endI := stops[i].StartMin, stops[i].EndMin
	stops[i].ID, stops[j].ID = stops[j].ID, stops[i].ID
	stops[i].Name, stops[j].Name = stops[j].Name, stops[i].Name
	stops[i].Lat, stops[j].Lat = stops[j].Lat, stops[i].Lat
	stops[i].Lng, stops[j].Lng = stops[j].Lng, stops[i].Lng
	// Timeline slots are not re-threaded (spec §9 open question 2); the
	// swapped stops keep their original time slots, which is exactly
	// what produces the TIMELINE_BROKEN warning downstream.
	_ = startI
	_ = endI

	action := Action{Type: "REORDER_AVOID_WAIT", PoiID: poiID}
	return Candidate{
		ID:       candidateID(action) + ":" + stops[j].ID,
		Action:   action,
		Schedule: domain.DaySchedule{Stops: stops, Metrics: base.Metrics},
	}
}

// FilterValid applies spec §4.7 step 3: reject a candidate when more
// than 2 stops clamped to 0, or the shift exceeded 90 minutes and the
// first stop landed at 0; otherwise tag non-fatal warnings.
func FilterValid(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.ClampedCount > 2 {
			continue
		}
		if c.Action.Type == "SHIFT_EARLIER" && c.Action.ShiftMin > 90 && len(c.Schedule.Stops) > 0 && c.Schedule.Stops[0].StartMin == 0 {
			continue
		}
		if c.ClampedCount > 0 {
			c.Warnings = append(c.Warnings, "SHIFT_CLAMPED")
		}
		if c.Action.Type == "REORDER_AVOID_WAIT" {
			c.Warnings = append(c.Warnings, "TIMELINE_BROKEN")
		}
		out = append(out, c)
	}
	return out
}

// signature represents a schedule by its `>`-joined ordered POI ids
// (spec §4.7 step 4).
func signature(s domain.DaySchedule) string {
	var ids []string
	for _, stop := range s.Stops {
		if stop.Kind == domain.StopPoi {
			ids = append(ids, stop.ID)
		}
	}
	return strings.Join(ids, ">")
}

// Dedupe keeps only the best-scoring candidate per structural signature,
// scoring by a quick proxy (fewer warnings, then smaller shift) since the
// full Monte Carlo score is not yet known at this stage.
func Dedupe(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate)
	order := make([]string, 0)
	for _, c := range candidates {
		sig := signature(c.Schedule)
		existing, ok := best[sig]
		if !ok {
			best[sig] = c
			order = append(order, sig)
			continue
		}
		if len(c.Warnings) < len(existing.Warnings) ||
			(len(c.Warnings) == len(existing.Warnings) && c.Action.ShiftMin < existing.Action.ShiftMin) {
			best[sig] = c
		}
	}
	out := make([]Candidate, 0, len(order))
	for _, sig := range order {
		out = append(out, best[sig])
	}
	return out
}

// Evaluate runs EvaluateDay for the base and every surviving candidate,
// with the candidate's seed derived by SeedForCandidate (spec §4.7 step
// 5), and computes the delta/impact/confidence scoring of step 6.
func Evaluate(policy domain.Policy, base domain.DaySchedule, candidates []Candidate, lookup domain.PoiLookup, dayEndMin int, dateISO string, dayOfWeek int, holidays timegeo.HolidayChecker, baseSeed uint32, baseSamples, candidateSamples int) Report {
	if holidays == nil {
		holidays = timegeo.NoHolidays{}
	}
	if baseSamples <= 0 {
		baseSamples = DefaultBaseSamples
	}
	if candidateSamples <= 0 {
		candidateSamples = DefaultCandidateSamples
	}

	baseReport := robustness.EvaluateDay(policy, base, lookup, dayEndMin, dateISO, dayOfWeek, holidays, robustness.Config{Samples: baseSamples, Seed: baseSeed})

	report := Report{
		Base:             baseReport.Summary,
		BaseSeed:         baseSeed,
		BaseSamples:      baseSamples,
		CandidateSamples: candidateSamples,
	}

	for _, c := range candidates {
		seed := SeedForCandidate(baseSeed, c.ID)
		candReport := robustness.EvaluateDay(policy, c.Schedule, lookup, dayEndMin, dateISO, dayOfWeek, holidays, robustness.Config{Samples: candidateSamples, Seed: seed})

		delta := DeltaSummary{
			MissDeltaPp:           (baseReport.Summary.TimeWindowMissProb - candReport.Summary.TimeWindowMissProb) * 100,
			WaitDeltaPp:           (baseReport.Summary.WindowWaitProb - candReport.Summary.WindowWaitProb) * 100,
			CompletionP10DeltaPp:  (candReport.Summary.CompletionRateP10 - baseReport.Summary.CompletionRateP10) * 100,
			OnTimeDeltaPp:         (candReport.Summary.OnTimeProb - baseReport.Summary.OnTimeProb) * 100,
		}

		impact := computeImpact(c, base)
		confidence := computeConfidence(delta)
		drivers := topDrivers(delta)

		report.Candidates = append(report.Candidates, Evaluated{
			Candidate:    c,
			Summary:      candReport.Summary,
			Seed:         seed,
			Delta:        delta,
			Impact:       impact,
			Confidence:   confidence,
			TopDrivers:   drivers,
			BenefitScore: delta.MissDeltaPp + delta.CompletionP10DeltaPp + delta.OnTimeDeltaPp,
		})
	}

	winner, warning := selectWinner(report.Base, report.Candidates)
	if winner != nil {
		report.WinnerID = winner.Candidate.ID
		report.HasWinner = true
	}
	report.Warning = warning

	return report
}

func computeImpact(c Candidate, base domain.DaySchedule) ImpactCost {
	absShift := 0
	moved := 0
	orderChanged := c.Action.Type == "REORDER_AVOID_WAIT"

	baseByID := make(map[string]domain.PlannedStop)
	for _, s := range base.Stops {
		baseByID[s.ID] = s
	}
	for _, s := range c.Schedule.Stops {
		if orig, ok := baseByID[s.ID]; ok {
			shift := s.StartMin - orig.StartMin
			if shift != 0 {
				moved++
				if shift < 0 {
					shift = -shift
				}
				absShift += shift
			}
		}
	}

	severity := severityFromShift(c.Action.ShiftMin)
	if orderChanged {
		severity = "MEDIUM"
	}

	return ImpactCost{AbsShiftMinutes: absShift, MovedStopCount: moved, OrderChanged: orderChanged, Severity: severity}
}

// severityFromShift derives severity from the *action's* declared shift
// magnitude, not from observed deltas (spec §4.7 step 6).
func severityFromShift(shiftMin int) string {
	switch {
	case shiftMin >= 60:
		return "HIGH"
	case shiftMin >= 20:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func computeConfidence(d DeltaSummary) Confidence {
	if d.MissDeltaPp >= 10 || d.CompletionP10DeltaPp >= 10 {
		return ConfidenceHigh
	}
	if d.MissDeltaPp >= 5 || d.CompletionP10DeltaPp >= 5 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func topDrivers(d DeltaSummary) []string {
	type kv struct {
		label string
		value float64
	}
	pairs := []kv{
		{"missImprove", d.MissDeltaPp},
		{"waitImprove", d.WaitDeltaPp},
		{"completionGain", d.CompletionP10DeltaPp},
		{"onTimeGain", d.OnTimeDeltaPp},
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value > pairs[j].value })
	if len(pairs) > 3 {
		pairs = pairs[:3]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.label
	}
	return out
}

// selectWinner applies the two-stage admission and preference rule of
// spec §4.7 step 7.
func selectWinner(base robustness.Summary, evals []Evaluated) (*Evaluated, string) {
	var survivors []Evaluated
	for _, e := range evals {
		completionDropPp := (base.CompletionRateP10 - e.Summary.CompletionRateP10) * 100
		if completionDropPp > 5 && e.Delta.MissDeltaPp <= 15 {
			continue
		}
		if e.Delta.MissDeltaPp < 0 && e.Delta.CompletionP10DeltaPp <= 15 {
			continue
		}
		if riskWorsened(base.RiskLevel, e.Summary.RiskLevel) && e.Delta.MissDeltaPp < 15 && e.Delta.CompletionP10DeltaPp < 15 {
			continue
		}
		survivors = append(survivors, e)
	}
	if len(survivors) == 0 {
		return nil, ""
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].BenefitScore > survivors[j].BenefitScore })
	top := survivors
	if len(top) > 2 {
		top = top[:2]
	}
	sort.SliceStable(top, func(i, j int) bool {
		si, sj := severityRank(top[i].Impact.Severity), severityRank(top[j].Impact.Severity)
		if si != sj {
			return si < sj
		}
		return top[i].BenefitScore > top[j].BenefitScore
	})

	winner := top[0]
	warning := ""
	if winner.Impact.Severity == "HIGH" && winner.Confidence != ConfidenceHigh && winner.Delta.MissDeltaPp < 10 {
		warning = "change is large but benefit limited; consider reorder or local shift first."
	}
	return &winner, warning
}

func riskWorsened(base, candidate robustness.RiskLevel) bool {
	return candidate > base
}

func severityRank(s string) int {
	switch s {
	case "LOW":
		return 0
	case "MEDIUM":
		return 1
	default:
		return 2
	}
}

