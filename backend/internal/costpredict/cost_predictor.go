// Package costpredict is an informational sidecar that turns a built day
// schedule into a rough min/max/confidence cost-of-day estimate. It does
// not feed back into scheduling or scoring; it is surfaced on the what-if
// report as an auxiliary field only, the way the teacher's
// TravelCostPredictor sat alongside (not inside) trip generation.
package costpredict

import (
	"math"

	"wayfare-backend/internal/planning/domain"
)

// perStopActivityCnyByTripType is a rough per-POI-stop spend estimate
// (entrance fees, incidentals) since domain.Poi carries no price field.
// Family and backpacking trips pull the estimate in opposite directions;
// business/leisure sit at the baseline.
var perStopActivityCnyByTripType = map[domain.TripType]float64{
	domain.TripBusiness:    60.0,
	domain.TripLeisure:     60.0,
	domain.TripFamily:      90.0,
	domain.TripBackpacking: 30.0,
}

// budgetMultiplier scales the whole estimate by the policy's declared
// budget sensitivity, mirroring the teacher's budget-preference
// multiplier (budget/mid-range/luxury) but driven off the policy instead
// of a separate user-supplied field.
var budgetMultiplier = map[domain.SensitivityLevel]float64{
	domain.SensitivityLow:    1.3, // low budget sensitivity: willing to spend more
	domain.SensitivityMedium: 1.0,
	domain.SensitivityHigh:   0.75,
}

// uncertaintyFraction is the width of the min/max band around the point
// estimate, matching the teacher's flat +/-20% uncertainty band.
const uncertaintyFraction = 0.2

// Prediction is the day-level cost estimate attached to a what-if report.
type Prediction struct {
	EstimatedCny float64 `json:"estimatedCny"`
	MinCny       float64 `json:"minCny"`
	MaxCny       float64 `json:"maxCny"`
	Confidence   float64 `json:"confidence"`
}

// PredictDayCost estimates a built schedule's total cost: the transit
// legs' actual CostCny (already known, not predicted) plus a rough
// per-stop activity estimate scaled by trip type and budget sensitivity.
func PredictDayCost(schedule domain.DaySchedule, policy domain.Policy) Prediction {
	transitCny := 0.0
	stopCount := 0
	for _, s := range schedule.Stops {
		if s.TransitIn != nil {
			transitCny += s.TransitIn.CostCny
		}
		if s.Kind == domain.StopPoi {
			stopCount++
		}
	}

	perStop, ok := perStopActivityCnyByTripType[policy.TripType]
	if !ok {
		perStop = 60.0
	}
	mult, ok := budgetMultiplier[policy.Context.BudgetSensitivity]
	if !ok {
		mult = 1.0
	}

	activityCny := float64(stopCount) * perStop * mult
	estimated := transitCny + activityCny

	return Prediction{
		EstimatedCny: round2(estimated),
		MinCny:       round2(estimated * (1 - uncertaintyFraction)),
		MaxCny:       round2(estimated * (1 + uncertaintyFraction)),
		Confidence:   confidenceFor(stopCount),
	}
}

// confidenceFor grows with the number of priced stops: a day with no
// priced stops carries the teacher's original "unknown destination"
// floor of 0.6, each stop adds 0.05 (one stop gives 0.65), and a fuller
// day averages more independent estimates and is capped at 0.85.
func confidenceFor(stopCount int) float64 {
	if stopCount <= 0 {
		return 0.6
	}
	c := 0.6 + 0.05*float64(stopCount)
	if c > 0.85 {
		c = 0.85
	}
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TripCost aggregates PredictDayCost across a multi-day itinerary; each
// day is predicted independently since the scheduler itself plans one
// day at a time.
func TripCost(schedules []domain.DaySchedule, policy domain.Policy) Prediction {
	var total Prediction
	if len(schedules) == 0 {
		return total
	}
	confSum := 0.0
	for _, s := range schedules {
		p := PredictDayCost(s, policy)
		total.EstimatedCny += p.EstimatedCny
		total.MinCny += p.MinCny
		total.MaxCny += p.MaxCny
		confSum += p.Confidence
	}
	total.EstimatedCny = round2(total.EstimatedCny)
	total.MinCny = round2(total.MinCny)
	total.MaxCny = round2(total.MaxCny)
	total.Confidence = round2(confSum / float64(len(schedules)))
	return total
}
