package costpredict

import (
	"testing"

	"wayfare-backend/internal/planning/domain"
)

func policyWithBudget(level domain.SensitivityLevel, tripType domain.TripType) domain.Policy {
	return domain.Policy{
		TripType: tripType,
		Context:  domain.PolicyContext{BudgetSensitivity: level},
	}
}

func TestPredictDayCostScalesWithBudgetSensitivity(t *testing.T) {
	schedule := domain.DaySchedule{Stops: []domain.PlannedStop{
		{Kind: domain.StopPoi, ID: "a"},
		{Kind: domain.StopPoi, ID: "b"},
	}}

	low := PredictDayCost(schedule, policyWithBudget(domain.SensitivityLow, domain.TripLeisure))
	high := PredictDayCost(schedule, policyWithBudget(domain.SensitivityHigh, domain.TripLeisure))

	if high.EstimatedCny >= low.EstimatedCny {
		t.Fatalf("expected high budget sensitivity to estimate lower spend: low=%v high=%v", low, high)
	}
}

func TestPredictDayCostIncludesTransitCost(t *testing.T) {
	schedule := domain.DaySchedule{Stops: []domain.PlannedStop{
		{Kind: domain.StopPoi, ID: "a", TransitIn: &domain.TransitSegment{CostCny: 50}},
	}}
	p := PredictDayCost(schedule, policyWithBudget(domain.SensitivityMedium, domain.TripLeisure))
	if p.EstimatedCny < 50 {
		t.Fatalf("expected transit cost to be included, got %v", p.EstimatedCny)
	}
}

func TestPredictDayCostMinMaxBand(t *testing.T) {
	schedule := domain.DaySchedule{Stops: []domain.PlannedStop{{Kind: domain.StopPoi, ID: "a"}}}
	p := PredictDayCost(schedule, policyWithBudget(domain.SensitivityMedium, domain.TripLeisure))
	if p.MinCny >= p.EstimatedCny || p.MaxCny <= p.EstimatedCny {
		t.Fatalf("expected min < estimated < max, got %+v", p)
	}
}

func TestPredictDayCostEmptyScheduleZero(t *testing.T) {
	p := PredictDayCost(domain.DaySchedule{}, policyWithBudget(domain.SensitivityMedium, domain.TripLeisure))
	if p.EstimatedCny != 0 || p.Confidence != 0.6 {
		t.Fatalf("expected zero estimate with floor confidence for empty schedule, got %+v", p)
	}
}

func TestTripCostAggregatesDays(t *testing.T) {
	day := domain.DaySchedule{Stops: []domain.PlannedStop{{Kind: domain.StopPoi, ID: "a"}}}
	policy := policyWithBudget(domain.SensitivityMedium, domain.TripLeisure)
	single := PredictDayCost(day, policy)
	total := TripCost([]domain.DaySchedule{day, day}, policy)
	if total.EstimatedCny != single.EstimatedCny*2 {
		t.Fatalf("expected two-day total to double the single-day estimate: single=%v total=%v", single, total)
	}
}

func TestTripCostEmptyInput(t *testing.T) {
	total := TripCost(nil, policyWithBudget(domain.SensitivityMedium, domain.TripLeisure))
	if total != (Prediction{}) {
		t.Fatalf("expected zero-value prediction for no days, got %+v", total)
	}
}
