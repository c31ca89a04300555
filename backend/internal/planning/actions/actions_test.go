package actions

import (
	"context"
	"testing"

	"wayfare-backend/internal/planning/domain"
)

func TestRegistryInvokeUnknownAction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "nope", nil)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if _, ok := err.(ErrUnknownAction); !ok {
		t.Errorf("expected ErrUnknownAction, got %T", err)
	}
}

func TestBuildRegistryRegistersPolicyActionsWithoutDeps(t *testing.T) {
	r := BuildRegistry(Deps{})
	if _, ok := r.Lookup("policy.validate_feasibility"); !ok {
		t.Error("expected policy.validate_feasibility to be registered with no deps")
	}
	if _, ok := r.Lookup("policy.score_robustness"); !ok {
		t.Error("expected policy.score_robustness to be registered with no deps")
	}
	if _, ok := r.Lookup("transport.build_time_matrix"); !ok {
		t.Error("expected transport.build_time_matrix to be registered with no deps")
	}
	if _, ok := r.Lookup("trip.load_draft"); ok {
		t.Error("did not expect trip.load_draft without a TripStore dependency")
	}
	if _, ok := r.Lookup("places.resolve_entities"); ok {
		t.Error("did not expect places.resolve_entities without a PlacesSearch dependency")
	}
}

func TestValidateFeasibilityActionAlwaysOpenPoiPasses(t *testing.T) {
	r := BuildRegistry(Deps{})
	poi := &domain.Poi{ID: "poi-1", Name: "Plaza", AvgVisitMin: 30}
	out, err := r.Invoke(context.Background(), "policy.validate_feasibility", FeasibilityInput{
		Timeline:    []*domain.Poi{poi},
		ArrivalsMin: []int{600},
		DayOfWeek:   1,
		DateISO:     "2026-08-03",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(FeasibilityOutput)
	if !result.Pass {
		t.Errorf("expected an always-open POI to pass feasibility, got violations %+v", result.Violations)
	}
}

type stubTripStore struct{}

func (stubTripStore) LoadDraft(ctx context.Context, tripID string) (any, any, error) {
	return map[string]string{"id": tripID}, []string{}, nil
}

func (stubTripStore) ApplyUserEdit(ctx context.Context, tripID string, edits []UserEdit) ([]EditResult, error) {
	results := make([]EditResult, len(edits))
	for i, e := range edits {
		results[i] = EditResult{ItemID: e.ItemID, Success: true}
	}
	return results, nil
}

func (stubTripStore) PersistPlan(ctx context.Context, tripID string, timeline []domain.PlannedStop) error {
	return nil
}

func TestTripActionsRegisteredWithStore(t *testing.T) {
	r := BuildRegistry(Deps{TripStore: stubTripStore{}})
	out, err := r.Invoke(context.Background(), "trip.load_draft", LoadDraftInput{TripID: "trip-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(LoadDraftOutput); !ok {
		t.Errorf("expected LoadDraftOutput, got %T", out)
	}

	editOut, err := r.Invoke(context.Background(), "trip.apply_user_edit", ApplyUserEditInput{
		TripID: "trip-1",
		Edits:  []UserEdit{{Type: "delete", ItemID: "item-1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !editOut.(ApplyUserEditOutput).Success {
		t.Errorf("expected apply_user_edit to succeed")
	}
}

func TestBuildTimeMatrixActionFallback(t *testing.T) {
	out, err := buildTimeMatrixAction(context.Background(), BuildTimeMatrixInput{
		Nodes: []TimeMatrixNode{{ID: "a"}, {ID: "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(BuildTimeMatrixOutput)
	if result.TimeMatrixAPI[0][1] != fallbackTransitAPIMin {
		t.Errorf("expected fallback api leg of %v, got %v", fallbackTransitAPIMin, result.TimeMatrixAPI[0][1])
	}
	want := fallbackTransitRobustMin
	if result.TimeMatrixRobust[0][1] != want {
		t.Errorf("expected robust leg of %v, got %v", want, result.TimeMatrixRobust[0][1])
	}
}
