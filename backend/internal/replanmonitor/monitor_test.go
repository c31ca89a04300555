package replanmonitor

import (
	"context"
	"testing"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/replan"
)

type fakeWeather struct{ raining bool }

func (f fakeWeather) IsRaining(ctx context.Context, loc domain.Location) (bool, error) {
	return f.raining, nil
}

type fakeClosures struct{ closed map[string]bool }

func (f fakeClosures) IsClosed(ctx context.Context, poiID string) (bool, error) {
	return f.closed[poiID], nil
}

func TestStartStopMonitoring(t *testing.T) {
	m := NewMonitor(nil, nil, nil, replan.ChangeBudget{})
	trip := &MonitoredTrip{TripID: "trip-1"}
	m.StartMonitoring(trip)
	if !m.IsMonitoring("trip-1") {
		t.Fatal("expected trip-1 to be monitored")
	}
	m.StopMonitoring("trip-1")
	if m.IsMonitoring("trip-1") {
		t.Fatal("expected trip-1 to no longer be monitored")
	}
}

func TestDetectTriggerPoiClosure(t *testing.T) {
	m := NewMonitor(nil, fakeClosures{closed: map[string]bool{"poi-1": true}}, nil, replan.ChangeBudget{})
	trip := &MonitoredTrip{
		TripID:  "trip-1",
		PoiPool: []*domain.Poi{{ID: "poi-1"}},
		Schedule: domain.DaySchedule{Stops: []domain.PlannedStop{
			{Kind: domain.StopPoi, ID: "poi-1"},
		}},
	}
	event, ok := m.detectTrigger(context.Background(), trip)
	if !ok {
		t.Fatal("expected a trigger to be detected")
	}
	if event.Kind != replan.EventPoiClosed || event.PoiID != "poi-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDetectTriggerWeatherChangeOnlyFiresOnce(t *testing.T) {
	m := NewMonitor(fakeWeather{raining: true}, nil, nil, replan.ChangeBudget{})
	trip := &MonitoredTrip{TripID: "trip-1"}

	event, ok := m.detectTrigger(context.Background(), trip)
	if !ok || event.Kind != replan.EventWeatherChanged {
		t.Fatalf("expected weather-changed trigger on first check, got ok=%v event=%+v", ok, event)
	}

	_, ok = m.detectTrigger(context.Background(), trip)
	if ok {
		t.Fatal("expected no further trigger while it keeps raining")
	}
}

func TestDetectTriggerNoCollaboratorsNoTrigger(t *testing.T) {
	m := NewMonitor(nil, nil, nil, replan.ChangeBudget{})
	trip := &MonitoredTrip{TripID: "trip-1"}
	if _, ok := m.detectTrigger(context.Background(), trip); ok {
		t.Fatal("expected no trigger with no wired collaborators")
	}
}

func TestEventKindLabelCoversAllKinds(t *testing.T) {
	kinds := []replan.EventKind{
		replan.EventWeatherChanged,
		replan.EventPoiClosed,
		replan.EventCrowdSpike,
		replan.EventTrafficDisruption,
		replan.EventUserEdit,
	}
	for _, k := range kinds {
		if label := eventKindLabel(k); label == "unknown" {
			t.Fatalf("event kind %v mapped to unknown label", k)
		}
	}
}
