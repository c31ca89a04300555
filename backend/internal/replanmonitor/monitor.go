// Package replanmonitor watches active trips for disruption triggers
// (weather, POI closures) and drives the planning core's Replanner in
// response, on a cron-scheduled cadence. The triggering/monitoring loop
// shape (a per-trip background watch started/stopped on demand) follows
// the teacher's original monitoring service; the re-planning itself now
// runs through internal/planning/replan instead of an LLM call.
package replanmonitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wayfare-backend/internal/metrics"
	"wayfare-backend/internal/planning/actions"
	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/replan"
	"wayfare-backend/internal/planning/scheduler"
)

// WeatherChecker reports current rain state for a location, the external
// collaborator behind EventWeatherChanged triggers.
type WeatherChecker interface {
	IsRaining(ctx context.Context, loc domain.Location) (bool, error)
}

// ClosureChecker reports whether a POI has gone from open to closed since
// the trip was planned, the external collaborator behind EventPoiClosed
// triggers.
type ClosureChecker interface {
	IsClosed(ctx context.Context, poiID string) (bool, error)
}

// MonitoredTrip is the state the monitor needs to re-evaluate one trip on
// each cron tick.
type MonitoredTrip struct {
	TripID          string
	Policy          domain.Policy
	Schedule        domain.DaySchedule
	CurrentLocation domain.Location
	PoiPool         []*domain.Poi
	RestStops       []domain.RestStop
	GetTransit      scheduler.GetTransitFunc
	DateISO         string
	DayOfWeek       int
	NowMin          func() int // injected for testability; defaults to wall-clock minutes-of-day
	WasRaining      bool
}

// Monitor runs the cron-scheduled disruption sweep over every actively
// monitored trip.
type Monitor struct {
	mu       sync.Mutex
	trips    map[string]*MonitoredTrip
	weather  WeatherChecker
	closures ClosureChecker
	store    actions.TripStore
	cron     *cron.Cron
	budget   replan.ChangeBudget
}

// NewMonitor wires a replan monitor. weather/closures/store may be nil;
// a nil collaborator simply means that trigger kind is never detected.
func NewMonitor(weather WeatherChecker, closures ClosureChecker, store actions.TripStore, budget replan.ChangeBudget) *Monitor {
	return &Monitor{
		trips:    make(map[string]*MonitoredTrip),
		weather:  weather,
		closures: closures,
		store:    store,
		cron:     cron.New(),
		budget:   budget,
	}
}

// StartMonitoring begins tracking a trip for disruption triggers.
func (m *Monitor) StartMonitoring(trip *MonitoredTrip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.TripID] = trip
}

// StopMonitoring stops tracking a trip.
func (m *Monitor) StopMonitoring(tripID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
}

// IsMonitoring reports whether a trip is currently tracked.
func (m *Monitor) IsMonitoring(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trips[tripID]
	return ok
}

// Schedule registers the sweep on the given cron spec (e.g. "@every 5m")
// and starts the cron scheduler's own goroutine.
func (m *Monitor) Schedule(spec string) error {
	_, err := m.cron.AddFunc(spec, m.sweep)
	if err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight sweep.
func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Monitor) sweep() {
	m.mu.Lock()
	trips := make([]*MonitoredTrip, 0, len(m.trips))
	for _, t := range m.trips {
		trips = append(trips, t)
	}
	m.mu.Unlock()

	for _, t := range trips {
		m.checkTrip(t)
	}
}

func (m *Monitor) checkTrip(t *MonitoredTrip) {
	ctx := context.Background()
	nowMin := 0
	if t.NowMin != nil {
		nowMin = t.NowMin()
	} else {
		now := time.Now()
		nowMin = now.Hour()*60 + now.Minute()
	}

	event, ok := m.detectTrigger(ctx, t)
	if !ok {
		return
	}

	result := replan.Replan(t.Policy, replan.Request{
		NowMin:          nowMin,
		CurrentLocation: t.CurrentLocation,
		Previous:        t.Schedule,
		PoiPool:         t.PoiPool,
		RestStops:       t.RestStops,
		GetTransit:      t.GetTransit,
		Event:           event,
		Budget:          m.budget,
		DateISO:         t.DateISO,
		DayOfWeek:       t.DayOfWeek,
	})

	metrics.Replans.WithLabelValues(eventKindLabel(event.Kind)).Inc()

	if !result.Feasible {
		log.Printf("replanmonitor: trip %s: %s", t.TripID, result.Explanation)
		return
	}

	t.Schedule = result.Schedule
	if m.store != nil {
		if err := m.store.PersistPlan(ctx, t.TripID, result.Schedule.Stops); err != nil {
			log.Printf("replanmonitor: trip %s: failed to persist replanned schedule: %v", t.TripID, err)
		}
	}
	log.Printf("replanmonitor: trip %s: %s", t.TripID, result.Explanation)
}

// detectTrigger checks the wired collaborators in a fixed priority order
// (closure, then weather) and returns the first applicable event. Only
// one trigger is translated per sweep; a second trigger on the same trip
// is picked up on the following tick.
func (m *Monitor) detectTrigger(ctx context.Context, t *MonitoredTrip) (replan.Event, bool) {
	if m.closures != nil {
		for _, poi := range t.PoiPool {
			closed, err := m.closures.IsClosed(ctx, poi.ID)
			if err != nil {
				continue
			}
			if closed && stillInSchedule(t.Schedule, poi.ID) {
				return replan.Event{Kind: replan.EventPoiClosed, PoiID: poi.ID}, true
			}
		}
	}
	if m.weather != nil {
		raining, err := m.weather.IsRaining(ctx, t.CurrentLocation)
		if err == nil && raining && !t.WasRaining {
			t.WasRaining = true
			return replan.Event{Kind: replan.EventWeatherChanged, Raining: true}, true
		}
		if err == nil {
			t.WasRaining = raining
		}
	}
	return replan.Event{}, false
}

func stillInSchedule(schedule domain.DaySchedule, poiID string) bool {
	for _, s := range schedule.Stops {
		if s.ID == poiID {
			return true
		}
	}
	return false
}

func eventKindLabel(k replan.EventKind) string {
	switch k {
	case replan.EventWeatherChanged:
		return "weather_changed"
	case replan.EventPoiClosed:
		return "poi_closed"
	case replan.EventCrowdSpike:
		return "crowd_spike"
	case replan.EventTrafficDisruption:
		return "traffic_disruption"
	case replan.EventUserEdit:
		return "user_edit"
	default:
		return "unknown"
	}
}
