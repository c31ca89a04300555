package httpapi

import (
	"context"
	"fmt"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/robustness"
	"wayfare-backend/internal/planning/timegeo"
)

// dateSetHolidayChecker is a timegeo.HolidayChecker backed by a plain set
// of ISO-8601 dates supplied in the request body, since the httpapi layer
// carries no calendar of its own (spec §6: HolidayChecker is a pluggable
// collaborator).
type dateSetHolidayChecker map[string]bool

func (d dateSetHolidayChecker) IsHoliday(dateISO string) bool {
	return d[dateISO]
}

func holidayCheckerFrom(dates []string) timegeo.HolidayChecker {
	if len(dates) == 0 {
		return timegeo.NoHolidays{}
	}
	set := make(dateSetHolidayChecker, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return set
}

// evalContext is the common request shape shared by the robustness and
// what-if endpoints: a compiled policy, a schedule, day framing, and a POI
// lookup expressed either inline or by place id (resolved against the
// handler's PoiResolver). At least one of Pois/PlaceIds must be set (spec
// §6b).
type evalContext struct {
	Policy    domain.Policy      `json:"policy"`
	Schedule  domain.DaySchedule `json:"schedule"`
	DayEndMin int                `json:"dayEndMin"`
	DateISO   string             `json:"dateISO"`
	DayOfWeek int                `json:"dayOfWeek"`
	Pois      []domain.Poi       `json:"pois,omitempty"`
	PlaceIDs  []string           `json:"placeIds,omitempty"`
	Holidays  []string           `json:"holidayDates,omitempty"`
}

func (e evalContext) lookup(ctx context.Context, resolver PoiResolver) (domain.PoiLookup, error) {
	if len(e.Pois) > 0 {
		m := make(domain.MapPoiLookup, len(e.Pois))
		for i := range e.Pois {
			p := e.Pois[i]
			m[p.ID] = &p
		}
		return m, nil
	}
	if len(e.PlaceIDs) > 0 {
		if resolver == nil {
			return nil, fmt.Errorf("place-id POI lookup is not available: pass pois inline")
		}
		return resolver.LoadMany(ctx, e.PlaceIDs)
	}
	return nil, fmt.Errorf("one of pois or placeIds is required")
}

func (e evalContext) holidayChecker() timegeo.HolidayChecker {
	return holidayCheckerFrom(e.Holidays)
}

// configInput mirrors robustness.Config's wire shape.
type configInput struct {
	Samples        int     `json:"samples,omitempty"`
	Seed           uint32  `json:"seed,omitempty"`
	OnTimeSlackMin float64 `json:"onTimeSlackMin,omitempty"`
}

func (c configInput) toRobustnessConfig() robustness.Config {
	return robustness.Config{Samples: c.Samples, Seed: c.Seed, OnTimeSlackMin: c.OnTimeSlackMin}
}

// budgetStrategy mirrors the optional budget strategy of /what-if/evaluate.
type budgetStrategy struct {
	BaseSamples      int `json:"baseSamples,omitempty"`
	CandidateSamples int `json:"candidateSamples,omitempty"`
	ConfirmSamples   int `json:"confirmSamples,omitempty"`
}

func (b budgetStrategy) baseSamples() int {
	if b.BaseSamples > 0 {
		return b.BaseSamples
	}
	return robustness.DefaultSamples
}

func (b budgetStrategy) candidateSamples() int {
	if b.CandidateSamples > 0 {
		return b.CandidateSamples
	}
	return robustness.DefaultSamples
}
