package main

import (
	"github.com/spf13/cobra"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/scheduler"
	"wayfare-backend/internal/planning/timegeo"
)

// scheduleFixture is the on-disk shape plannerctl reads for `schedule` and
// `evaluate`: a policy plus the POI pool and day window to build against.
type scheduleFixture struct {
	Policy        domain.Policy     `json:"policy"`
	Pois          []*domain.Poi     `json:"pois"`
	RestStops     []domain.RestStop `json:"restStops,omitempty"`
	DateISO       string            `json:"dateISO"`
	DayOfWeek     int               `json:"dayOfWeek"`
	StartMin      int               `json:"startMin"`
	EndMin        int               `json:"endMin"`
	StartLocation domain.Location   `json:"startLocation"`
	MustSeePoiIds []string          `json:"mustSeePoiIds,omitempty"`
}

func newScheduleCmd(app *App) *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Build a day schedule from a policy/POI fixture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f scheduleFixture
			if err := readFixture(fixturePath, &f); err != nil {
				return err
			}
			result := scheduler.BuildDay(f.Policy, scheduler.Request{
				DateISO:       f.DateISO,
				DayOfWeek:     f.DayOfWeek,
				StartMin:      f.StartMin,
				EndMin:        f.EndMin,
				StartLocation: f.StartLocation,
				Pois:          f.Pois,
				RestStops:     f.RestStops,
				GetTransit:    fallbackGetTransit,
				MustSeePoiIds: f.MustSeePoiIds,
				Holidays:      timegeo.NoHolidays{},
			})
			return app.printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "path to a schedule fixture JSON file (required)")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

// fallbackGetTransit is a haversine-distance walking estimate (0.08 km per
// minute), used when no live transit API is configured. It is not the
// flat per-leg fallback of internal/planning/actions'
// transport.build_time_matrix action.
func fallbackGetTransit(from, to domain.Location, policy domain.Policy) ([]domain.TransitSegment, error) {
	km := timegeo.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
	const walkKmPerMin = 0.08
	minutes := km / walkKmPerMin
	return []domain.TransitSegment{{
		Mode:                 domain.ModeWalk,
		DurationMin:          minutes,
		WalkMin:              minutes,
		WheelchairAccessible: true,
	}}, nil
}
