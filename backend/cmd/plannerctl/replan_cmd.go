package main

import (
	"github.com/spf13/cobra"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/replan"
	"wayfare-backend/internal/planning/timegeo"
)

// replanFixture is the on-disk shape plannerctl reads for `replan`: a
// previously-built day schedule plus the triggering event.
type replanFixture struct {
	Policy          domain.Policy       `json:"policy"`
	Previous        domain.DaySchedule  `json:"previous"`
	Pois            []*domain.Poi       `json:"pois"`
	RestStops       []domain.RestStop   `json:"restStops,omitempty"`
	NowMin          int                 `json:"nowMin"`
	CurrentLocation domain.Location     `json:"currentLocation"`
	DateISO         string              `json:"dateISO"`
	DayOfWeek       int                 `json:"dayOfWeek"`
	Event           replan.Event        `json:"event"`
	Budget          replan.ChangeBudget `json:"budget,omitempty"`
}

func newReplanCmd(app *App) *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Re-plan a previously-built schedule against a disruption event",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f replanFixture
			if err := readFixture(fixturePath, &f); err != nil {
				return err
			}
			result := replan.Replan(f.Policy, replan.Request{
				NowMin:          f.NowMin,
				CurrentLocation: f.CurrentLocation,
				Previous:        f.Previous,
				PoiPool:         f.Pois,
				RestStops:       f.RestStops,
				GetTransit:      fallbackGetTransit,
				Event:           f.Event,
				Budget:          f.Budget,
				DateISO:         f.DateISO,
				DayOfWeek:       f.DayOfWeek,
				Holidays:        timegeo.NoHolidays{},
			})
			return app.printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "path to a replan fixture JSON file (required)")
	cmd.MarkFlagRequired("fixture")
	return cmd
}
