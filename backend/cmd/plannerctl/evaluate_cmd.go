package main

import (
	"github.com/spf13/cobra"

	"wayfare-backend/internal/costpredict"
	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/robustness"
	"wayfare-backend/internal/planning/scheduler"
	"wayfare-backend/internal/planning/timegeo"
	"wayfare-backend/internal/planning/whatif"
)

func newEvaluateCmd(app *App) *cobra.Command {
	var fixturePath string
	var samples int
	var seed uint32
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Build a day schedule, then run the robustness evaluator and what-if engine over it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f scheduleFixture
			if err := readFixture(fixturePath, &f); err != nil {
				return err
			}

			schedule := scheduler.BuildDay(f.Policy, scheduler.Request{
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

			lookup := make(domain.MapPoiLookup, len(f.Pois))
			for _, p := range f.Pois {
				lookup[p.ID] = p
			}

			cfg := robustness.Config{Samples: samples, Seed: seed}
			report := robustness.EvaluateDay(f.Policy, schedule, lookup, f.EndMin, f.DateISO, f.DayOfWeek, timegeo.NoHolidays{}, cfg)

			candidates := whatif.GenerateCandidates(schedule, report.Suggestions)
			candidates = whatif.FilterValid(candidates)
			candidates = whatif.Dedupe(candidates)
			whatIfReport := whatif.Evaluate(f.Policy, schedule, candidates, lookup, f.EndMin, f.DateISO, f.DayOfWeek, timegeo.NoHolidays{},
				seed, samples, samples)

			return app.printJSON(struct {
				Schedule     domain.DaySchedule     `json:"schedule"`
				Robustness   robustness.Report      `json:"robustness"`
				WhatIf       whatif.Report           `json:"whatIf"`
				CostEstimate costpredict.Prediction  `json:"costEstimate"`
			}{
				Schedule:     schedule,
				Robustness:   report,
				WhatIf:       whatIfReport,
				CostEstimate: costpredict.PredictDayCost(schedule, f.Policy),
			})
		},
	}
	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "path to a schedule fixture JSON file (required)")
	cmd.Flags().IntVar(&samples, "samples", robustness.DefaultSamples, "Monte Carlo sample count")
	cmd.Flags().Uint32Var(&seed, "seed", 1, "base PRNG seed")
	cmd.MarkFlagRequired("fixture")
	return cmd
}
