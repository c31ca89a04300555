// Package metrics exposes the planning service's prometheus counters and
// histograms, following the collector/registration pattern used for
// prometheus/client_golang in the example pack.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SchedulesBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planning_schedules_built_total",
		Help: "Total number of day schedules built by the scheduler.",
	})
	RobustnessEvaluations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planning_robustness_evaluations_total",
		Help: "Total number of robustness evaluator runs.",
	})
	WhatIfEvaluations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planning_whatif_evaluations_total",
		Help: "Total number of what-if report generations.",
	})
	Replans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_replans_total",
		Help: "Total number of replans, labeled by triggering event kind.",
	}, []string{"event_kind"})
	MonteCarloSampleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planning_monte_carlo_duration_seconds",
		Help:    "Wall-clock duration of a single robustness evaluator run.",
		Buckets: prometheus.DefBuckets,
	})
	ActionInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_action_invocations_total",
		Help: "Total number of action registry invocations, labeled by action name and outcome.",
	}, []string{"action", "outcome"})
)

func init() {
	prometheus.MustRegister(
		SchedulesBuilt,
		RobustnessEvaluations,
		WhatIfEvaluations,
		Replans,
		MonteCarloSampleDuration,
		ActionInvocations,
	)
}
