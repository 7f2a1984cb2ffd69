package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpucost_allocations_total",
			Help: "Total number of admitted allocations by resource type",
		},
		[]string{"resource_type"},
	)

	AdmissionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpucost_admission_rejections_total",
			Help: "Total number of rejected allocation requests by reason",
		},
		[]string{"reason"},
	)

	BudgetChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpucost_budget_checks_total",
			Help: "Total number of budget previews by outcome",
		},
		[]string{"approved"},
	)

	AllocationCost = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpucost_allocation_cost_dollars",
			Help:    "Estimated cost of admitted allocations in dollars",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"resource_type"},
	)
)
