package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gpucost/gpucost/pkg/model"
)

// StateSource provides a consistent snapshot of both ledgers.
type StateSource interface {
	State() model.LedgerState
}

// LedgerCollector exports ledger state as gauges computed at scrape time,
// so the exported values are never stale relative to the ledgers.
type LedgerCollector struct {
	source    StateSource
	projector *Projector

	inventoryUnits   *prometheus.Desc
	budgetDollars    *prometheus.Desc
	utilization      *prometheus.Desc
	projectedSpend   *prometheus.Desc
	resourceUtilized *prometheus.Desc
}

var _ prometheus.Collector = (*LedgerCollector)(nil)

func NewLedgerCollector(source StateSource, projector *Projector) *LedgerCollector {
	return &LedgerCollector{
		source:    source,
		projector: projector,
		inventoryUnits: prometheus.NewDesc(
			"gpucost_inventory_units",
			"Accelerator units by resource type and state.",
			[]string{"resource_type", "state"}, nil,
		),
		budgetDollars: prometheus.NewDesc(
			"gpucost_budget_dollars",
			"Monthly budget, committed spend and remaining budget in dollars.",
			[]string{"kind"}, nil,
		),
		utilization: prometheus.NewDesc(
			"gpucost_budget_utilization_percent",
			"Committed spend as a percentage of the monthly budget.",
			nil, nil,
		),
		projectedSpend: prometheus.NewDesc(
			"gpucost_projected_monthly_spend_dollars",
			"Linear projection of this month's spend.",
			nil, nil,
		),
		resourceUtilized: prometheus.NewDesc(
			"gpucost_resource_utilization_percent",
			"Reserved share of each accelerator pool.",
			[]string{"resource_type"}, nil,
		),
	}
}

func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inventoryUnits
	ch <- c.budgetDollars
	ch <- c.utilization
	ch <- c.projectedSpend
	ch <- c.resourceUtilized
}

func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	state := c.source.State()

	for rt, e := range state.Inventory {
		ch <- prometheus.MustNewConstMetric(c.inventoryUnits, prometheus.GaugeValue, float64(e.TotalUnits), rt.String(), "total")
		ch <- prometheus.MustNewConstMetric(c.inventoryUnits, prometheus.GaugeValue, float64(e.AvailableUnits), rt.String(), "available")
	}
	for rt, pct := range c.projector.ResourceUtilization(state.Inventory) {
		ch <- prometheus.MustNewConstMetric(c.resourceUtilized, prometheus.GaugeValue, pct.InexactFloat64(), rt.String())
	}

	budget := c.projector.Budget(state.Budget)
	ch <- prometheus.MustNewConstMetric(c.budgetDollars, prometheus.GaugeValue, budget.MonthlyBudget.InexactFloat64(), "monthly")
	ch <- prometheus.MustNewConstMetric(c.budgetDollars, prometheus.GaugeValue, budget.CurrentSpend.InexactFloat64(), "spend")
	ch <- prometheus.MustNewConstMetric(c.budgetDollars, prometheus.GaugeValue, budget.BudgetRemaining.InexactFloat64(), "remaining")
	ch <- prometheus.MustNewConstMetric(c.utilization, prometheus.GaugeValue, budget.UtilizationPercent.InexactFloat64())
	ch <- prometheus.MustNewConstMetric(c.projectedSpend, prometheus.GaugeValue, budget.ProjectedMonthlySpend.InexactFloat64())
}
