package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gpucost/gpucost/pkg/model"
)

// DefaultProjectionFactor is the linear multiplier applied to current spend
// to project the month's total. It is a heuristic, not a forecast.
const DefaultProjectionFactor = 1.3

var hundred = decimal.NewFromInt(100)

// BudgetMetrics are the dashboard aggregates derived from a BudgetState.
type BudgetMetrics struct {
	CurrentSpend          decimal.Decimal
	MonthlyBudget         decimal.Decimal
	BudgetRemaining       decimal.Decimal
	UtilizationPercent    decimal.Decimal
	ProjectedMonthlySpend decimal.Decimal
	// DaysUntilLimit is nil when spend is zero and the limit is never reached.
	DaysUntilLimit *int64
}

// Projector derives read-only aggregates from ledger snapshots.
type Projector struct {
	factor decimal.Decimal
	now    func() time.Time
}

func NewProjector(factor float64, now func() time.Time) *Projector {
	if factor <= 0 {
		factor = DefaultProjectionFactor
	}
	if now == nil {
		now = time.Now
	}
	return &Projector{factor: decimal.NewFromFloat(factor), now: now}
}

func (p *Projector) Budget(state model.BudgetState) BudgetMetrics {
	m := BudgetMetrics{
		CurrentSpend:          state.CurrentSpend,
		MonthlyBudget:         state.MonthlyBudget,
		BudgetRemaining:       state.Remaining(),
		UtilizationPercent:    p.UtilizationPercent(state),
		ProjectedMonthlySpend: p.ProjectedMonthlySpend(state),
	}
	if days, bounded := p.DaysUntilLimit(state); bounded {
		m.DaysUntilLimit = &days
	}
	return m
}

// UtilizationPercent is spend as a share of the monthly budget, to one decimal.
func (p *Projector) UtilizationPercent(state model.BudgetState) decimal.Decimal {
	if !state.MonthlyBudget.IsPositive() {
		return decimal.Zero
	}
	return state.CurrentSpend.Div(state.MonthlyBudget).Mul(hundred).Round(1)
}

func (p *Projector) ProjectedMonthlySpend(state model.BudgetState) decimal.Decimal {
	return state.CurrentSpend.Mul(p.factor).Round(2)
}

// DaysUntilLimit estimates whole days until spend reaches the monthly budget
// at the average daily burn so far this month. bounded is false when there
// is no burn to extrapolate from.
func (p *Projector) DaysUntilLimit(state model.BudgetState) (days int64, bounded bool) {
	remaining := state.Remaining()
	if !remaining.IsPositive() {
		return 0, true
	}

	elapsed := p.now().Day()
	if elapsed <= 0 || !state.CurrentSpend.IsPositive() {
		return 0, false
	}

	burn := state.CurrentSpend.Div(decimal.NewFromInt(int64(elapsed)))
	return remaining.Div(burn).Floor().IntPart(), true
}

// ResourceUtilization returns the reserved share of each pool, to one
// decimal. Empty pools report zero.
func (p *Projector) ResourceUtilization(inventory map[model.ResourceType]model.InventoryEntry) map[model.ResourceType]decimal.Decimal {
	out := make(map[model.ResourceType]decimal.Decimal, len(inventory))
	for rt, e := range inventory {
		if e.TotalUnits <= 0 {
			out[rt] = decimal.Zero
			continue
		}
		out[rt] = decimal.NewFromInt(int64(e.UsedUnits())).
			Div(decimal.NewFromInt(int64(e.TotalUnits))).
			Mul(hundred).
			Round(1)
	}
	return out
}
