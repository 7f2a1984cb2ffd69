package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/gpucost/gpucost/pkg/model"
)

// costPlaces is the precision estimated costs are rounded to.
const costPlaces = 2

// Estimator computes projected allocation cost from a pricing Table.
// It has no state beyond the table and is safe for concurrent use.
type Estimator struct {
	table *Table
}

func NewEstimator(table *Table) *Estimator {
	return &Estimator{table: table}
}

// Estimate returns onDemandRate * units * hours rounded half away from zero
// to cents.
func (e *Estimator) Estimate(rt model.ResourceType, units int, hours float64) (decimal.Decimal, error) {
	entry, err := e.lookup(rt, units, hours)
	if err != nil {
		return decimal.Zero, err
	}
	return cost(entry.OnDemandPerHour, units, hours), nil
}

// EstimateSpot is Estimate at the spot rate.
func (e *Estimator) EstimateSpot(rt model.ResourceType, units int, hours float64) (decimal.Decimal, error) {
	entry, err := e.lookup(rt, units, hours)
	if err != nil {
		return decimal.Zero, err
	}
	return cost(entry.SpotPerHour, units, hours), nil
}

func (e *Estimator) lookup(rt model.ResourceType, units int, hours float64) (model.PricingEntry, error) {
	entry, ok := e.table.Lookup(rt)
	if !ok {
		return model.PricingEntry{}, fmt.Errorf("%w: %q", model.ErrUnknownResourceType, rt)
	}
	if units <= 0 {
		return model.PricingEntry{}, fmt.Errorf("%w: unit count %d must be positive", model.ErrInvalidQuantity, units)
	}
	if err := ValidateHours(hours); err != nil {
		return model.PricingEntry{}, err
	}
	return entry, nil
}

// ValidateHours rejects non-positive and non-finite durations.
func ValidateHours(hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return fmt.Errorf("%w: hours %v must be a positive finite number", model.ErrInvalidQuantity, hours)
	}
	return nil
}

func cost(rate decimal.Decimal, units int, hours float64) decimal.Decimal {
	return rate.
		Mul(decimal.NewFromInt(int64(units))).
		Mul(decimal.NewFromFloat(hours)).
		Round(costPlaces)
}
