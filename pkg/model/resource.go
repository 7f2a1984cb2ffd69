package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ResourceType identifies a category of accelerator, e.g. "nvidia-t4".
type ResourceType string

// NormalizeResourceType lower-cases and trims an identifier so that it
// matches the keys loaded from configuration.
func NormalizeResourceType(s string) ResourceType {
	return ResourceType(strings.ToLower(strings.TrimSpace(s)))
}

func (r ResourceType) String() string {
	return string(r)
}

// PricingEntry holds hourly rates in dollars for one resource type.
type PricingEntry struct {
	ResourceType    ResourceType
	OnDemandPerHour decimal.Decimal
	SpotPerHour     decimal.Decimal
}

// InventoryEntry is the capacity of one resource type.
// 0 <= AvailableUnits <= TotalUnits always holds.
type InventoryEntry struct {
	ResourceType   ResourceType
	TotalUnits     int
	AvailableUnits int
}

// UsedUnits returns the number of reserved units.
func (e InventoryEntry) UsedUnits() int {
	return e.TotalUnits - e.AvailableUnits
}

// BudgetState is the monthly ceiling and the spend committed against it.
type BudgetState struct {
	MonthlyBudget decimal.Decimal
	CurrentSpend  decimal.Decimal
}

// Remaining returns MonthlyBudget - CurrentSpend.
func (b BudgetState) Remaining() decimal.Decimal {
	return b.MonthlyBudget.Sub(b.CurrentSpend)
}

// LedgerState is a consistent view of both ledgers taken at one instant.
type LedgerState struct {
	Inventory map[ResourceType]InventoryEntry
	Budget    BudgetState
}
