package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AllocationStatus string

const (
	AllocationActive AllocationStatus = "active"
)

// AllocationRequest is the caller-supplied input to an allocation.
type AllocationRequest struct {
	Name         string
	Framework    string
	ResourceType ResourceType
	UnitCount    int
	MaxHours     float64
	Priority     string
}

// Allocation is a committed reservation of accelerator units.
// It is immutable once created.
type Allocation struct {
	ID                string
	Name              string
	Framework         string
	ResourceType      ResourceType
	UnitCount         int
	MaxHours          float64
	Priority          string
	EstimatedCost     decimal.Decimal
	SpotEstimatedCost decimal.Decimal
	Status            AllocationStatus
	CreatedAt         time.Time
}

// BudgetCheck is the result of a non-mutating admission preview.
type BudgetCheck struct {
	ResourceType    ResourceType
	Approved        bool
	EstimatedCost   decimal.Decimal
	BudgetRemaining decimal.Decimal
	Message         string
}

const (
	BudgetApprovedMessage         = "Budget approved"
	BudgetRequiresApprovalMessage = "Requires approval"
)
