package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	ErrInvalidRequest        = errors.New("gpucost: invalid request")
	ErrInvalidQuantity       = errors.New("gpucost: invalid quantity")
	ErrUnknownResourceType   = errors.New("gpucost: unknown resource type")
	ErrInsufficientResources = errors.New("gpucost: insufficient resources")
	ErrBudgetExceeded        = errors.New("gpucost: budget exceeded")
	ErrInvariantViolation    = errors.New("gpucost: invariant violation")
)

// AdmissionError wraps a rejection with the ledger context it was decided on.
type AdmissionError struct {
	Err             error
	ResourceType    ResourceType
	Requested       int
	Available       int
	EstimatedCost   decimal.Decimal
	BudgetRemaining decimal.Decimal
}

func (e *AdmissionError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInsufficientResources):
		return fmt.Sprintf("%v: type=%s requested=%d available=%d",
			e.Err, e.ResourceType, e.Requested, e.Available)
	case errors.Is(e.Err, ErrBudgetExceeded):
		return fmt.Sprintf("%v: type=%s estimated_cost=%s budget_remaining=%s",
			e.Err, e.ResourceType, e.EstimatedCost.StringFixed(2), e.BudgetRemaining.StringFixed(2))
	default:
		return fmt.Sprintf("%v: type=%s", e.Err, e.ResourceType)
	}
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the request may succeed later without changes.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInsufficientResources)
}

// IsClientError returns true if the caller must correct the request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrUnknownResourceType)
}
