package store

import (
	"context"

	"github.com/gpucost/gpucost/pkg/model"
)

// AllocationStore records committed allocations in commit order.
// Implementations are append-only and safe for concurrent use.
type AllocationStore interface {
	// Append records a committed allocation
	Append(ctx context.Context, allocation model.Allocation) error

	// Recent returns up to n of the most recently appended allocations, newest last
	Recent(ctx context.Context, n int) ([]model.Allocation, error)

	// All returns every allocation in append order
	All(ctx context.Context) ([]model.Allocation, error)

	// Count returns the number of recorded allocations
	Count(ctx context.Context) (int, error)
}
