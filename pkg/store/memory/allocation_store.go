package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gpucost/gpucost/pkg/model"
	"github.com/gpucost/gpucost/pkg/store"
)

// AllocationStore keeps allocations for the lifetime of the process.
type AllocationStore struct {
	mu          sync.RWMutex
	allocations []model.Allocation
	ids         map[string]struct{}
}

var _ store.AllocationStore = (*AllocationStore)(nil)

func NewAllocationStore() *AllocationStore {
	return &AllocationStore{ids: make(map[string]struct{})}
}

func (s *AllocationStore) Append(_ context.Context, allocation model.Allocation) error {
	if allocation.ID == "" {
		return fmt.Errorf("append allocation: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[allocation.ID]; dup {
		return fmt.Errorf("append allocation: duplicate id %q", allocation.ID)
	}
	s.ids[allocation.ID] = struct{}{}
	s.allocations = append(s.allocations, allocation)
	return nil
}

func (s *AllocationStore) Recent(_ context.Context, n int) ([]model.Allocation, error) {
	if n < 0 {
		return nil, fmt.Errorf("recent allocations: negative limit %d", n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.allocations) - n
	if start < 0 {
		start = 0
	}
	return clone(s.allocations[start:]), nil
}

func (s *AllocationStore) All(_ context.Context) ([]model.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clone(s.allocations), nil
}

func (s *AllocationStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.allocations), nil
}

func clone(allocations []model.Allocation) []model.Allocation {
	out := make([]model.Allocation, len(allocations))
	copy(out, allocations)
	return out
}
