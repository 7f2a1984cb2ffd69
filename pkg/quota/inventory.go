package quota

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/config"
	"github.com/gpucost/gpucost/pkg/model"
)

// InventoryLedger tracks total and available units per resource type.
// Every mutation is checked against 0 <= available <= total.
type InventoryLedger struct {
	mu      sync.RWMutex
	entries map[model.ResourceType]*model.InventoryEntry
	logger  *zap.Logger
}

func NewInventoryLedger(entries []model.InventoryEntry, logger *zap.Logger) (*InventoryLedger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &InventoryLedger{
		entries: make(map[model.ResourceType]*model.InventoryEntry, len(entries)),
		logger:  logger,
	}
	for _, e := range entries {
		if _, dup := l.entries[e.ResourceType]; dup {
			return nil, fmt.Errorf("inventory: duplicate entry for %q", e.ResourceType)
		}
		if e.TotalUnits < 0 || e.AvailableUnits < 0 || e.AvailableUnits > e.TotalUnits {
			return nil, fmt.Errorf("%w: inventory %q: available=%d total=%d",
				model.ErrInvariantViolation, e.ResourceType, e.AvailableUnits, e.TotalUnits)
		}
		entry := e
		l.entries[e.ResourceType] = &entry
	}
	return l, nil
}

// NewInventoryLedgerFromConfig builds a ledger from the inventory section of the config.
func NewInventoryLedgerFromConfig(cfg map[string]config.InventoryConfig, logger *zap.Logger) (*InventoryLedger, error) {
	entries := make([]model.InventoryEntry, 0, len(cfg))
	for name, inv := range cfg {
		entries = append(entries, model.InventoryEntry{
			ResourceType:   model.NormalizeResourceType(name),
			TotalUnits:     inv.Total,
			AvailableUnits: inv.AvailableUnits(),
		})
	}
	return NewInventoryLedger(entries, logger)
}

// Has reports whether rt is a configured resource type.
func (l *InventoryLedger) Has(rt model.ResourceType) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.entries[rt]
	return ok
}

// TryReserve decrements available units if at least units are free.
// It never waits: false means the request cannot be satisfied now.
func (l *InventoryLedger) TryReserve(rt model.ResourceType, units int) (bool, error) {
	if units <= 0 {
		return false, fmt.Errorf("%w: unit count %d must be positive", model.ErrInvalidQuantity, units)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[rt]
	if !ok {
		return false, fmt.Errorf("%w: %q", model.ErrUnknownResourceType, rt)
	}
	if e.AvailableUnits < units {
		return false, nil
	}
	e.AvailableUnits -= units
	return true, nil
}

// Release returns units to the pool. Releasing more than is reserved is a
// caller bug: the ledger is left untouched and ErrInvariantViolation returned.
func (l *InventoryLedger) Release(rt model.ResourceType, units int) error {
	if units <= 0 {
		return fmt.Errorf("%w: unit count %d must be positive", model.ErrInvalidQuantity, units)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[rt]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownResourceType, rt)
	}
	if e.AvailableUnits+units > e.TotalUnits {
		l.logger.Error("inventory over-release rejected",
			zap.String("resource_type", rt.String()),
			zap.Int("units", units),
			zap.Int("available", e.AvailableUnits),
			zap.Int("total", e.TotalUnits),
		)
		return fmt.Errorf("%w: release of %d %s units would exceed total %d (available %d)",
			model.ErrInvariantViolation, units, rt, e.TotalUnits, e.AvailableUnits)
	}
	e.AvailableUnits += units
	return nil
}

// Get returns a copy of one entry.
func (l *InventoryLedger) Get(rt model.ResourceType) (model.InventoryEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[rt]
	if !ok {
		return model.InventoryEntry{}, false
	}
	return *e, true
}

// Snapshot returns a copy of every entry.
func (l *InventoryLedger) Snapshot() map[model.ResourceType]model.InventoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[model.ResourceType]model.InventoryEntry, len(l.entries))
	for rt, e := range l.entries {
		out[rt] = *e
	}
	return out
}
