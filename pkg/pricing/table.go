package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gpucost/gpucost/pkg/config"
	"github.com/gpucost/gpucost/pkg/model"
)

// Table maps resource types to hourly rates. It is immutable after construction.
type Table struct {
	entries map[model.ResourceType]model.PricingEntry
}

func NewTable(entries []model.PricingEntry) (*Table, error) {
	t := &Table{entries: make(map[model.ResourceType]model.PricingEntry, len(entries))}
	for _, e := range entries {
		if e.ResourceType == "" {
			return nil, fmt.Errorf("pricing: empty resource type")
		}
		if _, dup := t.entries[e.ResourceType]; dup {
			return nil, fmt.Errorf("pricing: duplicate entry for %q", e.ResourceType)
		}
		if !e.OnDemandPerHour.IsPositive() || !e.SpotPerHour.IsPositive() {
			return nil, fmt.Errorf("pricing: %q: rates must be positive", e.ResourceType)
		}
		t.entries[e.ResourceType] = e
	}
	return t, nil
}

// NewTableFromConfig builds a Table from the pricing section of the config.
func NewTableFromConfig(cfg map[string]config.PricingConfig) (*Table, error) {
	entries := make([]model.PricingEntry, 0, len(cfg))
	for name, p := range cfg {
		entries = append(entries, model.PricingEntry{
			ResourceType:    model.NormalizeResourceType(name),
			OnDemandPerHour: decimal.NewFromFloat(p.OnDemand),
			SpotPerHour:     decimal.NewFromFloat(p.Spot),
		})
	}
	return NewTable(entries)
}

func (t *Table) Lookup(rt model.ResourceType) (model.PricingEntry, bool) {
	e, ok := t.entries[rt]
	return e, ok
}

// Types returns the configured resource types in lexical order.
func (t *Table) Types() []model.ResourceType {
	types := make([]model.ResourceType, 0, len(t.entries))
	for rt := range t.entries {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
