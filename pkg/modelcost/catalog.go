// Package modelcost serves per-model serving cost summaries from static
// configuration. It does not take part in admission control.
package modelcost

import (
	"fmt"
	"strings"

	"github.com/gpucost/gpucost/pkg/config"
	"github.com/gpucost/gpucost/pkg/model"
)

// Placeholder figures returned for models without configured costs.
var placeholder = model.ModelCost{
	DailyCost:   45.67,
	MonthlyCost: 1370.10,
	GPUHours:    87,
	APICalls:    125432,
}

type Catalog struct {
	costs map[string]model.ModelCost
}

func NewCatalog(cfg map[string]config.ModelCostConfig) *Catalog {
	c := &Catalog{costs: make(map[string]model.ModelCost, len(cfg))}
	for name, mc := range cfg {
		key := strings.ToLower(name)
		c.costs[key] = model.ModelCost{
			ModelName:   key,
			DailyCost:   mc.DailyCost,
			MonthlyCost: mc.MonthlyCost,
			GPUHours:    mc.GPUHours,
			APICalls:    mc.APICalls,
		}
	}
	return c
}

// Lookup returns the configured costs for name, or placeholder figures
// labelled with name when none are configured.
func (c *Catalog) Lookup(name string) (model.ModelCost, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ModelCost{}, fmt.Errorf("%w: model name is required", model.ErrInvalidRequest)
	}
	if mc, ok := c.costs[strings.ToLower(name)]; ok {
		mc.ModelName = name
		return mc, nil
	}
	mc := placeholder
	mc.ModelName = name
	return mc, nil
}
