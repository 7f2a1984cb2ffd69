package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpucost/gpucost/pkg/config"
	"github.com/gpucost/gpucost/pkg/eventbus"
	"github.com/gpucost/gpucost/pkg/metrics"
	"github.com/gpucost/gpucost/pkg/model"
	"github.com/gpucost/gpucost/pkg/modelcost"
	"github.com/gpucost/gpucost/pkg/pricing"
	"github.com/gpucost/gpucost/pkg/quota"
	"github.com/gpucost/gpucost/pkg/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]eventbus.Event)
	}
	p.events[channel] = append(p.events[channel], event)
	return p.err
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func newTestService(t *testing.T, publisher eventbus.Publisher) *Service {
	t.Helper()

	five, two, one := 5, 2, 1
	cfg := &config.Config{
		Pricing: map[string]config.PricingConfig{
			"nvidia-t4":   {OnDemand: 0.526, Spot: 0.158},
			"nvidia-v100": {OnDemand: 2.48, Spot: 0.74},
			"nvidia-a100": {OnDemand: 3.06, Spot: 0.92},
		},
		Inventory: map[string]config.InventoryConfig{
			"nvidia-t4":   {Total: 8, Available: &five},
			"nvidia-v100": {Total: 4, Available: &two},
			"nvidia-a100": {Total: 2, Available: &one},
		},
		Budget:     config.BudgetConfig{Monthly: 10000, InitialSpend: 2453.67},
		Admission:  config.AdmissionConfig{ReservationFraction: 0.10, DefaultResourceType: "nvidia-t4"},
		Projection: config.ProjectionConfig{Factor: 1.3},
	}

	table, err := pricing.NewTableFromConfig(cfg.Pricing)
	require.NoError(t, err)
	inventory, err := quota.NewInventoryLedgerFromConfig(cfg.Inventory, nil)
	require.NoError(t, err)
	budget, err := quota.NewBudgetLedger(dec(cfg.Budget.Monthly), dec(cfg.Budget.InitialSpend))
	require.NoError(t, err)

	allocations := memory.NewAllocationStore()
	admission, err := quota.NewAdmissionController(pricing.NewEstimator(table), inventory, budget, allocations,
		quota.WithReservationFraction(cfg.Admission.ReservationFraction),
		quota.WithDefaultResourceType(model.ResourceType(cfg.Admission.DefaultResourceType)),
	)
	require.NoError(t, err)

	return NewService(Dependencies{
		Admission:   admission,
		Allocations: allocations,
		Projector:   metrics.NewProjector(cfg.Projection.Factor, func() time.Time { return time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC) }),
		Models:      modelcost.NewCatalog(nil),
		Publisher:   publisher,
	})
}

func TestAllocatePublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)

	alloc, err := svc.Allocate(context.Background(), model.AllocationRequest{Name: "resnet", UnitCount: 2, MaxHours: 10})
	require.NoError(t, err)
	assert.Equal(t, model.ResourceType("nvidia-t4"), alloc.ResourceType)

	require.Len(t, pub.events[eventbus.ChannelAllocation], 1)
	event := pub.events[eventbus.ChannelAllocation][0]
	assert.Equal(t, eventbus.TypeAllocationCreated, event.Type)

	var payload eventbus.AllocationEvent
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, alloc.ID, payload.AllocationID)
	assert.Equal(t, "10.52", payload.EstimatedCost)
}

func TestAllocateRejectionPublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)

	_, err := svc.Allocate(context.Background(), model.AllocationRequest{Name: "big", ResourceType: "nvidia-t4", UnitCount: 10, MaxHours: 1})
	require.ErrorIs(t, err, model.ErrInsufficientResources)

	require.Len(t, pub.events[eventbus.ChannelAdmission], 1)
	var payload eventbus.RejectionEvent
	require.NoError(t, json.Unmarshal(pub.events[eventbus.ChannelAdmission][0].Data, &payload))
	assert.Equal(t, "insufficient_resources", payload.Reason)

	_, err = svc.Allocate(context.Background(), model.AllocationRequest{Name: "bad", UnitCount: 0, MaxHours: 1})
	require.ErrorIs(t, err, model.ErrInvalidRequest)
	assert.Len(t, pub.events[eventbus.ChannelAdmission], 1, "invalid requests are not published")
}

func TestAllocateSucceedsWhenPublishFails(t *testing.T) {
	svc := newTestService(t, &recordingPublisher{err: errors.New("redis down")})

	_, err := svc.Allocate(context.Background(), model.AllocationRequest{Name: "resnet", UnitCount: 1, MaxHours: 1})
	assert.NoError(t, err)
}

func TestGetDashboard(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Allocate(ctx, model.AllocationRequest{Name: fmt.Sprintf("job-%d", i), ResourceType: "nvidia-v100", UnitCount: 1, MaxHours: 1})
		if i < 2 {
			require.NoError(t, err)
		}
	}
	for i := 0; i < 7; i++ {
		_, err := svc.Allocate(ctx, model.AllocationRequest{Name: fmt.Sprintf("small-%d", i), ResourceType: "nvidia-t4", UnitCount: 1, MaxHours: 0.5})
		if i < 5 {
			require.NoError(t, err)
		}
	}

	dash, err := svc.GetDashboard(ctx)
	require.NoError(t, err)

	// two v100 and five t4 admissions; the rest ran out of units
	assert.Len(t, dash.Allocations, 7)
	assert.Equal(t, "small-4", dash.Allocations[len(dash.Allocations)-1].Name)
	assert.Equal(t, 0, dash.Inventory["nvidia-v100"].AvailableUnits)
	assert.Equal(t, 0, dash.Inventory["nvidia-t4"].AvailableUnits)
	assert.Equal(t, "100", dash.Utilization["nvidia-v100"].String())
	assert.Equal(t, "50", dash.Utilization["nvidia-a100"].String())

	// 2453.67 + 2*2.48 + 5*0.26
	assert.Equal(t, "2459.93", dash.Budget.CurrentSpend.StringFixed(2))
	require.NotNil(t, dash.Budget.DaysUntilLimit)
}

func TestCheckBudget(t *testing.T) {
	svc := newTestService(t, nil)

	check, err := svc.CheckBudget(context.Background(), "nvidia-t4", 2, 10)
	require.NoError(t, err)
	assert.True(t, check.Approved)
	assert.Equal(t, "Budget approved", check.Message)
}

func TestGetModelCost(t *testing.T) {
	svc := newTestService(t, nil)

	mc, err := svc.GetModelCost(context.Background(), "gpt-j")
	require.NoError(t, err)
	assert.Equal(t, "gpt-j", mc.ModelName)
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "unknown_resource_type", RejectionReason(fmt.Errorf("%w: %w", model.ErrInvalidRequest, model.ErrUnknownResourceType)))
	assert.Equal(t, "invalid_request", RejectionReason(model.ErrInvalidRequest))
	assert.Equal(t, "budget_exceeded", RejectionReason(&model.AdmissionError{Err: model.ErrBudgetExceeded}))
	assert.Equal(t, "invariant_violation", RejectionReason(model.ErrInvariantViolation))
	assert.Equal(t, "internal", RejectionReason(errors.New("boom")))
}

func TestGetDashboardRecentLimit(t *testing.T) {
	svc := newTestService(t, nil)
	svc.recentLimit = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Allocate(ctx, model.AllocationRequest{Name: fmt.Sprintf("job-%d", i), UnitCount: 1, MaxHours: 1})
		require.NoError(t, err)
	}

	dash, err := svc.GetDashboard(ctx)
	require.NoError(t, err)
	require.Len(t, dash.Allocations, 3)
	assert.Equal(t, "job-2", dash.Allocations[0].Name)
	assert.Equal(t, "job-4", dash.Allocations[2].Name)
}
