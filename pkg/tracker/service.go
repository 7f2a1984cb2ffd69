// Package tracker exposes the dashboard, budget preview, allocation and
// model cost operations over the admission-control core.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/eventbus"
	"github.com/gpucost/gpucost/pkg/metrics"
	"github.com/gpucost/gpucost/pkg/model"
	"github.com/gpucost/gpucost/pkg/modelcost"
	"github.com/gpucost/gpucost/pkg/quota"
	"github.com/gpucost/gpucost/pkg/store"
)

const DefaultRecentLimit = 10

// Dashboard is the read-only view served to the UI.
type Dashboard struct {
	Inventory   map[model.ResourceType]model.InventoryEntry
	Allocations []model.Allocation
	Budget      metrics.BudgetMetrics
	Utilization map[model.ResourceType]decimal.Decimal
}

type Dependencies struct {
	Admission   *quota.AdmissionController
	Allocations store.AllocationStore
	Projector   *metrics.Projector
	Models      *modelcost.Catalog
	Publisher   eventbus.Publisher
	RecentLimit int
	Logger      *zap.Logger
}

type Service struct {
	admission   *quota.AdmissionController
	allocations store.AllocationStore
	projector   *metrics.Projector
	models      *modelcost.Catalog
	publisher   eventbus.Publisher
	recentLimit int
	logger      *zap.Logger
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		admission:   deps.Admission,
		allocations: deps.Allocations,
		projector:   deps.Projector,
		models:      deps.Models,
		publisher:   deps.Publisher,
		recentLimit: deps.RecentLimit,
		logger:      deps.Logger,
	}
	if s.publisher == nil {
		s.publisher = eventbus.NopPublisher{}
	}
	if s.recentLimit <= 0 {
		s.recentLimit = DefaultRecentLimit
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	state := s.admission.State()

	recent, err := s.allocations.Recent(ctx, s.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent allocations: %w", err)
	}

	return &Dashboard{
		Inventory:   state.Inventory,
		Allocations: recent,
		Budget:      s.projector.Budget(state.Budget),
		Utilization: s.projector.ResourceUtilization(state.Inventory),
	}, nil
}

func (s *Service) CheckBudget(_ context.Context, rt model.ResourceType, units int, hours float64) (*model.BudgetCheck, error) {
	check, err := s.admission.CheckBudget(rt, units, hours)
	if err != nil {
		return nil, err
	}
	metrics.BudgetChecksTotal.WithLabelValues(fmt.Sprint(check.Approved)).Inc()
	return check, nil
}

func (s *Service) Allocate(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error) {
	allocation, err := s.admission.Allocate(ctx, req)
	if err != nil {
		reason := RejectionReason(err)
		metrics.AdmissionRejectionsTotal.WithLabelValues(reason).Inc()
		if errors.Is(err, model.ErrInvariantViolation) {
			s.logger.Error("allocation aborted", zap.String("reason", reason), zap.Error(err))
		} else {
			s.logger.Info("allocation rejected", zap.String("reason", reason), zap.Error(err))
		}
		if errors.Is(err, model.ErrInsufficientResources) || errors.Is(err, model.ErrBudgetExceeded) {
			s.publish(ctx, eventbus.ChannelAdmission, eventbus.TypeAdmissionRejected, eventbus.RejectionEvent{
				ResourceType: req.ResourceType.String(),
				UnitCount:    req.UnitCount,
				Reason:       reason,
				Message:      err.Error(),
			})
		}
		return nil, err
	}

	rt := allocation.ResourceType.String()
	metrics.AllocationsTotal.WithLabelValues(rt).Inc()
	metrics.AllocationCost.WithLabelValues(rt).Observe(allocation.EstimatedCost.InexactFloat64())

	s.publish(ctx, eventbus.ChannelAllocation, eventbus.TypeAllocationCreated, eventbus.AllocationEvent{
		AllocationID:  allocation.ID,
		Name:          allocation.Name,
		ResourceType:  rt,
		UnitCount:     allocation.UnitCount,
		EstimatedCost: allocation.EstimatedCost.StringFixed(2),
		CreatedAt:     allocation.CreatedAt.Format(time.RFC3339Nano),
	})
	return allocation, nil
}

func (s *Service) GetModelCost(_ context.Context, name string) (*model.ModelCost, error) {
	mc, err := s.models.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &mc, nil
}

// publish is best effort: the allocation is already committed.
func (s *Service) publish(ctx context.Context, channel, eventType string, payload interface{}) {
	event, err := eventbus.NewEvent(eventType, payload)
	if err != nil {
		s.logger.Warn("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, channel, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// RejectionReason maps an admission error to a stable label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrUnknownResourceType):
		return "unknown_resource_type"
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrInvalidQuantity):
		return "invalid_request"
	case errors.Is(err, model.ErrInsufficientResources):
		return "insufficient_resources"
	case errors.Is(err, model.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, model.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "internal"
	}
}
