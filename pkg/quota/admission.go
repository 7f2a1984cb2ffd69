package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/model"
	"github.com/gpucost/gpucost/pkg/pricing"
	"github.com/gpucost/gpucost/pkg/store"
)

// DefaultReservationFraction caps a single allocation at 10% of the
// remaining budget.
const DefaultReservationFraction = 0.10

// AdmissionController decides whether allocation requests fit within
// inventory and budget, and commits the ones that do.
//
// Allocate holds mu for writing across reserve, commit, compensate and
// append. Readers that need both ledgers at once take mu for reading, so
// they never see units reserved without the matching spend.
type AdmissionController struct {
	mu sync.RWMutex

	estimator   *pricing.Estimator
	inventory   *InventoryLedger
	budget      *BudgetLedger
	allocations store.AllocationStore

	fraction    decimal.Decimal
	defaultType model.ResourceType
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
}

// Option configures AdmissionController.
type Option func(*AdmissionController)

// WithReservationFraction sets the share of remaining budget a single
// allocation may consume (default 0.10).
func WithReservationFraction(fraction float64) Option {
	return func(a *AdmissionController) { a.fraction = decimal.NewFromFloat(fraction) }
}

// WithDefaultResourceType sets the type used when a request names none.
func WithDefaultResourceType(rt model.ResourceType) Option {
	return func(a *AdmissionController) { a.defaultType = rt }
}

// WithClock overrides time.Now for allocation timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *AdmissionController) { a.now = now }
}

// WithIDGenerator overrides allocation id generation.
func WithIDGenerator(newID func() string) Option {
	return func(a *AdmissionController) { a.newID = newID }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *AdmissionController) { a.logger = logger }
}

func NewAdmissionController(
	estimator *pricing.Estimator,
	inventory *InventoryLedger,
	budget *BudgetLedger,
	allocations store.AllocationStore,
	opts ...Option,
) (*AdmissionController, error) {
	a := &AdmissionController{
		estimator:   estimator,
		inventory:   inventory,
		budget:      budget,
		allocations: allocations,
		fraction:    decimal.NewFromFloat(DefaultReservationFraction),
		now:         time.Now,
		newID:       func() string { return "alloc-" + uuid.New().String() },
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if !a.fraction.IsPositive() || a.fraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("admission: reservation fraction %s outside (0, 1]", a.fraction)
	}
	if a.defaultType != "" && !inventory.Has(a.defaultType) {
		return nil, fmt.Errorf("admission: default resource type %q is not in inventory", a.defaultType)
	}
	return a, nil
}

// Allocate reserves units and commits the estimated cost, or returns an
// error and leaves both ledgers as they were.
func (a *AdmissionController) Allocate(ctx context.Context, req model.AllocationRequest) (*model.Allocation, error) {
	rt, err := a.validate(req.ResourceType, req.UnitCount, req.MaxHours)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidRequest)
	}

	cost, err := a.estimator.Estimate(rt, req.UnitCount, req.MaxHours)
	if err != nil {
		return nil, asInvalidRequest(err)
	}
	spotCost, err := a.estimator.EstimateSpot(rt, req.UnitCount, req.MaxHours)
	if err != nil {
		return nil, asInvalidRequest(err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	reserved, err := a.inventory.TryReserve(rt, req.UnitCount)
	if err != nil {
		return nil, err
	}
	if !reserved {
		entry, _ := a.inventory.Get(rt)
		return nil, &model.AdmissionError{
			Err:          model.ErrInsufficientResources,
			ResourceType: rt,
			Requested:    req.UnitCount,
			Available:    entry.AvailableUnits,
		}
	}

	committed, err := a.budget.TryCommit(cost, a.fraction)
	if err != nil || !committed {
		if relErr := a.compensate(rt, req.UnitCount); relErr != nil {
			return nil, relErr
		}
		if err != nil {
			return nil, err
		}
		return nil, &model.AdmissionError{
			Err:             model.ErrBudgetExceeded,
			ResourceType:    rt,
			Requested:       req.UnitCount,
			EstimatedCost:   cost,
			BudgetRemaining: a.budget.Remaining(),
		}
	}

	allocation := model.Allocation{
		ID:                a.newID(),
		Name:              req.Name,
		Framework:         req.Framework,
		ResourceType:      rt,
		UnitCount:         req.UnitCount,
		MaxHours:          req.MaxHours,
		Priority:          req.Priority,
		EstimatedCost:     cost,
		SpotEstimatedCost: spotCost,
		Status:            model.AllocationActive,
		CreatedAt:         a.now().UTC(),
	}

	if err := a.allocations.Append(ctx, allocation); err != nil {
		rbErr := a.budget.rollback(cost)
		relErr := a.compensate(rt, req.UnitCount)
		if rbErr != nil || relErr != nil {
			a.logger.Error("failed to undo allocation after append error",
				zap.String("allocation_id", allocation.ID), zap.NamedError("rollback", rbErr), zap.NamedError("release", relErr))
		}
		return nil, errors.Join(fmt.Errorf("record allocation: %w", err), rbErr, relErr)
	}

	a.logger.Info("allocation admitted",
		zap.String("allocation_id", allocation.ID),
		zap.String("resource_type", rt.String()),
		zap.Int("units", req.UnitCount),
		zap.String("estimated_cost", cost.StringFixed(2)),
	)
	return &allocation, nil
}

// CheckBudget previews the budget decision for a request without reserving
// inventory or committing spend.
func (a *AdmissionController) CheckBudget(rt model.ResourceType, units int, hours float64) (*model.BudgetCheck, error) {
	rt, err := a.validate(rt, units, hours)
	if err != nil {
		return nil, err
	}

	cost, err := a.estimator.Estimate(rt, units, hours)
	if err != nil {
		return nil, asInvalidRequest(err)
	}

	a.mu.RLock()
	remaining := a.budget.Remaining()
	a.mu.RUnlock()

	check := &model.BudgetCheck{
		ResourceType:    rt,
		Approved:        Approves(cost, remaining, a.fraction),
		EstimatedCost:   cost,
		BudgetRemaining: remaining,
		Message:         model.BudgetRequiresApprovalMessage,
	}
	if check.Approved {
		check.Message = model.BudgetApprovedMessage
	}
	return check, nil
}

// State returns both ledgers as observed at a single instant.
func (a *AdmissionController) State() model.LedgerState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return model.LedgerState{
		Inventory: a.inventory.Snapshot(),
		Budget:    a.budget.State(),
	}
}

// ReservationFraction returns the configured admission cap.
func (a *AdmissionController) ReservationFraction() decimal.Decimal {
	return a.fraction
}

func (a *AdmissionController) validate(rt model.ResourceType, units int, hours float64) (model.ResourceType, error) {
	rt = model.NormalizeResourceType(rt.String())
	if rt == "" {
		rt = a.defaultType
	}
	if rt == "" {
		return "", fmt.Errorf("%w: resource type is required", model.ErrInvalidRequest)
	}
	if !a.inventory.Has(rt) {
		return "", fmt.Errorf("%w: %w: %q", model.ErrInvalidRequest, model.ErrUnknownResourceType, rt)
	}
	if units <= 0 {
		return "", fmt.Errorf("%w: unit count %d must be positive", model.ErrInvalidRequest, units)
	}
	if err := pricing.ValidateHours(hours); err != nil {
		return "", asInvalidRequest(err)
	}
	return rt, nil
}

// compensate releases units reserved earlier in the same transaction.
func (a *AdmissionController) compensate(rt model.ResourceType, units int) error {
	if err := a.inventory.Release(rt, units); err != nil {
		a.logger.Error("compensating release failed",
			zap.String("resource_type", rt.String()), zap.Int("units", units), zap.Error(err))
		return err
	}
	return nil
}

func asInvalidRequest(err error) error {
	if errors.Is(err, model.ErrInvalidQuantity) {
		return fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	return err
}
