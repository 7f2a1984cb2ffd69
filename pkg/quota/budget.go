package quota

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gpucost/gpucost/pkg/model"
)

// BudgetLedger tracks the monthly ceiling and cumulative committed spend.
type BudgetLedger struct {
	mu      sync.RWMutex
	monthly decimal.Decimal
	spend   decimal.Decimal
}

func NewBudgetLedger(monthly, initialSpend decimal.Decimal) (*BudgetLedger, error) {
	if !monthly.IsPositive() {
		return nil, fmt.Errorf("budget: monthly budget %s must be positive", monthly)
	}
	if initialSpend.IsNegative() {
		return nil, fmt.Errorf("budget: initial spend %s must not be negative", initialSpend)
	}
	return &BudgetLedger{monthly: monthly, spend: initialSpend}, nil
}

// Approves is the admission policy: a cost is admitted only if it is
// strictly below fraction of the remaining budget.
func Approves(cost, remaining, fraction decimal.Decimal) bool {
	return cost.LessThan(remaining.Mul(fraction))
}

// TryCommit adds cost to the spend if Approves holds for the current state.
func (b *BudgetLedger) TryCommit(cost, fraction decimal.Decimal) (bool, error) {
	if cost.IsNegative() {
		return false, fmt.Errorf("%w: cost %s must not be negative", model.ErrInvalidQuantity, cost)
	}
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return false, fmt.Errorf("%w: reservation fraction %s outside (0, 1]", model.ErrInvalidQuantity, fraction)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !Approves(cost, b.monthly.Sub(b.spend), fraction) {
		return false, nil
	}
	b.spend = b.spend.Add(cost)
	return true, nil
}

// rollback reverses a commit made earlier in the same admission
// transaction. It is not a refund path for allocations already recorded.
func (b *BudgetLedger) rollback(cost decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cost.GreaterThan(b.spend) {
		return fmt.Errorf("%w: rollback of %s exceeds spend %s", model.ErrInvariantViolation, cost, b.spend)
	}
	b.spend = b.spend.Sub(cost)
	return nil
}

// Remaining returns monthly budget minus current spend.
func (b *BudgetLedger) Remaining() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.monthly.Sub(b.spend)
}

func (b *BudgetLedger) State() model.BudgetState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return model.BudgetState{MonthlyBudget: b.monthly, CurrentSpend: b.spend}
}
