package quota

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpucost/gpucost/pkg/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBudget_TryCommitWithinFraction(t *testing.T) {
	b, err := NewBudgetLedger(dec("10000"), dec("2453.67"))
	require.NoError(t, err)

	ok, err := b.TryCommit(dec("10.52"), dec("0.10"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, dec("2464.19").Equal(b.State().CurrentSpend))
	assert.True(t, dec("7535.81").Equal(b.Remaining()))
}

func TestBudget_TryCommitRejectsAtOrAboveCap(t *testing.T) {
	b, err := NewBudgetLedger(dec("1000"), dec("0"))
	require.NoError(t, err)

	ok, err := b.TryCommit(dec("100"), dec("0.10"))
	require.NoError(t, err)
	assert.False(t, ok, "cost equal to the cap is rejected")
	assert.True(t, b.State().CurrentSpend.IsZero())

	ok, err = b.TryCommit(dec("99.99"), dec("0.10"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBudget_TryCommitValidatesInputs(t *testing.T) {
	b, err := NewBudgetLedger(dec("1000"), dec("0"))
	require.NoError(t, err)

	_, err = b.TryCommit(dec("-1"), dec("0.10"))
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)

	_, err = b.TryCommit(dec("1"), dec("0"))
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)

	_, err = b.TryCommit(dec("1"), dec("1.5"))
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestBudget_SpendNeverExceedsMonthly(t *testing.T) {
	b, err := NewBudgetLedger(dec("500"), dec("0"))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		_, err := b.TryCommit(dec("7.5"), dec("0.5"))
		require.NoError(t, err)
	}
	assert.True(t, b.State().CurrentSpend.LessThanOrEqual(dec("500")))
}

func TestNewBudgetLedger_Validation(t *testing.T) {
	_, err := NewBudgetLedger(dec("0"), dec("0"))
	assert.Error(t, err)

	_, err = NewBudgetLedger(dec("10"), dec("-1"))
	assert.Error(t, err)
}

func TestBudget_Rollback(t *testing.T) {
	b, err := NewBudgetLedger(dec("1000"), dec("10"))
	require.NoError(t, err)

	require.NoError(t, b.rollback(dec("4")))
	assert.True(t, dec("6").Equal(b.State().CurrentSpend))
	assert.ErrorIs(t, b.rollback(dec("7")), model.ErrInvariantViolation)
}
