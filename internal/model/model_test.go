package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionSummary(t *testing.T) {
	income := decimal.RequireFromString("15000000.10")
	expense := decimal.RequireFromString("3250000.30")

	s := NewTransactionSummary(income, expense, 4)
	assert.True(t, s.NetAmount.Equal(decimal.RequireFromString("11749999.80")))
	assert.True(t, s.NetAmount.Equal(s.TotalIncome.Sub(s.TotalExpense)))
	assert.Equal(t, 4, s.TransactionCount)
}

func TestExpenseRatio(t *testing.T) {
	s := NewTransactionSummary(decimal.NewFromInt(200), decimal.NewFromInt(50), 2)
	assert.Equal(t, "25", s.ExpenseRatio().String())

	none := NewTransactionSummary(decimal.Zero, decimal.NewFromInt(50), 1)
	assert.True(t, none.ExpenseRatio().IsZero())
}

func TestBudgetSummarize(t *testing.T) {
	b := Budget{Amount: decimal.NewFromInt(1000), AlertThreshold: DefaultAlertThreshold}

	tests := []struct {
		name      string
		spent     int64
		remaining string
		status    AlertStatus
	}{
		{name: "under threshold", spent: 500, remaining: "500", status: AlertOK},
		{name: "at threshold", spent: 800, remaining: "200", status: AlertNearing},
		{name: "exactly spent", spent: 1000, remaining: "0", status: AlertNearing},
		{name: "over budget", spent: 1200, remaining: "-200", status: AlertExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := b.Summarize(decimal.NewFromInt(tt.spent))
			assert.Equal(t, tt.remaining, s.Remaining.String())
			assert.Equal(t, tt.status, s.Status)
		})
	}
}

func TestEntitiesJSONOmitsAbsentKeys(t *testing.T) {
	amount := decimal.NewFromInt(50000)
	e := Entities{Amount: &amount, Category: "Ăn uống"}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "amount")
	assert.Contains(t, raw, "category")
	assert.NotContains(t, raw, "transaction_type")
	assert.NotContains(t, raw, "date")

	assert.True(t, Entities{}.IsEmpty())
	assert.False(t, e.IsEmpty())
}

func TestUserCategoryDisplayName(t *testing.T) {
	uc := UserCategory{Category: Category{Name: "Ăn uống"}}
	assert.Equal(t, "Ăn uống", uc.DisplayName())

	uc.CustomName = "Cà phê"
	assert.Equal(t, "Cà phê", uc.DisplayName())
}
