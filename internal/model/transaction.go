package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is either income or expense.
type TransactionType = CategoryType

// Transaction types.
const (
	TransactionIncome  = CategoryTypeIncome
	TransactionExpense = CategoryTypeExpense
)

// CreatedBy records which surface created a transaction.
type CreatedBy string

const (
	// CreatedByManual marks transactions entered through the API.
	CreatedByManual CreatedBy = "manual"
	// CreatedByChatbot marks transactions created from a chat message.
	CreatedByChatbot CreatedBy = "chatbot"
)

// DefaultPaymentMethod is used when a payment method is not provided.
const DefaultPaymentMethod = "Khác"

// Transaction is a single income or expense entry owned by a user.
type Transaction struct {
	Date           time.Time       `json:"transaction_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Amount         decimal.Decimal `json:"amount"`
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	CategoryName   string          `json:"category_name"`
	Type           TransactionType `json:"type"`
	Description    string          `json:"description,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	Location       string          `json:"location,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      CreatedBy       `json:"created_by"`
	UserCategoryID int             `json:"user_category_id"`
}

// TransactionSummary aggregates income and expense totals.
type TransactionSummary struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`
}

// NewTransactionSummary builds a summary whose net is exactly income minus expense.
func NewTransactionSummary(income, expense decimal.Decimal, count int) TransactionSummary {
	return TransactionSummary{
		TotalIncome:      income,
		TotalExpense:     expense,
		NetAmount:        income.Sub(expense),
		TransactionCount: count,
	}
}

// ExpenseRatio is expense as a percentage of income, or zero without income.
func (s TransactionSummary) ExpenseRatio() decimal.Decimal {
	if !s.TotalIncome.IsPositive() {
		return decimal.Zero
	}
	return s.TotalExpense.Div(s.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
}

// CategoryTotal is the sum of transactions for one category and type.
type CategoryTotal struct {
	Total        decimal.Decimal `json:"total"`
	CategoryName string          `json:"category_name"`
	Type         TransactionType `json:"type"`
	Count        int             `json:"count"`
}
