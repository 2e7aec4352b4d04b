package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetType is the budgeting period.
type BudgetType string

// Budget periods.
const (
	BudgetMonthly BudgetType = "monthly"
	BudgetWeekly  BudgetType = "weekly"
	BudgetYearly  BudgetType = "yearly"
)

// Valid reports whether t is a known budget period.
func (t BudgetType) Valid() bool {
	switch t {
	case BudgetMonthly, BudgetWeekly, BudgetYearly:
		return true
	}
	return false
}

// DefaultAlertThreshold is the percentage of a budget at which an alert fires.
const DefaultAlertThreshold = 80

// Budget caps spending over a period, optionally within one user category.
type Budget struct {
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Amount         decimal.Decimal `json:"amount"`
	UserCategoryID *int            `json:"user_category_id,omitempty"`
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Type           BudgetType      `json:"budget_type"`
	AlertThreshold int             `json:"alert_threshold"`
	IsActive       bool            `json:"is_active"`
}

// AlertStatus describes how close spending is to the budget.
type AlertStatus string

// Alert statuses.
const (
	AlertOK       AlertStatus = "ok"
	AlertNearing  AlertStatus = "near_limit"
	AlertExceeded AlertStatus = "exceeded"
)

// BudgetSummary reports spending against a budget.
type BudgetSummary struct {
	Budget         Budget          `json:"budget"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
	Status         AlertStatus     `json:"status"`
}

// Summarize computes remaining amount, percentage used and alert status.
func (b Budget) Summarize(spent decimal.Decimal) BudgetSummary {
	s := BudgetSummary{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
		Status:    AlertOK,
	}
	if b.Amount.IsPositive() {
		s.PercentageUsed = spent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Round(2)
	}

	switch {
	case spent.GreaterThan(b.Amount):
		s.Status = AlertExceeded
	case s.PercentageUsed.GreaterThanOrEqual(decimal.NewFromInt(int64(b.AlertThreshold))):
		s.Status = AlertNearing
	}
	return s
}

// BudgetOverview aggregates every active budget of a user.
type BudgetOverview struct {
	Budgets       []BudgetSummary `json:"budgets"`
	TotalBudgeted decimal.Decimal `json:"total_budgeted"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	OverBudget    int             `json:"over_budget"`
	NearLimit     int             `json:"near_limit"`
}
