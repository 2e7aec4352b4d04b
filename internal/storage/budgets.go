package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const budgetColumns = `id, user_id, user_category_id, name, budget_type, amount, period_start,
	period_end, alert_threshold, is_active, created_at, updated_at`

func scanBudget(scanner interface{ Scan(...any) error }) (model.Budget, error) {
	var (
		b   model.Budget
		cat sql.NullInt64
	)
	err := scanner.Scan(&b.ID, &b.UserID, &cat, &b.Name, &b.Type, &b.Amount, &b.PeriodStart,
		&b.PeriodEnd, &b.AlertThreshold, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if cat.Valid {
		id := int(cat.Int64)
		b.UserCategoryID = &id
	}
	return b, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateBudget inserts a budget. A zero alert threshold is replaced with the default.
func (s *SQLiteStorage) CreateBudget(ctx context.Context, b *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if b != nil && b.AlertThreshold == 0 {
		b.AlertThreshold = model.DefaultAlertThreshold
	}
	if err := validateBudget(b); err != nil {
		return err
	}
	if b.UserCategoryID != nil {
		if _, err := s.GetUserCategory(ctx, b.UserID, *b.UserCategoryID); err != nil {
			return err
		}
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.IsActive = true
	b.PeriodStart = dbTime(b.PeriodStart)
	b.PeriodEnd = dbTime(b.PeriodEnd)
	b.CreatedAt = dbTime(s.now())
	b.UpdatedAt = b.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		b.ID, b.UserID, nullableInt(b.UserCategoryID), b.Name, b.Type, b.Amount.String(),
		b.PeriodStart, b.PeriodEnd, b.AlertThreshold, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create budget: %w", err)
	}
	return nil
}

// GetBudget returns one of a user's budgets.
func (s *SQLiteStorage) GetBudget(ctx context.Context, userID, id string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	b, err := scanBudget(s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &b, nil
}

// ListBudgets returns a user's budgets ordered by period start, newest first.
func (s *SQLiteStorage) ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY period_start DESC, name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return result, nil
}

// UpdateBudget applies the non-nil fields of update.
func (s *SQLiteStorage) UpdateBudget(ctx context.Context, userID, id string, update service.BudgetUpdate) (*model.Budget, error) {
	b, err := s.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		b.Name = *update.Name
	}
	if update.Amount != nil {
		b.Amount = *update.Amount
	}
	if update.PeriodStart != nil {
		b.PeriodStart = dbTime(*update.PeriodStart)
	}
	if update.PeriodEnd != nil {
		b.PeriodEnd = dbTime(*update.PeriodEnd)
	}
	if update.AlertThreshold != nil {
		b.AlertThreshold = *update.AlertThreshold
	}
	if update.IsActive != nil {
		b.IsActive = *update.IsActive
	}
	if err := validateBudget(b); err != nil {
		return nil, err
	}

	b.UpdatedAt = dbTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		UPDATE budgets SET name = ?, amount = ?, period_start = ?, period_end = ?,
			alert_threshold = ?, is_active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		b.Name, b.Amount.String(), b.PeriodStart, b.PeriodEnd, b.AlertThreshold, b.IsActive,
		b.UpdatedAt, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}
	return b, nil
}

// DeleteBudget removes one of a user's budgets.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return requireAffected(result, "budget")
}

// GetBudgetSpent sums the expense transactions that fall inside the budget's
// period and, when set, its category.
func (s *SQLiteStorage) GetBudgetSpent(ctx context.Context, b model.Budget) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}

	query := `SELECT amount FROM transactions
		WHERE user_id = ? AND type = 'expense' AND transaction_date >= ? AND transaction_date <= ?`
	args := []any{b.UserID, dbTime(b.PeriodStart), dbTime(b.PeriodEnd)}
	if b.UserCategoryID != nil {
		query += ` AND user_category_id = ?`
		args = append(args, *b.UserCategoryID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query budget spending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	spent := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		spent = spent.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating budget spending: %w", err)
	}
	return spent, nil
}
