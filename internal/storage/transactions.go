package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

const transactionQuery = `
	SELECT t.id, t.user_id, t.user_category_id, COALESCE(NULLIF(uc.custom_name, ''), c.name),
		t.type, t.amount, t.description, t.transaction_date, t.payment_method, t.location,
		t.notes, t.created_by, t.created_at, t.updated_at
	FROM transactions t
	JOIN user_categories uc ON uc.id = t.user_category_id
	JOIN categories c ON c.id = uc.category_id`

func scanTransaction(scanner interface{ Scan(...any) error }) (model.Transaction, error) {
	var t model.Transaction
	err := scanner.Scan(&t.ID, &t.UserID, &t.UserCategoryID, &t.CategoryName,
		&t.Type, &t.Amount, &t.Description, &t.Date, &t.PaymentMethod, &t.Location,
		&t.Notes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTransaction inserts a transaction. The user category must belong to the user.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	uc, err := s.GetUserCategory(ctx, txn.UserID, txn.UserCategoryID)
	if err != nil {
		return err
	}

	now := s.now()
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedBy == "" {
		txn.CreatedBy = model.CreatedByManual
	}
	txn.Date = dbTime(txn.Date)
	txn.CreatedAt = dbTime(now)
	txn.UpdatedAt = txn.CreatedAt
	txn.CategoryName = uc.DisplayName()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, user_category_id, type, amount, description, transaction_date,
			payment_method, location, notes, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.UserCategoryID, txn.Type, txn.Amount.String(), txn.Description,
		txn.Date, txn.PaymentMethod, txn.Location, txn.Notes, txn.CreatedBy, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction returns one of a user's transactions.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	t, err := scanTransaction(s.db.QueryRowContext(ctx, transactionQuery+`
		WHERE t.user_id = ? AND t.id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// ListTransactions returns a user's transactions, newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, ErrInvalidDateRange
	}

	where := []string{"t.user_id = ?"}
	args := []any{userID}

	if filter.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, filter.Type)
	}
	if filter.UserCategoryID > 0 {
		where = append(where, "t.user_category_id = ?")
		args = append(args, filter.UserCategoryID)
	}
	if filter.StartDate != nil {
		where = append(where, "t.transaction_date >= ?")
		args = append(args, dbTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "t.transaction_date <= ?")
		args = append(args, dbTime(*filter.EndDate))
	}
	if filter.MinAmount != nil {
		where = append(where, "CAST(t.amount AS REAL) >= ?")
		args = append(args, filter.MinAmount.InexactFloat64())
	}
	if filter.MaxAmount != nil {
		where = append(where, "CAST(t.amount AS REAL) <= ?")
		args = append(args, filter.MaxAmount.InexactFloat64())
	}
	if filter.PaymentMethod != "" {
		where = append(where, "t.payment_method = ?")
		args = append(args, filter.PaymentMethod)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit, max(filter.Offset, 0))

	query := transactionQuery + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY t.transaction_date DESC, t.created_at DESC LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return result, nil
}

// UpdateTransaction applies the non-nil fields of update.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, userID, id string, update service.TransactionUpdate) (*model.Transaction, error) {
	existing, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Date != nil {
		existing.Date = dbTime(*update.Date)
	}
	if update.Amount != nil {
		existing.Amount = *update.Amount
	}
	if update.Type != nil {
		existing.Type = *update.Type
	}
	if update.Description != nil {
		existing.Description = *update.Description
	}
	if update.PaymentMethod != nil {
		existing.PaymentMethod = *update.PaymentMethod
	}
	if update.Location != nil {
		existing.Location = *update.Location
	}
	if update.Notes != nil {
		existing.Notes = *update.Notes
	}
	if update.UserCategoryID != nil {
		if _, err := s.GetUserCategory(ctx, userID, *update.UserCategoryID); err != nil {
			return nil, err
		}
		existing.UserCategoryID = *update.UserCategoryID
	}
	if err := validateTransaction(existing); err != nil {
		return nil, err
	}

	existing.UpdatedAt = dbTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		UPDATE transactions SET
			user_category_id = ?, type = ?, amount = ?, description = ?, transaction_date = ?,
			payment_method = ?, location = ?, notes = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		existing.UserCategoryID, existing.Type, existing.Amount.String(), existing.Description,
		existing.Date, existing.PaymentMethod, existing.Location, existing.Notes, existing.UpdatedAt,
		userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return s.GetTransaction(ctx, userID, id)
}

// DeleteTransaction removes one of a user's transactions.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireAffected(result, "transaction")
}

func summaryWhere(userID string, filter service.SummaryFilter) (string, []any) {
	where := []string{"t.user_id = ?"}
	args := []any{userID}
	if filter.From != nil {
		where = append(where, "t.transaction_date >= ?")
		args = append(args, dbTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "t.transaction_date <= ?")
		args = append(args, dbTime(*filter.To))
	}
	return strings.Join(where, " AND "), args
}

// GetTransactionSummary totals a user's income and expense within the filter.
// Amounts are summed as decimals so the net is exact.
func (s *SQLiteStorage) GetTransactionSummary(ctx context.Context, userID string, filter service.SummaryFilter) (model.TransactionSummary, error) {
	if err := validateContext(ctx); err != nil {
		return model.TransactionSummary{}, err
	}

	where, args := summaryWhere(userID, filter)
	rows, err := s.db.QueryContext(ctx, `SELECT t.type, t.amount FROM transactions t WHERE `+where, args...)
	if err != nil {
		return model.TransactionSummary{}, fmt.Errorf("failed to query summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	income, expense := decimal.Zero, decimal.Zero
	count := 0
	for rows.Next() {
		var (
			kind   model.TransactionType
			amount decimal.Decimal
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return model.TransactionSummary{}, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if kind == model.TransactionIncome {
			income = income.Add(amount)
		} else {
			expense = expense.Add(amount)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return model.TransactionSummary{}, fmt.Errorf("error iterating summary: %w", err)
	}

	return model.NewTransactionSummary(income, expense, count), nil
}

// GetCategoryTotals groups a user's transactions by category display name and type,
// largest totals first.
func (s *SQLiteStorage) GetCategoryTotals(ctx context.Context, userID string, filter service.SummaryFilter) ([]model.CategoryTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := summaryWhere(userID, filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(uc.custom_name, ''), c.name), t.type, t.amount
		FROM transactions t
		JOIN user_categories uc ON uc.id = t.user_category_id
		JOIN categories c ON c.id = uc.category_id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type key struct {
		name string
		kind model.TransactionType
	}
	totals := make(map[key]*model.CategoryTotal)
	for rows.Next() {
		var (
			k      key
			amount decimal.Decimal
		)
		if err := rows.Scan(&k.name, &k.kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		ct, ok := totals[k]
		if !ok {
			ct = &model.CategoryTotal{CategoryName: k.name, Type: k.kind, Total: decimal.Zero}
			totals[k] = ct
		}
		ct.Total = ct.Total.Add(amount)
		ct.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	result := make([]model.CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		result = append(result, *ct)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Total.Cmp(result[j].Total); c != 0 {
			return c > 0
		}
		return result[i].CategoryName < result[j].CategoryName
	})
	return result, nil
}
