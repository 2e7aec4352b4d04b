package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
)

const categoryColumns = `id, name, type, icon, color, sort_order, is_default, is_active, created_at`

// GetCategories returns active global categories, optionally of one type.
func (s *SQLiteStorage) GetCategories(ctx context.Context, categoryType model.CategoryType) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = 1`
	var args []any
	if categoryType != "" {
		query += ` AND type = ?`
		args = append(args, categoryType)
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.SortOrder,
			&c.IsDefault, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a global category by its ID.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var c model.Category
	err := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.SortOrder, &c.IsDefault, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrCategoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

const userCategoryQuery = `
	SELECT uc.id, uc.user_id, uc.category_id, uc.custom_name, uc.is_active, uc.created_at,
		c.id, c.name, c.type, c.icon, c.color, c.sort_order, c.is_default, c.is_active, c.created_at
	FROM user_categories uc
	JOIN categories c ON c.id = uc.category_id`

func scanUserCategory(scanner interface{ Scan(...any) error }) (model.UserCategory, error) {
	var uc model.UserCategory
	c := &uc.Category
	err := scanner.Scan(&uc.ID, &uc.UserID, &uc.CategoryID, &uc.CustomName, &uc.IsActive, &uc.CreatedAt,
		&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.SortOrder, &c.IsDefault, &c.IsActive, &c.CreatedAt)
	return uc, err
}

// GetUserCategories returns the active categories linked to a user.
func (s *SQLiteStorage) GetUserCategories(ctx context.Context, userID string) ([]model.UserCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, userCategoryQuery+`
		WHERE uc.user_id = ? AND uc.is_active = 1
		ORDER BY c.sort_order, uc.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.UserCategory
	for rows.Next() {
		uc, err := scanUserCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user category: %w", err)
		}
		result = append(result, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user categories: %w", err)
	}
	return result, nil
}

// GetUserCategory returns one of a user's categories.
func (s *SQLiteStorage) GetUserCategory(ctx context.Context, userID string, id int) (*model.UserCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	uc, err := scanUserCategory(s.db.QueryRowContext(ctx, userCategoryQuery+`
		WHERE uc.user_id = ? AND uc.id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user category %d: %w", id, common.ErrCategoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user category: %w", err)
	}
	return &uc, nil
}

// ResolveUserCategory finds the user's active category whose display name
// matches displayName, ignoring case. Custom names take precedence over
// global names.
func (s *SQLiteStorage) ResolveUserCategory(ctx context.Context, userID, displayName string) (*model.UserCategory, error) {
	if err := validateString(displayName, "displayName"); err != nil {
		return nil, err
	}

	cats, err := s.GetUserCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(displayName)
	var fallback *model.UserCategory
	for i := range cats {
		uc := &cats[i]
		if uc.CustomName != "" && strings.EqualFold(uc.CustomName, name) {
			return uc, nil
		}
		if fallback == nil && strings.EqualFold(uc.Category.Name, name) {
			fallback = uc
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("%q: %w", displayName, common.ErrCategoryNotFound)
}

// CreateUserCategory links a global category to a user under an optional custom name.
func (s *SQLiteStorage) CreateUserCategory(ctx context.Context, userID string, categoryID int, customName string) (*model.UserCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if _, err := s.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO user_categories (user_id, category_id, custom_name, is_active)
		VALUES (?, ?, ?, 1)`, userID, categoryID, strings.TrimSpace(customName))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: category already linked", common.ErrDuplicateEntry)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user category ID: %w", err)
	}
	return s.GetUserCategory(ctx, userID, int(id))
}

// UpdateUserCategory renames or (de)activates one of a user's categories.
func (s *SQLiteStorage) UpdateUserCategory(ctx context.Context, userID string, id int, customName string, isActive bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_categories SET custom_name = ?, is_active = ?
		WHERE user_id = ? AND id = ?`, strings.TrimSpace(customName), isActive, userID, id)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: category name already in use", common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to update user category: %w", err)
	}
	return requireAffected(result, "user category")
}

// LinkDefaultCategories gives a user every active default category.
func (s *SQLiteStorage) LinkDefaultCategories(ctx context.Context, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_categories (user_id, category_id)
		SELECT ?, id FROM categories WHERE is_default = 1 AND is_active = 1`, userID)
	if err != nil {
		return fmt.Errorf("failed to link default categories: %w", err)
	}
	return nil
}
