package model

import "time"

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category is a globally defined category shared by all users.
type Category struct {
	CreatedAt time.Time    `json:"created_at"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Icon      string       `json:"icon,omitempty"`
	Color     string       `json:"color,omitempty"`
	ID        int          `json:"id"`
	SortOrder int          `json:"sort_order"`
	IsDefault bool         `json:"is_default"`
	IsActive  bool         `json:"is_active"`
}

// UserCategory links a user to a category, optionally under a custom name.
type UserCategory struct {
	CreatedAt  time.Time `json:"created_at"`
	UserID     string    `json:"user_id"`
	CustomName string    `json:"custom_name,omitempty"`
	Category   Category  `json:"category"`
	ID         int       `json:"id"`
	CategoryID int       `json:"category_id"`
	IsActive   bool      `json:"is_active"`
}

// DisplayName is the custom name when set, otherwise the category name.
func (uc UserCategory) DisplayName() string {
	if uc.CustomName != "" {
		return uc.CustomName
	}
	return uc.Category.Name
}

// DefaultCategories are seeded on first migration and linked to every new user.
var DefaultCategories = []Category{
	{Name: "Ăn uống", Type: CategoryTypeExpense, Icon: "🍜", Color: "#FF6B6B", SortOrder: 1},
	{Name: "Di chuyển", Type: CategoryTypeExpense, Icon: "🚗", Color: "#4ECDC4", SortOrder: 2},
	{Name: "Giải trí", Type: CategoryTypeExpense, Icon: "🎬", Color: "#45B7D1", SortOrder: 3},
	{Name: "Mua sắm", Type: CategoryTypeExpense, Icon: "🛍️", Color: "#96CEB4", SortOrder: 4},
	{Name: "Y tế", Type: CategoryTypeExpense, Icon: "🏥", Color: "#FFEAA7", SortOrder: 5},
	{Name: "Giáo dục", Type: CategoryTypeExpense, Icon: "📚", Color: "#DDA0DD", SortOrder: 6},
	{Name: "Hóa đơn", Type: CategoryTypeExpense, Icon: "🧾", Color: "#F0A500", SortOrder: 7},
	{Name: "Khác", Type: CategoryTypeExpense, Icon: "📦", Color: "#B0B0B0", SortOrder: 8},
	{Name: "Lương", Type: CategoryTypeIncome, Icon: "💼", Color: "#2ECC71", SortOrder: 9},
	{Name: "Thưởng", Type: CategoryTypeIncome, Icon: "🎁", Color: "#27AE60", SortOrder: 10},
	{Name: "Đầu tư", Type: CategoryTypeIncome, Icon: "📈", Color: "#16A085", SortOrder: 11},
	{Name: "Thu nhập khác", Type: CategoryTypeIncome, Icon: "💰", Color: "#1ABC9C", SortOrder: 12},
}
