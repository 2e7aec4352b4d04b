// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spicebot/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
	Type           model.TransactionType
	PaymentMethod  string
	UserCategoryID int
	Limit          int
	Offset         int
}

// SummaryFilter bounds a summary query. Nil bounds are open.
type SummaryFilter struct {
	From *time.Time
	To   *time.Time
}

// SessionSort orders session listings.
type SessionSort string

// Session orderings.
const (
	SortStartedAt    SessionSort = "started_at"
	SortMessageCount SessionSort = "message_count"
)

// SessionFilter defines filtering options for chat session listings.
type SessionFilter struct {
	IsActive *bool
	Search   string
	SortBy   SessionSort
	Limit    int
	Offset   int
	Desc     bool
}

// TransactionUpdate carries the mutable fields of a transaction. Nil fields are unchanged.
type TransactionUpdate struct {
	Date           *time.Time
	Amount         *decimal.Decimal
	Type           *model.TransactionType
	Description    *string
	PaymentMethod  *string
	Location       *string
	Notes          *string
	UserCategoryID *int
}

// BudgetUpdate carries the mutable fields of a budget. Nil fields are unchanged.
type BudgetUpdate struct {
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	Amount         *decimal.Decimal
	Name           *string
	AlertThreshold *int
	IsActive       *bool
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

// CategoryStore persists global and per-user categories.
type CategoryStore interface {
	GetCategories(ctx context.Context, categoryType model.CategoryType) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetUserCategories(ctx context.Context, userID string) ([]model.UserCategory, error)
	GetUserCategory(ctx context.Context, userID string, id int) (*model.UserCategory, error)
	ResolveUserCategory(ctx context.Context, userID, displayName string) (*model.UserCategory, error)
	CreateUserCategory(ctx context.Context, userID string, categoryID int, customName string) (*model.UserCategory, error)
	UpdateUserCategory(ctx context.Context, userID string, id int, customName string, isActive bool) error
	LinkDefaultCategories(ctx context.Context, userID string) error
}

// TransactionStore persists transactions and aggregates them.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, update TransactionUpdate) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	GetTransactionSummary(ctx context.Context, userID string, filter SummaryFilter) (model.TransactionSummary, error)
	GetCategoryTotals(ctx context.Context, userID string, filter SummaryFilter) ([]model.CategoryTotal, error)
}

// BudgetStore persists budgets and computes spending against them.
type BudgetStore interface {
	CreateBudget(ctx context.Context, budget *model.Budget) error
	GetBudget(ctx context.Context, userID, id string) (*model.Budget, error)
	ListBudgets(ctx context.Context, userID string, activeOnly bool) ([]model.Budget, error)
	UpdateBudget(ctx context.Context, userID, id string, update BudgetUpdate) (*model.Budget, error)
	DeleteBudget(ctx context.Context, userID, id string) error
	GetBudgetSpent(ctx context.Context, budget model.Budget) (decimal.Decimal, error)
}

// ChatStore persists chat sessions and messages.
type ChatStore interface {
	CreateChatSession(ctx context.Context, session *model.ChatSession) error
	GetChatSession(ctx context.Context, userID, id string) (*model.ChatSession, error)
	ListChatSessions(ctx context.Context, userID string, filter SessionFilter) ([]model.ChatSession, error)
	RenameChatSession(ctx context.Context, userID, id, name string) error
	EndChatSession(ctx context.Context, userID, id string, at time.Time) error
	DeleteChatSession(ctx context.Context, userID, id string) error
	AppendChatMessage(ctx context.Context, msg *model.ChatMessage) error
	GetChatMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error)
	GetChatAnalytics(ctx context.Context, userID string, since time.Time) (*model.ChatAnalytics, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	UserStore
	CategoryStore
	TransactionStore
	BudgetStore
	ChatStore

	// Database management
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
