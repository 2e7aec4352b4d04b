// Package testutil provides test helpers for spicebot packages that need a
// migrated database with users, categories and transactions.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database with the default
// categories seeded. It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	user := db.CreateUser("lan@example.com")
//	db.AddTransaction(user.ID, "Ăn uống", model.TransactionExpense, "50000", time.Now())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// CreateUser registers a user linked to the default categories.
func (db *TestDB) CreateUser(email string) *model.User {
	db.t.Helper()
	ctx := context.Background()

	user := &model.User{Email: email, FullName: "Test User", PasswordHash: "not-a-real-hash"}
	if err := db.Storage.CreateUser(ctx, user); err != nil {
		db.t.Fatalf("failed to create user %q: %v", email, err)
	}
	if err := db.Storage.LinkDefaultCategories(ctx, user.ID); err != nil {
		db.t.Fatalf("failed to link categories for %q: %v", email, err)
	}
	return user
}

// MustGetCategory returns the user's category with the given display name or fails the test.
func (db *TestDB) MustGetCategory(userID, name string) *model.UserCategory {
	db.t.Helper()
	uc, err := db.Storage.ResolveUserCategory(context.Background(), userID, name)
	if err != nil {
		db.t.Fatalf("category %q not found: %v", name, err)
	}
	return uc
}

// AddTransaction stores a transaction in the named category.
func (db *TestDB) AddTransaction(userID, category string, kind model.TransactionType, amount string, date time.Time) *model.Transaction {
	db.t.Helper()

	txn := &model.Transaction{
		UserID:         userID,
		UserCategoryID: db.MustGetCategory(userID, category).ID,
		Type:           kind,
		Amount:         decimal.RequireFromString(amount),
		Date:           date,
	}
	if err := db.Storage.CreateTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to create transaction: %v", err)
	}
	return txn
}
