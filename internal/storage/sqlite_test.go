package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err, "failed to create storage")
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()), "failed to migrate")
	return store
}

func createTestUser(t *testing.T, store *SQLiteStorage, email string) *model.User {
	t.Helper()
	ctx := context.Background()
	u := &model.User{Email: email, FullName: "Test User", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(ctx, u))
	require.NoError(t, store.LinkDefaultCategories(ctx, u.ID))
	return u
}

func mustCategory(t *testing.T, store *SQLiteStorage, userID, name string) *model.UserCategory {
	t.Helper()
	uc, err := store.ResolveUserCategory(context.Background(), userID, name)
	require.NoError(t, err)
	return uc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	cats, err := store.GetCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cats, len(model.DefaultCategories))
	assert.Equal(t, "Ăn uống", cats[0].Name)
	assert.True(t, cats[0].IsDefault)

	expense, err := store.GetCategories(ctx, model.CategoryTypeExpense)
	require.NoError(t, err)
	assert.Len(t, expense, 8)

	income, err := store.GetCategories(ctx, model.CategoryTypeIncome)
	require.NoError(t, err)
	assert.Len(t, income, 4)
}

func TestInMemoryStorage(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	u := createTestUser(t, store, "Lan@Example.com")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "lan@example.com", u.Email)

	got, err := store.GetUserByEmail(ctx, "LAN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastLogin)

	err = store.CreateUser(ctx, &model.User{Email: "lan@example.com", FullName: "Dup", PasswordHash: "x"})
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.UpdatePassword(ctx, u.ID, "new-hash"))
	login := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, store.TouchLastLogin(ctx, u.ID, login))

	got, err = store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	require.NotNil(t, got.LastLogin)
	assert.True(t, login.Equal(*got.LastLogin))

	assert.ErrorIs(t, store.UpdatePassword(ctx, "missing", "x"), common.ErrNotFound)
}

func TestUserCategories(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, store, "cat@example.com")

	cats, err := store.GetUserCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cats, len(model.DefaultCategories))

	// Linking twice is harmless.
	require.NoError(t, store.LinkDefaultCategories(ctx, u.ID))
	cats, err = store.GetUserCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cats, len(model.DefaultCategories))

	food := mustCategory(t, store, u.ID, "ăn uống")
	assert.Equal(t, "Ăn uống", food.DisplayName())

	_, err = store.ResolveUserCategory(ctx, u.ID, "Du lịch")
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)

	_, err = store.CreateUserCategory(ctx, u.ID, food.CategoryID, "")
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	coffee, err := store.CreateUserCategory(ctx, u.ID, food.CategoryID, "Cà phê")
	require.NoError(t, err)
	assert.Equal(t, "Cà phê", coffee.DisplayName())
	assert.Equal(t, "Ăn uống", coffee.Category.Name)

	resolved := mustCategory(t, store, u.ID, "CÀ PHÊ")
	assert.Equal(t, coffee.ID, resolved.ID)

	_, err = store.CreateUserCategory(ctx, u.ID, 9999, "")
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)

	require.NoError(t, store.UpdateUserCategory(ctx, u.ID, coffee.ID, "Cà phê sáng", false))
	_, err = store.ResolveUserCategory(ctx, u.ID, "Cà phê sáng")
	assert.ErrorIs(t, err, common.ErrCategoryNotFound, "inactive categories are not resolvable")

	other := createTestUser(t, store, "other@example.com")
	_, err = store.GetUserCategory(ctx, other.ID, coffee.ID)
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)
}

func TestTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, store, "txn@example.com")
	food := mustCategory(t, store, u.ID, "Ăn uống")
	salary := mustCategory(t, store, u.ID, "Lương")

	lunch := &model.Transaction{
		UserID:         u.ID,
		UserCategoryID: food.ID,
		Type:           model.TransactionExpense,
		Amount:         decimal.RequireFromString("50000"),
		Date:           day(2024, 5, 10),
		PaymentMethod:  "Tiền mặt",
	}
	require.NoError(t, store.CreateTransaction(ctx, lunch))
	assert.NotEmpty(t, lunch.ID)
	assert.Equal(t, "Ăn uống", lunch.CategoryName)
	assert.Equal(t, model.CreatedByManual, lunch.CreatedBy)

	pay := &model.Transaction{
		UserID:         u.ID,
		UserCategoryID: salary.ID,
		Type:           model.TransactionIncome,
		Amount:         decimal.RequireFromString("15000000.10"),
		Date:           day(2024, 5, 1),
		CreatedBy:      model.CreatedByChatbot,
	}
	require.NoError(t, store.CreateTransaction(ctx, pay))

	dinner := &model.Transaction{
		UserID:         u.ID,
		UserCategoryID: food.ID,
		Type:           model.TransactionExpense,
		Amount:         decimal.RequireFromString("120000.30"),
		Date:           day(2024, 6, 2),
	}
	require.NoError(t, store.CreateTransaction(ctx, dinner))

	t.Run("rejects invalid input", func(t *testing.T) {
		bad := *lunch
		bad.ID = ""
		bad.Amount = decimal.Zero
		assert.ErrorIs(t, store.CreateTransaction(ctx, &bad), ErrInvalidTransaction)

		other := createTestUser(t, store, "intruder@example.com")
		stolen := *lunch
		stolen.ID = ""
		stolen.UserID = other.ID
		assert.ErrorIs(t, store.CreateTransaction(ctx, &stolen), common.ErrCategoryNotFound)
	})

	t.Run("get and list", func(t *testing.T) {
		got, err := store.GetTransaction(ctx, u.ID, lunch.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(lunch.Amount))
		assert.Equal(t, "Tiền mặt", got.PaymentMethod)
		assert.True(t, got.Date.Equal(day(2024, 5, 10)))

		all, err := store.ListTransactions(ctx, u.ID, service.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, dinner.ID, all[0].ID, "newest first")

		start, end := day(2024, 5, 1), day(2024, 5, 31)
		may, err := store.ListTransactions(ctx, u.ID, service.TransactionFilter{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		assert.Len(t, may, 2)

		expenses, err := store.ListTransactions(ctx, u.ID, service.TransactionFilter{Type: model.TransactionExpense})
		require.NoError(t, err)
		assert.Len(t, expenses, 2)

		minAmount := decimal.NewFromInt(100000)
		big, err := store.ListTransactions(ctx, u.ID, service.TransactionFilter{MinAmount: &minAmount})
		require.NoError(t, err)
		assert.Len(t, big, 2)

		page, err := store.ListTransactions(ctx, u.ID, service.TransactionFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, lunch.ID, page[0].ID)

		_, err = store.ListTransactions(ctx, u.ID, service.TransactionFilter{StartDate: &end, EndDate: &start})
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("summary is exact", func(t *testing.T) {
		s, err := store.GetTransactionSummary(ctx, u.ID, service.SummaryFilter{})
		require.NoError(t, err)
		assert.Equal(t, "15000000.1", s.TotalIncome.String())
		assert.Equal(t, "170000.3", s.TotalExpense.String())
		assert.Equal(t, "14829999.8", s.NetAmount.String())
		assert.True(t, s.NetAmount.Equal(s.TotalIncome.Sub(s.TotalExpense)))
		assert.Equal(t, 3, s.TransactionCount)

		from, to := day(2024, 6, 1), day(2024, 6, 30)
		june, err := store.GetTransactionSummary(ctx, u.ID, service.SummaryFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.True(t, june.TotalIncome.IsZero())
		assert.Equal(t, "120000.3", june.TotalExpense.String())
		assert.Equal(t, "-120000.3", june.NetAmount.String())
	})

	t.Run("category totals", func(t *testing.T) {
		totals, err := store.GetCategoryTotals(ctx, u.ID, service.SummaryFilter{})
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, "Lương", totals[0].CategoryName)
		assert.Equal(t, "Ăn uống", totals[1].CategoryName)
		assert.Equal(t, 2, totals[1].Count)
		assert.Equal(t, "170000.3", totals[1].Total.String())
	})

	t.Run("update and delete", func(t *testing.T) {
		amount := decimal.NewFromInt(65000)
		note := "thêm trà đá"
		updated, err := store.UpdateTransaction(ctx, u.ID, lunch.ID, service.TransactionUpdate{
			Amount: &amount,
			Notes:  &note,
		})
		require.NoError(t, err)
		assert.True(t, updated.Amount.Equal(amount))
		assert.Equal(t, note, updated.Notes)

		require.NoError(t, store.DeleteTransaction(ctx, u.ID, lunch.ID))
		_, err = store.GetTransaction(ctx, u.ID, lunch.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.ErrorIs(t, store.DeleteTransaction(ctx, u.ID, lunch.ID), common.ErrNotFound)
	})
}

func TestBudgets(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, store, "budget@example.com")
	food := mustCategory(t, store, u.ID, "Ăn uống")
	transport := mustCategory(t, store, u.ID, "Di chuyển")

	for _, txn := range []*model.Transaction{
		{UserCategoryID: food.ID, Amount: decimal.NewFromInt(300000), Date: day(2024, 5, 3)},
		{UserCategoryID: food.ID, Amount: decimal.NewFromInt(550000), Date: day(2024, 5, 20)},
		{UserCategoryID: transport.ID, Amount: decimal.NewFromInt(100000), Date: day(2024, 5, 21)},
		{UserCategoryID: food.ID, Amount: decimal.NewFromInt(999000), Date: day(2024, 6, 2)},
	} {
		txn.UserID = u.ID
		txn.Type = model.TransactionExpense
		require.NoError(t, store.CreateTransaction(ctx, txn))
	}

	foodBudget := &model.Budget{
		UserID:         u.ID,
		UserCategoryID: &food.ID,
		Name:           "Ăn uống tháng 5",
		Type:           model.BudgetMonthly,
		Amount:         decimal.NewFromInt(1000000),
		PeriodStart:    day(2024, 5, 1),
		PeriodEnd:      day(2024, 5, 31),
	}
	require.NoError(t, store.CreateBudget(ctx, foodBudget))
	assert.Equal(t, model.DefaultAlertThreshold, foodBudget.AlertThreshold)

	spent, err := store.GetBudgetSpent(ctx, *foodBudget)
	require.NoError(t, err)
	assert.Equal(t, "850000", spent.String())

	summary := foodBudget.Summarize(spent)
	assert.Equal(t, model.AlertNearing, summary.Status)
	assert.Equal(t, "150000", summary.Remaining.String())

	all := &model.Budget{
		UserID:      u.ID,
		Name:        "Tổng tháng 5",
		Type:        model.BudgetMonthly,
		Amount:      decimal.NewFromInt(5000000),
		PeriodStart: day(2024, 5, 1),
		PeriodEnd:   day(2024, 5, 31),
	}
	require.NoError(t, store.CreateBudget(ctx, all))
	spent, err = store.GetBudgetSpent(ctx, *all)
	require.NoError(t, err)
	assert.Equal(t, "950000", spent.String())

	invalid := *all
	invalid.ID = ""
	invalid.PeriodEnd = invalid.PeriodStart
	assert.ErrorIs(t, store.CreateBudget(ctx, &invalid), ErrInvalidDateRange)

	inactive := false
	updated, err := store.UpdateBudget(ctx, u.ID, all.ID, service.BudgetUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	active, err := store.ListBudgets(ctx, u.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, foodBudget.ID, active[0].ID)
	require.NotNil(t, active[0].UserCategoryID)
	assert.Equal(t, food.ID, *active[0].UserCategoryID)

	require.NoError(t, store.DeleteBudget(ctx, u.ID, all.ID))
	_, err = store.GetBudget(ctx, u.ID, all.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
