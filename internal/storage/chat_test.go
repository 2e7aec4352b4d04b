package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendPair(t *testing.T, store *SQLiteStorage, cs *model.ChatSession, intent model.Intent, action model.ActionType, at time.Time) {
	t.Helper()
	ctx := context.Background()
	confidence := 0.8
	require.NoError(t, store.AppendChatMessage(ctx, &model.ChatMessage{
		SessionID:  cs.ID,
		UserID:     cs.UserID,
		Type:       model.MessageUser,
		Content:    "user says " + string(intent),
		Intent:     intent,
		Entities:   &model.Entities{},
		Confidence: &confidence,
		CreatedAt:  at,
	}))
	require.NoError(t, store.AppendChatMessage(ctx, &model.ChatMessage{
		SessionID:   cs.ID,
		UserID:      cs.UserID,
		Type:        model.MessageBot,
		Content:     "bot replies",
		ActionTaken: action,
		CreatedAt:   at,
	}))
}

func TestChatSessions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, store, "chat@example.com")

	cs := &model.ChatSession{UserID: u.ID, Name: "Chat 2024-05-10 09:00"}
	require.NoError(t, store.CreateChatSession(ctx, cs))
	assert.True(t, cs.IsActive)

	amount := decimal.NewFromInt(50000)
	confidence := 0.9
	userMsg := &model.ChatMessage{
		SessionID:  cs.ID,
		UserID:     u.ID,
		Type:       model.MessageUser,
		Content:    "Tôi vừa chi 50k mua thức ăn",
		Intent:     model.IntentAddTransaction,
		Entities:   &model.Entities{Amount: &amount, Category: "Ăn uống", TransactionType: model.TransactionExpense},
		Confidence: &confidence,
	}
	require.NoError(t, store.AppendChatMessage(ctx, userMsg))
	require.NoError(t, store.AppendChatMessage(ctx, &model.ChatMessage{
		SessionID:   cs.ID,
		UserID:      u.ID,
		Type:        model.MessageBot,
		Content:     "✅ Đã ghi nhận giao dịch thành công!",
		ActionTaken: model.ActionTransactionCreated,
	}))

	got, err := store.GetChatSession(ctx, u.ID, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)

	msgs, err := store.GetChatMessages(ctx, u.ID, cs.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.MessageUser, msgs[0].Type)
	require.NotNil(t, msgs[0].Entities)
	require.NotNil(t, msgs[0].Entities.Amount)
	assert.True(t, msgs[0].Entities.Amount.Equal(amount))
	assert.Equal(t, "Ăn uống", msgs[0].Entities.Category)
	require.NotNil(t, msgs[0].Confidence)
	assert.InDelta(t, 0.9, *msgs[0].Confidence, 1e-9)
	assert.Equal(t, model.MessageBot, msgs[1].Type)
	assert.Nil(t, msgs[1].Entities)
	assert.Equal(t, model.ActionTransactionCreated, msgs[1].ActionTaken)

	t.Run("messages cannot target another user's session", func(t *testing.T) {
		other := createTestUser(t, store, "peek@example.com")
		err := store.AppendChatMessage(ctx, &model.ChatMessage{
			SessionID: cs.ID, UserID: other.ID, Type: model.MessageUser, Content: "hi",
		})
		assert.ErrorIs(t, err, common.ErrNotFound)

		_, err = store.GetChatSession(ctx, other.ID, cs.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("rename and end", func(t *testing.T) {
		require.NoError(t, store.RenameChatSession(ctx, u.ID, cs.ID, "Chi tiêu tháng 5"))
		ended := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
		require.NoError(t, store.EndChatSession(ctx, u.ID, cs.ID, ended))

		got, err := store.GetChatSession(ctx, u.ID, cs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Chi tiêu tháng 5", got.Name)
		assert.False(t, got.IsActive)
		require.NotNil(t, got.EndedAt)
		assert.True(t, ended.Equal(*got.EndedAt))
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, store.DeleteChatSession(ctx, u.ID, cs.ID))
		_, err := store.GetChatSession(ctx, u.ID, cs.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)

		msgs, err := store.GetChatMessages(ctx, u.ID, cs.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		assert.ErrorIs(t, store.DeleteChatSession(ctx, u.ID, cs.ID), common.ErrNotFound)
	})
}

func TestListChatSessions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, store, "list@example.com")
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	names := []string{"Ngân sách", "Chi tiêu", "Chi tiêu cuối tuần"}
	sessions := make([]*model.ChatSession, len(names))
	for i, name := range names {
		sessions[i] = &model.ChatSession{UserID: u.ID, Name: name, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, store.CreateChatSession(ctx, sessions[i]))
	}
	appendPair(t, store, sessions[0], model.IntentGreeting, model.ActionNone, base)
	appendPair(t, store, sessions[0], model.IntentGetBalance, model.ActionBalanceRetrieved, base)
	require.NoError(t, store.EndChatSession(ctx, u.ID, sessions[1].ID, base))

	all, err := store.ListChatSessions(ctx, u.ID, service.SessionFilter{Desc: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, sessions[2].ID, all[0].ID)

	active := true
	onlyActive, err := store.ListChatSessions(ctx, u.ID, service.SessionFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Len(t, onlyActive, 2)

	search, err := store.ListChatSessions(ctx, u.ID, service.SessionFilter{Search: "Chi tiêu"})
	require.NoError(t, err)
	assert.Len(t, search, 2)

	byCount, err := store.ListChatSessions(ctx, u.ID, service.SessionFilter{SortBy: service.SortMessageCount, Desc: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, byCount, 1)
	assert.Equal(t, sessions[0].ID, byCount[0].ID)
	assert.Equal(t, 4, byCount[0].MessageCount)
}

func TestChatAnalytics(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, store, "stats@example.com")
	now := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)

	recent := &model.ChatSession{UserID: u.ID, Name: "recent", StartedAt: now.Add(-2 * 24 * time.Hour)}
	old := &model.ChatSession{UserID: u.ID, Name: "old", StartedAt: now.Add(-90 * 24 * time.Hour)}
	require.NoError(t, store.CreateChatSession(ctx, recent))
	require.NoError(t, store.CreateChatSession(ctx, old))

	appendPair(t, store, recent, model.IntentAddTransaction, model.ActionTransactionCreated, now.Add(-time.Hour))
	appendPair(t, store, recent, model.IntentAddTransaction, model.ActionNone, now.Add(-time.Hour))
	appendPair(t, store, recent, model.IntentGreeting, model.ActionNone, now.Add(-time.Hour))
	appendPair(t, store, old, model.IntentGetBalance, model.ActionBalanceRetrieved, old.StartedAt)

	a, err := store.GetChatAnalytics(ctx, u.ID, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, a.TotalSessions)
	assert.Equal(t, 1, a.ActiveSessions)
	assert.Equal(t, 6, a.TotalMessages)
	assert.InDelta(t, 6.0, a.AvgMessagesPerSession, 1e-9)
	require.Len(t, a.TopIntents, 2)
	assert.Equal(t, model.IntentCount{Intent: model.IntentAddTransaction, Count: 2}, a.TopIntents[0])
	assert.Equal(t, 1, a.ActionCounts[model.ActionTransactionCreated])
	assert.Equal(t, 2, a.ActionCounts[model.ActionNone])
	assert.Zero(t, a.ActionCounts[model.ActionBalanceRetrieved])
}
