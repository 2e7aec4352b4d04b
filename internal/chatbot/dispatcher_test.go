package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/Veraticus/spicebot/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCreator struct {
	mock.Mock
}

func (m *mockCreator) CreateChatTransaction(ctx context.Context, userID string, txn NewTransaction) (*model.Transaction, error) {
	args := m.Called(ctx, userID, txn)
	created, _ := args.Get(0).(*model.Transaction)
	return created, args.Error(1)
}

type mockResponder struct {
	mock.Mock
}

func (m *mockResponder) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	args := m.Called(ctx, systemPrompt, userContent)
	return args.String(0), args.Error(1)
}

type fakeSummaries struct {
	err     error
	filters []service.SummaryFilter
	summary model.TransactionSummary
	mu      sync.Mutex
}

func (f *fakeSummaries) GetTransactionSummary(_ context.Context, _ string, filter service.SummaryFilter) (model.TransactionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.summary, f.err
}

type countingRecorder struct {
	actions   map[model.ActionType]int
	responder map[bool]int
	mu        sync.Mutex
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{actions: map[model.ActionType]int{}, responder: map[bool]int{}}
}

func (r *countingRecorder) ObserveIntent(model.Intent, float64) {}

func (r *countingRecorder) ObserveAction(action model.ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action]++
}

func (r *countingRecorder) ObserveResponder(_ model.Intent, ok bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responder[ok]++
}

type dispatcherFixture struct {
	creator   *mockCreator
	summaries *fakeSummaries
	responder *mockResponder
	recorder  *countingRecorder
	d         *Dispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		creator: &mockCreator{},
		summaries: &fakeSummaries{
			summary: model.NewTransactionSummary(decimal.NewFromInt(10_000_000), decimal.NewFromInt(4_000_000), 12),
		},
		responder: &mockResponder{},
		recorder:  newCountingRecorder(),
	}
	f.d = NewDispatcherWithConfig(f.creator, f.summaries, f.responder, DispatcherConfig{
		Logger:   common.DiscardLogger(),
		Recorder: f.recorder,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func amountPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestDispatchGreetingAndGoodbye(t *testing.T) {
	f := newDispatcherFixture()

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Message: "hello", Intent: model.IntentGreeting})
	assert.Equal(t, greetingReply, out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)
	assert.Nil(t, out.Payload)

	out = f.d.Dispatch(context.Background(), Request{UserID: "u1", Message: "bye", Intent: model.IntentGoodbye})
	assert.Equal(t, goodbyeReply, out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)

	f.creator.AssertNotCalled(t, "CreateChatTransaction", mock.Anything, mock.Anything, mock.Anything)
	f.responder.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.summaries.filters)
}

func TestDispatchAddTransaction(t *testing.T) {
	f := newDispatcherFixture()

	f.creator.On("CreateChatTransaction", mock.Anything, "u1", mock.MatchedBy(func(n NewTransaction) bool {
		return n.Amount.Equal(decimal.NewFromInt(50000)) &&
			n.Type == model.TransactionExpense &&
			n.Category == "Ăn uống" &&
			n.PaymentMethod == "Khác" &&
			n.CreatedBy == model.CreatedByChatbot &&
			n.Description == "Giao dịch tạo từ chatbot" &&
			n.Date.Equal(fixedNow)
	})).Return(&model.Transaction{
		ID:     "txn-1",
		Amount: decimal.NewFromInt(50000),
		Type:   model.TransactionExpense,
	}, nil).Once()

	out := f.d.Dispatch(context.Background(), Request{
		UserID:  "u1",
		Message: "Tôi vừa chi 50k mua thức ăn",
		Intent:  model.IntentAddTransaction,
		Entities: model.Entities{
			Amount:          amountPtr(50000),
			TransactionType: model.TransactionExpense,
			Category:        "Ăn uống",
		},
	})

	assert.Equal(t, model.ActionTransactionCreated, out.Action)
	assert.Contains(t, out.Reply, "✅ Đã ghi nhận giao dịch thành công!")
	assert.Contains(t, out.Reply, "Loại: Chi tiêu")
	assert.Contains(t, out.Reply, "Số tiền: 50,000 VNĐ")
	assert.Contains(t, out.Reply, "Danh mục: Ăn uống")
	assert.Contains(t, out.Reply, "Thời gian: 15/03/2024 10:30")
	assert.Equal(t, "txn-1", out.Payload["transaction_id"])
	assert.Equal(t, "Ăn uống", out.Payload["category"])
	assert.Equal(t, model.TransactionExpense, out.Payload["type"])
	f.creator.AssertExpectations(t)
	assert.Equal(t, 1, f.recorder.actions[model.ActionTransactionCreated])
}

func TestDispatchAddTransactionDefaultsAndDates(t *testing.T) {
	f := newDispatcherFixture()

	var got NewTransaction
	f.creator.On("CreateChatTransaction", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(2).(NewTransaction) }).
		Return(&model.Transaction{ID: "txn-2", Amount: decimal.NewFromInt(30000), Type: model.TransactionExpense}, nil)

	out := f.d.Dispatch(context.Background(), Request{
		UserID: "u1",
		Intent: model.IntentAddTransaction,
		Entities: model.Entities{
			Amount:   amountPtr(30000),
			Category: "Di chuyển",
			Date:     "2024-03-14",
		},
	})

	require.Equal(t, model.ActionTransactionCreated, out.Action)
	assert.Equal(t, model.TransactionExpense, got.Type, "type defaults to expense")
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), got.Date)
}

func TestDispatchAddTransactionMissingFields(t *testing.T) {
	tests := []struct {
		name        string
		entities    model.Entities
		wantMissing []string
		notMissing  []string
	}{
		{
			name:        "nothing extracted",
			entities:    model.Entities{TransactionType: model.TransactionExpense},
			wantMissing: []string{"số tiền", "danh mục"},
		},
		{
			name:        "category missing",
			entities:    model.Entities{Amount: amountPtr(50000)},
			wantMissing: []string{"danh mục"},
			notMissing:  []string{"số tiền"},
		},
		{
			name:        "amount missing",
			entities:    model.Entities{Category: "Ăn uống"},
			wantMissing: []string{"số tiền"},
			notMissing:  []string{"danh mục"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatcherFixture()
			out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentAddTransaction, Entities: tt.entities})

			assert.Equal(t, model.ActionNone, out.Action)
			assert.Contains(t, out.Reply, "Để ghi nhận giao dịch")
			for _, field := range tt.wantMissing {
				assert.Contains(t, out.Reply, field)
			}
			for _, field := range tt.notMissing {
				assert.NotContains(t, out.Reply, "về: "+field)
			}
			f.creator.AssertNotCalled(t, "CreateChatTransaction", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDispatchAddTransactionFailures(t *testing.T) {
	req := Request{
		UserID:   "u1",
		Intent:   model.IntentAddTransaction,
		Entities: model.Entities{Amount: amountPtr(50000), Category: "Ăn uống"},
	}

	t.Run("unresolvable category is named", func(t *testing.T) {
		f := newDispatcherFixture()
		f.creator.On("CreateChatTransaction", mock.Anything, "u1", mock.Anything).
			Return(nil, fmt.Errorf("%q: %w", "Ăn uống", common.ErrCategoryNotFound)).Once()

		out := f.d.Dispatch(context.Background(), req)
		assert.Equal(t, model.ActionNone, out.Action)
		assert.Contains(t, out.Reply, `"Ăn uống"`)
		assert.Contains(t, out.Reply, "Không tìm thấy danh mục")
		f.creator.AssertNumberOfCalls(t, "CreateChatTransaction", 1)
	})

	t.Run("zero amount is reported without a write", func(t *testing.T) {
		f := newDispatcherFixture()
		zero := req
		zero.Entities = model.Entities{Amount: amountPtr(0), Category: "Ăn uống"}

		out := f.d.Dispatch(context.Background(), zero)
		assert.Equal(t, model.ActionNone, out.Action)
		assert.Equal(t, invalidAmountReply("0"), out.Reply)
		assert.Contains(t, out.Reply, "Số tiền")
		f.creator.AssertNotCalled(t, "CreateChatTransaction", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejected transaction names the amount", func(t *testing.T) {
		f := newDispatcherFixture()
		f.creator.On("CreateChatTransaction", mock.Anything, "u1", mock.Anything).
			Return(nil, fmt.Errorf("%w: amount must be positive", storage.ErrInvalidTransaction)).Once()

		out := f.d.Dispatch(context.Background(), req)
		assert.Equal(t, model.ActionNone, out.Action)
		assert.Equal(t, invalidAmountReply("50,000"), out.Reply)
		assert.NotEqual(t, createFailedReply, out.Reply)
	})

	t.Run("storage failure is not retried", func(t *testing.T) {
		f := newDispatcherFixture()
		f.creator.On("CreateChatTransaction", mock.Anything, "u1", mock.Anything).
			Return(nil, errors.New("database is locked")).Once()

		out := f.d.Dispatch(context.Background(), req)
		assert.Equal(t, model.ActionNone, out.Action)
		assert.Equal(t, createFailedReply, out.Reply)
		assert.NotContains(t, out.Reply, "database is locked")
		f.creator.AssertNumberOfCalls(t, "CreateChatTransaction", 1)
	})
}

func TestDispatchGetBalance(t *testing.T) {
	f := newDispatcherFixture()
	f.summaries.summary = model.NewTransactionSummary(decimal.NewFromInt(1_000_000), decimal.RequireFromString("1500000.50"), 3)

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentGetBalance})

	assert.Equal(t, model.ActionBalanceRetrieved, out.Action)
	assert.Contains(t, out.Reply, "Tổng thu nhập: 1,000,000 VNĐ")
	assert.Contains(t, out.Reply, "🔴 Bạn đang chi tiêu nhiều hơn thu nhập!")

	income := out.Payload["total_income"].(decimal.Decimal)
	expense := out.Payload["total_expense"].(decimal.Decimal)
	net := out.Payload["net_amount"].(decimal.Decimal)
	assert.True(t, net.Equal(income.Sub(expense)), "net %s", net)
	assert.True(t, net.Equal(decimal.RequireFromString("-500000.50")))

	require.Len(t, f.summaries.filters, 1)
	assert.Nil(t, f.summaries.filters[0].From)
	assert.Nil(t, f.summaries.filters[0].To)
}

func TestDispatchGetBalanceSurplus(t *testing.T) {
	f := newDispatcherFixture()
	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentGetBalance})
	assert.Contains(t, out.Reply, "🟢 Bạn đang có thặng dư!")
	assert.Contains(t, out.Reply, "Số dư ròng: 6,000,000 VNĐ")
}

func TestDispatchGetSpending(t *testing.T) {
	f := newDispatcherFixture()

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentGetSpending})

	assert.Equal(t, model.ActionNone, out.Action)
	assert.Contains(t, out.Reply, "Chi tiêu tháng 3/2024")
	assert.Contains(t, out.Reply, "Tổng chi tiêu: 4,000,000 VNĐ")
	assert.Contains(t, out.Reply, "Từ ngày 01/03 đến 15/03")
	assert.Equal(t, "3/2024", out.Payload["period"])

	net := out.Payload["net_amount"].(decimal.Decimal)
	income := out.Payload["total_income"].(decimal.Decimal)
	expense := out.Payload["total_expense"].(decimal.Decimal)
	assert.True(t, net.Equal(income.Sub(expense)))

	require.Len(t, f.summaries.filters, 1)
	filter := f.summaries.filters[0]
	require.NotNil(t, filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC), *filter.To)
}

func TestDispatchSummaryFailures(t *testing.T) {
	f := newDispatcherFixture()
	f.summaries.err = errors.New("connection reset")

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentGetBalance})
	assert.Equal(t, balanceFailedReply, out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)

	out = f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentGetSpending})
	assert.Equal(t, spendingFailedReply, out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)
}

func TestDispatchBudgetAdvice(t *testing.T) {
	f := newDispatcherFixture()
	f.responder.On("Complete", mock.Anything,
		systemPrompt(model.IntentBudgetAdvice),
		mock.MatchedBy(func(content string) bool {
			return containsAll(content, "User message: tôi nên tiết kiệm thế nào", `"expense_ratio":"40"`, `"net_amount":"6000000"`)
		}),
	).Return("💡 Hãy tiết kiệm 20% mỗi tháng.", nil).Once()

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Message: "tôi nên tiết kiệm thế nào", Intent: model.IntentBudgetAdvice})

	assert.Equal(t, model.ActionAdviceGiven, out.Action)
	assert.Equal(t, "💡 Hãy tiết kiệm 20% mỗi tháng.", out.Reply)
	assert.Equal(t, map[string]any{"advice_type": "budget", "ai_generated": true}, out.Payload)
	f.responder.AssertExpectations(t)
	assert.Equal(t, 1, f.recorder.responder[true])
}

func TestDispatchResponderFallbacks(t *testing.T) {
	failures := map[string]error{
		"unavailable":  common.ErrLLMUnavailable,
		"rate limited": common.ErrRateLimit,
		"timeout":      context.DeadlineExceeded,
	}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			f := newDispatcherFixture()
			f.responder.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", failure)

			out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Message: "advice", Intent: model.IntentBudgetAdvice})
			assert.Equal(t, budgetFallback, out.Reply)
			assert.Equal(t, model.ActionAdviceGiven, out.Action)
			assert.Equal(t, false, out.Payload["ai_generated"])

			out = f.d.Dispatch(context.Background(), Request{UserID: "u1", Message: "lãi suất là gì?", Intent: model.IntentGeneralQuery})
			assert.Equal(t, generalFallback, out.Reply)
			assert.NotEmpty(t, out.Reply)
			assert.Equal(t, model.ActionNone, out.Action)
			assert.Equal(t, false, out.Payload["ai_generated"])

			f.responder.AssertNumberOfCalls(t, "Complete", 2)
			assert.Equal(t, 2, f.recorder.responder[false])
		})
	}
}

func TestDispatchBudgetAdviceSummaryFailure(t *testing.T) {
	f := newDispatcherFixture()
	f.summaries.err = errors.New("no such table")

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentBudgetAdvice})
	assert.Equal(t, budgetFallback, out.Reply)
	assert.Equal(t, model.ActionAdviceGiven, out.Action)
	assert.Equal(t, false, out.Payload["ai_generated"])
	f.responder.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchGeneralQuery(t *testing.T) {
	f := newDispatcherFixture()
	f.responder.On("Complete", mock.Anything, systemPrompt(model.IntentGeneralQuery),
		mock.MatchedBy(func(content string) bool {
			return containsAll(content, "User message: lãi kép 10tr là gì", `Extracted entities: {"amount":"10000000"}`)
		}),
	).Return("Lãi kép là lãi tính trên cả tiền gốc và tiền lãi.", nil).Once()

	out := f.d.Dispatch(context.Background(), Request{
		UserID:   "u1",
		Message:  "lãi kép 10tr là gì",
		Intent:   model.IntentGeneralQuery,
		Entities: model.Entities{Amount: amountPtr(10_000_000)},
	})

	assert.Equal(t, "Lãi kép là lãi tính trên cả tiền gốc và tiền lãi.", out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)
	assert.Equal(t, true, out.Payload["ai_generated"])
	f.responder.AssertExpectations(t)
}

func TestDispatchEmptyReplyFallsBack(t *testing.T) {
	f := newDispatcherFixture()
	f.responder.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", nil)

	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Message: "?", Intent: model.IntentGeneralQuery})
	assert.Equal(t, generalFallback, out.Reply)
	assert.Equal(t, false, out.Payload["ai_generated"])
}

type blockingResponder struct{}

func (blockingResponder) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestDispatchResponderDeadline(t *testing.T) {
	d := NewDispatcherWithConfig(&mockCreator{}, &fakeSummaries{}, blockingResponder{}, DispatcherConfig{
		Logger: common.DiscardLogger(),
		Now:    func() time.Time { return fixedNow },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := d.Dispatch(ctx, Request{UserID: "u1", Message: "hi there", Intent: model.IntentGeneralQuery})
	assert.Equal(t, generalFallback, out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)
}

func TestDispatchWithoutResponder(t *testing.T) {
	d := NewDispatcherWithConfig(&mockCreator{}, &fakeSummaries{}, nil, DispatcherConfig{Logger: common.DiscardLogger()})

	out := d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentBudgetAdvice})
	assert.Equal(t, budgetFallback, out.Reply)

	out = d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.IntentGeneralQuery})
	assert.Equal(t, generalFallback, out.Reply)
}

func TestDispatchUnknownIntent(t *testing.T) {
	f := newDispatcherFixture()
	out := f.d.Dispatch(context.Background(), Request{UserID: "u1", Intent: model.Intent("transfer_money")})
	assert.Equal(t, unknownReply, out.Reply)
	assert.Equal(t, model.ActionNone, out.Action)
}

func TestDispatchEndToEnd(t *testing.T) {
	f := newDispatcherFixture()
	p := NewDefaultParser()

	f.creator.On("CreateChatTransaction", mock.Anything, "u1", mock.Anything).
		Return(&model.Transaction{ID: "txn-9", Amount: decimal.NewFromInt(50000), Type: model.TransactionExpense}, nil)

	for _, tt := range []struct {
		message string
		want    model.ActionType
		created int
	}{
		{message: "Tôi vừa chi 50k mua thức ăn", want: model.ActionTransactionCreated, created: 1},
		{message: "tôi vừa chi tiền", want: model.ActionNone, created: 1},
		{message: "hello", want: model.ActionNone, created: 1},
	} {
		parsed := p.Parse(tt.message, fixedNow)
		out := f.d.Dispatch(context.Background(), Request{
			UserID:   "u1",
			Message:  tt.message,
			Intent:   parsed.Intent,
			Entities: parsed.Entities,
		})
		assert.Equal(t, tt.want, out.Action, tt.message)
		f.creator.AssertNumberOfCalls(t, "CreateChatTransaction", tt.created)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
