package chatbot

import (
	"context"
	"time"

	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/shopspring/decimal"
)

// NewTransaction is a transaction the chatbot asks to record. Category is a
// display name that still has to be resolved for the user.
type NewTransaction struct {
	Date          time.Time
	Amount        decimal.Decimal
	Type          model.TransactionType
	Category      string
	Description   string
	PaymentMethod string
	CreatedBy     model.CreatedBy
}

// TransactionCreator records transactions on behalf of a user. It returns an
// error wrapping common.ErrCategoryNotFound when the category cannot be resolved.
type TransactionCreator interface {
	CreateChatTransaction(ctx context.Context, userID string, txn NewTransaction) (*model.Transaction, error)
}

// SummaryProvider aggregates a user's income and expense.
type SummaryProvider interface {
	GetTransactionSummary(ctx context.Context, userID string, filter service.SummaryFilter) (model.TransactionSummary, error)
}

// Responder generates free-form replies. llm.Client satisfies it.
type Responder interface {
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// Recorder observes chatbot activity. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObserveIntent(intent model.Intent, confidence float64)
	ObserveAction(action model.ActionType)
	ObserveResponder(intent model.Intent, ok bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveIntent(model.Intent, float64) {}
func (nopRecorder) ObserveAction(model.ActionType) {}
func (nopRecorder) ObserveResponder(model.Intent, bool, time.Duration) {}
