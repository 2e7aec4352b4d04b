package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/Veraticus/spicebot/internal/storage"
)

// Request is one message to dispatch.
type Request struct {
	Entities model.Entities
	UserID   string
	Message  string
	Intent   model.Intent
}

type handler func(ctx context.Context, req Request) model.ActionOutcome

// Dispatcher routes a classified message to the handler for its intent.
// Handlers never fail: collaborator errors become fallback replies.
type Dispatcher struct {
	transactions TransactionCreator
	summaries    SummaryProvider
	responder    Responder
	recorder     Recorder
	logger       *slog.Logger
	now          func() time.Time
	handlers     map[model.Intent]handler
}

// DispatcherConfig holds the optional parts of a Dispatcher.
type DispatcherConfig struct {
	Logger   *slog.Logger
	Recorder Recorder
	// Now returns the current time; its location decides what "today" is.
	Now func() time.Time
}

// NewDispatcher creates a dispatcher with default configuration. A nil
// responder makes every AI-backed intent use its fallback reply.
func NewDispatcher(transactions TransactionCreator, summaries SummaryProvider, responder Responder) *Dispatcher {
	return NewDispatcherWithConfig(transactions, summaries, responder, DispatcherConfig{})
}

// NewDispatcherWithConfig creates a dispatcher with custom configuration.
func NewDispatcherWithConfig(transactions TransactionCreator, summaries SummaryProvider, responder Responder, cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	d := &Dispatcher{
		transactions: transactions,
		summaries:    summaries,
		responder:    responder,
		recorder:     cfg.Recorder,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	d.handlers = map[model.Intent]handler{
		model.IntentGreeting:       d.greeting,
		model.IntentGoodbye:        d.goodbye,
		model.IntentAddTransaction: d.addTransaction,
		model.IntentGetBalance:     d.getBalance,
		model.IntentGetSpending:    d.getSpending,
		model.IntentBudgetAdvice:   d.budgetAdvice,
		model.IntentGeneralQuery:   d.generalQuery,
	}
	return d
}

// Dispatch produces the reply for a classified message.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) model.ActionOutcome {
	h, ok := d.handlers[req.Intent]
	if !ok {
		h = d.unknown
	}
	outcome := h(ctx, req)
	d.recorder.ObserveAction(outcome.Action)
	return outcome
}

func (d *Dispatcher) greeting(context.Context, Request) model.ActionOutcome {
	return model.ActionOutcome{Reply: greetingReply, Action: model.ActionNone}
}

func (d *Dispatcher) goodbye(context.Context, Request) model.ActionOutcome {
	return model.ActionOutcome{Reply: goodbyeReply, Action: model.ActionNone}
}

func (d *Dispatcher) unknown(context.Context, Request) model.ActionOutcome {
	return model.ActionOutcome{Reply: unknownReply, Action: model.ActionNone}
}

func (d *Dispatcher) addTransaction(ctx context.Context, req Request) model.ActionOutcome {
	e := req.Entities

	var missing []string
	if !e.HasAmount() {
		missing = append(missing, fieldAmount)
	}
	if !e.HasCategory() {
		missing = append(missing, fieldCategory)
	}
	if len(missing) > 0 {
		return model.ActionOutcome{Reply: clarificationReply(missing), Action: model.ActionNone}
	}
	if !e.Amount.IsPositive() {
		return model.ActionOutcome{Reply: invalidAmountReply(FormatAmount(*e.Amount)), Action: model.ActionNone}
	}

	now := d.now()
	kind := e.TransactionType
	if kind == "" {
		kind = model.TransactionExpense
	}
	date := now
	if e.Date != "" {
		if day, err := time.ParseInLocation(time.DateOnly, e.Date, now.Location()); err == nil {
			date = day
		}
	}

	txn, err := d.transactions.CreateChatTransaction(ctx, req.UserID, NewTransaction{
		Date:          date,
		Amount:        *e.Amount,
		Type:          kind,
		Category:      e.Category,
		Description:   chatbotDescription,
		PaymentMethod: model.DefaultPaymentMethod,
		CreatedBy:     model.CreatedByChatbot,
	})
	if err != nil {
		if errors.Is(err, common.ErrCategoryNotFound) {
			d.logger.Info("chat transaction category not found", "user_id", req.UserID, "category", e.Category)
			return model.ActionOutcome{Reply: categoryNotFoundReply(e.Category), Action: model.ActionNone}
		}
		if errors.Is(err, storage.ErrInvalidTransaction) {
			d.logger.Info("chat transaction rejected", "user_id", req.UserID, "error", err)
			return model.ActionOutcome{Reply: invalidAmountReply(FormatAmount(*e.Amount)), Action: model.ActionNone}
		}
		common.LogError(d.logger, err, "failed to create chat transaction", common.Fields{"user_id": req.UserID})
		return model.ActionOutcome{Reply: createFailedReply, Action: model.ActionNone}
	}

	return model.ActionOutcome{
		Reply:  confirmationReply(txn, e.Category, now),
		Action: model.ActionTransactionCreated,
		Payload: map[string]any{
			"transaction_id": txn.ID,
			"amount":         txn.Amount,
			"category":       e.Category,
			"type":           txn.Type,
		},
	}
}

func (d *Dispatcher) getBalance(ctx context.Context, req Request) model.ActionOutcome {
	summary, err := d.summaries.GetTransactionSummary(ctx, req.UserID, service.SummaryFilter{})
	if err != nil {
		common.LogError(d.logger, err, "failed to load balance", common.Fields{"user_id": req.UserID})
		return model.ActionOutcome{Reply: balanceFailedReply, Action: model.ActionNone}
	}

	return model.ActionOutcome{
		Reply:  balanceReply(summary),
		Action: model.ActionBalanceRetrieved,
		Payload: map[string]any{
			"total_income":  summary.TotalIncome,
			"total_expense": summary.TotalExpense,
			"net_amount":    summary.NetAmount,
		},
	}
}

// currentMonth spans the first day of now's month through the end of today.
func currentMonth(now time.Time) (time.Time, time.Time) {
	y, m, day := now.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	to := time.Date(y, m, day, 23, 59, 59, 0, now.Location())
	return from, to
}

func (d *Dispatcher) getSpending(ctx context.Context, req Request) model.ActionOutcome {
	from, to := currentMonth(d.now())
	summary, err := d.summaries.GetTransactionSummary(ctx, req.UserID, service.SummaryFilter{From: &from, To: &to})
	if err != nil {
		common.LogError(d.logger, err, "failed to load spending", common.Fields{"user_id": req.UserID})
		return model.ActionOutcome{Reply: spendingFailedReply, Action: model.ActionNone}
	}

	return model.ActionOutcome{
		Reply:  spendingReply(summary, from, to),
		Action: model.ActionNone,
		Payload: map[string]any{
			"period":        to.Format("1/2006"),
			"date_from":     from.Format(time.DateOnly),
			"date_to":       to.Format(time.DateOnly),
			"total_expense": summary.TotalExpense,
			"total_income":  summary.TotalIncome,
			"net_amount":    summary.NetAmount,
		},
	}
}

func (d *Dispatcher) budgetAdvice(ctx context.Context, req Request) model.ActionOutcome {
	fallback := model.ActionOutcome{
		Reply:   budgetFallback,
		Action:  model.ActionAdviceGiven,
		Payload: map[string]any{"advice_type": "budget", "ai_generated": false},
	}

	summary, err := d.summaries.GetTransactionSummary(ctx, req.UserID, service.SummaryFilter{})
	if err != nil {
		common.LogError(d.logger, err, "failed to load budget advice context", common.Fields{"user_id": req.UserID})
		return fallback
	}

	reply, ok := d.respond(ctx, model.IntentBudgetAdvice, req.Message, model.Entities{}, newFinancialContext(summary))
	if !ok {
		return fallback
	}
	return model.ActionOutcome{
		Reply:   reply,
		Action:  model.ActionAdviceGiven,
		Payload: map[string]any{"advice_type": "budget", "ai_generated": true},
	}
}

func (d *Dispatcher) generalQuery(ctx context.Context, req Request) model.ActionOutcome {
	reply, ok := d.respond(ctx, model.IntentGeneralQuery, req.Message, req.Entities, nil)
	if !ok {
		return model.ActionOutcome{
			Reply:   generalFallback,
			Action:  model.ActionNone,
			Payload: map[string]any{"ai_generated": false},
		}
	}
	return model.ActionOutcome{
		Reply:   reply,
		Action:  model.ActionNone,
		Payload: map[string]any{"ai_generated": true},
	}
}

// respond makes a single responder call. Any error, including a timeout or an
// empty reply, reports !ok so the caller can fall back.
func (d *Dispatcher) respond(ctx context.Context, intent model.Intent, message string, entities model.Entities, fc *financialContext) (string, bool) {
	if d.responder == nil {
		return "", false
	}

	start := time.Now()
	reply, err := d.responder.Complete(ctx, systemPrompt(intent), userContent(message, entities, fc))
	if err == nil && reply == "" {
		err = common.ErrEmptyReply
	}
	d.recorder.ObserveResponder(intent, err == nil, time.Since(start))
	if err != nil {
		common.LogError(d.logger, err, "language model reply failed, using fallback", common.Fields{"intent": string(intent)})
		return "", false
	}
	return reply, true
}
