package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intent is the classified purpose of a chat message.
type Intent string

// Supported intents.
const (
	IntentAddTransaction Intent = "add_transaction"
	IntentGetBalance     Intent = "get_balance"
	IntentGetSpending    Intent = "get_spending"
	IntentBudgetAdvice   Intent = "budget_advice"
	IntentGeneralQuery   Intent = "general_query"
	IntentGreeting       Intent = "greeting"
	IntentGoodbye        Intent = "goodbye"
)

// ActionType tags a bot reply with the side effect it caused.
type ActionType string

// Action tags.
const (
	ActionTransactionCreated ActionType = "transaction_created"
	ActionBalanceRetrieved   ActionType = "balance_retrieved"
	ActionAdviceGiven        ActionType = "advice_given"
	ActionNone               ActionType = "no_action"
)

// MessageType distinguishes the two sides of a conversation.
type MessageType string

// Message sides.
const (
	MessageUser MessageType = "user"
	MessageBot  MessageType = "bot"
)

// Entities holds the values extracted from a message. Zero fields are absent
// and are omitted from the JSON encoding.
type Entities struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	TransactionType TransactionType  `json:"transaction_type,omitempty"`
	Category        string           `json:"category,omitempty"`
	// Date is an ISO YYYY-MM-DD date resolved from a relative expression.
	Date string `json:"date,omitempty"`
	// DateText is an explicit date found in the message but left unresolved.
	DateText string `json:"date_text,omitempty"`
}

// HasAmount reports whether an amount was extracted.
func (e Entities) HasAmount() bool { return e.Amount != nil }

// HasCategory reports whether a category was extracted.
func (e Entities) HasCategory() bool { return e.Category != "" }

// IsEmpty reports whether nothing was extracted.
func (e Entities) IsEmpty() bool {
	return e.Amount == nil && e.TransactionType == "" && e.Category == "" && e.Date == "" && e.DateText == ""
}

// ActionOutcome is the result of dispatching one message.
type ActionOutcome struct {
	Payload map[string]any `json:"payload,omitempty"`
	Reply   string         `json:"reply"`
	Action  ActionType     `json:"action_taken"`
}

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"session_name"`
	MessageCount int        `json:"message_count"`
	IsActive     bool       `json:"is_active"`
}

// ChatMessage is one turn of a conversation. Intent, entities and confidence
// are only set on user turns; the action tag only on bot turns.
type ChatMessage struct {
	CreatedAt   time.Time   `json:"created_at"`
	Entities    *Entities   `json:"entities,omitempty"`
	Confidence  *float64    `json:"confidence,omitempty"`
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
	Type        MessageType `json:"message_type"`
	Content     string      `json:"content"`
	Intent      Intent      `json:"intent,omitempty"`
	ActionTaken ActionType  `json:"action_taken,omitempty"`
}

// IntentCount is the number of user messages classified as one intent.
type IntentCount struct {
	Intent Intent `json:"intent"`
	Count  int    `json:"count"`
}

// ChatAnalytics summarizes chatbot usage over a window of days.
type ChatAnalytics struct {
	ActionCounts          map[ActionType]int `json:"action_counts"`
	TopIntents            []IntentCount      `json:"top_intents"`
	PeriodDays            int                `json:"period_days"`
	TotalSessions         int                `json:"total_sessions"`
	ActiveSessions        int                `json:"active_sessions"`
	TotalMessages         int                `json:"total_messages"`
	AvgMessagesPerSession float64            `json:"avg_messages_per_session"`
}
