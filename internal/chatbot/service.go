package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
)

// Limits on chat input.
const (
	MaxMessageLength      = 4000
	MaxQuickMessageLength = 500
	MaxSessionNameLength  = 255

	DefaultAnalyticsDays = 30
	MaxAnalyticsDays     = 365
)

const sessionNameLayout = "2006-01-02 15:04"

// InteractRequest is a message sent within a session. An empty SessionID
// starts a new session named SessionName, or "Chat <date time>" if unset.
type InteractRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	SessionName string `json:"session_name,omitempty"`
	Message     string `json:"message"`
}

// InteractResult holds both persisted turns and the refreshed session.
type InteractResult struct {
	Session     *model.ChatSession `json:"session_info"`
	UserMessage *model.ChatMessage `json:"user_message"`
	BotMessage  *model.ChatMessage `json:"bot_response"`
	Payload     map[string]any     `json:"action_performed,omitempty"`
	SessionID   string             `json:"session_id"`
}

// QuickResult is the outcome of a message processed without a session.
type QuickResult struct {
	Entities   model.Entities   `json:"entities"`
	Payload    map[string]any   `json:"action_data,omitempty"`
	Message    string           `json:"user_message"`
	Reply      string           `json:"bot_response"`
	Intent     model.Intent     `json:"intent"`
	Action     model.ActionType `json:"action_taken"`
	Confidence float64          `json:"confidence"`
}

// Conversation is a session with its messages in order.
type Conversation struct {
	Session  *model.ChatSession  `json:"session"`
	Messages []model.ChatMessage `json:"messages"`
}

// Service runs the chat pipeline and persists conversations.
type Service struct {
	store      service.ChatStore
	parser     *Parser
	dispatcher *Dispatcher
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceConfig holds the optional parts of a Service.
type ServiceConfig struct {
	Parser   *Parser
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// NewService creates a chat service. The parser defaults to the compiled
// DefaultRegistry.
func NewService(store service.ChatStore, dispatcher *Dispatcher, cfg ServiceConfig) *Service {
	if cfg.Parser == nil {
		cfg.Parser = NewDefaultParser()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:      store,
		parser:     cfg.Parser,
		dispatcher: dispatcher,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// validateMessage rejects only empty and oversized messages. Blank text is
// answered as a general query.
func validateMessage(message string, limit int) error {
	if message == "" {
		return common.NewValidationError("message", "must not be empty")
	}
	if utf8.RuneCountInString(message) > limit {
		return common.NewValidationError("message", fmt.Sprintf("must be at most %d characters", limit))
	}
	return nil
}

func validateSessionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return common.NewValidationError("session_name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxSessionNameLength {
		return common.NewValidationError("session_name", fmt.Sprintf("must be at most %d characters", MaxSessionNameLength))
	}
	return nil
}

// Interact classifies and answers a message, appending exactly one user and
// one bot message to the session.
func (s *Service) Interact(ctx context.Context, userID string, req InteractRequest) (*InteractResult, error) {
	if err := validateMessage(req.Message, MaxMessageLength); err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	parsed := s.parse(req.Message)
	confidence := parsed.Confidence
	entities := parsed.Entities
	userMsg := &model.ChatMessage{
		SessionID:  session.ID,
		UserID:     userID,
		Type:       model.MessageUser,
		Content:    req.Message,
		Intent:     parsed.Intent,
		Entities:   &entities,
		Confidence: &confidence,
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	outcome := s.dispatcher.Dispatch(ctx, Request{
		UserID:   userID,
		Message:  req.Message,
		Intent:   parsed.Intent,
		Entities: parsed.Entities,
	})

	botMsg := &model.ChatMessage{
		SessionID:   session.ID,
		UserID:      userID,
		Type:        model.MessageBot,
		Content:     outcome.Reply,
		ActionTaken: outcome.Action,
		CreatedAt:   s.now(),
	}
	if err := s.store.AppendChatMessage(ctx, botMsg); err != nil {
		return nil, fmt.Errorf("failed to save bot message: %w", err)
	}

	updated, err := s.store.GetChatSession(ctx, userID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload chat session: %w", err)
	}

	s.logger.Debug("chat interaction",
		"user_id", userID,
		"session_id", session.ID,
		"intent", parsed.Intent,
		"action", outcome.Action)

	return &InteractResult{
		SessionID:   session.ID,
		Session:     updated,
		UserMessage: userMsg,
		BotMessage:  botMsg,
		Payload:     outcome.Payload,
	}, nil
}

func (s *Service) openSession(ctx context.Context, userID string, req InteractRequest) (*model.ChatSession, error) {
	if req.SessionID != "" {
		session, err := s.store.GetChatSession(ctx, userID, req.SessionID)
		if err != nil {
			return nil, err
		}
		if !session.IsActive {
			return nil, fmt.Errorf("chat session %s: %w", session.ID, common.ErrSessionEnded)
		}
		return session, nil
	}
	return s.CreateSession(ctx, userID, req.SessionName)
}

func (s *Service) parse(message string) ParseResult {
	parsed := s.parser.Parse(message, s.now())
	s.recorder.ObserveIntent(parsed.Intent, parsed.Confidence)
	return parsed
}

// Quick answers a message without creating or touching any session. Side
// effects of the intent itself, such as recording a transaction, still happen.
func (s *Service) Quick(ctx context.Context, userID, message string) (*QuickResult, error) {
	if err := validateMessage(message, MaxQuickMessageLength); err != nil {
		return nil, err
	}

	parsed := s.parse(message)
	outcome := s.dispatcher.Dispatch(ctx, Request{
		UserID:   userID,
		Message:  message,
		Intent:   parsed.Intent,
		Entities: parsed.Entities,
	})

	return &QuickResult{
		Message:    message,
		Reply:      outcome.Reply,
		Intent:     parsed.Intent,
		Confidence: parsed.Confidence,
		Entities:   parsed.Entities,
		Action:     outcome.Action,
		Payload:    outcome.Payload,
	}, nil
}

// CreateSession starts a session. An empty name becomes "Chat <date time>".
func (s *Service) CreateSession(ctx context.Context, userID, name string) (*model.ChatSession, error) {
	now := s.now()
	if strings.TrimSpace(name) == "" {
		name = "Chat " + now.Format(sessionNameLayout)
	}
	if err := validateSessionName(name); err != nil {
		return nil, err
	}

	session := &model.ChatSession{UserID: userID, Name: name, StartedAt: now}
	if err := s.store.CreateChatSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return session, nil
}

// GetSession returns one of the user's sessions.
func (s *Service) GetSession(ctx context.Context, userID, id string) (*model.ChatSession, error) {
	return s.store.GetChatSession(ctx, userID, id)
}

// ListSessions returns the user's sessions.
func (s *Service) ListSessions(ctx context.Context, userID string, filter service.SessionFilter) ([]model.ChatSession, error) {
	sessions, err := s.store.ListChatSessions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	return sessions, nil
}

// SessionUpdate changes a session's name and/or ends it. Nil fields are unchanged.
type SessionUpdate struct {
	Name     *string `json:"session_name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateSession applies an update and returns the refreshed session. A
// session can be ended but not reopened.
func (s *Service) UpdateSession(ctx context.Context, userID, id string, update SessionUpdate) (*model.ChatSession, error) {
	if update.Name != nil {
		if err := validateSessionName(*update.Name); err != nil {
			return nil, err
		}
		if err := s.store.RenameChatSession(ctx, userID, id, *update.Name); err != nil {
			return nil, err
		}
	}
	if update.IsActive != nil {
		if *update.IsActive {
			return nil, common.NewValidationError("is_active", "an ended session cannot be reopened")
		}
		if err := s.store.EndChatSession(ctx, userID, id, s.now()); err != nil {
			return nil, err
		}
	}
	return s.store.GetChatSession(ctx, userID, id)
}

// EndSession marks a session inactive.
func (s *Service) EndSession(ctx context.Context, userID, id string) (*model.ChatSession, error) {
	if err := s.store.EndChatSession(ctx, userID, id, s.now()); err != nil {
		return nil, err
	}
	return s.store.GetChatSession(ctx, userID, id)
}

// DeleteSession removes a session and its messages.
func (s *Service) DeleteSession(ctx context.Context, userID, id string) error {
	return s.store.DeleteChatSession(ctx, userID, id)
}

// Conversation returns a session with its messages.
func (s *Service) Conversation(ctx context.Context, userID, id string) (*Conversation, error) {
	session, err := s.store.GetChatSession(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.GetChatMessages(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return &Conversation{Session: session, Messages: messages}, nil
}

// Analytics summarizes the user's chat activity over the last days days.
func (s *Service) Analytics(ctx context.Context, userID string, days int) (*model.ChatAnalytics, error) {
	if days == 0 {
		days = DefaultAnalyticsDays
	}
	if days < 1 || days > MaxAnalyticsDays {
		return nil, common.NewValidationError("days_back", fmt.Sprintf("must be between 1 and %d", MaxAnalyticsDays))
	}

	a, err := s.store.GetChatAnalytics(ctx, userID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	a.PeriodDays = days
	return a, nil
}
