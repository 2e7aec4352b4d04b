// Package api serves the spicebot REST API: accounts, categories,
// transactions, budgets and the chatbot.
package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/spicebot/internal/auth"
	"github.com/Veraticus/spicebot/internal/chatbot"
	"github.com/Veraticus/spicebot/internal/metrics"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Deps are the collaborators the API serves. Responder and Metrics are optional.
type Deps struct {
	Store     service.Storage
	Chat      *chatbot.Service
	Accounts  *auth.Service
	Tokens    *auth.TokenManager
	Responder chatbot.Responder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Config holds HTTP-level settings.
type Config struct {
	AllowedOrigins []string
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns a Config allowing any origin and 1 MiB bodies.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 20,
	}
}

// Server routes API requests to the stores and services.
type Server struct {
	store     service.Storage
	chat      *chatbot.Service
	accounts  *auth.Service
	tokens    *auth.TokenManager
	responder chatbot.Responder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	config    Config
	now       func() time.Time
}

// New creates a server with the default configuration.
func New(deps Deps) *Server {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates a server with the provided configuration.
func NewWithConfig(deps Deps, cfg Config) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return &Server{
		store:     deps.Store,
		chat:      deps.Chat,
		accounts:  deps.Accounts,
		tokens:    deps.Tokens,
		responder: deps.Responder,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/chat/health", s.handleChatHealth).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Middleware(s.tokens, s.logger))

	protected.HandleFunc("/users/me", s.handleProfile).Methods(http.MethodGet)
	protected.HandleFunc("/users/me/password", s.handleChangePassword).Methods(http.MethodPut)

	protected.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	protected.HandleFunc("/user-categories", s.handleListUserCategories).Methods(http.MethodGet)
	protected.HandleFunc("/user-categories", s.handleCreateUserCategory).Methods(http.MethodPost)
	protected.HandleFunc("/user-categories/{id:[0-9]+}", s.handleUpdateUserCategory).Methods(http.MethodPut)

	protected.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	protected.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/summary", s.handleTransactionSummary).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/by-category", s.handleCategoryTotals).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	protected.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	protected.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	protected.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	protected.HandleFunc("/budgets/overview", s.handleBudgetOverview).Methods(http.MethodGet)
	protected.HandleFunc("/budgets/{id}", s.handleGetBudget).Methods(http.MethodGet)
	protected.HandleFunc("/budgets/{id}", s.handleUpdateBudget).Methods(http.MethodPut)
	protected.HandleFunc("/budgets/{id}", s.handleDeleteBudget).Methods(http.MethodDelete)
	protected.HandleFunc("/budgets/{id}/summary", s.handleBudgetSummary).Methods(http.MethodGet)

	protected.HandleFunc("/chat/sessions", s.handleListSessions).Methods(http.MethodGet)
	protected.HandleFunc("/chat/sessions", s.handleCreateSession).Methods(http.MethodPost)
	protected.HandleFunc("/chat/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	protected.HandleFunc("/chat/sessions/{id}", s.handleUpdateSession).Methods(http.MethodPut)
	protected.HandleFunc("/chat/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	protected.HandleFunc("/chat/sessions/{id}/end", s.handleEndSession).Methods(http.MethodPost)
	protected.HandleFunc("/chat/sessions/{id}/conversation", s.handleConversation).Methods(http.MethodGet)
	protected.HandleFunc("/chat/interact", s.handleInteract).Methods(http.MethodPost)
	protected.HandleFunc("/chat/quick", s.handleQuick).Methods(http.MethodPost)
	protected.HandleFunc("/chat/analytics", s.handleAnalytics).Methods(http.MethodGet)
	protected.HandleFunc("/chat/test-ai", s.handleTestAI).Methods(http.MethodGet)

	return r
}

// Handler returns the router wrapped with access logging, panic recovery
// and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(s.config.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
	return h
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Info("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
		"duration", s.now().Sub(p.TimeStamp))
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("recovered from panic", "panic", fmt.Sprint(v...))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
