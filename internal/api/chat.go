package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/spicebot/internal/chatbot"
	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/service"
)

const probeTimeout = 15 * time.Second

type createSessionRequest struct {
	SessionName string `json:"session_name"`
}

type quickRequest struct {
	Message string `json:"message"`
}

type probeResult struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Latency  string `json:"latency"`
	Success  bool   `json:"success"`
}

func sessionFilter(r *http.Request) (service.SessionFilter, error) {
	q := r.URL.Query()
	var (
		filter service.SessionFilter
		err    error
	)
	if filter.IsActive, err = queryBool(r, "is_active"); err != nil {
		return filter, err
	}
	filter.Search = q.Get("search")

	switch sort := service.SessionSort(q.Get("sort_by")); sort {
	case "", service.SortStartedAt, service.SortMessageCount:
		filter.SortBy = sort
	default:
		return filter, common.NewValidationError("sort_by", "must be started_at or message_count")
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
		filter.Desc = true
	case "asc":
	default:
		return filter, common.NewValidationError("order", "must be asc or desc")
	}

	filter.Offset, filter.Limit, err = paging(r)
	return filter, err
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := sessionFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sessions, err := s.chat.ListSessions(r.Context(), userID(r), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	session, err := s.chat.CreateSession(r.Context(), userID(r), req.SessionName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.chat.GetSession(r.Context(), userID(r), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req chatbot.SessionUpdate
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.chat.UpdateSession(r.Context(), userID(r), pathID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.chat.EndSession(r.Context(), userID(r), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteSession(r.Context(), userID(r), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.chat.Conversation(r.Context(), userID(r), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req chatbot.InteractRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.chat.Interact(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuick(w http.ResponseWriter, r *http.Request) {
	var req quickRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.chat.Quick(r.Context(), userID(r), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days_back", chatbot.DefaultAnalyticsDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	analytics, err := s.chat.Analytics(r.Context(), userID(r), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleChatHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    "chatbot",
		"ai_enabled": s.responder != nil,
		"features":   []string{"intent_classification", "entity_extraction", "transaction_recording", "financial_advice"},
	})
}

// handleTestAI sends one probe prompt to the language model and reports the
// outcome. It never retries.
func (s *Server) handleTestAI(w http.ResponseWriter, r *http.Request) {
	if s.responder == nil {
		writeJSON(w, http.StatusServiceUnavailable, probeResult{Error: "language model is not configured", Latency: "0s"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	start := s.now()
	reply, err := s.responder.Complete(ctx, "You are a connectivity probe. Reply briefly.", "Xin chào! Bạn có hoạt động không?")
	result := probeResult{Latency: s.now().Sub(start).Round(time.Millisecond).String()}
	if err != nil {
		common.LogError(s.logger, err, "language model probe failed", common.Fields{"user_id": userID(r)})
		result.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, result)
		return
	}
	result.Success = true
	result.Response = reply
	writeJSON(w, http.StatusOK, result)
}
