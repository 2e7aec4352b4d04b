package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/spicebot/internal/auth"
	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case common.IsValidation(err),
		errors.Is(err, storage.ErrInvalidTransaction),
		errors.Is(err, storage.ErrInvalidBudget),
		errors.Is(err, storage.ErrInvalidDateRange),
		errors.Is(err, storage.ErrEmptyString):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrInactiveUser):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateEntry), errors.Is(err, common.ErrSessionEnded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as {"error": ...}. Server errors are logged and
// their details withheld unless wrapped in a common.UserError.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()

	if status >= http.StatusInternalServerError {
		common.LogError(s.logger, err, "request failed", common.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		msg = http.StatusText(status)
		var ue *common.UserError
		if errors.As(err, &ue) {
			msg = ue.UserMessage
		}
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeUnavailable(w http.ResponseWriter, err error) {
	common.LogError(s.logger, err, "health check failed", nil)
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
