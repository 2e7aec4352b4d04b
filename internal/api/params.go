package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spicebot/internal/auth"
	"github.com/Veraticus/spicebot/internal/common"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Paging limits for list endpoints.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// userID returns the authenticated user. Routes reaching it are always
// behind auth.Middleware.
func userID(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, common.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, common.NewValidationError(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

// optionalDate parses an optional date. When endOfDay is set, a bare date
// extends to the last second of that day.
func optionalDate(field, value string, endOfDay bool) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	if endOfDay && len(strings.TrimSpace(value)) == len(time.DateOnly) {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func optionalDecimal(field, value string) (*decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, common.NewValidationError(field, "must be a decimal number")
	}
	return &d, nil
}

func queryInt(r *http.Request, field string, def int) (int, error) {
	value := r.URL.Query().Get(field)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, common.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

func queryBool(r *http.Request, field string) (*bool, error) {
	value := r.URL.Query().Get(field)
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, common.NewValidationError(field, "must be true or false")
	}
	return &b, nil
}

// paging reads skip and limit.
func paging(r *http.Request) (offset, limit int, err error) {
	if offset, err = queryInt(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, common.NewValidationError("skip", "must not be negative")
	}
	if limit, err = queryInt(r, "limit", DefaultLimit); err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > MaxLimit {
		return 0, 0, common.NewValidationError("limit", "must be between 1 and "+strconv.Itoa(MaxLimit))
	}
	return offset, limit, nil
}
