package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/shopspring/decimal"
)

type transactionRequest struct {
	Amount         decimal.Decimal       `json:"amount"`
	Type           model.TransactionType `json:"type"`
	Date           string                `json:"transaction_date"`
	Category       string                `json:"category"`
	Description    string                `json:"description"`
	PaymentMethod  string                `json:"payment_method"`
	Location       string                `json:"location"`
	Notes          string                `json:"notes"`
	UserCategoryID int                   `json:"user_category_id"`
}

type transactionPatch struct {
	Amount         *decimal.Decimal       `json:"amount"`
	Type           *model.TransactionType `json:"type"`
	Date           *string                `json:"transaction_date"`
	Description    *string                `json:"description"`
	PaymentMethod  *string                `json:"payment_method"`
	Location       *string                `json:"location"`
	Notes          *string                `json:"notes"`
	UserCategoryID *int                   `json:"user_category_id"`
}

// resolveCategory picks the user category by ID, or else by display name.
func (s *Server) resolveCategory(ctx context.Context, userID string, id int, name string) (int, error) {
	if id > 0 {
		return id, nil
	}
	if strings.TrimSpace(name) == "" {
		return 0, common.NewValidationError("user_category_id", "a category ID or name is required")
	}
	uc, err := s.store.ResolveUserCategory(ctx, userID, name)
	if err != nil {
		return 0, err
	}
	return uc.ID, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	uid := userID(r)
	categoryID, err := s.resolveCategory(ctx, uid, req.UserCategoryID, req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	date := s.now()
	if req.Date != "" {
		if date, err = parseDate("transaction_date", req.Date); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.DefaultPaymentMethod
	}

	txn := &model.Transaction{
		UserID:         uid,
		UserCategoryID: categoryID,
		Type:           req.Type,
		Amount:         req.Amount,
		Date:           date,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		Location:       req.Location,
		Notes:          req.Notes,
		CreatedBy:      model.CreatedByManual,
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func transactionFilter(r *http.Request) (service.TransactionFilter, error) {
	q := r.URL.Query()
	var (
		filter service.TransactionFilter
		err    error
	)

	filter.Type = model.TransactionType(q.Get("type"))
	if filter.Type != "" && !filter.Type.Valid() {
		return filter, common.NewValidationError("type", "must be income or expense")
	}
	if filter.UserCategoryID, err = queryInt(r, "user_category_id", 0); err != nil {
		return filter, err
	}
	if filter.StartDate, err = optionalDate("date_from", q.Get("date_from"), false); err != nil {
		return filter, err
	}
	if filter.EndDate, err = optionalDate("date_to", q.Get("date_to"), true); err != nil {
		return filter, err
	}
	if filter.MinAmount, err = optionalDecimal("min_amount", q.Get("min_amount")); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = optionalDecimal("max_amount", q.Get("max_amount")); err != nil {
		return filter, err
	}
	filter.PaymentMethod = q.Get("payment_method")
	filter.Offset, filter.Limit, err = paging(r)
	return filter, err
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txns, err := s.store.ListTransactions(r.Context(), userID(r), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := s.store.GetTransaction(r.Context(), userID(r), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatch
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	update := service.TransactionUpdate{
		Amount:         req.Amount,
		Type:           req.Type,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		Location:       req.Location,
		Notes:          req.Notes,
		UserCategoryID: req.UserCategoryID,
	}
	if req.Date != nil {
		date, err := parseDate("transaction_date", *req.Date)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		update.Date = &date
	}

	txn, err := s.store.UpdateTransaction(r.Context(), userID(r), pathID(r), update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.Context(), userID(r), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func summaryFilter(r *http.Request) (service.SummaryFilter, error) {
	q := r.URL.Query()
	from, err := optionalDate("date_from", q.Get("date_from"), false)
	if err != nil {
		return service.SummaryFilter{}, err
	}
	to, err := optionalDate("date_to", q.Get("date_to"), true)
	if err != nil {
		return service.SummaryFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return service.SummaryFilter{}, common.NewValidationError("date_to", "must not be before date_from")
	}
	return service.SummaryFilter{From: from, To: to}, nil
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := summaryFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.store.GetTransactionSummary(r.Context(), userID(r), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	filter, err := summaryFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	totals, err := s.store.GetCategoryTotals(r.Context(), userID(r), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if totals == nil {
		totals = []model.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}
