package api

import (
	"context"
	"net/http"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/shopspring/decimal"
)

type budgetRequest struct {
	Amount         decimal.Decimal  `json:"amount"`
	UserCategoryID *int             `json:"user_category_id"`
	AlertThreshold *int             `json:"alert_threshold"`
	Name           string           `json:"name"`
	Type           model.BudgetType `json:"budget_type"`
	PeriodStart    string           `json:"period_start"`
	PeriodEnd      string           `json:"period_end"`
}

type budgetPatch struct {
	Amount         *decimal.Decimal `json:"amount"`
	Name           *string          `json:"name"`
	PeriodStart    *string          `json:"period_start"`
	PeriodEnd      *string          `json:"period_end"`
	AlertThreshold *int             `json:"alert_threshold"`
	IsActive       *bool            `json:"is_active"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	start, err := parseDate("period_start", req.PeriodStart)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := parseDate("period_end", req.PeriodEnd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b := &model.Budget{
		UserID:         userID(r),
		UserCategoryID: req.UserCategoryID,
		Name:           req.Name,
		Type:           req.Type,
		Amount:         req.Amount,
		PeriodStart:    start,
		PeriodEnd:      end,
		AlertThreshold: model.DefaultAlertThreshold,
	}
	if req.AlertThreshold != nil {
		b.AlertThreshold = *req.AlertThreshold
	}
	if err := s.store.CreateBudget(r.Context(), b); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active_only")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	budgets, err := s.store.ListBudgets(r.Context(), userID(r), active != nil && *active)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if budgets == nil {
		budgets = []model.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBudget(r.Context(), userID(r), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetPatch
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	update := service.BudgetUpdate{
		Amount:         req.Amount,
		Name:           req.Name,
		AlertThreshold: req.AlertThreshold,
		IsActive:       req.IsActive,
	}
	if req.PeriodStart != nil {
		start, err := parseDate("period_start", *req.PeriodStart)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		update.PeriodStart = &start
	}
	if req.PeriodEnd != nil {
		end, err := parseDate("period_end", *req.PeriodEnd)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		update.PeriodEnd = &end
	}

	b, err := s.store.UpdateBudget(r.Context(), userID(r), pathID(r), update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBudget(r.Context(), userID(r), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) budgetSummary(ctx context.Context, b model.Budget) (model.BudgetSummary, error) {
	spent, err := s.store.GetBudgetSpent(ctx, b)
	if err != nil {
		return model.BudgetSummary{}, err
	}
	return b.Summarize(spent), nil
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := s.store.GetBudget(ctx, userID(r), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.budgetSummary(ctx, *b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	budgets, err := s.store.ListBudgets(ctx, userID(r), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	overview := model.BudgetOverview{
		Budgets:       make([]model.BudgetSummary, 0, len(budgets)),
		TotalBudgeted: decimal.Zero,
		TotalSpent:    decimal.Zero,
	}
	for _, b := range budgets {
		summary, err := s.budgetSummary(ctx, b)
		if err != nil {
			s.writeError(w, r, common.NewUserError("failed to compute budget overview", err))
			return
		}
		overview.Budgets = append(overview.Budgets, summary)
		overview.TotalBudgeted = overview.TotalBudgeted.Add(b.Amount)
		overview.TotalSpent = overview.TotalSpent.Add(summary.Spent)
		switch summary.Status {
		case model.AlertExceeded:
			overview.OverBudget++
		case model.AlertNearing:
			overview.NearLimit++
		}
	}
	writeJSON(w, http.StatusOK, overview)
}
