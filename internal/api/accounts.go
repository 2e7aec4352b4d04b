package api

import (
	"net/http"

	"github.com/Veraticus/spicebot/internal/auth"
	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, r, common.NewValidationError("email", "email and password are required"))
		return
	}
	session, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.Profile(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.accounts.ChangePassword(r.Context(), userID(r), req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

type userCategoryRequest struct {
	CustomName string `json:"custom_name"`
	CategoryID int    `json:"category_id"`
}

type userCategoryUpdate struct {
	CustomName *string `json:"custom_name"`
	IsActive   *bool   `json:"is_active"`
}

type userCategoryView struct {
	model.UserCategory
	DisplayName string `json:"display_name"`
}

func viewUserCategory(uc model.UserCategory) userCategoryView {
	return userCategoryView{UserCategory: uc, DisplayName: uc.DisplayName()}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind := model.CategoryType(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		s.writeError(w, r, common.NewValidationError("type", "must be income or expense"))
		return
	}
	cats, err := s.store.GetCategories(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListUserCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.GetUserCategories(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]userCategoryView, 0, len(cats))
	for _, uc := range cats {
		views = append(views, viewUserCategory(uc))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateUserCategory(w http.ResponseWriter, r *http.Request) {
	var req userCategoryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.CategoryID <= 0 {
		s.writeError(w, r, common.NewValidationError("category_id", "is required"))
		return
	}
	uc, err := s.store.CreateUserCategory(r.Context(), userID(r), req.CategoryID, req.CustomName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewUserCategory(*uc))
}

func (s *Server) handleUpdateUserCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req userCategoryUpdate
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	uc, err := s.store.GetUserCategory(ctx, userID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name, active := uc.CustomName, uc.IsActive
	if req.CustomName != nil {
		name = *req.CustomName
	}
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if err := s.store.UpdateUserCategory(ctx, userID(r), id, name, active); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.GetUserCategory(ctx, userID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewUserCategory(*updated))
}
