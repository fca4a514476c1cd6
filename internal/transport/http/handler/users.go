package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskpulse-api/internal/application/user"
	"github.com/taskpulse-api/internal/domain"
)

// UserHandler handles profile and user administration endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), caller.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req user.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), caller.UserID, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

// List is admin-only; the route guard enforces that.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, next, err := h.svc.List(r.Context(), queryLimit(r), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, UsersPageEnvelope{Data: users, NextCursor: next})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *UserHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req domain.AdminUpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.svc.AdminUpdate(r.Context(), caller.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}
