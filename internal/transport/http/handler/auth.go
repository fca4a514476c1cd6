package handler

import (
	"net/http"

	"github.com/taskpulse-api/internal/application/auth"
	"github.com/taskpulse-api/internal/application/session"
	"github.com/taskpulse-api/internal/application/user"
	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/transport/http/middleware"
)

// AuthHandler serves sign-up, sign-in and the email code flows.
type AuthHandler struct {
	sessions session.Service
	users    user.Service
	codes    auth.Service
	// exposeCodes echoes issued codes in responses (OTP_ECHO, non-production only).
	exposeCodes bool
}

func NewAuthHandler(sessions session.Service, users user.Service, codes auth.Service, exposeCodes bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users, codes: codes, exposeCodes: exposeCodes}
}

type googleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.users.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authEnvelope(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope(res))
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.sessions.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope(res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims == nil {
		writeError(w, http.StatusUnauthorized, codeAuthentication, "unauthorized")
		return
	}
	if err := h.sessions.Logout(r.Context(), claims.SessionID, claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: caller})
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.SendOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	code, err := h.codes.SendVerificationOTP(r.Context(), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.withCode(MessageEnvelope{Message: "OTP sent to your email"}, code))
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.codes.VerifyEmailOTP(r.Context(), req.Email, req.OTP); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email verified"})
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	code, err := h.codes.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.withCode(MessageEnvelope{
		Message: "if an account with that email exists, a reset link has been sent",
	}, code))
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.codes.ResetPassword(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password has been reset"})
}

func (h *AuthHandler) withCode(env MessageEnvelope, code string) MessageEnvelope {
	if h.exposeCodes {
		env.OTP = code
	}
	return env
}
