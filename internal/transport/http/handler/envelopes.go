package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/pkg/validate"
	"github.com/taskpulse-api/internal/transport/http/middleware"
)

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MessageEnvelope is the generic response wrapper. OTP is only populated
// outside production.
type MessageEnvelope struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

// AuthEnvelope wraps login/register responses.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id,omitempty"`
	User         *domain.User `json:"user,omitempty"`
}

type UserEnvelope struct {
	User *domain.User `json:"user"`
}

type UsersPageEnvelope struct {
	Data       []domain.User `json:"data"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type ReportEnvelope struct {
	Message string         `json:"message,omitempty"`
	Report  *domain.Report `json:"report"`
}

type ReportsPageEnvelope struct {
	Data       []domain.Report `json:"data"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: msg, Code: code})
}

func authEnvelope(res *domain.AuthResult) AuthEnvelope {
	env := AuthEnvelope{AccessToken: res.Bearer, RefreshToken: res.RefreshToken}
	if res.Session != nil {
		env.SessionID = res.Session.SessionID
		env.User = res.Session.User
	}
	return env
}

// decodeBody decodes and validates the JSON body into dst, writing the error
// response itself when it returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, err.Error())
		return false
	}
	return true
}

// requireCaller returns the authenticated account or writes a 401.
func requireCaller(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	u := middleware.CallerFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, codeAuthentication, "unauthorized")
		return nil, false
	}
	return u, true
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
