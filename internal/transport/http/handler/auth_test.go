package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse-api/internal/application/auth"
	"github.com/taskpulse-api/internal/application/session"
	"github.com/taskpulse-api/internal/domain"
)

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) result(args mock.Arguments) (*domain.AuthResult, error) {
	if res, _ := args.Get(0).(*domain.AuthResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Login(ctx context.Context, req session.LoginRequest) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, req))
}

func (m *mockSessionSvc) LoginWithGoogle(ctx context.Context, idToken string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, idToken))
}

func (m *mockSessionSvc) Issue(ctx context.Context, u *domain.User) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, u))
}

func (m *mockSessionSvc) Logout(ctx context.Context, sessionID, userID string) error {
	return m.Called(ctx, sessionID, userID).Error(0)
}

func (m *mockSessionSvc) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	return m.result(m.Called(ctx, refreshToken))
}

type mockCodesSvc struct{ mock.Mock }

func (m *mockCodesSvc) SendVerificationOTP(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockCodesSvc) VerifyEmailOTP(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *mockCodesSvc) ForgotPassword(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockCodesSvc) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

type authFixture struct {
	sessions *mockSessionSvc
	users    *mockUserSvc
	codes    *mockCodesSvc
}

func newAuthHandler(expose bool) (*AuthHandler, *authFixture) {
	f := &authFixture{sessions: &mockSessionSvc{}, users: &mockUserSvc{}, codes: &mockCodesSvc{}}
	return NewAuthHandler(f.sessions, f.users, f.codes, expose), f
}

func post(t *testing.T, target string, body interface{}) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodPost, target, bytes.NewReader(jsonBody(t, body)))
}

func authResult() *domain.AuthResult {
	return &domain.AuthResult{
		Bearer:       "access-token",
		RefreshToken: "refresh-token",
		Session:      &domain.Session{SessionID: "s1", UserID: "u1", User: employee},
	}
}

func TestRegister_InvalidBody(t *testing.T) {
	h, _ := newAuthHandler(false)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewBufferString("not-json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	h, _ := newAuthHandler(false)
	rr := httptest.NewRecorder()
	h.Register(rr, post(t, "/v1/auth/register", domain.CreateUserRequest{Name: "Alice", Email: "alice@example.com", Password: "123"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h, f := newAuthHandler(false)
	f.users.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	rr := httptest.NewRecorder()
	h.Register(rr, post(t, "/v1/auth/register", domain.CreateUserRequest{Name: "Alice", Email: "alice@example.com", Password: "secret123"}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, codeConflict, decodeError(t, rr).Code)
}

func TestRegister_HappyPath(t *testing.T) {
	h, f := newAuthHandler(false)
	f.users.On("Register", mock.Anything, mock.Anything).Return(authResult(), nil)
	rr := httptest.NewRecorder()
	h.Register(rr, post(t, "/v1/auth/register", domain.CreateUserRequest{Name: "Alice", Email: "alice@example.com", Password: "secret123"}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "alice@example.com", resp.User.Email)
}

func TestLogin_InactiveAccount(t *testing.T) {
	h, f := newAuthHandler(false)
	f.sessions.On("Login", mock.Anything, session.LoginRequest{Email: "alice@example.com", Password: "pw"}).
		Return(nil, domain.ErrUnauthorized)
	rr := httptest.NewRecorder()
	h.Login(rr, post(t, "/v1/auth/login", session.LoginRequest{Email: "alice@example.com", Password: "pw"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, codeAuthentication, decodeError(t, rr).Code)
}

func TestGoogle_RequiresToken(t *testing.T) {
	h, _ := newAuthHandler(false)
	rr := httptest.NewRecorder()
	h.Google(rr, post(t, "/v1/auth/google", map[string]string{}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestGoogle_HappyPath(t *testing.T) {
	h, f := newAuthHandler(false)
	f.sessions.On("LoginWithGoogle", mock.Anything, "google-id-token").Return(authResult(), nil)
	rr := httptest.NewRecorder()
	h.Google(rr, post(t, "/v1/auth/google", map[string]string{"id_token": "google-id-token"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	f.sessions.AssertExpectations(t)
}

func TestRefresh_Rotates(t *testing.T) {
	h, f := newAuthHandler(false)
	f.sessions.On("Refresh", mock.Anything, "old").Return(&domain.AuthResult{Bearer: "a2", RefreshToken: "r2"}, nil)
	rr := httptest.NewRecorder()
	h.Refresh(rr, post(t, "/v1/auth/refresh", map[string]string{"refresh_token": "old"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "r2", resp.RefreshToken)
}

func TestLogout_UsesSessionFromToken(t *testing.T) {
	h, f := newAuthHandler(false)
	f.sessions.On("Logout", mock.Anything, "sess1", "u1").Return(nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, asCaller(httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil), employee))
	assert.Equal(t, http.StatusOK, rr.Code)
	f.sessions.AssertExpectations(t)
}

func TestMe(t *testing.T) {
	h, _ := newAuthHandler(false)

	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.Me(rr, asCaller(httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil), employee))
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp UserEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "u1", resp.User.UserID)
}

func TestSendOTP_CodeOnlyExposedOutsideProduction(t *testing.T) {
	for _, expose := range []bool{true, false} {
		h, f := newAuthHandler(expose)
		f.codes.On("SendVerificationOTP", mock.Anything, "alice@example.com").Return("012345", nil)
		rr := httptest.NewRecorder()
		h.SendOTP(rr, post(t, "/v1/auth/send-otp", auth.SendOTPRequest{Email: "alice@example.com"}))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp MessageEnvelope
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		if expose {
			assert.Equal(t, "012345", resp.OTP)
		} else {
			assert.Empty(t, resp.OTP)
		}
	}
}

func TestSendOTP_Throttled(t *testing.T) {
	h, f := newAuthHandler(false)
	f.codes.On("SendVerificationOTP", mock.Anything, "alice@example.com").Return("", domain.ErrTooManyRequests)
	rr := httptest.NewRecorder()
	h.SendOTP(rr, post(t, "/v1/auth/send-otp", auth.SendOTPRequest{Email: "alice@example.com"}))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestVerifyOTP_MalformedCode(t *testing.T) {
	h, _ := newAuthHandler(false)
	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, post(t, "/v1/auth/verify-otp", auth.VerifyOTPRequest{Email: "alice@example.com", OTP: "12ab"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestVerifyOTP_RejectedCodeHasUniformMessage(t *testing.T) {
	h, f := newAuthHandler(false)
	f.codes.On("VerifyEmailOTP", mock.Anything, "alice@example.com", "123456").
		Return(domain.ErrInvalidCode)
	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, post(t, "/v1/auth/verify-otp", auth.VerifyOTPRequest{Email: "alice@example.com", OTP: "123456"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeError(t, rr)
	assert.Equal(t, codeInvalidToken, env.Code)
	assert.Equal(t, "invalid or expired code", env.Error)
}

func TestForgotPassword_UnknownEmailStillOK(t *testing.T) {
	h, f := newAuthHandler(true)
	f.codes.On("ForgotPassword", mock.Anything, "nobody@example.com").Return("", nil)
	rr := httptest.NewRecorder()
	h.ForgotPassword(rr, post(t, "/v1/auth/forgot-password", auth.ForgotPasswordRequest{Email: "nobody@example.com"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Empty(t, resp.OTP)
}

func TestResetPassword(t *testing.T) {
	h, f := newAuthHandler(false)
	req := auth.ResetPasswordRequest{Email: "alice@example.com", Token: "123456", NewPassword: "brand-new"}
	f.codes.On("ResetPassword", mock.Anything, req).Return(nil)
	rr := httptest.NewRecorder()
	h.ResetPassword(rr, post(t, "/v1/auth/reset-password", req))
	assert.Equal(t, http.StatusOK, rr.Code)
	f.codes.AssertExpectations(t)
}
