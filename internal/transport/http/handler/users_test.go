package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse-api/internal/application/user"
	"github.com/taskpulse-api/internal/domain"
	jwtinfra "github.com/taskpulse-api/internal/infrastructure/jwt"
	"github.com/taskpulse-api/internal/transport/http/middleware"
)

// --- mock ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.AuthResult, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*domain.AuthResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) ChangePassword(ctx context.Context, userID string, req user.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func (m *mockUserSvc) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	users, _ := args.Get(0).([]domain.User)
	return users, args.String(1), args.Error(2)
}

func (m *mockUserSvc) AdminUpdate(ctx context.Context, actorID, userID string, req domain.AdminUpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, actorID, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// userLoader serves accounts to middleware.Auth from a fixed map.
type userLoader map[string]*domain.User

func (l userLoader) Get(_ context.Context, userID string) (*domain.User, error) {
	if u, ok := l[userID]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderWithKey(privKey, 24*time.Hour)
}

// bearerReq builds a request with a signed Bearer token for the given user.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target string, u *domain.User, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(u.UserID, u.Role, "sess1")
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, users userLoader, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p, users)(h).ServeHTTP(w, r)
}

// asCaller injects an already-authenticated caller, skipping token handling.
func asCaller(r *http.Request, u *domain.User) *http.Request {
	claims := &jwtinfra.Claims{UserID: u.UserID, Role: u.Role, SessionID: "sess1"}
	return r.WithContext(middleware.WithAuth(r.Context(), claims, u))
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

var (
	employee = &domain.User{UserID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleEmployee, Active: true}
	adminU   = &domain.User{UserID: "adm", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true}
)

// --- UpdateProfile tests ---

func TestUpdateProfile_MissingCaller(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	rr := httptest.NewRecorder()
	h.UpdateProfile(rr, httptest.NewRequest(http.MethodPut, "/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateProfile_ValidationFailure(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	empty := ""
	r := asCaller(httptest.NewRequest(http.MethodPut, "/v1/users/me",
		bytes.NewReader(jsonBody(t, domain.UpdateProfileRequest{Name: &empty}))), employee)
	rr := httptest.NewRecorder()
	h.UpdateProfile(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, codeValidation, decodeError(t, rr).Code)
}

func TestUpdateProfile_ThroughAuthMiddleware(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	name := "Alice B"
	svc.On("UpdateProfile", mock.Anything, "u1", domain.UpdateProfileRequest{Name: &name}).
		Return(&domain.User{UserID: "u1", Name: name}, nil)
	h := NewUserHandler(svc)

	r := bearerReq(t, p, http.MethodPut, "/v1/users/me", employee, jsonBody(t, map[string]string{"name": name}))
	rr := httptest.NewRecorder()
	serveAuthed(p, userLoader{"u1": employee}, http.HandlerFunc(h.UpdateProfile), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp UserEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, name, resp.User.Name)
	svc.AssertExpectations(t)
}

// --- ChangePassword tests ---

func TestChangePassword_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	r := asCaller(httptest.NewRequest(http.MethodPut, "/v1/users/me/password",
		bytes.NewReader(jsonBody(t, map[string]string{"current_password": "old"}))), employee)
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("ChangePassword", mock.Anything, "u1", mock.Anything).
		Return(domain.ErrUnauthorized)
	h := NewUserHandler(svc)
	r := asCaller(httptest.NewRequest(http.MethodPut, "/v1/users/me/password",
		bytes.NewReader(jsonBody(t, user.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpass123"}))), employee)
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePassword_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	req := user.ChangePasswordRequest{CurrentPassword: "oldpass1", NewPassword: "newpass123"}
	svc.On("ChangePassword", mock.Anything, "u1", req).Return(nil)
	h := NewUserHandler(svc)
	r := asCaller(httptest.NewRequest(http.MethodPut, "/v1/users/me/password", bytes.NewReader(jsonBody(t, req))), employee)
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- admin tests ---

func TestList_PassesPaging(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, 5, "abc").Return([]domain.User{*employee}, "next", nil)
	h := NewUserHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, asCaller(httptest.NewRequest(http.MethodGet, "/v1/users?limit=5&cursor=abc", nil), adminU))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp UsersPageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "next", resp.NextCursor)
	assert.NotContains(t, rr.Body.String(), "password")
	svc.AssertExpectations(t)
}

func TestGet_NotFound(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	h := NewUserHandler(svc)

	rr := httptest.NewRecorder()
	h.Get(rr, withChiID(asCaller(httptest.NewRequest(http.MethodGet, "/v1/users/ghost", nil), adminU), "ghost"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, codeNotFound, decodeError(t, rr).Code)
}

func TestAdminUpdate_PassesActor(t *testing.T) {
	svc := &mockUserSvc{}
	role := domain.RoleManager
	svc.On("AdminUpdate", mock.Anything, "adm", "u1", domain.AdminUpdateUserRequest{Role: &role}).
		Return(&domain.User{UserID: "u1", Role: role}, nil)
	h := NewUserHandler(svc)

	r := asCaller(httptest.NewRequest(http.MethodPatch, "/v1/users/u1",
		bytes.NewReader(jsonBody(t, map[string]string{"role": role}))), adminU)
	rr := httptest.NewRecorder()
	h.AdminUpdate(rr, withChiID(r, "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestAdminUpdate_RejectsUnknownRole(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	r := asCaller(httptest.NewRequest(http.MethodPatch, "/v1/users/u1",
		bytes.NewReader(jsonBody(t, map[string]string{"role": "owner"}))), adminU)
	rr := httptest.NewRecorder()
	h.AdminUpdate(rr, withChiID(r, "u1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
