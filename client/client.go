// Package client is a Go client for the TaskPulse HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taskpulse-api/internal/domain"
)

// Client calls the API on behalf of one Session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL (e.g. "https://api.example.com") acting
// with sess. A nil session starts unauthenticated and is never persisted.
func New(baseURL string, sess *Session, opts ...Option) *Client {
	if sess == nil {
		sess = &Session{}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: sess,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

// APIError is a non-2xx response. It unwraps to the matching domain sentinel
// so callers can use errors.Is(err, domain.ErrConflict).
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("taskpulse: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation_error":
		return domain.ErrBadRequest
	case "authentication_error":
		return domain.ErrUnauthorized
	case "authorization_error":
		return domain.ErrForbidden
	case "not_found":
		return domain.ErrNotFound
	case "conflict":
		return domain.ErrConflict
	case "invalid_or_expired_token":
		return domain.ErrInvalidCode
	case "too_many_requests":
		return domain.ErrTooManyRequests
	}
	return nil
}

type authResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id"`
	User         *domain.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp"`
}

type reportResponse struct {
	Report *domain.Report `json:"report"`
}

// ReportPage is one page of a report listing.
type ReportPage struct {
	Data       []domain.Report `json:"data"`
	NextCursor string          `json:"next_cursor"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Data       []domain.User `json:"data"`
	NextCursor string        `json:"next_cursor"`
}

// Export describes a generated workbook download.
type Export struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// --- auth ---

func (c *Client) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	return c.signIn(ctx, "/v1/auth/register", req)
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return c.signIn(ctx, "/v1/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*domain.User, error) {
	return c.signIn(ctx, "/v1/auth/google", map[string]string{"id_token": idToken})
}

func (c *Client) signIn(ctx context.Context, path string, body interface{}) (*domain.User, error) {
	var res authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &res, false); err != nil {
		return nil, err
	}
	c.session.set(res.AccessToken, res.RefreshToken, res.SessionID, res.User)
	return res.User, c.session.Save()
}

// Refresh rotates the refresh token and stores the new pair.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.session.tokens()
	if refresh == "" {
		return fmt.Errorf("no refresh token: %w", domain.ErrUnauthorized)
	}
	var res authResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, &res, false); err != nil {
		return err
	}
	c.session.set(res.AccessToken, res.RefreshToken, res.SessionID, res.User)
	return c.session.Save()
}

// Logout ends the server session and clears local credentials even when the
// server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, true)
	if clearErr := c.session.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var res struct {
		User *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, &res, true); err != nil {
		return nil, err
	}
	return res.User, nil
}

// SendOTP requests a verification code. The code is only returned by
// non-production servers.
func (c *Client) SendOTP(ctx context.Context, email string) (string, error) {
	var res messageResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/send-otp", map[string]string{"email": email}, &res, false)
	return res.OTP, err
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/verify-otp", map[string]string{"email": email, "otp": code}, nil, false)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var res messageResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/forgot-password", map[string]string{"email": email}, &res, false)
	return res.OTP, err
}

func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	body := map[string]string{"email": email, "token": token, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/v1/auth/reset-password", body, nil, false)
}

// --- users ---

func (c *Client) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	var res struct {
		User *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/v1/users/me", req, &res, true); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPut, "/v1/users/me/password", body, nil, true)
}

func (c *Client) ListUsers(ctx context.Context, limit int, cursor string) (*UserPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page UserPage
	if err := c.do(ctx, http.MethodGet, withQuery("/v1/users", q), nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) AdminUpdateUser(ctx context.Context, userID string, req domain.AdminUpdateUserRequest) (*domain.User, error) {
	var res struct {
		User *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(userID), req, &res, true); err != nil {
		return nil, err
	}
	return res.User, nil
}

// --- reports ---

func (c *Client) CreateReport(ctx context.Context, req domain.CreateReportRequest) (*domain.Report, error) {
	return c.report(ctx, http.MethodPost, "/v1/reports", req)
}

// TodayReport returns the caller's report for today, or nil when none exists.
func (c *Client) TodayReport(ctx context.Context) (*domain.Report, error) {
	return c.report(ctx, http.MethodGet, "/v1/reports/today", nil)
}

func (c *Client) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return c.report(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(id), nil)
}

func (c *Client) UpdateReport(ctx context.Context, id string, req domain.UpdateReportRequest) (*domain.Report, error) {
	return c.report(ctx, http.MethodPut, "/v1/reports/"+url.PathEscape(id), req)
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/reports/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) ForceDeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/reports/"+url.PathEscape(id)+"/force", nil, nil, true)
}

func (c *Client) ListReports(ctx context.Context, f domain.ReportFilter) (*ReportPage, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"employee_id": f.EmployeeID,
		"start_date":  f.From,
		"end_date":    f.To,
		"status":      f.Status,
		"cursor":      f.Cursor,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(int(f.Limit)))
	}
	var page ReportPage
	if err := c.do(ctx, http.MethodGet, withQuery("/v1/reports", q), nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) ReportStats(ctx context.Context, from, to string) (*domain.ReportStats, error) {
	var st domain.ReportStats
	if err := c.do(ctx, http.MethodGet, withQuery("/v1/reports/stats", dateRange(from, to)), nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ExportReports(ctx context.Context, from, to string) (*Export, error) {
	var ex Export
	if err := c.do(ctx, http.MethodGet, withQuery("/v1/reports/export", dateRange(from, to)), nil, &ex, true); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (c *Client) report(ctx context.Context, method, path string, body interface{}) (*domain.Report, error) {
	var res reportResponse
	if err := c.do(ctx, method, path, body, &res, true); err != nil {
		return nil, err
	}
	return res.Report, nil
}

func dateRange(from, to string) url.Values {
	q := url.Values{}
	if from != "" {
		q.Set("start_date", from)
	}
	if to != "" {
		q.Set("end_date", to)
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// do performs one API call. Authenticated calls that fail with 401 refresh
// the session once and retry.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	err := c.send(ctx, method, path, body, out, authed)
	if apiErr, ok := err.(*APIError); ok && authed && apiErr.Status == http.StatusUnauthorized {
		if _, refresh := c.session.tokens(); refresh != "" && c.Refresh(ctx) == nil {
			return c.send(ctx, method, path, body, out, authed)
		}
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if access, _ := c.session.tokens(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
