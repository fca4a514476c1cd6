package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskpulse-api/internal/config"
	"github.com/taskpulse-api/internal/transport/http/handler"
)

func newTestRouter() http.Handler {
	cfg := &config.Config{AppEnv: "test", AllowedOrigins: []string{"*"}}
	return NewRouter(cfg, &Deps{})
}

func TestRouter_HealthCheck(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestRouter_MetricsExposed(t *testing.T) {
	router := newTestRouter()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health-check", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "taskpulse_http_requests_total")
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter()
	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/v1/reports"},
		{http.MethodPost, "/v1/reports"},
		{http.MethodGet, "/v1/reports/today"},
		{http.MethodGet, "/v1/reports/stats"},
		{http.MethodDelete, "/v1/reports/r1/force"},
		{http.MethodGet, "/v1/users"},
		{http.MethodPut, "/v1/users/me"},
		{http.MethodGet, "/v1/auth/me"},
		{http.MethodPost, "/v1/auth/logout"},
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(c.method, c.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", c.method, c.path)
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthCheck_DegradedDependency(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.Pinger{"redis": downPinger{}})
	rr := httptest.NewRecorder()
	h.Check(rr, httptest.NewRequest(http.MethodGet, "/health-check", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redis":"down"`)
}

func sendOTPFrom(router http.Handler, xff string) int {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/send-otp", nil)
	req.RemoteAddr = "203.0.113.7:4444"
	req.Header.Set("X-Forwarded-For", xff)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr.Code
}

func TestRouter_PublicAuthLimitIgnoresForwardedForByDefault(t *testing.T) {
	router := newTestRouter()
	limited := false
	for i := 0; i < 50; i++ {
		if sendOTPFrom(router, fmt.Sprintf("10.1.0.%d", i)) == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "rotating X-Forwarded-For must not yield fresh buckets")
}

func TestRouter_TrustedProxyKeysOnForwardedClient(t *testing.T) {
	cfg := &config.Config{AppEnv: "test", AllowedOrigins: []string{"*"}, TrustProxyHeaders: true}
	router := NewRouter(cfg, &Deps{})
	for i := 0; i < 50; i++ {
		assert.NotEqual(t, http.StatusTooManyRequests, sendOTPFrom(router, fmt.Sprintf("10.2.0.%d", i)))
	}
}
