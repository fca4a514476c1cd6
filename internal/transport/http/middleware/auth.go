package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/taskpulse-api/internal/domain"
	jwtinfra "github.com/taskpulse-api/internal/infrastructure/jwt"
	"go.uber.org/zap"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	callerKey contextKey = "caller"
)

type tokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

type userLoader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Auth validates the Bearer JWT, loads the account named by its user_id claim
// and injects both into the request context. Missing or deactivated accounts are rejected.
func Auth(tokens tokenVerifier, users userLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, codeAuthentication, "missing or invalid authorization header")
				return
			}
			claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, codeAuthentication, "invalid or expired token")
				return
			}
			u, err := users.Get(r.Context(), claims.UserID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					zap.L().Error("load caller", zap.String("user_id", claims.UserID), zap.Error(err))
					writeJSONError(w, http.StatusInternalServerError, codeInternal, "internal server error")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, codeAuthentication, "user not found")
				return
			}
			if !u.Active {
				writeJSONError(w, http.StatusUnauthorized, codeAuthentication, "account is deactivated")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), claims, u)))
		})
	}
}

// WithAuth stores the verified claims and the resolved caller in ctx.
func WithAuth(ctx context.Context, claims *jwtinfra.Claims, caller *domain.User) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, callerKey, caller)
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// CallerFromContext returns the authenticated account, or nil.
func CallerFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(callerKey).(*domain.User)
	return u
}
