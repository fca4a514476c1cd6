package middleware

import (
	"errors"
	"net/http"

	"github.com/taskpulse-api/internal/domain"
)

// RequireCapability guards a route with a resource-less domain.Authorize check.
func RequireCapability(action domain.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := domain.Authorize(CallerFromContext(r.Context()), action, nil, "")
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, domain.ErrUnauthorized):
				writeJSONError(w, http.StatusUnauthorized, codeAuthentication, "unauthorized")
			default:
				writeJSONError(w, http.StatusForbidden, codeAuthorization, "forbidden")
			}
		})
	}
}
