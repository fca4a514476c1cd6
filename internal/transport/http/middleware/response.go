package middleware

import (
	"encoding/json"
	"net/http"
)

const (
	codeAuthentication  = "authentication_error"
	codeAuthorization   = "authorization_error"
	codeTooManyRequests = "too_many_requests"
	codeInternal        = "internal_error"
)

// writeJSONError writes the same {"error","code"} envelope the handlers use.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
