package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/taskpulse-api/internal/domain"
	"go.uber.org/zap"
)

const (
	codeValidation      = "validation_error"
	codeAuthentication  = "authentication_error"
	codeAuthorization   = "authorization_error"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeInvalidToken    = "invalid_or_expired_token"
	codeTooManyRequests = "too_many_requests"
	codeInternal        = "internal_error"
)

var errorMap = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrInvalidCode, http.StatusBadRequest, codeInvalidToken},
	{domain.ErrBadRequest, http.StatusBadRequest, codeValidation},
	{domain.ErrUnauthorized, http.StatusUnauthorized, codeAuthentication},
	{domain.ErrForbidden, http.StatusForbidden, codeAuthorization},
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrConflict, http.StatusConflict, codeConflict},
	{domain.ErrTooManyRequests, http.StatusTooManyRequests, codeTooManyRequests},
}

// httpError maps a domain sentinel error to its HTTP status and error code.
// Anything unrecognised is logged and reported as a generic 500.
func httpError(w http.ResponseWriter, err error) {
	for _, m := range errorMap {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		msg := publicMessage(err, m.sentinel)
		if m.sentinel == domain.ErrInvalidCode {
			msg = domain.ErrInvalidCode.Error()
		}
		writeError(w, m.status, m.code, msg)
		return
	}
	zap.L().Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
}

// publicMessage drops the trailing ": <sentinel>" that %w wrapping appends.
func publicMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
