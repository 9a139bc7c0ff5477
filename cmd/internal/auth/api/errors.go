package authapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"finapp/cmd/internal/auth/authsvc"
	"finapp/cmd/internal/auth/session"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	CodeInvalidPassword        = "INVALID_PASSWORD"
	CodeEmailNotFound          = "AUTH_EMAIL_NOT_FOUND"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeAccountLocked          = "ACCOUNT_LOCKED"
	CodeTooManyLoginAttempts   = "TOO_MANY_LOGIN_ATTEMPTS"
	CodeInvalidRefreshToken    = "INVALID_REFRESH_TOKEN"
	CodeExpiredRefreshToken    = "EXPIRED_REFRESH_TOKEN"
	CodeRevokedRefreshToken    = "REVOKED_REFRESH_TOKEN"
	CodeRefreshConflict        = "REFRESH_CONFLICT"
	CodeInvalidAccessToken     = "INVALID_ACCESS_TOKEN"
	CodeExpiredSession         = "EXPIRED_SESSION"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeTooManyRequests        = "TOO_MANY_REQUESTS"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
	CodeForbiddenAction        = "FORBIDDEN_ACTION"
	CodeCannotRevokeOwnSession = "CANNOT_REVOKE_OWN_SESSION"
	CodeInternal               = "INTERNAL_ERROR"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// errorTable maps domain errors to HTTP responses. First match wins.
var errorTable = []errorMapping{
	{authsvc.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest, "invalid request"},
	{authsvc.ErrEmailAlreadyRegistered, http.StatusConflict, CodeEmailAlreadyRegistered, "email already registered"},
	{authsvc.ErrInvalidPassword, http.StatusBadRequest, CodeInvalidPassword, "password does not meet requirements"},
	{authsvc.ErrEmailNotFound, http.StatusNotFound, CodeEmailNotFound, "no account for this email"},
	{authsvc.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials"},
	{authsvc.ErrAccountLocked, http.StatusForbidden, CodeAccountLocked, "account locked"},
	{authsvc.ErrTooManyLoginAttempts, http.StatusTooManyRequests, CodeTooManyLoginAttempts, "too many login attempts"},
	{authsvc.ErrInvalidRefreshToken, http.StatusUnauthorized, CodeInvalidRefreshToken, "invalid refresh token"},
	{authsvc.ErrExpiredRefreshToken, http.StatusUnauthorized, CodeExpiredRefreshToken, "refresh token expired"},
	{authsvc.ErrRevokedRefreshToken, http.StatusUnauthorized, CodeRevokedRefreshToken, "refresh token revoked"},
	{authsvc.ErrRefreshConflict, http.StatusConflict, CodeRefreshConflict, "session was refreshed concurrently"},
	{authsvc.ErrInvalidAccessToken, http.StatusUnauthorized, CodeInvalidAccessToken, "invalid access token"},
	{authsvc.ErrExpiredSession, http.StatusUnauthorized, CodeExpiredSession, "session expired"},
	{session.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound, "session not found"},
	{session.ErrForbidden, http.StatusForbidden, CodeForbiddenAction, "session belongs to another account"},
	{session.ErrCannotRevokeCurrent, http.StatusForbidden, CodeCannotRevokeOwnSession, "use logout to end the current session"},
}

type retryAfterError interface {
	RetryAfter() time.Duration
}

func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// outcomeCode is the error code reported for err, "OK" when err is nil.
func outcomeCode(err error) string {
	if err == nil {
		return "OK"
	}
	if m, ok := lookupError(err); ok {
		return m.code
	}
	return CodeInternal
}

// writeServiceError renders err using errorTable. Unmapped errors are
// logged under event and reported as INTERNAL_ERROR.
func (h *Handler) writeServiceError(w http.ResponseWriter, event string, err error) {
	m, ok := lookupError(err)
	if !ok {
		h.log.Error(event, "err", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}

	var ra retryAfterError
	if errors.As(err, &ra) {
		floor := int64(0)
		if m.status == http.StatusTooManyRequests {
			floor = 1
		}
		setRetryAfter(w, ra.RetryAfter(), floor)
	}
	writeError(w, m.status, m.code, m.message)
}

// setRetryAfter writes d as whole seconds rounded up, never below floor.
func setRetryAfter(w http.ResponseWriter, d time.Duration, floor int64) {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < floor {
		secs = floor
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
}
