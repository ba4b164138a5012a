// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")

	ErrInvalidCode     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrDeliveryFailed  = errors.New("email delivery failed")
	ErrRateLimited     = errors.New("rate limited")

	ErrAlreadyEnrolled    = errors.New("already enrolled")
	ErrSignatureInvalid   = errors.New("payment signature invalid")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrReconciliationGap  = errors.New("payment captured but enrollment not updated")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrNotFound, resource+" not found", http.StatusNotFound, "NOT_FOUND")
}

func DuplicateError(field string) *AppError {
	return NewAppError(ErrDuplicateKey, field+" already exists", http.StatusConflict, "CONFLICT")
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "invalid token", http.StatusUnauthorized, "TOKEN_INVALID")
}

// errorTable maps domain sentinels to their HTTP representation. Order
// matters: the first sentinel found in the chain wins.
var errorTable = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{ErrInvalidCode, http.StatusBadRequest, "INVALID_CODE", "invalid or already used verification code"},
	{ErrCodeExpired, http.StatusBadRequest, "CODE_EXPIRED", "verification code has expired, request a new one"},
	{ErrTooManyAttempts, http.StatusBadRequest, "TOO_MANY_ATTEMPTS", "too many attempts, request a new code"},
	{ErrSignatureInvalid, http.StatusBadRequest, "SIGNATURE_INVALID", "payment verification failed"},
	{ErrAlreadyEnrolled, http.StatusConflict, "ALREADY_ENROLLED", "already enrolled in this batch"},
	{ErrGatewayUnavailable, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE", "payment gateway unavailable, please retry"},
	{ErrDeliveryFailed, http.StatusServiceUnavailable, "DELIVERY_FAILED", "could not send verification email, please retry"},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please retry later"},
	{ErrReconciliationGap, http.StatusInternalServerError, "RECONCILIATION_PENDING", "payment received, enrollment activation pending"},
	{ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired"},
	{ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED", "token has been revoked"},
	{ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN", "insufficient permissions"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{ErrDuplicateKey, http.StatusConflict, "CONFLICT", "resource already exists"},
	{ErrConflict, http.StatusConflict, "CONFLICT", "request conflicts with current state"},
	{ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input"},
}

// ToAppError converts any error into an AppError. Unknown errors become a
// generic 500 so internal details never reach the client.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return NewAppError(err, entry.message, entry.status, entry.code)
		}
	}

	return NewAppError(
		err,
		"internal server error",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}
