// AngelaMos | 2026
// errors_test.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped not found", fmt.Errorf("get batch: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid code", fmt.Errorf("verify otp: %w", ErrInvalidCode), http.StatusBadRequest, "INVALID_CODE"},
		{"expired code", ErrCodeExpired, http.StatusBadRequest, "CODE_EXPIRED"},
		{"attempt cap", ErrTooManyAttempts, http.StatusBadRequest, "TOO_MANY_ATTEMPTS"},
		{"signature", ErrSignatureInvalid, http.StatusBadRequest, "SIGNATURE_INVALID"},
		{"already enrolled", ErrAlreadyEnrolled, http.StatusConflict, "ALREADY_ENROLLED"},
		{"gateway", fmt.Errorf("create order: %w: %w", ErrGatewayUnavailable, errors.New("timeout")), http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE"},
		{"delivery", ErrDeliveryFailed, http.StatusServiceUnavailable, "DELIVERY_FAILED"},
		{"gap", fmt.Errorf("settle: %w: %w", ErrReconciliationGap, errors.New("db")), http.StatusInternalServerError, "RECONCILIATION_PENDING"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"duplicate", ErrDuplicateKey, http.StatusConflict, "CONFLICT"},
		{"unknown", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.code, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestToAppError_HidesInternals(t *testing.T) {
	appErr := ToAppError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, "internal server error", appErr.Error())
}

func TestToAppError_KeepsExplicitAppError(t *testing.T) {
	explicit := NewAppError(ErrNotFound, "no pending verification found", http.StatusNotFound, "NOT_FOUND")
	wrapped := fmt.Errorf("resend: %w", explicit)

	got := ToAppError(wrapped)
	assert.Same(t, explicit, got)
	assert.Equal(t, "no pending verification found", got.Error())
}
