package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_002", "Wallet not found", http.StatusNotFound),
			expected: "[WAL_002] Wallet not found",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("withdraw: %w", ErrInvalidPassword())

	assert.True(t, HasCode(err, CodeInvalidPassword))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInvalidPassword))
	assert.False(t, HasCode(nil, CodeInvalidPassword))
}

func TestWalletErrors(t *testing.T) {
	inner := fmt.Errorf("address mismatch")
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"WalletExists", ErrWalletExists(), "WAL_001", 409},
		{"WalletNotFound", ErrWalletNotFound(), "WAL_002", 404},
		{"InvalidPassword", ErrInvalidPassword(), "WAL_003", 401},
		{"Integrity", ErrIntegrity(inner), "WAL_004", 500},
		{"InvalidRequest", ErrInvalidRequest("bad"), "WAL_005", 400},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_005", 400},
		{"InvalidAddress", ErrInvalidAddress(), "WAL_005", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestChainErrors(t *testing.T) {
	inner := fmt.Errorf("insufficient funds for gas * price + value")

	bErr := ErrBroadcast(inner)
	assert.Equal(t, "CHN_001", bErr.Code)
	assert.Equal(t, 502, bErr.HTTPStatus)
	assert.True(t, errors.Is(bErr, inner))
	assert.NotContains(t, bErr.Message, "insufficient funds", "node text must stay out of the client message")

	nErr := ErrNetwork(inner)
	assert.Equal(t, "CHN_002", nErr.Code)
	assert.Equal(t, 503, nErr.HTTPStatus)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	lockErr := ErrLockTimeout(inner)
	assert.Equal(t, "SYS_002", lockErr.Code)
	assert.Equal(t, 503, lockErr.HTTPStatus)

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_003", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)

	ledgerErr := ErrLedgerAppend(inner)
	assert.Equal(t, "SYS_004", ledgerErr.Code)
}

func TestAuthAndRateLimitErrors(t *testing.T) {
	assert.Equal(t, "AUTH_001", ErrInvalidToken().Code)
	assert.Equal(t, 401, ErrInvalidToken().HTTPStatus)

	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}
