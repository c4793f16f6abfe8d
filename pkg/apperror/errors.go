package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Callers match on these with HasCode rather than on messages.
const (
	CodeAlreadyExists   = "WAL_001"
	CodeNotFound        = "WAL_002"
	CodeInvalidPassword = "WAL_003"
	CodeIntegrity       = "WAL_004"
	CodeInvalidRequest  = "WAL_005"

	CodeBroadcast = "CHN_001"
	CodeNetwork   = "CHN_002"

	CodeInvalidToken      = "AUTH_001"
	CodeRateLimitExceeded = "RATE_001"

	CodeInternal     = "SYS_001"
	CodeLockTimeout  = "SYS_002"
	CodeEncryption   = "SYS_003"
	CodeLedgerAppend = "SYS_004"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Wallet custody (WAL) ----

func ErrWalletExists() *AppError {
	return New(CodeAlreadyExists, "Wallet already exists", http.StatusConflict)
}

func ErrWalletNotFound() *AppError {
	return New(CodeNotFound, "Wallet not found", http.StatusNotFound)
}

// ErrInvalidPassword deliberately says nothing about which input was wrong.
func ErrInvalidPassword() *AppError {
	return New(CodeInvalidPassword, "Invalid wallet password", http.StatusUnauthorized)
}

func ErrIntegrity(err error) *AppError {
	return Wrap(CodeIntegrity, "Wallet record failed integrity check", http.StatusInternalServerError, err)
}

func ErrInvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return ErrInvalidRequest("Amount must be a positive ETH value with at most 18 decimals")
}

func ErrInvalidAddress() *AppError {
	return ErrInvalidRequest("Invalid recipient address")
}

// ---- Chain (CHN) ----

func ErrBroadcast(err error) *AppError {
	return Wrap(CodeBroadcast, "Transaction was rejected by the network", http.StatusBadGateway, err)
}

func ErrNetwork(err error) *AppError {
	return Wrap(CodeNetwork, "Blockchain node unavailable", http.StatusServiceUnavailable, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(CodeInternal, "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap(CodeEncryption, "Encryption service failure", http.StatusInternalServerError, err)
}

// ErrLedgerAppend is returned together with a transaction hash: the transfer
// is already on the network and must not be retried.
func ErrLedgerAppend(err error) *AppError {
	return Wrap(CodeLedgerAppend, "Transfer broadcast but not recorded", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a WAL_005 request validation error.
func Validation(message string) *AppError {
	return ErrInvalidRequest(message)
}
