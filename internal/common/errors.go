package common

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeConfiguration = "CONFIG_ERROR"
	CodeInput         = "INPUT_ERROR"
	CodeProcess       = "PROCESS_ERROR"
	CodeProtocol      = "PROTOCOL_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
	CodeNotFound      = "NOT_FOUND"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("configuration error")
	ErrInput         = errors.New("input error")
	ErrProcess       = errors.New("process error")
	ErrProtocol      = errors.New("protocol error")
	ErrShuttingDown  = errors.New("shutting down")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// KindOf returns the AppError code found in err's chain, or "" when there is none.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsKind reports whether err carries the given code.
func IsKind(err error, code string) bool {
	return KindOf(err) == code
}
