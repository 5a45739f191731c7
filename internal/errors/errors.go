// Package errors layers stable application codes over the domain sentinels,
// so transports can map failures without string matching.
package errors

import (
	stderrors "errors"
	"fmt"

	"godecide/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the original code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    Classify(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// Error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInconsistent  = "INCONSISTENT_BASE"
	CodeLimitExceeded = "LIMIT_EXCEEDED"
	CodeFrameState    = "FRAME_STATE"
	CodeNotFound      = "NOT_FOUND"
	CodeStoreError    = "STORE_ERROR"
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeInternal      = "INTERNAL_ERROR"
)

// Classify maps an error chain onto a stable application code. AppError codes
// pass through; domain sentinels get their canonical code; anything else is
// internal.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, core.ErrInconsistent):
		return CodeInconsistent
	case stderrors.Is(err, core.ErrTooFewAlts),
		stderrors.Is(err, core.ErrTooManyAlts),
		stderrors.Is(err, core.ErrTooManyCons),
		stderrors.Is(err, core.ErrTooManyStmts),
		stderrors.Is(err, core.ErrTooNarrowStmt):
		return CodeLimitExceeded
	case stderrors.Is(err, core.ErrAttached),
		stderrors.Is(err, core.ErrDetached),
		stderrors.Is(err, core.ErrCorrupted):
		return CodeFrameState
	case stderrors.Is(err, core.ErrNotFound),
		stderrors.Is(err, core.ErrNoFile):
		return CodeNotFound
	case stderrors.Is(err, core.ErrInput),
		stderrors.Is(err, core.ErrTree),
		stderrors.Is(err, core.ErrIllegalNode):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

// Common error constructors
func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func StoreError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStoreError,
		Message: message,
		Cause:   cause,
	}
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}
