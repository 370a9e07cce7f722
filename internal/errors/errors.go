// Package errors defines the application error taxonomy. Service code
// classifies failures by ErrorCode; the HTTP layer maps codes to statuses.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an application error.
type ErrorCode string

const (
	// ErrCodeNotFound marks a missing resource.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict marks a clash with existing state, such as a second
	// active job on a list.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation marks rejected input.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal marks unexpected failures.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout marks a deadline overrun, typically a chunk exceeding
	// its processing budget.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled marks a caller-initiated abort.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError is a classified error with an optional cause and, for validation
// failures, the offending request field. Works with errors.Is / errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
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

func coded(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFound builds a not_found error.
func NotFound(message string) *AppError { return coded(ErrCodeNotFound, message) }

// NotFoundf builds a not_found error with a formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return coded(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Conflict builds a conflict error.
func Conflict(message string) *AppError { return coded(ErrCodeConflict, message) }

// Conflictf builds a conflict error with a formatted message.
func Conflictf(format string, args ...any) *AppError {
	return coded(ErrCodeConflict, fmt.Sprintf(format, args...))
}

// Validation builds a validation error.
func Validation(message string) *AppError { return coded(ErrCodeValidation, message) }

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) *AppError {
	return coded(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidationField builds a validation error pinned to one request field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal builds an internal error.
func Internal(message string) *AppError { return coded(ErrCodeInternal, message) }

// Internalf builds an internal error with a formatted message.
func Internalf(format string, args ...any) *AppError {
	return coded(ErrCodeInternal, fmt.Sprintf(format, args...))
}

// Timeout builds a timeout error.
func Timeout(message string) *AppError { return coded(ErrCodeTimeout, message) }

// Canceled builds a canceled error.
func Canceled(message string) *AppError { return coded(ErrCodeCanceled, message) }

// Wrap classifies an existing error, preserving it as the cause. Returns nil
// for a nil error so call sites can wrap unconditionally.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports whether err classifies as not_found.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict reports whether err classifies as conflict.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation reports whether err classifies as validation.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsInternal reports whether err classifies as internal.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsTimeout reports whether err classifies as timeout.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsCanceled reports whether err classifies as canceled.
func IsCanceled(err error) bool { return isCode(err, ErrCodeCanceled) }

// GetCode extracts the ErrorCode, or "" when err is not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField extracts the offending field name, or "" when unset.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
