// Package contextutils provides shared error types and context helpers used
// across services and handlers.
package contextutils

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode identifies a class of application error for HTTP mapping and logs.
type ErrorCode string

const (
	// CodeInternalError indicates an unexpected failure inside the service.
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	// CodeInvalidInput indicates a malformed or out-of-range request value.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	// CodeRecordNotFound indicates a missing database record.
	CodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// CodeAssignmentNotFound indicates a missing daily question assignment.
	CodeAssignmentNotFound ErrorCode = "ASSIGNMENT_NOT_FOUND"
	// CodeQuestionNotFound indicates a missing question.
	CodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	// CodeUserNotFound indicates a missing user.
	CodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	// CodeQuestionAlreadyAnswered indicates a resubmission of a completed assignment.
	CodeQuestionAlreadyAnswered ErrorCode = "QUESTION_ALREADY_ANSWERED"
	// CodeInvalidAnswerIndex indicates an answer index outside the question's options.
	CodeInvalidAnswerIndex ErrorCode = "INVALID_ANSWER_INDEX"
	// CodeNoQuestionsAvailable indicates an empty candidate pool for allocation.
	CodeNoQuestionsAvailable ErrorCode = "NO_QUESTIONS_AVAILABLE"
	// CodeUnauthorized indicates a missing or invalid session.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// CodeInvalidCredentials indicates a failed login attempt.
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// CodeDatabaseError indicates a database operation failure.
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// SeverityLevel classifies how an error should be treated by logging.
type SeverityLevel string

const (
	// SeverityWarn marks expected business errors.
	SeverityWarn SeverityLevel = "warn"
	// SeverityError marks failures that need attention.
	SeverityError SeverityLevel = "error"
)

// AppError is the application error carrying a code, severity and optional cause.
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code so sentinels compare with errors.Is.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// WithDetails returns a copy of the error carrying extra key/value context.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// Sentinel errors for the daily assignment subsystem.
var (
	ErrInternalError           = &AppError{Code: CodeInternalError, Severity: SeverityError, Message: "internal error"}
	ErrInvalidInput            = &AppError{Code: CodeInvalidInput, Severity: SeverityWarn, Message: "invalid input"}
	ErrRecordNotFound          = &AppError{Code: CodeRecordNotFound, Severity: SeverityWarn, Message: "record not found"}
	ErrAssignmentNotFound      = &AppError{Code: CodeAssignmentNotFound, Severity: SeverityWarn, Message: "assignment not found"}
	ErrQuestionNotFound        = &AppError{Code: CodeQuestionNotFound, Severity: SeverityWarn, Message: "question not found"}
	ErrUserNotFound            = &AppError{Code: CodeUserNotFound, Severity: SeverityWarn, Message: "user not found"}
	ErrQuestionAlreadyAnswered = &AppError{Code: CodeQuestionAlreadyAnswered, Severity: SeverityWarn, Message: "question already answered"}
	ErrInvalidAnswerIndex      = &AppError{Code: CodeInvalidAnswerIndex, Severity: SeverityWarn, Message: "invalid answer index"}
	ErrNoQuestionsAvailable    = &AppError{Code: CodeNoQuestionsAvailable, Severity: SeverityWarn, Message: "no questions available"}
	ErrUnauthorized            = &AppError{Code: CodeUnauthorized, Severity: SeverityWarn, Message: "unauthorized"}
	ErrInvalidCredentials      = &AppError{Code: CodeInvalidCredentials, Severity: SeverityWarn, Message: "invalid credentials"}
	ErrDatabaseError           = &AppError{Code: CodeDatabaseError, Severity: SeverityError, Message: "database error"}
)

// WrapError wraps err with a message, preserving AppError codes up the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  message,
			Cause:    err,
		}
	}
	return &AppError{
		Code:     CodeInternalError,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}

// WrapErrorf wraps err with a formatted message.
func WrapErrorf(err error, format string, args ...interface{}) error {
	return WrapError(err, fmt.Sprintf(format, args...))
}

// ErrorWithContextf creates a new internal error with a formatted message.
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{
		Code:     CodeInternalError,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsError reports whether err matches the given sentinel by code.
func IsError(err error, sentinel *AppError) bool {
	return errors.Is(err, sentinel)
}

// GetErrorCode extracts the ErrorCode from an error chain.
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

type contextKey string

// UserIDKey is the context key carrying the authenticated user ID.
const UserIDKey contextKey = "user_id"

// WithUserID returns a context carrying the user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext extracts the user ID set by the auth middleware.
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}
