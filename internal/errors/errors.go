package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced entity is absent.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInvalidTransition indicates the requested edge is not in the legal table.
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
	// ErrCodeTerminalState indicates an attempted mutation of a terminal row.
	ErrCodeTerminalState ErrorCode = "terminal_state_violation"
	// ErrCodeInvariant indicates a cross-machine gating failure (escrow/proof not ready).
	ErrCodeInvariant ErrorCode = "invariant_violation"
	// ErrCodeDuplicateActiveProof indicates a non-terminal proof already exists for the task.
	ErrCodeDuplicateActiveProof ErrorCode = "duplicate_active_proof"
	// ErrCodeAlreadyAccepted indicates the task already holds an accepted proof.
	ErrCodeAlreadyAccepted ErrorCode = "already_accepted"
	// ErrCodeConflictRetry indicates a lost row-lock race; the caller should retry.
	ErrCodeConflictRetry ErrorCode = "conflict_retry"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeHandlerFailure indicates a job handler failed; queue-internal, never surfaced synchronously.
	ErrCodeHandlerFailure ErrorCode = "handler_failure"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition creates a new InvalidTransition error.
func InvalidTransition(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidTransition, Message: message}
}

// InvalidTransitionf creates a new InvalidTransition error with formatted message.
func InvalidTransitionf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// TerminalState creates a new TerminalStateViolation error.
func TerminalState(message string) *AppError {
	return &AppError{Code: ErrCodeTerminalState, Message: message}
}

// TerminalStatef creates a new TerminalStateViolation error with formatted message.
func TerminalStatef(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeTerminalState, Message: fmt.Sprintf(format, args...)}
}

// Invariant creates a new InvariantViolation error.
func Invariant(message string) *AppError {
	return &AppError{Code: ErrCodeInvariant, Message: message}
}

// Invariantf creates a new InvariantViolation error with formatted message.
func Invariantf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInvariant, Message: fmt.Sprintf(format, args...)}
}

// DuplicateActiveProof creates a new DuplicateActiveProof error.
func DuplicateActiveProof(message string) *AppError {
	return &AppError{Code: ErrCodeDuplicateActiveProof, Message: message}
}

// AlreadyAccepted creates a new AlreadyAccepted error.
func AlreadyAccepted(message string) *AppError {
	return &AppError{Code: ErrCodeAlreadyAccepted, Message: message}
}

// AlreadyAcceptedf creates a new AlreadyAccepted error with formatted message.
func AlreadyAcceptedf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeAlreadyAccepted, Message: fmt.Sprintf(format, args...)}
}

// ConflictRetry creates a new ConflictRetry error.
func ConflictRetry(message string) *AppError {
	return &AppError{Code: ErrCodeConflictRetry, Message: message}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// HandlerFailure wraps a job handler error. It stays inside the queue's
// retry machinery and is never returned to the caller that enqueued the job.
func HandlerFailure(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: ErrCodeHandlerFailure, Message: "job handler failed", Cause: err}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsInvalidTransition checks if an error is an InvalidTransition error.
func IsInvalidTransition(err error) bool {
	return isCode(err, ErrCodeInvalidTransition)
}

// IsTerminalState checks if an error is a TerminalStateViolation error.
func IsTerminalState(err error) bool {
	return isCode(err, ErrCodeTerminalState)
}

// IsInvariant checks if an error is an InvariantViolation error.
func IsInvariant(err error) bool {
	return isCode(err, ErrCodeInvariant)
}

// IsDuplicateActiveProof checks if an error is a DuplicateActiveProof error.
func IsDuplicateActiveProof(err error) bool {
	return isCode(err, ErrCodeDuplicateActiveProof)
}

// IsAlreadyAccepted checks if an error is an AlreadyAccepted error.
func IsAlreadyAccepted(err error) bool {
	return isCode(err, ErrCodeAlreadyAccepted)
}

// IsConflictRetry checks if an error is a ConflictRetry error.
func IsConflictRetry(err error) bool {
	return isCode(err, ErrCodeConflictRetry)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
