package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "task not found", NotFound("task not found").Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrCodeInternal, "query failed")
	assert.Equal(t, "query failed: connection refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(cause, ErrCodeInternal, "wrapped")
	assert.ErrorIs(t, wrapped, cause)

	// fmt wrapping keeps the chain intact.
	doubly := fmt.Errorf("outer: %w", wrapped)
	var appErr *AppError
	require.ErrorAs(t, doubly, &appErr)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestConstructors_SetCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"not found", NotFound("x"), ErrCodeNotFound},
		{"not found formatted", NotFoundf("task %s", "t1"), ErrCodeNotFound},
		{"invalid transition", InvalidTransition("x"), ErrCodeInvalidTransition},
		{"invalid transition formatted", InvalidTransitionf("%s to %s", "open", "completed"), ErrCodeInvalidTransition},
		{"terminal state", TerminalState("x"), ErrCodeTerminalState},
		{"invariant", Invariant("x"), ErrCodeInvariant},
		{"duplicate active proof", DuplicateActiveProof("x"), ErrCodeDuplicateActiveProof},
		{"already accepted", AlreadyAccepted("x"), ErrCodeAlreadyAccepted},
		{"already accepted formatted", AlreadyAcceptedf("task %s", "t1"), ErrCodeAlreadyAccepted},
		{"conflict retry", ConflictRetry("x"), ErrCodeConflictRetry},
		{"conflict", Conflict("x"), ErrCodeConflict},
		{"validation", Validation("x"), ErrCodeValidation},
		{"internal", Internal("x"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("amount_cents", "must be positive")
	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "amount_cents", err.Field)
	assert.Equal(t, "amount_cents", GetField(err))
}

func TestHandlerFailure(t *testing.T) {
	assert.Nil(t, HandlerFailure(nil))

	cause := errors.New("ledger unavailable")
	err := HandlerFailure(cause)
	assert.Equal(t, ErrCodeHandlerFailure, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsInvalidTransition(InvalidTransition("x")))
	assert.True(t, IsTerminalState(TerminalState("x")))
	assert.True(t, IsInvariant(Invariant("x")))
	assert.True(t, IsDuplicateActiveProof(DuplicateActiveProof("x")))
	assert.True(t, IsAlreadyAccepted(AlreadyAccepted("x")))
	assert.True(t, IsConflictRetry(ConflictRetry("x")))
	assert.True(t, IsConflict(Conflict("x")))
	assert.True(t, IsValidation(Validation("x")))
	assert.True(t, IsInternal(Internal("x")))

	// Helpers see through fmt wrapping.
	assert.True(t, IsInvariant(fmt.Errorf("complete task: %w", Invariant("no accepted proof"))))

	// Code mismatch and plain errors both report false.
	assert.False(t, IsNotFound(Conflict("x")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeConflictRetry, GetCode(ConflictRetry("x")))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestWrap_NilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}
