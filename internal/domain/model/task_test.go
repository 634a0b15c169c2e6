package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskState_Valid(t *testing.T) {
	for _, s := range []TaskState{
		TaskStateOpen, TaskStateAccepted, TaskStateProofSubmitted,
		TaskStateDisputed, TaskStateCompleted, TaskStateCancelled, TaskStateExpired,
	} {
		assert.True(t, s.Valid(), "state %q should be valid", s)
	}

	assert.False(t, TaskState("archived").Valid())
	assert.False(t, TaskState("").Valid())
}

func TestTaskState_Terminal(t *testing.T) {
	assert.False(t, TaskStateOpen.Terminal())
	assert.False(t, TaskStateAccepted.Terminal())
	assert.False(t, TaskStateProofSubmitted.Terminal())
	assert.False(t, TaskStateDisputed.Terminal())

	assert.True(t, TaskStateCompleted.Terminal())
	assert.True(t, TaskStateCancelled.Terminal())
	assert.True(t, TaskStateExpired.Terminal())

	// Unknown states are not terminal, they are invalid.
	assert.False(t, TaskState("bogus").Terminal())
}

func TestTaskState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskState
		to      TaskState
		allowed bool
	}{
		{"open to accepted", TaskStateOpen, TaskStateAccepted, true},
		{"open to cancelled", TaskStateOpen, TaskStateCancelled, true},
		{"open to expired", TaskStateOpen, TaskStateExpired, true},
		{"open to completed skips work", TaskStateOpen, TaskStateCompleted, false},
		{"open to proof_submitted skips accept", TaskStateOpen, TaskStateProofSubmitted, false},
		{"accepted to proof_submitted", TaskStateAccepted, TaskStateProofSubmitted, true},
		{"accepted to disputed", TaskStateAccepted, TaskStateDisputed, true},
		{"accepted to cancelled", TaskStateAccepted, TaskStateCancelled, true},
		{"accepted to completed skips proof", TaskStateAccepted, TaskStateCompleted, false},
		{"accepted to expired", TaskStateAccepted, TaskStateExpired, false},
		{"proof_submitted to completed", TaskStateProofSubmitted, TaskStateCompleted, true},
		{"proof_submitted to disputed", TaskStateProofSubmitted, TaskStateDisputed, true},
		{"proof_submitted to cancelled", TaskStateProofSubmitted, TaskStateCancelled, false},
		{"disputed to completed", TaskStateDisputed, TaskStateCompleted, true},
		{"disputed to cancelled", TaskStateDisputed, TaskStateCancelled, true},
		{"disputed to accepted reopens", TaskStateDisputed, TaskStateAccepted, false},
		{"completed is terminal", TaskStateCompleted, TaskStateDisputed, false},
		{"cancelled is terminal", TaskStateCancelled, TaskStateOpen, false},
		{"expired is terminal", TaskStateExpired, TaskStateOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseTaskState(t *testing.T) {
	s, err := ParseTaskState("proof_submitted")
	require.NoError(t, err)
	assert.Equal(t, TaskStateProofSubmitted, s)

	_, err = ParseTaskState("Open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task state")

	_, err = ParseTaskState("")
	assert.Error(t, err)
}

func TestCreateTaskRequest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		req         CreateTaskRequest
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid request",
			req:  CreateTaskRequest{PosterID: "poster-1", Title: "Assemble bookshelf", AmountCents: 5000},
		},
		{
			name:        "missing poster",
			req:         CreateTaskRequest{Title: "Assemble bookshelf", AmountCents: 5000},
			expectError: true,
			errorMsg:    "poster id is required",
		},
		{
			name:        "missing title",
			req:         CreateTaskRequest{PosterID: "poster-1", AmountCents: 5000},
			expectError: true,
			errorMsg:    "title is required",
		},
		{
			name:        "zero amount",
			req:         CreateTaskRequest{PosterID: "poster-1", Title: "Assemble bookshelf"},
			expectError: true,
			errorMsg:    "amount must be a positive number of minor units",
		},
		{
			name:        "negative amount",
			req:         CreateTaskRequest{PosterID: "poster-1", Title: "Assemble bookshelf", AmountCents: -100},
			expectError: true,
			errorMsg:    "amount must be a positive number of minor units",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
