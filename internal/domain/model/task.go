// Package model defines the core data types for the marketplace workflow system.
package model

import (
	"fmt"
	"time"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	// TaskStateOpen indicates the task is posted and waiting for a worker.
	TaskStateOpen TaskState = "open"
	// TaskStateAccepted indicates a worker has accepted the task.
	TaskStateAccepted TaskState = "accepted"
	// TaskStateProofSubmitted indicates completion evidence is awaiting review.
	TaskStateProofSubmitted TaskState = "proof_submitted"
	// TaskStateDisputed indicates the task is under dispute.
	TaskStateDisputed TaskState = "disputed"
	// TaskStateCompleted is terminal: the task finished and funds were released.
	TaskStateCompleted TaskState = "completed"
	// TaskStateCancelled is terminal: the task was cancelled before completion.
	TaskStateCancelled TaskState = "cancelled"
	// TaskStateExpired is terminal: the task lapsed without being worked.
	TaskStateExpired TaskState = "expired"
)

// taskEdges is the fixed adjacency table of legal task transitions.
// States absent from the map are terminal.
var taskEdges = map[TaskState][]TaskState{
	TaskStateOpen:           {TaskStateAccepted, TaskStateCancelled, TaskStateExpired},
	TaskStateAccepted:       {TaskStateProofSubmitted, TaskStateDisputed, TaskStateCancelled},
	TaskStateProofSubmitted: {TaskStateCompleted, TaskStateDisputed},
	TaskStateDisputed:       {TaskStateCompleted, TaskStateCancelled},
}

// Valid returns true if the TaskState is a known state.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateOpen, TaskStateAccepted, TaskStateProofSubmitted,
		TaskStateDisputed, TaskStateCompleted, TaskStateCancelled, TaskStateExpired:
		return true
	}
	return false
}

// Terminal returns true if the state has no outgoing legal transitions.
func (s TaskState) Terminal() bool {
	_, ok := taskEdges[s]
	return s.Valid() && !ok
}

// CanTransitionTo returns true if the edge s → target is in the legal table.
func (s TaskState) CanTransitionTo(target TaskState) bool {
	for _, next := range taskEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ParseTaskState decodes a stored state string, rejecting unknown values fail-closed.
func ParseTaskState(raw string) (TaskState, error) {
	s := TaskState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task state: %q", raw)
	}
	return s, nil
}

// Task represents a posted gig with its lifecycle state and assignment.
type Task struct {
	ID          string    `json:"id"                   db:"id"`
	State       TaskState `json:"state"                db:"state"`
	PosterID    string    `json:"poster_id"            db:"poster_id"`
	WorkerID    *string   `json:"worker_id,omitempty"  db:"worker_id"`
	AmountCents int64     `json:"amount_cents"         db:"amount_cents"`
	Title       string    `json:"title"                db:"title"`
	CreatedAt   time.Time `json:"created_at"           db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"           db:"updated_at"`
}

// CreateTaskRequest represents a request to post a new task.
type CreateTaskRequest struct {
	PosterID    string `json:"poster_id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amount_cents"`
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if r.PosterID == "" {
		return fmt.Errorf("poster id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.AmountCents <= 0 {
		return fmt.Errorf("amount must be a positive number of minor units")
	}
	return nil
}
