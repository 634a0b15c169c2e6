package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProofState represents the review state of one completion-evidence submission.
type ProofState string

const (
	// ProofStatePending indicates the submission is waiting for review.
	ProofStatePending ProofState = "pending"
	// ProofStateReviewing indicates a reviewer has picked up the submission.
	ProofStateReviewing ProofState = "reviewing"
	// ProofStateAccepted is terminal for the submission: evidence was approved.
	ProofStateAccepted ProofState = "accepted"
	// ProofStateRejected ends this submission but permits a new one for the task.
	ProofStateRejected ProofState = "rejected"
	// ProofStateExpired is terminal: the review window lapsed.
	ProofStateExpired ProofState = "expired"
)

// proofEdges is the fixed adjacency table of legal proof transitions.
var proofEdges = map[ProofState][]ProofState{
	ProofStatePending:   {ProofStateReviewing, ProofStateAccepted, ProofStateRejected, ProofStateExpired},
	ProofStateReviewing: {ProofStateAccepted, ProofStateRejected},
}

// Valid returns true if the ProofState is a known state.
func (s ProofState) Valid() bool {
	switch s {
	case ProofStatePending, ProofStateReviewing, ProofStateAccepted,
		ProofStateRejected, ProofStateExpired:
		return true
	}
	return false
}

// Terminal returns true if the state has no outgoing legal transitions for
// this submission instance. Rejection is terminal for the row but not for the
// task: a new submission may be created afterwards.
func (s ProofState) Terminal() bool {
	_, ok := proofEdges[s]
	return s.Valid() && !ok
}

// Active returns true while the submission still occupies the task's single
// active-proof slot.
func (s ProofState) Active() bool {
	return s == ProofStatePending || s == ProofStateReviewing
}

// CanTransitionTo returns true if the edge s → target is in the legal table.
func (s ProofState) CanTransitionTo(target ProofState) bool {
	for _, next := range proofEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ParseProofState decodes a stored state string, rejecting unknown values fail-closed.
func ParseProofState(raw string) (ProofState, error) {
	s := ProofState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown proof state: %q", raw)
	}
	return s, nil
}

// QualityTier is advisory metadata derived from the submitted evidence.
// It never gates a transition.
type QualityTier string

const (
	// QualityTierBasic indicates text-only evidence.
	QualityTierBasic QualityTier = "basic"
	// QualityTierStandard indicates at least one media item is attached.
	QualityTierStandard QualityTier = "standard"
	// QualityTierComprehensive indicates before/after media plus a detailed description.
	QualityTierComprehensive QualityTier = "comprehensive"
)

// ProofSubmission is one instance of completion evidence submitted for review.
// At most one active (pending/reviewing) submission exists per task.
type ProofSubmission struct {
	ID              string          `json:"id"                         db:"id"`
	TaskID          string          `json:"task_id"                    db:"task_id"`
	WorkerID        string          `json:"worker_id"                  db:"worker_id"`
	State           ProofState      `json:"state"                      db:"state"`
	Evidence        json.RawMessage `json:"evidence"                   db:"evidence"`
	QualityTier     QualityTier     `json:"quality_tier"               db:"quality_tier"`
	ExpiresAt       time.Time       `json:"expires_at"                 db:"expires_at"`
	RejectionReason *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReviewerID      *string         `json:"reviewer_id,omitempty"      db:"reviewer_id"`
	CreatedAt       time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"                 db:"updated_at"`
}

// SubmitProofRequest represents a worker's evidence submission for a task.
type SubmitProofRequest struct {
	TaskID   string          `json:"task_id"`
	WorkerID string          `json:"worker_id"`
	Evidence json.RawMessage `json:"evidence"`
}

// Validate validates the SubmitProofRequest fields.
func (r *SubmitProofRequest) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("task id is required")
	}
	if r.WorkerID == "" {
		return fmt.Errorf("worker id is required")
	}
	if len(r.Evidence) == 0 {
		return fmt.Errorf("evidence is required")
	}
	if !json.Valid(r.Evidence) {
		return fmt.Errorf("evidence must be valid JSON")
	}
	return nil
}
