package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the type of side-effect job to be executed.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypeRewardIssuance credits the assigned worker's reward ledger after an escrow release.
	JobTypeRewardIssuance JobType = "reward_issuance"
	// JobTypePayoutTransfer initiates the external payment-processor transfer.
	JobTypePayoutTransfer JobType = "payout_transfer"
	// JobTypeNotification dispatches a notification to a configured sink.
	JobTypeNotification JobType = "notification"
	// JobTypeTrustRecompute recomputes a worker's trust tier.
	JobTypeTrustRecompute JobType = "trust_recompute"
	// JobTypeProofExpirySweep expires pending proofs past their review deadline.
	JobTypeProofExpirySweep JobType = "proof_expiry_sweep"

	// JobStatusPending indicates a job is waiting to be claimed.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a worker holds the job's claim.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the handler finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the handler failed and the job awaits its backoff retry.
	JobStatusFailed JobStatus = "failed"
	// JobStatusDead indicates the retry budget is exhausted; operator intervention required.
	JobStatusDead JobStatus = "dead"
)

// ErrNoJobsDue is returned when no due jobs are available to claim.
var ErrNoJobsDue = errors.New("no jobs due")

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeRewardIssuance, JobTypePayoutTransfer, JobTypeNotification,
		JobTypeTrustRecompute, JobTypeProofExpirySweep:
		return true
	}
	return false
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusDead:
		return true
	}
	return false
}

// Job represents one durable side-effect with its retry bookkeeping.
type Job struct {
	ID             string          `json:"id"                         db:"id"`
	DedupeKey      string          `json:"dedupe_key"                 db:"dedupe_key"`
	Type           JobType         `json:"type"                       db:"type"`
	Status         JobStatus       `json:"status"                     db:"status"`
	Priority       int             `json:"priority"                   db:"priority"`
	Payload        json.RawMessage `json:"payload"                    db:"payload"`
	Attempts       int             `json:"attempts"                   db:"attempts"`
	MaxAttempts    int             `json:"max_attempts"               db:"max_attempts"`
	ScheduledAt    time.Time       `json:"scheduled_at"               db:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	LastError      *string         `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// EnqueueRequest represents a request to enqueue a side-effect job.
type EnqueueRequest struct {
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	DedupeKey   string          `json:"dedupe_key,omitempty"`
	Delay       time.Duration   `json:"delay,omitempty"`
	Priority    int             `json:"priority,omitempty"`
	MaxAttempts int             `json:"max_attempts"`
}

// Validate validates the EnqueueRequest fields.
func (r *EnqueueRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.Priority < 0 || r.Priority > 100 {
		return errors.New("priority must be between 0 and 100")
	}
	if r.Delay < 0 {
		return errors.New("delay must be >= 0")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// JobStats represents operator-facing counts of jobs in each state.
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Dead       int `json:"dead"`
}

// Typed job payloads. Every handler must tolerate re-delivery of the same
// payload without duplicating its effect.

// RewardIssuancePayload credits a worker for a released escrow.
type RewardIssuancePayload struct {
	TaskID      string `json:"task_id"`
	WorkerID    string `json:"worker_id"`
	AmountCents int64  `json:"amount_cents"`
}

// PayoutTransferPayload initiates the external transfer for a released escrow.
type PayoutTransferPayload struct {
	EscrowID    string `json:"escrow_id"`
	WorkerID    string `json:"worker_id"`
	AmountCents int64  `json:"amount_cents"`
}

// NotificationPayload is delivered fire-and-log to a notification sink.
type NotificationPayload struct {
	RecipientID string          `json:"recipient_id"`
	Kind        string          `json:"kind"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// TrustRecomputePayload triggers a trust-tier recompute for one worker.
type TrustRecomputePayload struct {
	WorkerID string `json:"worker_id"`
	Reason   string `json:"reason,omitempty"`
}

// ProofExpirySweepPayload bounds one expiry sweep batch.
type ProofExpirySweepPayload struct {
	BatchSize int `json:"batch_size,omitempty"`
}
