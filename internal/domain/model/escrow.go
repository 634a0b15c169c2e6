package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EscrowState represents the custody state of a task's held funds.
type EscrowState string

const (
	// EscrowStatePending indicates the lock row exists but funds are not yet captured.
	EscrowStatePending EscrowState = "pending"
	// EscrowStateFunded indicates the amount is held by the platform.
	EscrowStateFunded EscrowState = "funded"
	// EscrowStateLockedDispute indicates funds are frozen while a dispute is resolved.
	EscrowStateLockedDispute EscrowState = "locked_dispute"
	// EscrowStateReleased is terminal: funds were paid out to the worker.
	EscrowStateReleased EscrowState = "released"
	// EscrowStateRefunded is terminal: funds were returned to the poster.
	EscrowStateRefunded EscrowState = "refunded"
	// EscrowStatePartialRefund is terminal: funds were split by dispute resolution.
	EscrowStatePartialRefund EscrowState = "partial_refund"
)

// escrowEdges is the fixed adjacency table of legal escrow transitions.
var escrowEdges = map[EscrowState][]EscrowState{
	EscrowStatePending:       {EscrowStateFunded, EscrowStateRefunded},
	EscrowStateFunded:        {EscrowStateReleased, EscrowStateRefunded, EscrowStateLockedDispute},
	EscrowStateLockedDispute: {EscrowStateReleased, EscrowStateRefunded, EscrowStatePartialRefund},
}

// Valid returns true if the EscrowState is a known state.
func (s EscrowState) Valid() bool {
	switch s {
	case EscrowStatePending, EscrowStateFunded, EscrowStateLockedDispute,
		EscrowStateReleased, EscrowStateRefunded, EscrowStatePartialRefund:
		return true
	}
	return false
}

// Terminal returns true if the state has no outgoing legal transitions.
func (s EscrowState) Terminal() bool {
	_, ok := escrowEdges[s]
	return s.Valid() && !ok
}

// CanTransitionTo returns true if the edge s → target is in the legal table.
func (s EscrowState) CanTransitionTo(target EscrowState) bool {
	for _, next := range escrowEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ParseEscrowState decodes a stored state string, rejecting unknown values fail-closed.
func ParseEscrowState(raw string) (EscrowState, error) {
	s := EscrowState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown escrow state: %q", raw)
	}
	return s, nil
}

// EscrowLock tracks custody of a task's held funds. There is exactly one lock
// per task, keyed by the task id. AmountCents is fixed at creation and never
// mutated by later transitions.
type EscrowLock struct {
	TaskID            string          `json:"task_id"                       db:"task_id"`
	State             EscrowState     `json:"state"                         db:"state"`
	AmountCents       int64           `json:"amount_cents"                  db:"amount_cents"`
	ProcessorRefs     json.RawMessage `json:"processor_refs"                db:"processor_refs"`
	Version           int64           `json:"version"                       db:"version"`
	RecoveryAttempts  int             `json:"recovery_attempts"             db:"recovery_attempts"`
	LastRecoveryError *string         `json:"last_recovery_error,omitempty" db:"last_recovery_error"`
	CreatedAt         time.Time       `json:"created_at"                    db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"                    db:"updated_at"`
}
