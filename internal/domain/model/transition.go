package model

import (
	"encoding/json"
	"time"
)

// TransitionRecord is one append-only audit row describing a state change.
// Rows are never updated or deleted; they exist for audit and replay.
type TransitionRecord struct {
	ID        int64           `json:"id"         db:"id"`
	EntityID  string          `json:"entity_id"  db:"entity_id"`
	FromState string          `json:"from_state" db:"from_state"`
	ToState   string          `json:"to_state"   db:"to_state"`
	Actor     string          `json:"actor"      db:"actor"`
	Context   json.RawMessage `json:"context"    db:"context"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// TransitionContext carries the actor and free-form context blob supplied
// with a transition request. Actor defaults to "system" when empty.
type TransitionContext struct {
	Actor   string          `json:"actor,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
}

// ActorOrSystem returns the actor, defaulting to "system".
func (c TransitionContext) ActorOrSystem() string {
	if c.Actor == "" {
		return "system"
	}
	return c.Actor
}

// TransitionResult reports the states observed by a successful transition.
type TransitionResult struct {
	EntityID string `json:"entity_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}
