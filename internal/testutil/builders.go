package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// TaskRequestBuilder provides a fluent interface for building CreateTaskRequest objects for testing.
type TaskRequestBuilder struct {
	req *model.CreateTaskRequest
}

// NewTaskRequest creates a new TaskRequestBuilder with sensible defaults.
func NewTaskRequest() *TaskRequestBuilder {
	return &TaskRequestBuilder{
		req: &model.CreateTaskRequest{
			PosterID:    uuid.NewString(),
			Title:       "Assemble bookshelf",
			AmountCents: 5000,
		},
	}
}

// WithPoster sets the poster id.
func (b *TaskRequestBuilder) WithPoster(posterID string) *TaskRequestBuilder {
	b.req.PosterID = posterID
	return b
}

// WithTitle sets the title.
func (b *TaskRequestBuilder) WithTitle(title string) *TaskRequestBuilder {
	b.req.Title = title
	return b
}

// WithAmountCents sets the escrow amount in minor units.
func (b *TaskRequestBuilder) WithAmountCents(amount int64) *TaskRequestBuilder {
	b.req.AmountCents = amount
	return b
}

// Build returns the built CreateTaskRequest.
func (b *TaskRequestBuilder) Build() *model.CreateTaskRequest {
	reqCopy := *b.req
	return &reqCopy
}

// ProofRequestBuilder provides a fluent interface for building SubmitProofRequest objects for testing.
type ProofRequestBuilder struct {
	req *model.SubmitProofRequest
}

// NewProofRequest creates a new ProofRequestBuilder with sensible defaults.
func NewProofRequest(taskID, workerID string) *ProofRequestBuilder {
	return &ProofRequestBuilder{
		req: &model.SubmitProofRequest{
			TaskID:   taskID,
			WorkerID: workerID,
			Evidence: json.RawMessage(`{"description": "done", "media": []}`),
		},
	}
}

// WithEvidence sets the evidence blob.
func (b *ProofRequestBuilder) WithEvidence(evidence json.RawMessage) *ProofRequestBuilder {
	b.req.Evidence = evidence
	return b
}

// WithEvidenceString sets the evidence blob from a string.
func (b *ProofRequestBuilder) WithEvidenceString(evidence string) *ProofRequestBuilder {
	b.req.Evidence = json.RawMessage(evidence)
	return b
}

// Build returns the built SubmitProofRequest.
func (b *ProofRequestBuilder) Build() *model.SubmitProofRequest {
	reqCopy := *b.req
	return &reqCopy
}

// EnqueueRequestBuilder provides a fluent interface for building EnqueueRequest objects for testing.
type EnqueueRequestBuilder struct {
	req *model.EnqueueRequest
}

// NewEnqueueRequest creates a new EnqueueRequestBuilder with sensible defaults.
func NewEnqueueRequest() *EnqueueRequestBuilder {
	return &EnqueueRequestBuilder{
		req: &model.EnqueueRequest{
			Type:        model.JobTypeNotification,
			Payload:     json.RawMessage(`{"recipient_id": "worker-1", "kind": "test"}`),
			MaxAttempts: 3,
		},
	}
}

// WithType sets the job type.
func (b *EnqueueRequestBuilder) WithType(jobType model.JobType) *EnqueueRequestBuilder {
	b.req.Type = jobType
	return b
}

// WithPayloadString sets the job payload from a string.
func (b *EnqueueRequestBuilder) WithPayloadString(payload string) *EnqueueRequestBuilder {
	b.req.Payload = json.RawMessage(payload)
	return b
}

// WithDedupeKey sets the idempotency key.
func (b *EnqueueRequestBuilder) WithDedupeKey(key string) *EnqueueRequestBuilder {
	b.req.DedupeKey = key
	return b
}

// WithDelay sets the scheduling delay.
func (b *EnqueueRequestBuilder) WithDelay(delay time.Duration) *EnqueueRequestBuilder {
	b.req.Delay = delay
	return b
}

// WithPriority sets the job priority.
func (b *EnqueueRequestBuilder) WithPriority(priority int) *EnqueueRequestBuilder {
	b.req.Priority = priority
	return b
}

// WithMaxAttempts sets the retry budget.
func (b *EnqueueRequestBuilder) WithMaxAttempts(maxAttempts int) *EnqueueRequestBuilder {
	b.req.MaxAttempts = maxAttempts
	return b
}

// Build returns the built EnqueueRequest.
func (b *EnqueueRequestBuilder) Build() *model.EnqueueRequest {
	reqCopy := *b.req
	return &reqCopy
}
