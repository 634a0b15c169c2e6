// Package core defines the ports between the service layer and its
// collaborators. Services depend on these interfaces, not on the concrete
// repositories or adapters behind them.
package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// TaskRepository defines the interface for task state machine operations.
type TaskRepository interface {
	Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	GetState(ctx context.Context, id string) (model.TaskState, error)
	Transition(ctx context.Context, id string, to model.TaskState, tc model.TransitionContext) (*model.TransitionResult, error)
	History(ctx context.Context, id string) ([]model.TransitionRecord, error)
}

// EscrowRepository defines the interface for escrow lock operations.
type EscrowRepository interface {
	Initialize(ctx context.Context, taskID string, amountCents int64) (*model.EscrowLock, error)
	GetByTaskID(ctx context.Context, taskID string) (*model.EscrowLock, error)
	Transition(ctx context.Context, taskID string, to model.EscrowState, tc model.TransitionContext) (*model.TransitionResult, error)
	SetProcessorRef(ctx context.Context, taskID, key, ref string) error
	RecordRecoveryFailure(ctx context.Context, taskID, errMsg string) error
	History(ctx context.Context, taskID string) ([]model.TransitionRecord, error)
}

// ProofRepository defines the interface for proof submission operations.
type ProofRepository interface {
	Submit(ctx context.Context, req *model.SubmitProofRequest, tier model.QualityTier, expiresAt time.Time) (*model.ProofSubmission, error)
	GetByID(ctx context.Context, id string) (*model.ProofSubmission, error)
	GetActiveByTask(ctx context.Context, taskID string) (*model.ProofSubmission, error)
	StartReview(ctx context.Context, id, reviewerID string) (*model.TransitionResult, error)
	Accept(ctx context.Context, id, reviewerID string) (*model.TransitionResult, error)
	Reject(ctx context.Context, id, reviewerID, reason string) (*model.TransitionResult, error)
	ExpireDue(ctx context.Context, batchSize int) (int64, error)
	HasAcceptedProof(ctx context.Context, taskID string) (bool, error)
	History(ctx context.Context, id string) ([]model.TransitionRecord, error)
}

// JobRepository defines the interface for durable job queue operations.
type JobRepository interface {
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, bool, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ClaimNext(ctx context.Context, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (model.JobStatus, bool, error)
	RequeueExpired(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*model.JobStats, error)
	RetryDead(ctx context.Context, id string) (bool, error)
	RetryAllDead(ctx context.Context, jobType model.JobType) (int64, error)
	ListDead(ctx context.Context, limit int) ([]*model.Job, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobRepositoryTx defines optional transactional enqueue support.
type JobRepositoryTx interface {
	EnqueueInTx(ctx context.Context, tx *sql.Tx, req *model.EnqueueRequest) (*model.Job, bool, error)
}

// JobHandler processes one claimed job. Handlers must tolerate re-delivery
// of the same payload: every claimed job runs at least once and may run
// again after a lease expiry.
type JobHandler interface {
	Handle(ctx context.Context, job *model.Job) error
}

// JobHandlerFunc adapts a function to the JobHandler interface.
type JobHandlerFunc func(ctx context.Context, job *model.Job) error

// Handle implements JobHandler.
func (f JobHandlerFunc) Handle(ctx context.Context, job *model.Job) error {
	return f(ctx, job)
}

// CreditRewardParams groups parameters for RewardLedger.Credit.
type CreditRewardParams struct {
	// IdempotencyKey makes repeated credits for the same release a no-op.
	IdempotencyKey string
	WorkerID       string
	TaskID         string
	AmountCents    int64
}

// RewardLedger credits workers for released escrows.
type RewardLedger interface {
	Credit(ctx context.Context, params CreditRewardParams) error
}

// TransferParams groups parameters for PaymentGateway.Transfer.
type TransferParams struct {
	// IdempotencyKey makes repeated transfer requests for the same payout a no-op.
	IdempotencyKey string
	EscrowID       string
	WorkerID       string
	AmountCents    int64
}

// PaymentGateway initiates transfers with the external payment processor.
// Transfer returns the processor's reference for the transfer.
type PaymentGateway interface {
	Transfer(ctx context.Context, params TransferParams) (string, error)
}

// NotificationSink delivers notifications. Delivery is fire-and-log: a
// failed delivery is reported as an error but never blocks workflow state.
type NotificationSink interface {
	Deliver(ctx context.Context, payload *model.NotificationPayload) error
}

// TrustTierService recomputes a worker's trust tier from their history.
type TrustTierService interface {
	Recompute(ctx context.Context, workerID, reason string) error
}
