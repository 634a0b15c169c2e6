// Package service implements the workflow orchestration on top of the
// repository ports: task lifecycle, escrow custody, proof review, and the
// queue operations that tie them together.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// TaskServiceOptions groups dependencies for TaskService.
type TaskServiceOptions struct {
	Tasks   core.TaskRepository   // Required
	Escrows core.EscrowRepository // Required
	Proofs  core.ProofRepository  // Required
	Queue   core.JobRepository    // Required
	Logger  *slog.Logger          // Optional
}

// TaskService orchestrates the task state machine and its coupling to
// escrow and proofs. Single-machine edges delegate to the repository; the
// cross-machine flows (complete, cancel, dispute) coordinate both machines.
type TaskService struct {
	tasks   core.TaskRepository
	escrows core.EscrowRepository
	proofs  core.ProofRepository
	queue   core.JobRepository
	logger  *slog.Logger
}

// NewTaskService constructs a new TaskService.
func NewTaskService(opts TaskServiceOptions) (*TaskService, error) {
	if opts.Tasks == nil {
		return nil, errors.New("TaskRepository is required")
	}
	if opts.Escrows == nil {
		return nil, errors.New("EscrowRepository is required")
	}
	if opts.Proofs == nil {
		return nil, errors.New("ProofRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "task_service")
	}

	return &TaskService{
		tasks:   opts.Tasks,
		escrows: opts.Escrows,
		proofs:  opts.Proofs,
		queue:   opts.Queue,
		logger:  logger,
	}, nil
}

// MustNewTaskService constructs a new TaskService and panics on error.
func MustNewTaskService(opts TaskServiceOptions) *TaskService {
	svc, err := NewTaskService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create TaskService: %v", err))
	}
	return svc
}

// Create posts a new task and initializes its escrow lock in pending state.
func (s *TaskService) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	task, err := s.tasks.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if _, initErr := s.escrows.Initialize(ctx, task.ID, task.AmountCents); initErr != nil {
		return nil, fmt.Errorf("initialize escrow for task %s: %w", task.ID, initErr)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "task created",
			"task_id", task.ID,
			"poster_id", task.PosterID,
			"amount_cents", task.AmountCents,
		)
	}
	return task, nil
}

// GetByID returns a task by its ID.
func (s *TaskService) GetByID(ctx context.Context, id string) (*model.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// GetState returns the current state of a task.
func (s *TaskService) GetState(ctx context.Context, id string) (model.TaskState, error) {
	return s.tasks.GetState(ctx, id)
}

// History returns the task's transition log.
func (s *TaskService) History(ctx context.Context, id string) ([]model.TransitionRecord, error) {
	return s.tasks.History(ctx, id)
}

// Transition requests one edge of the task machine. Targets with
// cross-machine effects route through the dedicated flows.
func (s *TaskService) Transition(
	ctx context.Context,
	id string,
	to model.TaskState,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	switch to {
	case model.TaskStateAccepted:
		return s.Accept(ctx, id, tc.Actor)
	case model.TaskStateCompleted:
		return s.Complete(ctx, id, tc)
	case model.TaskStateCancelled:
		return s.Cancel(ctx, id, tc)
	case model.TaskStateDisputed:
		return s.Dispute(ctx, id, tc)
	case model.TaskStateExpired:
		return s.Expire(ctx, id, tc)
	default:
		return s.tasks.Transition(ctx, id, to, tc)
	}
}

// Accept assigns the task to a worker and notifies the poster.
func (s *TaskService) Accept(ctx context.Context, id, workerID string) (*model.TransitionResult, error) {
	tc := model.TransitionContext{Actor: workerID}
	result, err := s.tasks.Transition(ctx, id, model.TaskStateAccepted, tc)
	if err != nil {
		return nil, err
	}

	s.notifyPoster(ctx, id, "task_accepted")
	return result, nil
}

// Complete finishes a task. The escrow must already have been released
// through an explicit release; completion never moves money itself. Requires
// an accepted proof, and the repository guard refuses the edge while funds
// are still held.
func (s *TaskService) Complete(
	ctx context.Context,
	id string,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	hasProof, err := s.proofs.HasAcceptedProof(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check accepted proof: %w", err)
	}
	if !hasProof {
		return nil, apperrors.Invariantf("task %s has no accepted proof", id)
	}

	result, err := s.tasks.Transition(ctx, id, model.TaskStateCompleted, tc)
	if err != nil {
		return nil, err
	}

	s.enqueueWorkerFollowups(ctx, id)
	return result, nil
}

// escrowAlreadyReleased reports whether a failed release attempt lost to a
// previous release, which makes the failure safe to ignore.
func (s *TaskService) escrowAlreadyReleased(ctx context.Context, taskID string, relErr error) bool {
	if !apperrors.IsTerminalState(relErr) {
		return false
	}
	lock, getErr := s.escrows.GetByTaskID(ctx, taskID)
	if getErr != nil {
		return false
	}
	return lock.State == model.EscrowStateReleased
}

// Cancel cancels a task and refunds any held funds.
func (s *TaskService) Cancel(
	ctx context.Context,
	id string,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	result, err := s.tasks.Transition(ctx, id, model.TaskStateCancelled, tc)
	if err != nil {
		return nil, err
	}

	if refundErr := s.refundIfHeld(ctx, id, tc); refundErr != nil {
		return nil, fmt.Errorf("refund escrow for cancelled task %s: %w", id, refundErr)
	}

	s.notifyPoster(ctx, id, "task_cancelled")
	return result, nil
}

// Expire expires an open task and refunds the pending escrow.
func (s *TaskService) Expire(
	ctx context.Context,
	id string,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	result, err := s.tasks.Transition(ctx, id, model.TaskStateExpired, tc)
	if err != nil {
		return nil, err
	}

	if refundErr := s.refundIfHeld(ctx, id, tc); refundErr != nil {
		return nil, fmt.Errorf("refund escrow for expired task %s: %w", id, refundErr)
	}
	return result, nil
}

// refundIfHeld refunds the escrow unless it already reached a terminal
// state. Missing locks and terminal locks are both no-ops.
func (s *TaskService) refundIfHeld(ctx context.Context, taskID string, tc model.TransitionContext) error {
	lock, err := s.escrows.GetByTaskID(ctx, taskID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if lock.State.Terminal() {
		return nil
	}

	if _, err := s.escrows.Transition(ctx, taskID, model.EscrowStateRefunded, tc); err != nil {
		return err
	}
	return nil
}

// Dispute places the task under dispute and freezes funded escrow.
func (s *TaskService) Dispute(
	ctx context.Context,
	id string,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	result, err := s.tasks.Transition(ctx, id, model.TaskStateDisputed, tc)
	if err != nil {
		return nil, err
	}

	lock, getErr := s.escrows.GetByTaskID(ctx, id)
	if getErr != nil && !apperrors.IsNotFound(getErr) {
		return nil, fmt.Errorf("load escrow for disputed task %s: %w", id, getErr)
	}
	if getErr == nil && lock.State == model.EscrowStateFunded {
		if _, lockErr := s.escrows.Transition(ctx, id, model.EscrowStateLockedDispute, tc); lockErr != nil {
			return nil, fmt.Errorf("freeze escrow for disputed task %s: %w", id, lockErr)
		}
	}

	s.notifyPoster(ctx, id, "task_disputed")
	return result, nil
}

// DisputeOutcome names the resolution of a dispute.
type DisputeOutcome string

const (
	// DisputeOutcomeRelease pays the worker in full; the task completes.
	DisputeOutcomeRelease DisputeOutcome = "release"
	// DisputeOutcomeRefund returns funds to the poster; the task cancels.
	DisputeOutcomeRefund DisputeOutcome = "refund"
	// DisputeOutcomePartial splits funds per the resolution; the task cancels.
	DisputeOutcomePartial DisputeOutcome = "partial_refund"
)

// ResolveDispute applies a dispute resolution to both machines.
func (s *TaskService) ResolveDispute(
	ctx context.Context,
	id string,
	outcome DisputeOutcome,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	switch outcome {
	case DisputeOutcomeRelease:
		if _, relErr := s.escrows.Transition(ctx, id, model.EscrowStateReleased, tc); relErr != nil {
			if !s.escrowAlreadyReleased(ctx, id, relErr) {
				return nil, fmt.Errorf("release disputed escrow for task %s: %w", id, relErr)
			}
			if s.logger != nil {
				s.logger.InfoContext(ctx, "escrow already released, resuming resolution", "task_id", id)
			}
		}
		return s.Complete(ctx, id, tc)
	case DisputeOutcomeRefund:
		if _, err := s.escrows.Transition(ctx, id, model.EscrowStateRefunded, tc); err != nil {
			return nil, fmt.Errorf("refund disputed escrow for task %s: %w", id, err)
		}
		return s.tasks.Transition(ctx, id, model.TaskStateCancelled, tc)
	case DisputeOutcomePartial:
		if _, err := s.escrows.Transition(ctx, id, model.EscrowStatePartialRefund, tc); err != nil {
			return nil, fmt.Errorf("partially refund disputed escrow for task %s: %w", id, err)
		}
		return s.tasks.Transition(ctx, id, model.TaskStateCancelled, tc)
	default:
		return nil, apperrors.Validationf("unknown dispute outcome: %q", outcome)
	}
}

// enqueueWorkerFollowups enqueues the completion side effects that are not
// money-critical: trust recompute and completion notification. Both are
// deduplicated per task and failures only log.
func (s *TaskService) enqueueWorkerFollowups(ctx context.Context, taskID string) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil || task.WorkerID == nil {
		return
	}

	trustPayload, err := json.Marshal(model.TrustRecomputePayload{
		WorkerID: *task.WorkerID,
		Reason:   "task_completed",
	})
	if err == nil {
		if _, _, enqErr := s.queue.Enqueue(ctx, &model.EnqueueRequest{
			Type:      model.JobTypeTrustRecompute,
			Payload:   trustPayload,
			DedupeKey: "trust_recompute:task:" + taskID,
		}); enqErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "enqueue trust recompute failed", "task_id", taskID, "error", enqErr)
		}
	}

	s.notify(ctx, *task.WorkerID, "task_completed", taskID)
}

func (s *TaskService) notifyPoster(ctx context.Context, taskID, kind string) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return
	}
	s.notify(ctx, task.PosterID, kind, taskID)
}

// notify enqueues a notification job. Delivery is fire-and-log: enqueue
// failures are logged, never propagated.
func (s *TaskService) notify(ctx context.Context, recipientID, kind, taskID string) {
	data, err := json.Marshal(map[string]string{"task_id": taskID})
	if err != nil {
		return
	}
	payload, err := json.Marshal(model.NotificationPayload{
		RecipientID: recipientID,
		Kind:        kind,
		Data:        data,
	})
	if err != nil {
		return
	}

	if _, _, enqErr := s.queue.Enqueue(ctx, &model.EnqueueRequest{
		Type:      model.JobTypeNotification,
		Payload:   payload,
		DedupeKey: "notification:" + kind + ":task:" + taskID + ":" + recipientID,
	}); enqErr != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "enqueue notification failed",
			"task_id", taskID,
			"kind", kind,
			"error", enqErr,
		)
	}
}
