package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/mocks"
)

type taskServiceFixture struct {
	tasks   *mocks.MockTaskRepository
	escrows *mocks.MockEscrowRepository
	proofs  *mocks.MockProofRepository
	queue   *mocks.MockJobRepository
	svc     *TaskService
}

func newTaskServiceFixture(t *testing.T) *taskServiceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &taskServiceFixture{
		tasks:   mocks.NewMockTaskRepository(ctrl),
		escrows: mocks.NewMockEscrowRepository(ctrl),
		proofs:  mocks.NewMockProofRepository(ctrl),
		queue:   mocks.NewMockJobRepository(ctrl),
	}
	f.svc = MustNewTaskService(TaskServiceOptions{
		Tasks:   f.tasks,
		Escrows: f.escrows,
		Proofs:  f.proofs,
		Queue:   f.queue,
	})
	return f
}

func TestNewTaskService_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	tasks := mocks.NewMockTaskRepository(ctrl)
	escrows := mocks.NewMockEscrowRepository(ctrl)
	proofs := mocks.NewMockProofRepository(ctrl)
	queue := mocks.NewMockJobRepository(ctrl)

	_, err := NewTaskService(TaskServiceOptions{Escrows: escrows, Proofs: proofs, Queue: queue})
	assert.ErrorContains(t, err, "TaskRepository is required")

	_, err = NewTaskService(TaskServiceOptions{Tasks: tasks, Proofs: proofs, Queue: queue})
	assert.ErrorContains(t, err, "EscrowRepository is required")

	_, err = NewTaskService(TaskServiceOptions{Tasks: tasks, Escrows: escrows, Queue: queue})
	assert.ErrorContains(t, err, "ProofRepository is required")

	_, err = NewTaskService(TaskServiceOptions{Tasks: tasks, Escrows: escrows, Proofs: proofs})
	assert.ErrorContains(t, err, "JobRepository is required")

	assert.Panics(t, func() {
		MustNewTaskService(TaskServiceOptions{})
	})
}

func TestTaskService_Create_InitializesEscrow(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	req := &model.CreateTaskRequest{PosterID: "poster-1", Title: "Assemble bookshelf", AmountCents: 5000}
	created := &model.Task{ID: "task-1", State: model.TaskStateOpen, PosterID: "poster-1", AmountCents: 5000}

	f.tasks.EXPECT().Create(ctx, req).Return(created, nil)
	f.escrows.EXPECT().Initialize(ctx, "task-1", int64(5000)).Return(&model.EscrowLock{
		TaskID: "task-1",
		State:  model.EscrowStatePending,
	}, nil)

	task, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "task-1", task.ID)
}

func TestTaskService_Create_EscrowInitFailure(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	req := &model.CreateTaskRequest{PosterID: "poster-1", Title: "Assemble bookshelf", AmountCents: 5000}
	f.tasks.EXPECT().Create(ctx, req).Return(&model.Task{ID: "task-1"}, nil)
	f.escrows.EXPECT().Initialize(ctx, "task-1", int64(0)).Return(nil, errors.New("db down"))

	_, err := f.svc.Create(ctx, req)
	assert.ErrorContains(t, err, "initialize escrow for task task-1")
}

func TestTaskService_Accept_NotifiesPoster(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateAccepted, model.TransitionContext{Actor: "worker-1"}).
		Return(&model.TransitionResult{EntityID: "task-1", From: "open", To: "accepted"}, nil)
	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1", PosterID: "poster-1"}, nil)

	var enq *model.EnqueueRequest
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.Job, bool, error) {
			enq = req
			return &model.Job{ID: "job-1"}, true, nil
		})

	result, err := f.svc.Accept(ctx, "task-1", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", result.To)

	require.NotNil(t, enq)
	assert.Equal(t, model.JobTypeNotification, enq.Type)
	assert.Equal(t, "notification:task_accepted:task:task-1:poster-1", enq.DedupeKey)
}

func TestTaskService_Complete_RequiresAcceptedProof(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	f.proofs.EXPECT().HasAcceptedProof(ctx, "task-1").Return(false, nil)

	_, err := f.svc.Complete(ctx, "task-1", model.TransitionContext{Actor: "poster-1"})
	assert.True(t, apperrors.IsInvariant(err))
}

func TestTaskService_Complete_EnqueuesFollowups(t *testing.T) {
	// Completion touches the task machine only: no escrow expectations are
	// registered, so any escrow call would fail the mock controller.
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "poster-1"}

	f.proofs.EXPECT().HasAcceptedProof(ctx, "task-1").Return(true, nil)
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCompleted, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "proof_submitted", To: "completed"}, nil)

	workerID := "worker-1"
	f.tasks.EXPECT().GetByID(ctx, "task-1").
		Return(&model.Task{ID: "task-1", WorkerID: &workerID, PosterID: "poster-1"}, nil)

	var dedupeKeys []string
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.Job, bool, error) {
			dedupeKeys = append(dedupeKeys, req.DedupeKey)
			return &model.Job{ID: "job-1"}, true, nil
		})

	result, err := f.svc.Complete(ctx, "task-1", tc)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.To)
	assert.Contains(t, dedupeKeys, "trust_recompute:task:task-1")
	assert.Contains(t, dedupeKeys, "notification:task_completed:task:task-1:worker-1")
}

func TestTaskService_Complete_HeldEscrowRefused(t *testing.T) {
	// Funds must leave escrow through an explicit release before the task
	// can complete; the repository guard surfaces the violation.
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "poster-1"}

	f.proofs.EXPECT().HasAcceptedProof(ctx, "task-1").Return(true, nil)
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCompleted, tc).
		Return(nil, apperrors.Invariant("escrow for task task-1 must be released before completion"))

	_, err := f.svc.Transition(ctx, "task-1", model.TaskStateCompleted, tc)
	assert.True(t, apperrors.IsInvariant(err))
}

func TestTaskService_Cancel_RefundsHeldEscrow(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "poster-1"}

	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCancelled, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "open", To: "cancelled"}, nil)
	f.escrows.EXPECT().GetByTaskID(ctx, "task-1").
		Return(&model.EscrowLock{TaskID: "task-1", State: model.EscrowStateFunded}, nil)
	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStateRefunded, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "funded", To: "refunded"}, nil)

	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1", PosterID: "poster-1"}, nil)
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.Job{ID: "job-1"}, true, nil)

	result, err := f.svc.Cancel(ctx, "task-1", tc)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.To)
}

func TestTaskService_Cancel_TerminalEscrowIsNoOp(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "poster-1"}

	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCancelled, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "disputed", To: "cancelled"}, nil)
	f.escrows.EXPECT().GetByTaskID(ctx, "task-1").
		Return(&model.EscrowLock{TaskID: "task-1", State: model.EscrowStateRefunded}, nil)

	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1", PosterID: "poster-1"}, nil)
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.Job{ID: "job-1"}, true, nil)

	_, err := f.svc.Cancel(ctx, "task-1", tc)
	assert.NoError(t, err)
}

func TestTaskService_Expire_RefundsMissingEscrowQuietly(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{}

	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateExpired, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "open", To: "expired"}, nil)
	f.escrows.EXPECT().GetByTaskID(ctx, "task-1").
		Return(nil, apperrors.NotFound("escrow lock not found"))

	result, err := f.svc.Expire(ctx, "task-1", tc)
	require.NoError(t, err)
	assert.Equal(t, "expired", result.To)
}

func TestTaskService_Dispute_FreezesFundedEscrow(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "poster-1"}

	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateDisputed, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "proof_submitted", To: "disputed"}, nil)
	f.escrows.EXPECT().GetByTaskID(ctx, "task-1").
		Return(&model.EscrowLock{TaskID: "task-1", State: model.EscrowStateFunded}, nil)
	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStateLockedDispute, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "funded", To: "locked_dispute"}, nil)

	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1", PosterID: "poster-1"}, nil)
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.Job{ID: "job-1"}, true, nil)

	result, err := f.svc.Dispute(ctx, "task-1", tc)
	require.NoError(t, err)
	assert.Equal(t, "disputed", result.To)
}

func TestTaskService_Dispute_PendingEscrowStaysPut(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "worker-1"}

	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateDisputed, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "accepted", To: "disputed"}, nil)
	f.escrows.EXPECT().GetByTaskID(ctx, "task-1").
		Return(&model.EscrowLock{TaskID: "task-1", State: model.EscrowStatePending}, nil)

	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1", PosterID: "poster-1"}, nil)
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.Job{ID: "job-1"}, true, nil)

	_, err := f.svc.Dispute(ctx, "task-1", tc)
	assert.NoError(t, err)
}

func TestTaskService_ResolveDispute_Release(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "admin-1"}

	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStateReleased, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "locked_dispute", To: "released"}, nil)
	f.proofs.EXPECT().HasAcceptedProof(ctx, "task-1").Return(true, nil)
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCompleted, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "disputed", To: "completed"}, nil)

	// Followups still run; no worker assigned keeps them quiet.
	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1"}, nil)

	result, err := f.svc.ResolveDispute(ctx, "task-1", DisputeOutcomeRelease, tc)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.To)
}

func TestTaskService_ResolveDispute_Release_ResumesAfterReleasedEscrow(t *testing.T) {
	// A prior attempt released the escrow but crashed before completing the
	// task. The retry sees a terminal-state failure, confirms the escrow is
	// released, and finishes the task half.
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "admin-1"}

	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStateReleased, tc).
		Return(nil, apperrors.TerminalState("escrow already terminal"))
	f.escrows.EXPECT().GetByTaskID(ctx, "task-1").
		Return(&model.EscrowLock{TaskID: "task-1", State: model.EscrowStateReleased}, nil)
	f.proofs.EXPECT().HasAcceptedProof(ctx, "task-1").Return(true, nil)
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCompleted, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "disputed", To: "completed"}, nil)

	f.tasks.EXPECT().GetByID(ctx, "task-1").Return(&model.Task{ID: "task-1"}, nil)

	result, err := f.svc.ResolveDispute(ctx, "task-1", DisputeOutcomeRelease, tc)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.To)
}

func TestTaskService_ResolveDispute_Release_EscrowFailurePropagates(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "admin-1"}

	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStateReleased, tc).
		Return(nil, apperrors.InvalidTransition("pending cannot release"))

	_, err := f.svc.ResolveDispute(ctx, "task-1", DisputeOutcomeRelease, tc)
	assert.ErrorContains(t, err, "release disputed escrow for task task-1")
}

func TestTaskService_ResolveDispute_Refund(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "admin-1"}

	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStateRefunded, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "locked_dispute", To: "refunded"}, nil)
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCancelled, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "disputed", To: "cancelled"}, nil)

	result, err := f.svc.ResolveDispute(ctx, "task-1", DisputeOutcomeRefund, tc)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.To)
}

func TestTaskService_ResolveDispute_Partial(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()
	tc := model.TransitionContext{Actor: "admin-1"}

	f.escrows.EXPECT().
		Transition(ctx, "task-1", model.EscrowStatePartialRefund, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "locked_dispute", To: "partial_refund"}, nil)
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateCancelled, tc).
		Return(&model.TransitionResult{EntityID: "task-1", From: "disputed", To: "cancelled"}, nil)

	_, err := f.svc.ResolveDispute(ctx, "task-1", DisputeOutcomePartial, tc)
	assert.NoError(t, err)
}

func TestTaskService_ResolveDispute_UnknownOutcome(t *testing.T) {
	f := newTaskServiceFixture(t)

	_, err := f.svc.ResolveDispute(context.Background(), "task-1", DisputeOutcome("split_the_baby"), model.TransitionContext{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTaskService_Transition_RoutesCrossMachineEdges(t *testing.T) {
	f := newTaskServiceFixture(t)
	ctx := context.Background()

	// proof_submitted has no cross-machine effects and goes straight to the
	// repository.
	f.tasks.EXPECT().
		Transition(ctx, "task-1", model.TaskStateProofSubmitted, model.TransitionContext{Actor: "worker-1"}).
		Return(&model.TransitionResult{EntityID: "task-1", From: "accepted", To: "proof_submitted"}, nil)

	result, err := f.svc.Transition(ctx, "task-1", model.TaskStateProofSubmitted, model.TransitionContext{Actor: "worker-1"})
	require.NoError(t, err)
	assert.Equal(t, "proof_submitted", result.To)
}
