package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/testutil"
)

// repoFixture bundles the repositories over one test database connection.
type repoFixture struct {
	db      *sql.DB
	tasks   *TaskRepo
	escrows *EscrowRepo
	proofs  *ProofRepo
	jobs    *JobRepo
	clock   *testutil.TestTimeProvider
}

func newRepoFixture(db *sql.DB) *repoFixture {
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	jobs := NewJobRepo(db, JobRepoConfig{
		RetryBaseSeconds:   30,
		DefaultMaxAttempts: 5,
		TimeProvider:       clock,
	})
	return &repoFixture{
		db:      db,
		tasks:   NewTaskRepo(db, TaskRepoConfig{TimeProvider: clock}),
		escrows: NewEscrowRepo(db, jobs, EscrowRepoConfig{TimeProvider: clock}),
		proofs:  NewProofRepo(db, ProofRepoConfig{TimeProvider: clock}),
		jobs:    jobs,
		clock:   clock,
	}
}

// createOpenTask inserts a fresh task with its pending escrow lock.
func createOpenTask(t *testing.T, f *repoFixture) *model.Task {
	t.Helper()
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, testutil.NewTaskRequest().Build())
	require.NoError(t, err)

	_, err = f.escrows.Initialize(ctx, task.ID, task.AmountCents)
	require.NoError(t, err)
	return task
}

// acceptTask assigns a fresh worker to the task and returns the worker id.
func acceptTask(t *testing.T, f *repoFixture, taskID string) string {
	t.Helper()
	workerID := uuid.NewString()

	_, err := f.tasks.Transition(context.Background(), taskID, model.TaskStateAccepted,
		model.TransitionContext{Actor: workerID})
	require.NoError(t, err)
	return workerID
}

// fundEscrow moves the task's escrow from pending to funded.
func fundEscrow(t *testing.T, f *repoFixture, taskID string) {
	t.Helper()
	_, err := f.escrows.Transition(context.Background(), taskID, model.EscrowStateFunded,
		model.TransitionContext{})
	require.NoError(t, err)
}

// submitProof submits default evidence from the task's assigned worker.
func submitProof(t *testing.T, f *repoFixture, taskID, workerID string) *model.ProofSubmission {
	t.Helper()
	proof, err := f.proofs.Submit(context.Background(),
		testutil.NewProofRequest(taskID, workerID).Build(),
		model.QualityTierBasic,
		f.clock.Now().Add(24*time.Hour))
	require.NoError(t, err)
	return proof
}

// readyForCompletion drives a task through accept, fund, proof accept, and
// escrow release so the completed edge's guards pass.
func readyForCompletion(t *testing.T, f *repoFixture) (*model.Task, string) {
	t.Helper()
	ctx := context.Background()

	task := createOpenTask(t, f)
	workerID := acceptTask(t, f, task.ID)
	fundEscrow(t, f, task.ID)
	proof := submitProof(t, f, task.ID, workerID)

	reviewerID := uuid.NewString()
	_, err := f.proofs.Accept(ctx, proof.ID, reviewerID)
	require.NoError(t, err)

	_, err = f.escrows.Transition(ctx, task.ID, model.EscrowStateReleased, model.TransitionContext{})
	require.NoError(t, err)

	return task, workerID
}
