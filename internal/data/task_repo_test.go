package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/testutil"
)

func TestTaskRepo_Create(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		posterID := uuid.NewString()
		task, err := f.tasks.Create(ctx, testutil.NewTaskRequest().
			WithPoster(posterID).
			WithTitle("Mount a TV").
			WithAmountCents(7500).
			Build())
		require.NoError(t, err)

		assert.NotEmpty(t, task.ID)
		assert.Equal(t, model.TaskStateOpen, task.State)
		assert.Equal(t, posterID, task.PosterID)
		assert.Equal(t, "Mount a TV", task.Title)
		assert.Equal(t, int64(7500), task.AmountCents)
		assert.Nil(t, task.WorkerID)
	})
}

func TestTaskRepo_Create_InvalidRequest(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.tasks.Create(context.Background(), testutil.NewTaskRequest().WithTitle("").Build())
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.tasks.GetByID(context.Background(), uuid.NewString())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTaskRepo_Transition_AcceptAssignsWorker(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task := createOpenTask(t, f)
		workerID := uuid.NewString()

		result, err := f.tasks.Transition(ctx, task.ID, model.TaskStateAccepted,
			model.TransitionContext{Actor: workerID})
		require.NoError(t, err)
		assert.Equal(t, "open", result.From)
		assert.Equal(t, "accepted", result.To)

		got, err := f.tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStateAccepted, got.State)
		require.NotNil(t, got.WorkerID)
		assert.Equal(t, workerID, *got.WorkerID)
	})
}

func TestTaskRepo_Transition_AcceptRequiresActor(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		task := createOpenTask(t, f)

		_, err := f.tasks.Transition(context.Background(), task.ID, model.TaskStateAccepted,
			model.TransitionContext{})
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "actor", apperrors.GetField(err))
	})
}

func TestTaskRepo_Transition_IllegalEdge(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		task := createOpenTask(t, f)

		_, err := f.tasks.Transition(context.Background(), task.ID, model.TaskStateCompleted,
			model.TransitionContext{})
		assert.True(t, apperrors.IsInvalidTransition(err))
	})
}

func TestTaskRepo_Transition_TerminalState(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task := createOpenTask(t, f)
		_, err := f.tasks.Transition(ctx, task.ID, model.TaskStateCancelled, model.TransitionContext{})
		require.NoError(t, err)

		_, err = f.tasks.Transition(ctx, task.ID, model.TaskStateAccepted,
			model.TransitionContext{Actor: uuid.NewString()})
		assert.True(t, apperrors.IsTerminalState(err))
	})
}

func TestTaskRepo_Transition_CompletionGuards(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task := createOpenTask(t, f)
		workerID := acceptTask(t, f, task.ID)
		fundEscrow(t, f, task.ID)
		submitProof(t, f, task.ID, workerID)

		// Escrow still funded and the proof is still pending, so the
		// completed edge must be refused.
		_, err := f.tasks.Transition(ctx, task.ID, model.TaskStateCompleted, model.TransitionContext{})
		assert.True(t, apperrors.IsInvariant(err))
	})
}

func TestTaskRepo_Transition_CompleteAfterRelease(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task, _ := readyForCompletion(t, f)

		result, err := f.tasks.Transition(ctx, task.ID, model.TaskStateCompleted, model.TransitionContext{})
		require.NoError(t, err)
		assert.Equal(t, "proof_submitted", result.From)
		assert.Equal(t, "completed", result.To)
	})
}

func TestTaskRepo_Transition_NotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.tasks.Transition(context.Background(), uuid.NewString(), model.TaskStateCancelled,
			model.TransitionContext{})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTaskRepo_Transition_HeldRowLockLosesQuickly(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task := createOpenTask(t, f)

		// A second session pins the row; the NOWAIT lock refuses to queue
		// behind it.
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()
		_, err = tx.ExecContext(ctx, `SELECT 1 FROM tasks WHERE id = $1 FOR UPDATE`, task.ID)
		require.NoError(t, err)

		_, err = f.tasks.Transition(ctx, task.ID, model.TaskStateAccepted,
			model.TransitionContext{Actor: uuid.NewString()})
		assert.True(t, apperrors.IsConflictRetry(err))
	})
}

func TestTaskRepo_Transition_ConcurrentAcceptsSingleWinner(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task := createOpenTask(t, f)

		start := make(chan struct{})
		errs := make(chan error, 2)
		for i := 0; i < 2; i++ {
			go func() {
				<-start
				_, err := f.tasks.Transition(ctx, task.ID, model.TaskStateAccepted,
					model.TransitionContext{Actor: uuid.NewString()})
				errs <- err
			}()
		}
		close(start)

		var wins int
		for i := 0; i < 2; i++ {
			err := <-errs
			if err == nil {
				wins++
				continue
			}
			// The loser either hit the held row lock or observed the
			// winner's committed state.
			assert.True(t,
				apperrors.IsConflictRetry(err) || apperrors.IsInvalidTransition(err),
				"unexpected loser error: %v", err)
		}
		assert.Equal(t, 1, wins)

		got, err := f.tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStateAccepted, got.State)
		assert.NotNil(t, got.WorkerID)
	})
}

func TestTaskRepo_History(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		task := createOpenTask(t, f)
		workerID := acceptTask(t, f, task.ID)
		_, err := f.tasks.Transition(ctx, task.ID, model.TaskStateDisputed,
			model.TransitionContext{Actor: task.PosterID})
		require.NoError(t, err)

		history, err := f.tasks.History(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)

		assert.Equal(t, "open", history[0].FromState)
		assert.Equal(t, "accepted", history[0].ToState)
		assert.Equal(t, workerID, history[0].Actor)
		assert.Equal(t, "accepted", history[1].FromState)
		assert.Equal(t, "disputed", history[1].ToState)
		assert.Equal(t, task.PosterID, history[1].Actor)
	})
}

func TestTaskRepo_History_NotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.tasks.History(context.Background(), uuid.NewString())
		assert.True(t, apperrors.IsNotFound(err))
	})
}
