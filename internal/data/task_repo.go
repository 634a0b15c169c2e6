package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data/pgxutil"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// TaskRepoConfig holds configuration options for the task repository.
type TaskRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// TaskRepo provides database operations for the task state machine.
type TaskRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewTaskRepo creates a new TaskRepo instance.
func NewTaskRepo(db *sql.DB, cfg TaskRepoConfig) *TaskRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &TaskRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const taskColumns = `
  id,
  state,
  poster_id,
  worker_id,
  amount_cents,
  title,
  created_at,
  updated_at
`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var task model.Task
	var workerID sql.NullString
	if err := scanner.Scan(
		&task.ID,
		&task.State,
		&task.PosterID,
		&workerID,
		&task.AmountCents,
		&task.Title,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.WorkerID = cloneNullableString(workerID)
	return &task, nil
}

// Create inserts a new open task.
func (r *TaskRepo) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	if req == nil {
		return nil, apperrors.Validation("create task request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create task request")
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO tasks (poster_id, amount_cents, title)
		VALUES ($1, $2, $3)
		RETURNING `+taskColumns,
		req.PosterID, req.AmountCents, req.Title,
	)
	task, err := scanTask(row)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("insert task: %w", err))
	}
	return task, nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("task %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get task: %w", err))
	}
	return task, nil
}

// GetState returns the current state of a task.
func (r *TaskRepo) GetState(ctx context.Context, id string) (model.TaskState, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return task.State, nil
}

// lockTaskTx loads a task row under FOR UPDATE NOWAIT. Losing the row race
// surfaces as a ConflictRetry via the error mapper.
func lockTaskTx(ctx context.Context, tx *sql.Tx, id string) (*model.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE NOWAIT`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("task %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("lock task: %w", err))
	}
	if _, parseErr := model.ParseTaskState(string(task.State)); parseErr != nil {
		return nil, apperrors.Wrap(parseErr, apperrors.ErrCodeInternal, "stored task state is unknown")
	}
	return task, nil
}

// checkTaskEdge validates the requested edge against the legal table,
// distinguishing terminal violations from plain illegal edges.
func checkTaskEdge(task *model.Task, to model.TaskState) error {
	if !to.Valid() {
		return apperrors.InvalidTransitionf("unknown target state: %q", to)
	}
	if task.State.Terminal() {
		return apperrors.TerminalStatef("task %s is %s and cannot change state", task.ID, task.State)
	}
	if !task.State.CanTransitionTo(to) {
		return apperrors.InvalidTransitionf("task cannot transition from %s to %s", task.State, to)
	}
	return nil
}

// completionGuardsTx enforces the gates on entering completed: the escrow
// must be released and an accepted proof must exist. Runs inside the
// transition's transaction so the checks and the write are atomic.
func completionGuardsTx(ctx context.Context, tx *sql.Tx, taskID string) error {
	var escrowState sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT state FROM escrow_locks WHERE task_id = $1`, taskID).Scan(&escrowState)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Invariantf("task %s has no escrow lock; funds were never held", taskID)
	}
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("check escrow state: %w", err))
	}
	if model.EscrowState(escrowState.String) != model.EscrowStateReleased {
		return apperrors.Invariantf("escrow for task %s is %s, not released", taskID, escrowState.String)
	}

	var hasAccepted bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM proof_submissions WHERE task_id = $1 AND state = 'accepted')
	`, taskID).Scan(&hasAccepted)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("check accepted proof: %w", err))
	}
	if !hasAccepted {
		return apperrors.Invariantf("task %s has no accepted proof", taskID)
	}
	return nil
}

// Transition moves a task along one legal edge, appending the audit row in
// the same transaction. Accepting a task assigns the acting worker.
func (r *TaskRepo) Transition(
	ctx context.Context,
	id string,
	to model.TaskState,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	if to == model.TaskStateAccepted && tc.Actor == "" {
		return nil, apperrors.ValidationField("actor", "a worker actor is required to accept a task")
	}

	var result *model.TransitionResult
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			task, err := lockTaskTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := checkTaskEdge(task, to); err != nil {
				return err
			}
			if to == model.TaskStateCompleted {
				if err := completionGuardsTx(ctx, tx, id); err != nil {
					return err
				}
			}

			currentTime := r.timeProvider.Now().UTC()
			if to == model.TaskStateAccepted {
				_, err = tx.ExecContext(ctx, `
					UPDATE tasks SET state = $2, worker_id = $3, updated_at = $4 WHERE id = $1
				`, id, to, tc.Actor, currentTime)
			} else {
				_, err = tx.ExecContext(ctx, `
					UPDATE tasks SET state = $2, updated_at = $3 WHERE id = $1
				`, id, to, currentTime)
			}
			if err != nil {
				return apperrors.MapDBError(fmt.Errorf("update task state: %w", err))
			}

			if err := appendTransition(ctx, tx, taskTransitionsTable, id, string(task.State), string(to), tc); err != nil {
				return err
			}

			result = &model.TransitionResult{EntityID: id, From: string(task.State), To: string(to)}
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "task transitioned",
			"task_id", id,
			"from", result.From,
			"to", result.To,
			"actor", tc.ActorOrSystem(),
		)
	}
	return result, nil
}

// History returns the task's full transition log in append order.
func (r *TaskRepo) History(ctx context.Context, id string) ([]model.TransitionRecord, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return queryHistory(ctx, r.DB, taskTransitionsTable, id)
}
