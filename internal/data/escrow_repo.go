package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data/pgxutil"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// EscrowRepoConfig holds configuration options for the escrow repository.
type EscrowRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// EscrowRepo provides database operations for the escrow state machine.
// Releasing an escrow enqueues the payout side effects in the same
// transaction as the state change: either both commit or neither does.
type EscrowRepo struct {
	DB           *sql.DB
	jobs         *JobRepo
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewEscrowRepo creates a new EscrowRepo instance. The job repo is required
// for the transactional enqueue on release.
func NewEscrowRepo(db *sql.DB, jobs *JobRepo, cfg EscrowRepoConfig) *EscrowRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &EscrowRepo{
		DB:           db,
		jobs:         jobs,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const escrowColumns = `
  task_id,
  state,
  amount_cents,
  processor_refs,
  version,
  recovery_attempts,
  last_recovery_error,
  created_at,
  updated_at
`

func scanEscrow(scanner interface{ Scan(...any) error }) (*model.EscrowLock, error) {
	var lock model.EscrowLock
	var refs []byte
	var lastRecoveryError sql.NullString
	if err := scanner.Scan(
		&lock.TaskID,
		&lock.State,
		&lock.AmountCents,
		&refs,
		&lock.Version,
		&lock.RecoveryAttempts,
		&lastRecoveryError,
		&lock.CreatedAt,
		&lock.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lock.ProcessorRefs = cloneJSON(refs)
	lock.LastRecoveryError = cloneNullableString(lastRecoveryError)
	return &lock, nil
}

// Initialize creates the pending escrow lock for a task holding amountCents.
// The amount must match the task row; a disagreement means the caller is
// about to hold the wrong sum and is refused. Calling Initialize again for
// the same task is a no-op that returns the existing lock, whatever state it
// has reached.
func (r *EscrowRepo) Initialize(ctx context.Context, taskID string, amountCents int64) (*model.EscrowLock, error) {
	var lock *model.EscrowLock
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var taskAmount int64
			err := tx.QueryRowContext(ctx, `SELECT amount_cents FROM tasks WHERE id = $1`, taskID).Scan(&taskAmount)
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFoundf("task %s not found", taskID)
			}
			if err != nil {
				return apperrors.MapDBError(fmt.Errorf("read task amount: %w", err))
			}
			if taskAmount != amountCents {
				return apperrors.Invariantf("escrow amount %d does not match task %s amount %d",
					amountCents, taskID, taskAmount)
			}

			row := tx.QueryRowContext(ctx, `
				INSERT INTO escrow_locks (task_id, amount_cents)
				VALUES ($1, $2)
				ON CONFLICT (task_id) DO NOTHING
				RETURNING `+escrowColumns,
				taskID, amountCents,
			)
			lock, err = scanEscrow(row)
			if err == nil {
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return apperrors.MapDBError(fmt.Errorf("insert escrow lock: %w", err))
			}

			// Already initialized: return the existing lock.
			row = tx.QueryRowContext(ctx, `SELECT `+escrowColumns+` FROM escrow_locks WHERE task_id = $1`, taskID)
			lock, err = scanEscrow(row)
			if err != nil {
				return apperrors.MapDBError(fmt.Errorf("get escrow lock: %w", err))
			}
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}
	return lock, nil
}

// GetByTaskID retrieves the escrow lock for a task.
func (r *EscrowRepo) GetByTaskID(ctx context.Context, taskID string) (*model.EscrowLock, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+escrowColumns+` FROM escrow_locks WHERE task_id = $1`, taskID)
	lock, err := scanEscrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("escrow lock for task %s not found", taskID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get escrow lock: %w", err))
	}
	return lock, nil
}

func lockEscrowTx(ctx context.Context, tx *sql.Tx, taskID string) (*model.EscrowLock, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+escrowColumns+` FROM escrow_locks WHERE task_id = $1 FOR UPDATE NOWAIT`, taskID)
	lock, err := scanEscrow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("escrow lock for task %s not found", taskID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("lock escrow: %w", err))
	}
	if _, parseErr := model.ParseEscrowState(string(lock.State)); parseErr != nil {
		return nil, apperrors.Wrap(parseErr, apperrors.ErrCodeInternal, "stored escrow state is unknown")
	}
	return lock, nil
}

func checkEscrowEdge(lock *model.EscrowLock, to model.EscrowState) error {
	if !to.Valid() {
		return apperrors.InvalidTransitionf("unknown target state: %q", to)
	}
	if lock.State.Terminal() {
		return apperrors.TerminalStatef("escrow for task %s is %s and cannot change state", lock.TaskID, lock.State)
	}
	if !lock.State.CanTransitionTo(to) {
		return apperrors.InvalidTransitionf("escrow cannot transition from %s to %s", lock.State, to)
	}
	return nil
}

// Transition moves an escrow lock along one legal edge. Entering released
// also enqueues the reward issuance and payout transfer jobs inside the same
// transaction, with dedupe keys derived from the task so a retried release
// can never enqueue them twice.
func (r *EscrowRepo) Transition(
	ctx context.Context,
	taskID string,
	to model.EscrowState,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	var result *model.TransitionResult
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			lock, err := lockEscrowTx(ctx, tx, taskID)
			if err != nil {
				return err
			}
			if err := checkEscrowEdge(lock, to); err != nil {
				return err
			}

			currentTime := r.timeProvider.Now().UTC()
			if _, err := tx.ExecContext(ctx, `
				UPDATE escrow_locks
				SET state = $2, version = version + 1, updated_at = $3
				WHERE task_id = $1
			`, taskID, to, currentTime); err != nil {
				return apperrors.MapDBError(fmt.Errorf("update escrow state: %w", err))
			}

			if err := appendTransition(ctx, tx, escrowTransitionsTable, taskID, string(lock.State), string(to), tc); err != nil {
				return err
			}

			if to == model.EscrowStateReleased {
				if err := r.enqueueReleaseJobsTx(ctx, tx, lock); err != nil {
					return err
				}
			}

			result = &model.TransitionResult{EntityID: taskID, From: string(lock.State), To: string(to)}
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "escrow transitioned",
			"task_id", taskID,
			"from", result.From,
			"to", result.To,
			"actor", tc.ActorOrSystem(),
		)
	}
	return result, nil
}

// enqueueReleaseJobsTx enqueues the side effects of a release: crediting the
// worker's reward ledger and initiating the processor transfer.
func (r *EscrowRepo) enqueueReleaseJobsTx(ctx context.Context, tx *sql.Tx, lock *model.EscrowLock) error {
	var workerID sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT worker_id FROM tasks WHERE id = $1`, lock.TaskID).Scan(&workerID)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("read task worker: %w", err))
	}
	if !workerID.Valid || workerID.String == "" {
		return apperrors.Invariantf("escrow for task %s cannot release without an assigned worker", lock.TaskID)
	}

	rewardPayload, err := json.Marshal(model.RewardIssuancePayload{
		TaskID:      lock.TaskID,
		WorkerID:    workerID.String,
		AmountCents: lock.AmountCents,
	})
	if err != nil {
		return fmt.Errorf("marshal reward payload: %w", err)
	}
	if _, _, err := r.jobs.EnqueueInTx(ctx, tx, &model.EnqueueRequest{
		Type:      model.JobTypeRewardIssuance,
		Payload:   rewardPayload,
		DedupeKey: "reward_issuance:task:" + lock.TaskID,
	}); err != nil {
		return fmt.Errorf("enqueue reward issuance: %w", err)
	}

	payoutPayload, err := json.Marshal(model.PayoutTransferPayload{
		EscrowID:    lock.TaskID,
		WorkerID:    workerID.String,
		AmountCents: lock.AmountCents,
	})
	if err != nil {
		return fmt.Errorf("marshal payout payload: %w", err)
	}
	if _, _, err := r.jobs.EnqueueInTx(ctx, tx, &model.EnqueueRequest{
		Type:      model.JobTypePayoutTransfer,
		Payload:   payoutPayload,
		DedupeKey: "payout_transfer:task:" + lock.TaskID,
	}); err != nil {
		return fmt.Errorf("enqueue payout transfer: %w", err)
	}

	return nil
}

// SetProcessorRef records an external payment-processor reference under the
// given key, preserving other refs.
func (r *EscrowRepo) SetProcessorRef(ctx context.Context, taskID, key, ref string) error {
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal processor ref: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE escrow_locks
		SET processor_refs = jsonb_set(processor_refs, ARRAY[$2], $3::jsonb, true),
		    updated_at = $4
		WHERE task_id = $1
	`, taskID, key, refJSON, r.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("set processor ref: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set processor ref rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("escrow lock for task %s not found", taskID)
	}
	return nil
}

// RecordRecoveryFailure increments the recovery counter after a failed
// attempt to reconcile the lock with the payment processor.
func (r *EscrowRepo) RecordRecoveryFailure(ctx context.Context, taskID, errMsg string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE escrow_locks
		SET recovery_attempts = recovery_attempts + 1,
		    last_recovery_error = $2,
		    updated_at = $3
		WHERE task_id = $1
	`, taskID, errMsg, r.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("record recovery failure: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record recovery rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("escrow lock for task %s not found", taskID)
	}
	return nil
}

// History returns the escrow's full transition log in append order.
func (r *EscrowRepo) History(ctx context.Context, taskID string) ([]model.TransitionRecord, error) {
	if _, err := r.GetByTaskID(ctx, taskID); err != nil {
		return nil, err
	}
	return queryHistory(ctx, r.DB, escrowTransitionsTable, taskID)
}
