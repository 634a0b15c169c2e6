package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data/pgxutil"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// ProofRepoConfig holds configuration options for the proof repository.
type ProofRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// ProofRepo provides database operations for proof submissions.
type ProofRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewProofRepo creates a new ProofRepo instance.
func NewProofRepo(db *sql.DB, cfg ProofRepoConfig) *ProofRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &ProofRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const proofColumns = `
  id,
  task_id,
  worker_id,
  state,
  evidence,
  quality_tier,
  expires_at,
  rejection_reason,
  reviewer_id,
  created_at,
  updated_at
`

func scanProof(scanner interface{ Scan(...any) error }) (*model.ProofSubmission, error) {
	var proof model.ProofSubmission
	var evidence []byte
	var rejectionReason, reviewerID sql.NullString
	if err := scanner.Scan(
		&proof.ID,
		&proof.TaskID,
		&proof.WorkerID,
		&proof.State,
		&evidence,
		&proof.QualityTier,
		&proof.ExpiresAt,
		&rejectionReason,
		&reviewerID,
		&proof.CreatedAt,
		&proof.UpdatedAt,
	); err != nil {
		return nil, err
	}
	proof.Evidence = cloneJSON(evidence)
	proof.RejectionReason = cloneNullableString(rejectionReason)
	proof.ReviewerID = cloneNullableString(reviewerID)
	return &proof, nil
}

// Submit inserts a new pending proof for a task. The task must be with its
// assigned worker in accepted or proof_submitted state, must not already
// hold an accepted proof, and must not hold an active submission.
// Submitting against an accepted task also moves the task to
// proof_submitted in the same transaction.
func (r *ProofRepo) Submit(
	ctx context.Context,
	req *model.SubmitProofRequest,
	tier model.QualityTier,
	expiresAt time.Time,
) (*model.ProofSubmission, error) {
	if req == nil {
		return nil, apperrors.Validation("submit proof request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid submit proof request")
	}

	var proof *model.ProofSubmission
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			task, err := lockTaskTx(ctx, tx, req.TaskID)
			if err != nil {
				return err
			}
			if task.State != model.TaskStateAccepted && task.State != model.TaskStateProofSubmitted {
				if task.State.Terminal() {
					return apperrors.TerminalStatef("task %s is %s and no longer accepts proofs", task.ID, task.State)
				}
				return apperrors.InvalidTransitionf("task in state %s does not accept proofs", task.State)
			}
			if task.WorkerID == nil || *task.WorkerID != req.WorkerID {
				return apperrors.ValidationField("worker_id", "proof must come from the task's assigned worker")
			}

			var hasAccepted bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM proof_submissions WHERE task_id = $1 AND state = 'accepted')
			`, req.TaskID).Scan(&hasAccepted); err != nil {
				return apperrors.MapDBError(fmt.Errorf("check accepted proof: %w", err))
			}
			if hasAccepted {
				return apperrors.AlreadyAcceptedf("task %s already has an accepted proof", req.TaskID)
			}

			var hasActive bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM proof_submissions WHERE task_id = $1 AND state IN ('pending', 'reviewing'))
			`, req.TaskID).Scan(&hasActive); err != nil {
				return apperrors.MapDBError(fmt.Errorf("check active proof: %w", err))
			}
			if hasActive {
				return apperrors.DuplicateActiveProof(
					fmt.Sprintf("task %s already has an active proof submission", req.TaskID))
			}

			row := tx.QueryRowContext(ctx, `
				INSERT INTO proof_submissions (task_id, worker_id, evidence, quality_tier, expires_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING `+proofColumns,
				req.TaskID, req.WorkerID, []byte(req.Evidence), tier, expiresAt.UTC(),
			)
			proof, err = scanProof(row)
			if err != nil {
				return apperrors.MapDBError(fmt.Errorf("insert proof: %w", err))
			}

			if task.State == model.TaskStateAccepted {
				currentTime := r.timeProvider.Now().UTC()
				if _, err := tx.ExecContext(ctx, `
					UPDATE tasks SET state = $2, updated_at = $3 WHERE id = $1
				`, task.ID, model.TaskStateProofSubmitted, currentTime); err != nil {
					return apperrors.MapDBError(fmt.Errorf("update task state: %w", err))
				}
				tc := model.TransitionContext{Actor: req.WorkerID}
				if err := appendTransition(ctx, tx, taskTransitionsTable, task.ID,
					string(task.State), string(model.TaskStateProofSubmitted), tc); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "proof submitted",
			"proof_id", proof.ID,
			"task_id", proof.TaskID,
			"worker_id", proof.WorkerID,
			"quality_tier", proof.QualityTier,
		)
	}
	return proof, nil
}

func lockProofTx(ctx context.Context, tx *sql.Tx, id string) (*model.ProofSubmission, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+proofColumns+` FROM proof_submissions WHERE id = $1 FOR UPDATE NOWAIT`, id)
	proof, err := scanProof(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("proof %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("lock proof: %w", err))
	}
	if _, parseErr := model.ParseProofState(string(proof.State)); parseErr != nil {
		return nil, apperrors.Wrap(parseErr, apperrors.ErrCodeInternal, "stored proof state is unknown")
	}
	return proof, nil
}

func checkProofEdge(proof *model.ProofSubmission, to model.ProofState) error {
	if !to.Valid() {
		return apperrors.InvalidTransitionf("unknown target state: %q", to)
	}
	if proof.State.Terminal() {
		return apperrors.TerminalStatef("proof %s is %s and cannot change state", proof.ID, proof.State)
	}
	if !proof.State.CanTransitionTo(to) {
		return apperrors.InvalidTransitionf("proof cannot transition from %s to %s", proof.State, to)
	}
	return nil
}

// transition applies one legal proof edge with optional reviewer and
// rejection reason columns, appending the audit row in the same transaction.
func (r *ProofRepo) transition(
	ctx context.Context,
	id string,
	to model.ProofState,
	tc model.TransitionContext,
	reviewerID, rejectionReason *string,
) (*model.TransitionResult, error) {
	var result *model.TransitionResult
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			proof, err := lockProofTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := checkProofEdge(proof, to); err != nil {
				return err
			}

			currentTime := r.timeProvider.Now().UTC()
			if _, err := tx.ExecContext(ctx, `
				UPDATE proof_submissions
				SET state = $2,
				    reviewer_id = COALESCE($3, reviewer_id),
				    rejection_reason = COALESCE($4, rejection_reason),
				    updated_at = $5
				WHERE id = $1
			`, id, to, reviewerID, rejectionReason, currentTime); err != nil {
				return apperrors.MapDBError(fmt.Errorf("update proof state: %w", err))
			}

			if err := appendTransition(ctx, tx, proofTransitionsTable, id, string(proof.State), string(to), tc); err != nil {
				return err
			}

			result = &model.TransitionResult{EntityID: id, From: string(proof.State), To: string(to)}
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// StartReview moves a pending proof to reviewing and records the reviewer.
func (r *ProofRepo) StartReview(ctx context.Context, id, reviewerID string) (*model.TransitionResult, error) {
	if reviewerID == "" {
		return nil, apperrors.ValidationField("reviewer_id", "reviewer id is required")
	}
	tc := model.TransitionContext{Actor: reviewerID}
	return r.transition(ctx, id, model.ProofStateReviewing, tc, &reviewerID, nil)
}

// Accept approves an active proof. The accepted row is what later permits
// the task's completion.
func (r *ProofRepo) Accept(ctx context.Context, id, reviewerID string) (*model.TransitionResult, error) {
	if reviewerID == "" {
		return nil, apperrors.ValidationField("reviewer_id", "reviewer id is required")
	}
	tc := model.TransitionContext{Actor: reviewerID}
	return r.transition(ctx, id, model.ProofStateAccepted, tc, &reviewerID, nil)
}

// Reject declines an active proof with a mandatory reason. The task keeps
// accepting fresh submissions afterwards.
func (r *ProofRepo) Reject(ctx context.Context, id, reviewerID, reason string) (*model.TransitionResult, error) {
	if reviewerID == "" {
		return nil, apperrors.ValidationField("reviewer_id", "reviewer id is required")
	}
	if reason == "" {
		return nil, apperrors.ValidationField("rejection_reason", "a rejection reason is required")
	}
	tc := model.TransitionContext{Actor: reviewerID}
	return r.transition(ctx, id, model.ProofStateRejected, tc, &reviewerID, &reason)
}

// ExpireDue expires pending proofs whose review window has lapsed, at most
// batchSize per call. SKIP LOCKED keeps concurrent sweeps from fighting over
// the same rows. Returns how many proofs were expired.
func (r *ProofRepo) ExpireDue(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var expired int64
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			currentTime := r.timeProvider.Now().UTC()
			rows, err := tx.QueryContext(ctx, `
				WITH due AS (
					SELECT id FROM proof_submissions
					WHERE state = 'pending' AND expires_at < $1
					ORDER BY expires_at ASC
					LIMIT $2
					FOR UPDATE SKIP LOCKED
				)
				UPDATE proof_submissions p
				SET state = 'expired', updated_at = $1
				FROM due
				WHERE p.id = due.id
				RETURNING p.id
			`, currentTime, batchSize)
			if err != nil {
				return apperrors.MapDBError(fmt.Errorf("expire due proofs: %w", err))
			}

			var ids []string
			for rows.Next() {
				var id string
				if scanErr := rows.Scan(&id); scanErr != nil {
					_ = rows.Close()
					return fmt.Errorf("scan expired proof id: %w", scanErr)
				}
				ids = append(ids, id)
			}
			if closeErr := rows.Close(); closeErr != nil {
				return fmt.Errorf("close expired proof rows: %w", closeErr)
			}
			if rowsErr := rows.Err(); rowsErr != nil {
				return fmt.Errorf("iterate expired proofs: %w", rowsErr)
			}

			tc := model.TransitionContext{}
			for _, id := range ids {
				if err := appendTransition(ctx, tx, proofTransitionsTable, id,
					string(model.ProofStatePending), string(model.ProofStateExpired), tc); err != nil {
					return err
				}
			}
			expired = int64(len(ids))
			return nil
		},
	})
	if txErr != nil {
		return 0, txErr
	}

	if expired > 0 && r.logger != nil {
		r.logger.InfoContext(ctx, "expired stale proofs", "count", expired)
	}
	return expired, nil
}

// GetByID retrieves a proof submission by its ID.
func (r *ProofRepo) GetByID(ctx context.Context, id string) (*model.ProofSubmission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+proofColumns+` FROM proof_submissions WHERE id = $1`, id)
	proof, err := scanProof(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("proof %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get proof: %w", err))
	}
	return proof, nil
}

// GetActiveByTask returns the task's active submission, or NotFound when no
// pending or reviewing proof exists.
func (r *ProofRepo) GetActiveByTask(ctx context.Context, taskID string) (*model.ProofSubmission, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+proofColumns+`
		FROM proof_submissions
		WHERE task_id = $1 AND state IN ('pending', 'reviewing')
	`, taskID)
	proof, err := scanProof(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("task %s has no active proof", taskID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get active proof: %w", err))
	}
	return proof, nil
}

// HasAcceptedProof reports whether the task has an accepted proof.
func (r *ProofRepo) HasAcceptedProof(ctx context.Context, taskID string) (bool, error) {
	var has bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM proof_submissions WHERE task_id = $1 AND state = 'accepted')
	`, taskID).Scan(&has)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("check accepted proof: %w", err))
	}
	return has, nil
}

// History returns the proof's full transition log in append order.
func (r *ProofRepo) History(ctx context.Context, id string) ([]model.TransitionRecord, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return queryHistory(ctx, r.DB, proofTransitionsTable, id)
}
