package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data/pgxutil"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// jobNotifyChannel is the LISTEN/NOTIFY channel that wakes idle workers when
// any job is enqueued. Workers claim across all types, so a single channel
// suffices.
const jobNotifyChannel = "job_enqueued"

// SQL used by ClaimNext to atomically claim the next due job.
const claimNextUpdateSQL = `
  WITH next AS (
    SELECT id FROM jobs
    WHERE status IN ('pending', 'failed') AND scheduled_at <= $1
    ORDER BY priority DESC, scheduled_at ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'processing',
    attempts = j.attempts + 1,
    started_at = COALESCE(j.started_at, $2),
    lease_expires_at = $3,
    updated_at = $2
  FROM next
  WHERE j.id = next.id
  RETURNING j.id, j.dedupe_key, j.type, j.status, j.priority, j.payload, j.attempts, j.max_attempts, j.scheduled_at, j.started_at, j.completed_at, j.last_error, j.lease_expires_at, j.created_at, j.updated_at`

// Enqueue inserts a job, deduplicating on the request's dedupe key. It
// returns the stored job and whether this call inserted it. When a job with
// the same dedupe key already exists, the existing row is returned unchanged.
func (r *JobRepo) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, bool, error) {
	if req == nil {
		return nil, false, apperrors.Validation("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid enqueue request")
	}

	var (
		job      *model.Job
		inserted bool
	)
	txErr := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var err error
			job, inserted, err = r.EnqueueInTx(ctx, tx, req)
			return err
		},
	})
	if txErr != nil {
		return nil, false, txErr
	}
	return job, inserted, nil
}

// EnqueueInTx inserts a job within an existing SQL transaction and notifies
// listening workers in the same transaction. The notification only fires if
// the surrounding transaction commits.
func (r *JobRepo) EnqueueInTx(
	ctx context.Context,
	sqlTx *sql.Tx,
	req *model.EnqueueRequest,
) (*model.Job, bool, error) {
	if sqlTx == nil {
		return nil, false, apperrors.Internal("transaction is required")
	}
	if req == nil {
		return nil, false, apperrors.Validation("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid enqueue request")
	}

	dedupeKey := dedupeKeyOrRandom(req)
	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = r.cfg.DefaultMaxAttempts
	}
	scheduledAt := r.timeProvider.Now().Add(req.Delay).UTC()

	row := sqlTx.QueryRowContext(ctx, `
      INSERT INTO jobs (dedupe_key, type, status, priority, payload, max_attempts, scheduled_at)
      VALUES ($1, $2, 'pending', $3, $4, $5, $6)
      ON CONFLICT (dedupe_key) DO NOTHING
      RETURNING `+jobColumns,
		dedupeKey, req.Type, req.Priority, []byte(req.Payload), maxAttempts, scheduledAt,
	)

	job, scanErr := scanJobFromRow(row)
	if scanErr == nil {
		if _, notifyErr := sqlTx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, jobNotifyChannel, job.ID); notifyErr != nil {
			return nil, false, fmt.Errorf("send job notification: %w", notifyErr)
		}
		return job, true, nil
	}
	if !errors.Is(scanErr, sql.ErrNoRows) {
		return nil, false, apperrors.MapDBError(fmt.Errorf("insert job: %w", scanErr))
	}

	// Lost the dedupe race or the job already exists: return the winner.
	existing, getErr := r.getByDedupeKeyTx(ctx, sqlTx, dedupeKey)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

func (r *JobRepo) getByDedupeKeyTx(ctx context.Context, sqlTx *sql.Tx, dedupeKey string) (*model.Job, error) {
	row := sqlTx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE dedupe_key = $1`, dedupeKey)
	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("job with dedupe key %q not found", dedupeKey)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job by dedupe key: %w", err))
	}
	return job, nil
}

// ClaimNext claims the next due job, marking it processing under a lease and
// counting the attempt. Expired claims from crashed workers are requeued
// first so their jobs become claimable again. Returns model.ErrNoJobsDue
// when nothing is due.
func (r *JobRepo) ClaimNext(ctx context.Context, leaseSeconds int) (*model.Job, error) {
	if leaseSeconds <= 0 {
		return nil, apperrors.Validation("lease seconds must be positive")
	}

	if _, err := r.RequeueExpired(ctx); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now().UTC()
			leaseExpiresAt := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(ctx, claimNextUpdateSQL, currentTime, currentTime, leaseExpiresAt)
			if qerr != nil {
				return fmt.Errorf("claim job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsDue
			}
			if cerr != nil {
				return fmt.Errorf("claim job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsDue) {
			return nil, model.ErrNoJobsDue
		}
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

// Advisory lock namespace for RequeueExpired so concurrent workers do not
// scan for expired leases at the same time.
const advisoryLockRequeue int64 = 2001

// RequeueExpired returns expired processing claims to the queue and reports
// how many jobs were updated. The crashed run's attempt was counted at
// claim time, so a job whose retry budget is already spent goes dead here
// instead of looping through another claim.
func (r *JobRepo) RequeueExpired(ctx context.Context) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1)", advisoryLockRequeue).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now().UTC()
			res, err := tx.ExecContext(ctx, `
          UPDATE jobs
          SET status = CASE WHEN attempts >= max_attempts THEN 'dead' ELSE 'pending' END,
              lease_expires_at = NULL,
              updated_at = $1
          WHERE status = 'processing'
            AND lease_expires_at IS NOT NULL
            AND lease_expires_at < $1
        `, currentTime)
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return rowsAffected, nil
}

// Heartbeat refreshes the lease on a processing job. Returns false when the
// job is no longer processing, in which case the holder must stop.
func (r *JobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, apperrors.Validation("lease seconds must be positive")
	}

	currentTime := r.timeProvider.Now().UTC()
	leaseExpiration := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET lease_expires_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, jobID, leaseExpiration, currentTime)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("heartbeat job: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Complete marks a processing job as completed. Returns false when the job
// was not in processing, which happens when its lease expired and another
// worker already requeued it.
func (r *JobRepo) Complete(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = $2,
		    lease_expires_at = NULL,
		    last_error = NULL
		WHERE id = $1 AND status = 'processing'
	`, id, currentTime)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("complete job: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Fail records a handler failure on a processing job. The attempt was
// already counted when the job was claimed; the job reschedules with
// exponential backoff (base * 2^(attempts-1) seconds). When the retry
// budget is exhausted the job moves to dead and waits for operator
// intervention. Returns the resulting status and whether the job was
// updated.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (model.JobStatus, bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
      UPDATE jobs
      SET
        last_error = $2,
        status = CASE WHEN attempts >= max_attempts THEN 'dead' ELSE 'failed' END,
        lease_expires_at = NULL,
        scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at
                            ELSE $3::timestamptz + make_interval(secs => $4::double precision * power(2, attempts - 1)) END,
        updated_at = $3
      WHERE id = $1 AND status = 'processing'
      RETURNING status
    `

	var status string
	err := r.DB.QueryRowContext(ctx, query, id, errMsg, currentTime, float64(r.cfg.RetryBaseSeconds)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.MapDBError(fmt.Errorf("fail job: %w", err))
	}

	if model.JobStatus(status) == model.JobStatusDead && r.logger != nil {
		r.logger.WarnContext(ctx, "job moved to dead letter",
			"job_id", id,
			"error", errMsg,
		)
	}

	return model.JobStatus(status), true, nil
}

// WaitForNotification blocks until a job-enqueued notification arrives or the
// context is done.
func (r *JobRepo) WaitForNotification(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	quoted := pgx.Identifier{jobNotifyChannel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", jobNotifyChannel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, qerr := pgxConn.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var cerr error
		job, cerr = collectJobFromRows(rows)
		return cerr
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job: %w", err))
	}
	return job, nil
}
