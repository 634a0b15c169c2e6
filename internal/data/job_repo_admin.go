package data

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// Stats returns operator-facing counts of jobs in each status.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')    AS pending,
    count(*) FILTER (WHERE status = 'processing') AS processing,
    count(*) FILTER (WHERE status = 'completed')  AS completed,
    count(*) FILTER (WHERE status = 'failed')     AS failed,
    count(*) FILTER (WHERE status = 'dead')       AS dead
  FROM jobs
  `).Scan(
		&s.Pending,
		&s.Processing,
		&s.Completed,
		&s.Failed,
		&s.Dead,
	)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job stats: %w", err))
	}
	return &s, nil
}

// RetryDead returns a dead job to the queue with a fresh retry budget.
// Returns false when the job exists but is not dead.
func (r *JobRepo) RetryDead(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending',
		    attempts = 0,
		    scheduled_at = $2,
		    lease_expires_at = NULL,
		    updated_at = $2
		WHERE id = $1 AND status = 'dead'
	`, id, currentTime)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("retry dead job: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("retry dead rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return false, getErr
	}
	return false, nil
}

// RetryAllDead returns every dead job of the given type to the queue. An
// empty type retries dead jobs of all types. Reports how many were requeued.
func (r *JobRepo) RetryAllDead(ctx context.Context, jobType model.JobType) (int64, error) {
	if jobType != "" && !jobType.Valid() {
		return 0, apperrors.Validationf("invalid job type: %s", jobType)
	}

	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending',
		    attempts = 0,
		    scheduled_at = $1,
		    lease_expires_at = NULL,
		    updated_at = $1
		WHERE status = 'dead'
		  AND ($2 = '' OR type = $2)
	`, currentTime, string(jobType))
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("retry all dead jobs: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("retry all dead rows affected: %w", err)
	}
	return rowsAffected, nil
}

// ListDead returns dead jobs, oldest first, capped at limit.
func (r *JobRepo) ListDead(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'dead'
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list dead jobs: %w", err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan dead job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate dead jobs: %w", rowsErr)
	}
	return jobs, nil
}

// DeleteCompletedBefore removes completed jobs whose completion predates the
// cutoff. Used by the retention sweeper to keep the jobs table bounded.
func (r *JobRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE status = 'completed'
		  AND completed_at IS NOT NULL
		  AND completed_at < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("delete completed jobs: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete completed rows affected: %w", err)
	}
	return rowsAffected, nil
}
