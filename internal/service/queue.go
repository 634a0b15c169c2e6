package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// QueueServiceOptions groups dependencies for QueueService.
type QueueServiceOptions struct {
	Repo         core.JobRepository // Required
	DefaultLease time.Duration      // Required: lease duration for claimed jobs
	Logger       *slog.Logger       // Optional
}

// QueueService provides business logic for the durable job queue: enqueue,
// claim, completion bookkeeping, and operator recovery of dead jobs.
type QueueService struct {
	repo         core.JobRepository
	leaseSeconds int
	logger       *slog.Logger
}

// NewQueueService constructs a new QueueService.
func NewQueueService(opts QueueServiceOptions) (*QueueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.DefaultLease <= 0 {
		return nil, errors.New("DefaultLease must be positive")
	}

	leaseSeconds := int(opts.DefaultLease / time.Second)
	if leaseSeconds < 1 {
		leaseSeconds = 1
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "queue_service")
	}

	return &QueueService{
		repo:         opts.Repo,
		leaseSeconds: leaseSeconds,
		logger:       logger,
	}, nil
}

// MustNewQueueService constructs a new QueueService and panics on error.
func MustNewQueueService(opts QueueServiceOptions) *QueueService {
	svc, err := NewQueueService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create QueueService: %v", err))
	}
	return svc
}

// Enqueue adds a job to the queue, deduplicating on the dedupe key.
func (s *QueueService) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, bool, error) {
	job, inserted, err := s.repo.Enqueue(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job enqueued",
			"id", job.ID,
			"type", job.Type,
			"inserted", inserted,
		)
	}
	return job, inserted, nil
}

// ClaimNext claims the next due job under the default lease.
func (s *QueueService) ClaimNext(ctx context.Context) (*model.Job, error) {
	job, err := s.repo.ClaimNext(ctx, s.leaseSeconds)
	if err != nil {
		if errors.Is(err, model.ErrNoJobsDue) {
			return nil, model.ErrNoJobsDue
		}
		return nil, fmt.Errorf("claim next job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job claimed",
			"id", job.ID,
			"type", job.Type,
			"attempts", job.Attempts,
		)
	}
	return job, nil
}

// WaitForNotification blocks until a new job is enqueued or the context is
// done.
func (s *QueueService) WaitForNotification(ctx context.Context) error {
	return s.repo.WaitForNotification(ctx)
}

// Heartbeat extends the lease on a claimed job.
func (s *QueueService) Heartbeat(ctx context.Context, id string) (bool, error) {
	updated, err := s.repo.Heartbeat(ctx, id, s.leaseSeconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}
	return updated, nil
}

// Complete marks a claimed job as completed.
func (s *QueueService) Complete(ctx context.Context, id string) (bool, error) {
	completed, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}

	if s.logger != nil && completed {
		s.logger.DebugContext(ctx, "job completed", "id", id)
	}
	return completed, nil
}

// Fail records a handler failure, scheduling the retry or moving the job to
// dead when the budget is exhausted.
func (s *QueueService) Fail(ctx context.Context, id, errMsg string) (model.JobStatus, bool, error) {
	if errMsg == "" {
		return "", false, errors.New("error message required")
	}

	status, failed, err := s.repo.Fail(ctx, id, errMsg)
	if err != nil {
		return "", false, fmt.Errorf("fail job %s: %w", id, err)
	}

	if s.logger != nil && failed {
		s.logger.DebugContext(ctx, "job failed", "id", id, "status", status, "error", errMsg)
	}
	return status, failed, nil
}

// Drain synchronously claims and hands due jobs to the given handler, up to
// limit jobs. Handler failures feed the normal retry machinery and are not
// returned to the caller. Returns the number of jobs processed.
func (s *QueueService) Drain(ctx context.Context, limit int, handler core.JobHandler) (int, error) {
	if handler == nil {
		return 0, errors.New("handler is required")
	}
	if limit <= 0 {
		limit = 100
	}

	processed := 0
	for processed < limit {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		job, err := s.ClaimNext(ctx)
		if errors.Is(err, model.ErrNoJobsDue) {
			return processed, nil
		}
		if err != nil {
			return processed, err
		}

		if handlerErr := handler.Handle(ctx, job); handlerErr != nil {
			if _, _, failErr := s.Fail(ctx, job.ID, handlerErr.Error()); failErr != nil && s.logger != nil {
				s.logger.ErrorContext(ctx, "fail job error", "job_id", job.ID, "error", failErr)
			}
		} else if _, completeErr := s.Complete(ctx, job.ID); completeErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", completeErr)
		}
		processed++
	}
	return processed, nil
}

// GetByID returns a job by its ID.
func (s *QueueService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// Stats returns counts of jobs in each status.
func (s *QueueService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return stats, nil
}

// RetryDead returns one dead job to the queue.
func (s *QueueService) RetryDead(ctx context.Context, id string) (bool, error) {
	retried, err := s.repo.RetryDead(ctx, id)
	if err != nil {
		return false, fmt.Errorf("retry dead job %s: %w", id, err)
	}

	if s.logger != nil && retried {
		s.logger.InfoContext(ctx, "dead job requeued", "id", id)
	}
	return retried, nil
}

// RetryAllDead returns all dead jobs of the given type to the queue.
func (s *QueueService) RetryAllDead(ctx context.Context, jobType model.JobType) (int64, error) {
	count, err := s.repo.RetryAllDead(ctx, jobType)
	if err != nil {
		return 0, fmt.Errorf("retry all dead jobs: %w", err)
	}

	if s.logger != nil && count > 0 {
		s.logger.InfoContext(ctx, "dead jobs requeued", "count", count, "type", jobType)
	}
	return count, nil
}

// ListDead returns dead jobs for operator inspection.
func (s *QueueService) ListDead(ctx context.Context, limit int) ([]*model.Job, error) {
	return s.repo.ListDead(ctx, limit)
}
