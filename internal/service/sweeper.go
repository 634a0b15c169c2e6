package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
)

// SweeperConfig holds timing and batching for the background sweeper.
type SweeperConfig struct {
	// Interval between sweep passes.
	Interval time.Duration
	// ProofBatchSize bounds how many proofs one expiry pass touches.
	ProofBatchSize int
	// CompletedJobMaxAge is how long completed jobs are retained.
	CompletedJobMaxAge time.Duration
}

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Proofs core.ProofRepository // Required
	Jobs   core.JobRepository   // Required
	Config SweeperConfig        // Required
	Logger *slog.Logger         // Optional
}

// SweeperService runs the periodic maintenance passes:
// - expiring pending proofs past their review window
// - requeueing jobs whose worker lease expired
// - deleting old completed jobs to keep the table bounded.
type SweeperService struct {
	proofs core.ProofRepository
	jobs   core.JobRepository
	config SweeperConfig
	logger *slog.Logger
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Proofs == nil {
		return nil, errors.New("ProofRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}

	cfg := opts.Config
	if cfg.ProofBatchSize <= 0 {
		cfg.ProofBatchSize = 100
	}
	if cfg.CompletedJobMaxAge <= 0 {
		cfg.CompletedJobMaxAge = 7 * 24 * time.Hour
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
	}

	return &SweeperService{
		proofs: opts.Proofs,
		jobs:   opts.Jobs,
		config: cfg,
		logger: logger,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service", "interval", s.config.Interval)
	}

	// Jitter keeps multiple instances from sweeping in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.runSweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runSweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos))

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// runSweep performs one pass over all maintenance steps. Steps run
// independently; a failure in one does not skip the others.
func (s *SweeperService) runSweep(ctx context.Context) error {
	var errs []error

	if _, err := s.expireDueProofs(ctx); err != nil {
		errs = append(errs, fmt.Errorf("expire due proofs: %w", err))
	}
	if _, err := s.requeueExpiredClaims(ctx); err != nil {
		errs = append(errs, fmt.Errorf("requeue expired claims: %w", err))
	}
	if _, err := s.deleteOldCompletedJobs(ctx); err != nil {
		errs = append(errs, fmt.Errorf("delete old completed jobs: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// expireDueProofs expires pending proofs past their review window, batching
// until no due rows remain.
func (s *SweeperService) expireDueProofs(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.proofs.ExpireDue(ctx, s.config.ProofBatchSize)
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "expired due proofs", "count", totalCount)
	}
	return totalCount, nil
}

func (s *SweeperService) requeueExpiredClaims(ctx context.Context) (int64, error) {
	count, err := s.jobs.RequeueExpired(ctx)
	if err != nil {
		return 0, err
	}

	if count > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "requeued expired job claims", "count", count)
	}
	return count, nil
}

func (s *SweeperService) deleteOldCompletedJobs(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.config.CompletedJobMaxAge)
	count, err := s.jobs.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if count > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old completed jobs",
			"count", count,
			"max_age", s.config.CompletedJobMaxAge,
		)
	}
	return count, nil
}

func (s *SweeperService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}
