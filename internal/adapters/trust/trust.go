// Package trust recomputes worker trust tiers from their completion
// history.
package trust

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data"
)

// Tier names, lowest to highest.
const (
	TierNew         = "new"
	TierEstablished = "established"
	TierTrusted     = "trusted"
)

const (
	tierKeyPrefix     = "trust:tier:"
	cooldownKeyPrefix = "trust:cooldown:"

	// Completion counts that promote a worker to the next tier.
	establishedThreshold = 5
	trustedThreshold     = 25
)

// ServiceOptions groups dependencies for the trust Service.
type ServiceOptions struct {
	DB       *sql.DB               // Required: workflow database
	Markers  *data.RedisMarkerRepo // Required: tier store and cooldown markers
	Cooldown time.Duration         // Optional: min gap between recomputes, defaults to 1m
	Logger   *slog.Logger          // Optional
}

// Service recomputes and stores worker trust tiers. A per-worker cooldown
// marker coalesces recompute storms: redelivered or bursty trust jobs
// within the window are no-ops.
type Service struct {
	db       *sql.DB
	markers  *data.RedisMarkerRepo
	cooldown time.Duration
	logger   *slog.Logger
}

// NewService constructs a trust Service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.DB == nil {
		return nil, errors.New("DB is required")
	}
	if opts.Markers == nil {
		return nil, errors.New("marker repo is required")
	}

	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "trust_service")
	}

	return &Service{
		db:       opts.DB,
		markers:  opts.Markers,
		cooldown: cooldown,
		logger:   logger,
	}, nil
}

// Recompute recalculates the worker's tier from their completed-task count
// and stores it. Calls inside the cooldown window return without work.
func (s *Service) Recompute(ctx context.Context, workerID, reason string) error {
	if workerID == "" {
		return errors.New("worker id is required")
	}

	acquired, err := s.markers.SetIfNotExists(ctx, cooldownKeyPrefix+workerID, []byte("1"), s.cooldown)
	if err != nil {
		return fmt.Errorf("acquire recompute cooldown: %w", err)
	}
	if !acquired {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "trust recompute inside cooldown, skipping",
				"worker_id", workerID,
				"reason", reason,
			)
		}
		return nil
	}

	var completed int
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM tasks
		WHERE worker_id = $1 AND state = 'completed'
	`, workerID).Scan(&completed)
	if err != nil {
		s.releaseCooldown(ctx, workerID)
		return apperrors.MapDBError(fmt.Errorf("count completed tasks: %w", err))
	}

	tier := tierForCompletions(completed)
	if err := s.markers.Set(ctx, tierKeyPrefix+workerID, []byte(tier), 0); err != nil {
		s.releaseCooldown(ctx, workerID)
		return fmt.Errorf("store trust tier: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "trust tier recomputed",
			"worker_id", workerID,
			"tier", tier,
			"completed_tasks", completed,
			"reason", reason,
		)
	}
	return nil
}

// releaseCooldown drops the cooldown marker after a failed recompute so the
// job retry is not swallowed by its own earlier attempt.
func (s *Service) releaseCooldown(ctx context.Context, workerID string) {
	if _, err := s.markers.Delete(ctx, cooldownKeyPrefix+workerID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "release recompute cooldown failed",
			"worker_id", workerID,
			"error", err,
		)
	}
}

// Tier returns the stored tier for a worker, defaulting to new.
func (s *Service) Tier(ctx context.Context, workerID string) (string, error) {
	if workerID == "" {
		return "", errors.New("worker id is required")
	}

	stored, err := s.markers.Get(ctx, tierKeyPrefix+workerID)
	if err != nil {
		return "", fmt.Errorf("get trust tier: %w", err)
	}
	if len(stored) == 0 {
		return TierNew, nil
	}
	return string(stored), nil
}

func tierForCompletions(completed int) string {
	switch {
	case completed >= trustedThreshold:
		return TierTrusted
	case completed >= establishedThreshold:
		return TierEstablished
	default:
		return TierNew
	}
}
