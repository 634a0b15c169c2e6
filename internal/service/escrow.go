package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// EscrowServiceOptions groups dependencies for EscrowService.
type EscrowServiceOptions struct {
	Escrows core.EscrowRepository // Required
	Logger  *slog.Logger          // Optional
}

// EscrowService provides business logic for escrow custody operations.
type EscrowService struct {
	escrows core.EscrowRepository
	logger  *slog.Logger
}

// NewEscrowService constructs a new EscrowService.
func NewEscrowService(opts EscrowServiceOptions) (*EscrowService, error) {
	if opts.Escrows == nil {
		return nil, errors.New("EscrowRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "escrow_service")
	}

	return &EscrowService{
		escrows: opts.Escrows,
		logger:  logger,
	}, nil
}

// MustNewEscrowService constructs a new EscrowService and panics on error.
func MustNewEscrowService(opts EscrowServiceOptions) *EscrowService {
	svc, err := NewEscrowService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create EscrowService: %v", err))
	}
	return svc
}

// Initialize creates the pending lock for a task holding amountCents. Safe
// to call repeatedly.
func (s *EscrowService) Initialize(ctx context.Context, taskID string, amountCents int64) (*model.EscrowLock, error) {
	return s.escrows.Initialize(ctx, taskID, amountCents)
}

// GetByTaskID returns the escrow lock for a task.
func (s *EscrowService) GetByTaskID(ctx context.Context, taskID string) (*model.EscrowLock, error) {
	return s.escrows.GetByTaskID(ctx, taskID)
}

// History returns the escrow's transition log.
func (s *EscrowService) History(ctx context.Context, taskID string) ([]model.TransitionRecord, error) {
	return s.escrows.History(ctx, taskID)
}

// Fund marks the escrow as captured by the payment processor, recording the
// processor's capture reference when one is supplied.
func (s *EscrowService) Fund(
	ctx context.Context,
	taskID, captureRef string,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	result, err := s.escrows.Transition(ctx, taskID, model.EscrowStateFunded, tc)
	if err != nil {
		return nil, err
	}

	if captureRef != "" {
		if refErr := s.escrows.SetProcessorRef(ctx, taskID, "capture", captureRef); refErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "record capture ref failed",
				"task_id", taskID,
				"error", refErr,
			)
		}
	}
	return result, nil
}

// Transition requests one edge of the escrow machine.
func (s *EscrowService) Transition(
	ctx context.Context,
	taskID string,
	to model.EscrowState,
	tc model.TransitionContext,
) (*model.TransitionResult, error) {
	return s.escrows.Transition(ctx, taskID, to, tc)
}
