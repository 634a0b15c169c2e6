// Package worker pulls jobs from the durable queue and executes them with
// the registered per-type handlers.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/service"
)

const (
	defaultPollInterval   = 15 * time.Second
	defaultSweepBatchSize = 100
)

// RunnerOptions configures the worker runner.
type RunnerOptions struct {
	Queue   *service.QueueService // Required
	Escrows core.EscrowRepository // Required for payout handling
	Proofs  core.ProofRepository  // Required for expiry sweeps
	Ledger  core.RewardLedger     // Required
	Gateway core.PaymentGateway   // Required
	Notify  core.NotificationSink // Required
	Trust   core.TrustTierService // Required

	Logger       *slog.Logger  // Optional
	Concurrency  int           // Optional: worker goroutines, defaults to 1
	PollInterval time.Duration // Optional: fallback poll when notifications are quiet
}

// Runner pulls jobs and executes them using registered handlers. Every
// handler tolerates re-delivery: a crashed worker's jobs get requeued after
// lease expiry and run again.
type Runner struct {
	queue        *service.QueueService
	escrows      core.EscrowRepository
	proofs       core.ProofRepository
	ledger       core.RewardLedger
	gateway      core.PaymentGateway
	notify       core.NotificationSink
	trust        core.TrustTierService
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	handlers     map[model.JobType]core.JobHandlerFunc
}

// NewRunner constructs a worker runner with the built-in handlers.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("QueueService is required")
	}
	if opts.Escrows == nil {
		return nil, errors.New("EscrowRepository is required")
	}
	if opts.Proofs == nil {
		return nil, errors.New("ProofRepository is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("RewardLedger is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("PaymentGateway is required")
	}
	if opts.Notify == nil {
		return nil, errors.New("NotificationSink is required")
	}
	if opts.Trust == nil {
		return nil, errors.New("TrustTierService is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	r := &Runner{
		queue:        opts.Queue,
		escrows:      opts.Escrows,
		proofs:       opts.Proofs,
		ledger:       opts.Ledger,
		gateway:      opts.Gateway,
		notify:       opts.Notify,
		trust:        opts.Trust,
		logger:       logger.With("component", "worker"),
		workers:      workers,
		pollInterval: pollInterval,
	}
	r.handlers = map[model.JobType]core.JobHandlerFunc{
		model.JobTypeRewardIssuance:   r.handleRewardIssuance,
		model.JobTypePayoutTransfer:   r.handlePayoutTransfer,
		model.JobTypeNotification:     r.handleNotification,
		model.JobTypeTrustRecompute:   r.handleTrustRecompute,
		model.JobTypeProofExpirySweep: r.handleProofExpirySweep,
	}
	return r, nil
}

// Handler returns the registered handler dispatch as a single JobHandler,
// for synchronous draining.
func (r *Runner) Handler() core.JobHandler {
	return core.JobHandlerFunc(func(ctx context.Context, job *model.Job) error {
		h, ok := r.handlers[job.Type]
		if !ok {
			return apperrors.HandlerFailure(fmt.Errorf("no handler for job type %s", job.Type))
		}
		return h(ctx, job)
	})
}

// Run starts worker goroutines and processes jobs until the context is
// cancelled. Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting worker runner",
		"workers", r.workers,
		"poll_interval", r.pollInterval,
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			return r.workerLoop(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) workerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		job, err := r.queue.ClaimNext(ctx)
		switch {
		case err == nil:
			r.processJob(ctx, job)
		case errors.Is(err, model.ErrNoJobsDue):
			r.waitForWork(ctx)
		default:
			return fmt.Errorf("claim next: %w", err)
		}
	}
	return ctx.Err()
}

// waitForWork blocks on the enqueue notification channel, with a periodic
// poll fallback so delayed and retried jobs still get picked up.
func (r *Runner) waitForWork(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, r.pollInterval)
	defer cancel()

	err := r.queue.WaitForNotification(waitCtx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return
	}

	r.logger.WarnContext(ctx, "wait for notification failed, falling back to poll", "error", err)
	select {
	case <-time.After(r.pollInterval):
	case <-ctx.Done():
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	h, ok := r.handlers[job.Type]
	if !ok {
		r.failJob(ctx, job, fmt.Errorf("no handler for job type %s", job.Type))
		return
	}

	if err := h(ctx, job); err != nil {
		r.failJob(ctx, job, err)
		return
	}

	if completed, err := r.queue.Complete(ctx, job.ID); err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
	} else if !completed {
		r.logger.WarnContext(ctx, "job lease lost before completion", "job_id", job.ID)
	}
}

func (r *Runner) failJob(ctx context.Context, job *model.Job, handlerErr error) {
	wrapped := apperrors.HandlerFailure(handlerErr)
	if _, _, err := r.queue.Fail(ctx, job.ID, wrapped.Error()); err != nil {
		r.logger.ErrorContext(ctx, "fail job error",
			"job_id", job.ID,
			"error", err,
			"original_error", handlerErr,
		)
	}
}

func (r *Runner) handleRewardIssuance(ctx context.Context, job *model.Job) error {
	var payload model.RewardIssuancePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode reward payload: %w", err)
	}

	return r.ledger.Credit(ctx, core.CreditRewardParams{
		IdempotencyKey: job.DedupeKey,
		WorkerID:       payload.WorkerID,
		TaskID:         payload.TaskID,
		AmountCents:    payload.AmountCents,
	})
}

func (r *Runner) handlePayoutTransfer(ctx context.Context, job *model.Job) error {
	var payload model.PayoutTransferPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode payout payload: %w", err)
	}

	ref, err := r.gateway.Transfer(ctx, core.TransferParams{
		IdempotencyKey: job.DedupeKey,
		EscrowID:       payload.EscrowID,
		WorkerID:       payload.WorkerID,
		AmountCents:    payload.AmountCents,
	})
	if err != nil {
		if recErr := r.escrows.RecordRecoveryFailure(ctx, payload.EscrowID, err.Error()); recErr != nil {
			r.logger.WarnContext(ctx, "record recovery failure failed",
				"escrow_id", payload.EscrowID,
				"error", recErr,
			)
		}
		return fmt.Errorf("transfer payout: %w", err)
	}

	if refErr := r.escrows.SetProcessorRef(ctx, payload.EscrowID, "payout", ref); refErr != nil {
		// The transfer itself is idempotent, so the retry only re-records
		// the reference.
		return fmt.Errorf("record payout ref: %w", refErr)
	}
	return nil
}

func (r *Runner) handleNotification(ctx context.Context, job *model.Job) error {
	var payload model.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}

	return r.notify.Deliver(ctx, &payload)
}

func (r *Runner) handleTrustRecompute(ctx context.Context, job *model.Job) error {
	var payload model.TrustRecomputePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode trust payload: %w", err)
	}

	return r.trust.Recompute(ctx, payload.WorkerID, payload.Reason)
}

func (r *Runner) handleProofExpirySweep(ctx context.Context, job *model.Job) error {
	var payload model.ProofExpirySweepPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode sweep payload: %w", err)
	}

	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}

	_, err := r.proofs.ExpireDue(ctx, batchSize)
	return err
}
