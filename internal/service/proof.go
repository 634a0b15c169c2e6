package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// Evidence inspection expressions. The quality tier is advisory metadata
// derived from evidence shape; it never gates a transition.
const (
	exprMediaCount       = "length(media || `[]`)"
	exprBeforeAfterMedia = "length(media[?phase == 'before'] || `[]`) > `0` && length(media[?phase == 'after'] || `[]`) > `0`"
	exprDescriptionLen   = "length(description || '')"
)

// comprehensiveDescriptionChars is the minimum description length for the
// comprehensive tier.
const comprehensiveDescriptionChars = 100

// defaultReviewWindow bounds how long a submission waits for review before
// the sweeper expires it.
const defaultReviewWindow = 24 * time.Hour

// ProofServiceOptions groups dependencies for ProofService.
type ProofServiceOptions struct {
	Proofs       core.ProofRepository // Required
	Queue        core.JobRepository   // Required
	ReviewWindow time.Duration        // Optional: defaults to 24h
	Evaluator    JMESPathEvaluator    // Optional
	Logger       *slog.Logger         // Optional
	Now          func() time.Time     // Optional: defaults to time.Now
}

// ProofService provides business logic for proof submission and review.
type ProofService struct {
	proofs       core.ProofRepository
	queue        core.JobRepository
	reviewWindow time.Duration
	jems         JMESPathEvaluator
	logger       *slog.Logger
	now          func() time.Time
}

// NewProofService constructs a new ProofService.
func NewProofService(opts ProofServiceOptions) (*ProofService, error) {
	if opts.Proofs == nil {
		return nil, errors.New("ProofRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("JobRepository is required")
	}

	reviewWindow := opts.ReviewWindow
	if reviewWindow <= 0 {
		reviewWindow = defaultReviewWindow
	}
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "proof_service")
	}

	return &ProofService{
		proofs:       opts.Proofs,
		queue:        opts.Queue,
		reviewWindow: reviewWindow,
		jems:         jems,
		logger:       logger,
		now:          now,
	}, nil
}

// MustNewProofService constructs a new ProofService and panics on error.
func MustNewProofService(opts ProofServiceOptions) *ProofService {
	svc, err := NewProofService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ProofService: %v", err))
	}
	return svc
}

// Submit records a worker's completion evidence. The quality tier is
// classified from the evidence shape and the review window starts now.
func (s *ProofService) Submit(ctx context.Context, req *model.SubmitProofRequest) (*model.ProofSubmission, error) {
	tier := s.classifyEvidence(req)
	expiresAt := s.now().Add(s.reviewWindow)

	proof, err := s.proofs.Submit(ctx, req, tier, expiresAt)
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// classifyEvidence derives the advisory quality tier from the evidence
// JSON. Classification failures degrade to basic rather than blocking the
// submission.
func (s *ProofService) classifyEvidence(req *model.SubmitProofRequest) model.QualityTier {
	if req == nil || len(req.Evidence) == 0 {
		return model.QualityTierBasic
	}

	var evidence any
	if err := json.Unmarshal(req.Evidence, &evidence); err != nil {
		return model.QualityTierBasic
	}

	mediaCount := s.evaluateNumber(evidence, exprMediaCount)
	descriptionLen := s.evaluateNumber(evidence, exprDescriptionLen)
	beforeAfter := s.evaluateBool(evidence, exprBeforeAfterMedia)

	switch {
	case beforeAfter && descriptionLen >= comprehensiveDescriptionChars:
		return model.QualityTierComprehensive
	case mediaCount > 0:
		return model.QualityTierStandard
	default:
		return model.QualityTierBasic
	}
}

func (s *ProofService) evaluateNumber(data any, expr string) float64 {
	result, err := s.jems.Evaluate(expr, data)
	if err != nil {
		return 0
	}
	n, ok := result.(float64)
	if !ok {
		return 0
	}
	return n
}

func (s *ProofService) evaluateBool(data any, expr string) bool {
	result, err := s.jems.Evaluate(expr, data)
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

// GetByID returns a proof submission by its ID.
func (s *ProofService) GetByID(ctx context.Context, id string) (*model.ProofSubmission, error) {
	return s.proofs.GetByID(ctx, id)
}

// GetActiveByTask returns the task's active submission.
func (s *ProofService) GetActiveByTask(ctx context.Context, taskID string) (*model.ProofSubmission, error) {
	return s.proofs.GetActiveByTask(ctx, taskID)
}

// History returns the proof's transition log.
func (s *ProofService) History(ctx context.Context, id string) ([]model.TransitionRecord, error) {
	return s.proofs.History(ctx, id)
}

// StartReview moves a pending proof to reviewing.
func (s *ProofService) StartReview(ctx context.Context, id, reviewerID string) (*model.TransitionResult, error) {
	return s.proofs.StartReview(ctx, id, reviewerID)
}

// Accept approves an active proof and notifies the worker.
func (s *ProofService) Accept(ctx context.Context, id, reviewerID string) (*model.TransitionResult, error) {
	result, err := s.proofs.Accept(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}

	s.notifyWorker(ctx, id, "proof_accepted")
	return result, nil
}

// Reject declines an active proof with a reason and notifies the worker so
// they can resubmit.
func (s *ProofService) Reject(ctx context.Context, id, reviewerID, reason string) (*model.TransitionResult, error) {
	result, err := s.proofs.Reject(ctx, id, reviewerID, reason)
	if err != nil {
		return nil, err
	}

	s.notifyWorker(ctx, id, "proof_rejected")
	return result, nil
}

// HasAcceptedProof reports whether the task has an accepted proof.
func (s *ProofService) HasAcceptedProof(ctx context.Context, taskID string) (bool, error) {
	return s.proofs.HasAcceptedProof(ctx, taskID)
}

// ExpireDue expires pending proofs past their review window.
func (s *ProofService) ExpireDue(ctx context.Context, batchSize int) (int64, error) {
	return s.proofs.ExpireDue(ctx, batchSize)
}

func (s *ProofService) notifyWorker(ctx context.Context, proofID, kind string) {
	proof, err := s.proofs.GetByID(ctx, proofID)
	if err != nil {
		return
	}

	data, err := json.Marshal(map[string]string{"proof_id": proofID, "task_id": proof.TaskID})
	if err != nil {
		return
	}
	payload, err := json.Marshal(model.NotificationPayload{
		RecipientID: proof.WorkerID,
		Kind:        kind,
		Data:        data,
	})
	if err != nil {
		return
	}

	if _, _, enqErr := s.queue.Enqueue(ctx, &model.EnqueueRequest{
		Type:      model.JobTypeNotification,
		Payload:   payload,
		DedupeKey: "notification:" + kind + ":proof:" + proofID,
	}); enqErr != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "enqueue notification failed",
			"proof_id", proofID,
			"kind", kind,
			"error", enqErr,
		)
	}
}
