package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/mocks"
)

type proofServiceFixture struct {
	proofs *mocks.MockProofRepository
	queue  *mocks.MockJobRepository
	svc    *ProofService
}

func newProofServiceFixture(t *testing.T, opts ProofServiceOptions) *proofServiceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &proofServiceFixture{
		proofs: mocks.NewMockProofRepository(ctrl),
		queue:  mocks.NewMockJobRepository(ctrl),
	}
	opts.Proofs = f.proofs
	opts.Queue = f.queue
	f.svc = MustNewProofService(opts)
	return f
}

func TestNewProofService_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewProofService(ProofServiceOptions{Queue: mocks.NewMockJobRepository(ctrl)})
	assert.ErrorContains(t, err, "ProofRepository is required")

	_, err = NewProofService(ProofServiceOptions{Proofs: mocks.NewMockProofRepository(ctrl)})
	assert.ErrorContains(t, err, "JobRepository is required")

	assert.Panics(t, func() {
		MustNewProofService(ProofServiceOptions{})
	})
}

func TestProofService_ClassifyEvidence(t *testing.T) {
	f := newProofServiceFixture(t, ProofServiceOptions{})

	longDescription := strings.Repeat("Sanded, restained, and sealed the deck. ", 4)
	require.GreaterOrEqual(t, len(longDescription), comprehensiveDescriptionChars)

	tests := []struct {
		name     string
		evidence string
		want     model.QualityTier
	}{
		{
			name:     "text only",
			evidence: `{"description": "done"}`,
			want:     model.QualityTierBasic,
		},
		{
			name:     "single photo",
			evidence: `{"description": "done", "media": [{"url": "a.jpg"}]}`,
			want:     model.QualityTierStandard,
		},
		{
			name: "before and after with detailed description",
			evidence: `{"description": "` + longDescription + `", "media": [` +
				`{"url": "a.jpg", "phase": "before"}, {"url": "b.jpg", "phase": "after"}]}`,
			want: model.QualityTierComprehensive,
		},
		{
			name:     "before and after but terse description",
			evidence: `{"description": "done", "media": [{"url": "a.jpg", "phase": "before"}, {"url": "b.jpg", "phase": "after"}]}`,
			want:     model.QualityTierStandard,
		},
		{
			name:     "only before media",
			evidence: `{"description": "` + longDescription + `", "media": [{"url": "a.jpg", "phase": "before"}]}`,
			want:     model.QualityTierStandard,
		},
		{
			name:     "empty media list",
			evidence: `{"description": "done", "media": []}`,
			want:     model.QualityTierBasic,
		},
		{
			name:     "malformed json degrades to basic",
			evidence: `{"description": `,
			want:     model.QualityTierBasic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &model.SubmitProofRequest{
				TaskID:   "task-1",
				WorkerID: "worker-1",
				Evidence: json.RawMessage(tt.evidence),
			}
			assert.Equal(t, tt.want, f.svc.classifyEvidence(req))
		})
	}

	assert.Equal(t, model.QualityTierBasic, f.svc.classifyEvidence(nil))
}

func TestProofService_Submit_StartsReviewWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newProofServiceFixture(t, ProofServiceOptions{
		ReviewWindow: 48 * time.Hour,
		Now:          func() time.Time { return now },
	})
	ctx := context.Background()

	req := &model.SubmitProofRequest{
		TaskID:   "task-1",
		WorkerID: "worker-1",
		Evidence: json.RawMessage(`{"description": "done", "media": [{"url": "a.jpg"}]}`),
	}

	f.proofs.EXPECT().
		Submit(ctx, req, model.QualityTierStandard, now.Add(48*time.Hour)).
		Return(&model.ProofSubmission{ID: "proof-1", TaskID: "task-1", State: model.ProofStatePending}, nil)

	proof, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "proof-1", proof.ID)
}

func TestProofService_Accept_NotifiesWorker(t *testing.T) {
	f := newProofServiceFixture(t, ProofServiceOptions{})
	ctx := context.Background()

	f.proofs.EXPECT().Accept(ctx, "proof-1", "reviewer-1").
		Return(&model.TransitionResult{EntityID: "proof-1", From: "pending", To: "accepted"}, nil)
	f.proofs.EXPECT().GetByID(ctx, "proof-1").
		Return(&model.ProofSubmission{ID: "proof-1", TaskID: "task-1", WorkerID: "worker-1"}, nil)

	var enq *model.EnqueueRequest
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.Job, bool, error) {
			enq = req
			return &model.Job{ID: "job-1"}, true, nil
		})

	result, err := f.svc.Accept(ctx, "proof-1", "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", result.To)

	require.NotNil(t, enq)
	assert.Equal(t, model.JobTypeNotification, enq.Type)
	assert.Equal(t, "notification:proof_accepted:proof:proof-1", enq.DedupeKey)

	var payload model.NotificationPayload
	require.NoError(t, json.Unmarshal(enq.Payload, &payload))
	assert.Equal(t, "worker-1", payload.RecipientID)
	assert.Equal(t, "proof_accepted", payload.Kind)
}

func TestProofService_Reject_NotifiesWorker(t *testing.T) {
	f := newProofServiceFixture(t, ProofServiceOptions{})
	ctx := context.Background()

	f.proofs.EXPECT().Reject(ctx, "proof-1", "reviewer-1", "photo is too dark").
		Return(&model.TransitionResult{EntityID: "proof-1", From: "reviewing", To: "rejected"}, nil)
	f.proofs.EXPECT().GetByID(ctx, "proof-1").
		Return(&model.ProofSubmission{ID: "proof-1", TaskID: "task-1", WorkerID: "worker-1"}, nil)
	f.queue.EXPECT().Enqueue(ctx, gomock.Any()).Return(&model.Job{ID: "job-1"}, true, nil)

	result, err := f.svc.Reject(ctx, "proof-1", "reviewer-1", "photo is too dark")
	require.NoError(t, err)
	assert.Equal(t, "rejected", result.To)
}

func TestProofService_Reject_RepoFailureSkipsNotification(t *testing.T) {
	f := newProofServiceFixture(t, ProofServiceOptions{})
	ctx := context.Background()

	f.proofs.EXPECT().Reject(ctx, "proof-1", "reviewer-1", "reason").
		Return(nil, assert.AnError)

	_, err := f.svc.Reject(ctx, "proof-1", "reviewer-1", "reason")
	assert.Error(t, err)
}

func TestProofService_ExpireDue_Delegates(t *testing.T) {
	f := newProofServiceFixture(t, ProofServiceOptions{})
	ctx := context.Background()

	f.proofs.EXPECT().ExpireDue(ctx, 50).Return(int64(3), nil)

	count, err := f.svc.ExpireDue(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
