package data

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/testutil"
)

func TestJobRepo_Enqueue_Dedupe(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		key := "notification:task:" + uuid.NewString()

		first, inserted, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithDedupeKey(key).Build())
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, key, first.DedupeKey)
		assert.Equal(t, model.JobStatusPending, first.Status)

		second, inserted, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithDedupeKey(key).Build())
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestJobRepo_Enqueue_GeneratesDedupeKey(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		job, inserted, err := f.jobs.Enqueue(context.Background(), testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.True(t, strings.HasPrefix(job.DedupeKey, "notification:"))
	})
}

func TestJobRepo_Enqueue_DefaultMaxAttempts(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		job, _, err := f.jobs.Enqueue(context.Background(),
			testutil.NewEnqueueRequest().WithMaxAttempts(0).Build())
		require.NoError(t, err)
		assert.Equal(t, 5, job.MaxAttempts)
	})
}

func TestJobRepo_Enqueue_InvalidRequest(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, _, err := f.jobs.Enqueue(context.Background(),
			testutil.NewEnqueueRequest().WithPriority(500).Build())
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestJobRepo_ClaimNext_PriorityOrder(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		low, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithPriority(1).Build())
		require.NoError(t, err)
		high, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithPriority(9).Build())
		require.NoError(t, err)

		claimed, err := f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, high.ID, claimed.ID)
		assert.Equal(t, model.JobStatusProcessing, claimed.Status)
		assert.Equal(t, 1, claimed.Attempts)
		require.NotNil(t, claimed.LeaseExpiresAt)

		claimed, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, low.ID, claimed.ID)

		_, err = f.jobs.ClaimNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsDue)
	})
}

func TestJobRepo_ClaimNext_HonorsDelay(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithDelay(time.Hour).Build())
		require.NoError(t, err)

		_, err = f.jobs.ClaimNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsDue)

		f.clock.AddTime(2 * time.Hour)

		claimed, err := f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, job.ID, claimed.ID)
	})
}

func TestJobRepo_ClaimNext_InvalidLease(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.jobs.ClaimNext(context.Background(), 0)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestJobRepo_Fail_ReschedulesWithBackoff(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)

		status, updated, err := f.jobs.Fail(ctx, job.ID, "sink unavailable")
		require.NoError(t, err)
		assert.True(t, updated)
		assert.Equal(t, model.JobStatusFailed, status)

		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Attempts)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "sink unavailable", *got.LastError)
		// First retry backs off by the base interval.
		assert.WithinDuration(t, f.clock.Now().Add(30*time.Second), got.ScheduledAt, time.Second)

		_, err = f.jobs.ClaimNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsDue)

		f.clock.AddTime(31 * time.Second)

		claimed, err := f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, job.ID, claimed.ID)
		assert.Equal(t, 2, claimed.Attempts)
	})
}

func TestJobRepo_Attempts_CountEveryRun(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		// One failed run, then a successful one.
		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		_, _, err = f.jobs.Fail(ctx, job.ID, "sink unavailable")
		require.NoError(t, err)

		f.clock.AddTime(time.Minute)
		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		done, err := f.jobs.Complete(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, done)

		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, got.Status)
		assert.Equal(t, 2, got.Attempts)
	})
}

func TestJobRepo_Fail_MovesToDeadAtRetryBudget(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithMaxAttempts(1).Build())
		require.NoError(t, err)

		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)

		status, updated, err := f.jobs.Fail(ctx, job.ID, "sink unavailable")
		require.NoError(t, err)
		assert.True(t, updated)
		assert.Equal(t, model.JobStatusDead, status)

		_, err = f.jobs.ClaimNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsDue)
	})
}

func TestJobRepo_Fail_NotProcessing(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		status, updated, err := f.jobs.Fail(ctx, job.ID, "sink unavailable")
		require.NoError(t, err)
		assert.False(t, updated)
		assert.Empty(t, status)
	})
}

func TestJobRepo_Complete(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)

		done, err := f.jobs.Complete(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, done)

		// A second completion finds nothing in processing.
		done, err = f.jobs.Complete(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, done)
	})
}

func TestJobRepo_Heartbeat(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		held, err := f.jobs.Heartbeat(ctx, job.ID, 30)
		require.NoError(t, err)
		assert.False(t, held)

		claimed, err := f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)

		held, err = f.jobs.Heartbeat(ctx, job.ID, 60)
		require.NoError(t, err)
		assert.True(t, held)

		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LeaseExpiresAt)
		assert.True(t, got.LeaseExpiresAt.After(*claimed.LeaseExpiresAt))
	})
}

func TestJobRepo_RequeueExpired(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)

		count, err := f.jobs.RequeueExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		f.clock.AddTime(31 * time.Second)

		count, err = f.jobs.RequeueExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)
		assert.Nil(t, got.LeaseExpiresAt)
	})
}

func TestJobRepo_RequeueExpired_DeadWhenBudgetSpent(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithMaxAttempts(1).Build())
		require.NoError(t, err)

		// The crashed run consumed the whole budget, so the expired claim
		// goes dead instead of looping through another claim.
		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		f.clock.AddTime(31 * time.Second)

		count, err := f.jobs.RequeueExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusDead, got.Status)

		_, err = f.jobs.ClaimNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsDue)
	})
}

func TestJobRepo_RetryDead(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithMaxAttempts(1).Build())
		require.NoError(t, err)
		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		_, _, err = f.jobs.Fail(ctx, job.ID, "sink unavailable")
		require.NoError(t, err)

		retried, err := f.jobs.RetryDead(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, retried)

		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)
		assert.Zero(t, got.Attempts)

		// Not dead anymore.
		retried, err = f.jobs.RetryDead(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, retried)
	})
}

func TestJobRepo_RetryDead_NotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.jobs.RetryDead(context.Background(), uuid.NewString())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_RetryAllDead_FiltersByType(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		deadJob := func(jobType model.JobType) string {
			job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().
				WithType(jobType).
				WithPayloadString(`{}`).
				WithMaxAttempts(1).
				Build())
			require.NoError(t, err)
			_, err = f.jobs.ClaimNext(ctx, 30)
			require.NoError(t, err)
			_, _, err = f.jobs.Fail(ctx, job.ID, "sink unavailable")
			require.NoError(t, err)
			return job.ID
		}

		notificationID := deadJob(model.JobTypeNotification)
		trustID := deadJob(model.JobTypeTrustRecompute)

		count, err := f.jobs.RetryAllDead(ctx, model.JobTypeNotification)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := f.jobs.GetByID(ctx, notificationID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)

		got, err = f.jobs.GetByID(ctx, trustID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusDead, got.Status)

		// Empty type retries the rest.
		count, err = f.jobs.RetryAllDead(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestJobRepo_RetryAllDead_InvalidType(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)

		_, err := f.jobs.RetryAllDead(context.Background(), model.JobType("bogus"))
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestJobRepo_ListDead(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithMaxAttempts(1).Build())
			require.NoError(t, err)
			_, err = f.jobs.ClaimNext(ctx, 30)
			require.NoError(t, err)
			_, _, err = f.jobs.Fail(ctx, job.ID, "sink unavailable")
			require.NoError(t, err)
		}

		dead, err := f.jobs.ListDead(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, dead, 2)

		dead, err = f.jobs.ListDead(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, dead, 3)
	})
}

func TestJobRepo_Stats(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		_, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)

		done, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().WithPriority(9).Build())
		require.NoError(t, err)
		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		_, err = f.jobs.Complete(ctx, done.ID)
		require.NoError(t, err)

		stats, err := f.jobs.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 1, stats.Completed)
		assert.Zero(t, stats.Dead)
	})
}

func TestJobRepo_DeleteCompletedBefore(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		f := newRepoFixture(db)
		ctx := context.Background()

		job, _, err := f.jobs.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)
		_, err = f.jobs.ClaimNext(ctx, 30)
		require.NoError(t, err)
		_, err = f.jobs.Complete(ctx, job.ID)
		require.NoError(t, err)

		// Cutoff before the completion keeps the row.
		count, err := f.jobs.DeleteCompletedBefore(ctx, f.clock.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = f.jobs.DeleteCompletedBefore(ctx, f.clock.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = f.jobs.GetByID(ctx, job.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
