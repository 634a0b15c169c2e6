package trust

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/testutil"
)

func TestTierForCompletions(t *testing.T) {
	tests := []struct {
		completed int
		expected  string
	}{
		{completed: 0, expected: TierNew},
		{completed: 4, expected: TierNew},
		{completed: 5, expected: TierEstablished},
		{completed: 24, expected: TierEstablished},
		{completed: 25, expected: TierTrusted},
		{completed: 100, expected: TierTrusted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tierForCompletions(tt.completed), "completed=%d", tt.completed)
	}
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(ServiceOptions{Markers: &data.RedisMarkerRepo{}})
	assert.ErrorContains(t, err, "DB is required")

	_, err = NewService(ServiceOptions{DB: &sql.DB{}})
	assert.ErrorContains(t, err, "marker repo is required")
}

func newTrustFixture(t *testing.T, db *sql.DB, cooldown time.Duration) *Service {
	t.Helper()
	markers := data.NewRedisMarkerRepo(testutil.SetupTestRedis(t))

	svc, err := NewService(ServiceOptions{DB: db, Markers: markers, Cooldown: cooldown})
	require.NoError(t, err)
	return svc
}

// completeTasks inserts n completed tasks for the worker directly.
func completeTasks(t *testing.T, db *sql.DB, workerID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := db.Exec(`
			INSERT INTO tasks (poster_id, worker_id, state, title, amount_cents)
			VALUES ($1, $2, 'completed', 'fixture task', 5000)
		`, uuid.NewString(), workerID)
		require.NoError(t, err)
	}
}

func TestService_Recompute_StoresTier(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		svc := newTrustFixture(t, db, time.Minute)
		ctx := context.Background()

		workerID := uuid.NewString()
		completeTasks(t, db, workerID, 5)

		require.NoError(t, svc.Recompute(ctx, workerID, "task_completed"))

		tier, err := svc.Tier(ctx, workerID)
		require.NoError(t, err)
		assert.Equal(t, TierEstablished, tier)
	})
}

func TestService_Recompute_CooldownCoalesces(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		svc := newTrustFixture(t, db, time.Minute)
		ctx := context.Background()

		workerID := uuid.NewString()
		require.NoError(t, svc.Recompute(ctx, workerID, "task_completed"))

		tier, err := svc.Tier(ctx, workerID)
		require.NoError(t, err)
		assert.Equal(t, TierNew, tier)

		// Completions landing inside the cooldown are not picked up until
		// the next recompute outside the window.
		completeTasks(t, db, workerID, 25)
		require.NoError(t, svc.Recompute(ctx, workerID, "task_completed"))

		tier, err = svc.Tier(ctx, workerID)
		require.NoError(t, err)
		assert.Equal(t, TierNew, tier)
	})
}

func TestService_Recompute_FailureReleasesCooldown(t *testing.T) {
	markers := data.NewRedisMarkerRepo(testutil.SetupTestRedis(t))

	// Nothing listens on port 1, so the count query fails immediately.
	broken, err := sql.Open("pgx", "postgres://127.0.0.1:1/trust?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { broken.Close() })

	svc, err := NewService(ServiceOptions{DB: broken, Markers: markers, Cooldown: time.Minute})
	require.NoError(t, err)

	ctx := context.Background()
	workerID := uuid.NewString()
	require.Error(t, svc.Recompute(ctx, workerID, "task_completed"))

	// The failed attempt must not hold the cooldown, or the job retry
	// would be coalesced away and the recompute lost.
	held, err := markers.Exists(ctx, cooldownKeyPrefix+workerID)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestService_Recompute_RequiresWorker(t *testing.T) {
	svc, err := NewService(ServiceOptions{DB: &sql.DB{}, Markers: &data.RedisMarkerRepo{}})
	require.NoError(t, err)

	assert.ErrorContains(t, svc.Recompute(context.Background(), "", "task_completed"),
		"worker id is required")
}

func TestService_Tier_DefaultsToNew(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		svc := newTrustFixture(t, db, time.Minute)

		tier, err := svc.Tier(context.Background(), uuid.NewString())
		require.NoError(t, err)
		assert.Equal(t, TierNew, tier)
	})
}
