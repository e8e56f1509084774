package quota

import (
	"context"
	"testing"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundedPlan(perDay int) domain.Plan {
	return domain.Plan{ID: domain.PlanFree, RepliesPerDay: perDay}
}

func TestMemoryStoreConsumeCountsDown(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan := boundedPlan(3)

	for want := 2; want >= 0; want-- {
		remaining, err := s.Consume(ctx, 1, plan)
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	_, err := s.Consume(ctx, 1, plan)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	remaining, err := s.Remaining(ctx, 1, plan)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestMemoryStoreUnlimitedNeverExhausts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan := domain.Plan{ID: domain.PlanUnlimited, RepliesPerDay: domain.Unbounded}

	for i := 0; i < 100; i++ {
		remaining, err := s.Consume(ctx, 1, plan)
		require.NoError(t, err)
		assert.Equal(t, domain.Unbounded, remaining)
	}
}

func TestMemoryStoreUsersAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan := boundedPlan(1)

	_, err := s.Consume(ctx, 1, plan)
	require.NoError(t, err)
	_, err = s.Consume(ctx, 1, plan)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	remaining, err := s.Consume(ctx, 2, plan)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestMemoryStoreResetRestoresAllowance(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan := boundedPlan(1)

	_, err := s.Consume(ctx, 1, plan)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, 1))

	remaining, err := s.Remaining(ctx, 1, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestMemoryStoreRollsOverAtMidnightUTC(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan := boundedPlan(2)

	now := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.Consume(ctx, 1, plan)
	require.NoError(t, err)
	_, err = s.Consume(ctx, 1, plan)
	require.NoError(t, err)
	_, err = s.Consume(ctx, 1, plan)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// Past midnight the counter rolls over to a fresh day.
	now = now.Add(20 * time.Minute)
	remaining, err := s.Remaining(ctx, 1, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}
