package session

import (
	"alcyxob/training-planner/internal/config"
	"alcyxob/training-planner/internal/logger"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the lifecycle every Store must support.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Load(ctx, "coach-1")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Save(ctx, &Profile{UserID: "coach-1", Role: "coach", ActiveStudentID: "student-9"}))
	got, err := s.Load(ctx, "coach-1")
	require.NoError(t, err)
	assert.Equal(t, "student-9", got.ActiveStudentID)
	assert.False(t, got.UpdatedAt.IsZero())

	// Sessions are isolated per user.
	_, err = s.Load(ctx, "coach-2")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Clear(ctx, "coach-1"))
	require.NoError(t, s.Clear(ctx, "coach-1"))
	_, err = s.Load(ctx, "coach-1")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.ErrorIs(t, s.Save(ctx, &Profile{}), ErrMissingUserID)
	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryStore(0)
	b := NewMemoryStore(0)
	require.NoError(t, a.Save(ctx, &Profile{UserID: "coach-1"}))
	_, err := b.Load(ctx, "coach-1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, &Profile{UserID: "coach-1"}))
	now = now.Add(59 * time.Second)
	_, err := s.Load(ctx, "coach-1")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Load(ctx, "coach-1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreLifecycle(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis session tests")
	}
	s, err := NewRedisStore(context.Background(), config.RedisConfig{Addr: addr}, time.Minute, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}
