package app

import (
	"alcyxob/training-planner/internal/config"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/repository/relational"
	"alcyxob/training-planner/internal/session"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithMemoryBackends(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Session:  config.SessionConfig{Backend: "memory", TTL: time.Hour},
	}
	a, err := New(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	assert.IsType(t, &session.MemoryStore{}, a.Sessions)
	macro, err := a.PlanService.CreateMacrocycle(ctx, "coach", "student", "Plan")
	require.NoError(t, err)
	assert.NotEmpty(t, macro.ID)
}

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "plans.db"),
	}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &relational.Store{}, store)
	assert.NoError(t, store.Close(ctx))
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "cassandra"}, logger.Nop())
	assert.Error(t, err)
}
