package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 15*time.Minute, cfg.S3.PresignExpiry)
	assert.False(t, cfg.S3.Enabled())
	assert.False(t, cfg.Propagation.StrictOverrides)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
database:
  driver: sqlite
  dsn: /tmp/plans.db
jwt:
  secret: s3cret
  expiration: 30m
propagation:
  strict_overrides: true
s3:
  bucket_name: plans
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/plans.db", cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.True(t, cfg.Propagation.StrictOverrides)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  address: \":9090\"\n"), 0o600))
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("PROPAGATION_STRICT_OVERRIDES", "true")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.True(t, cfg.Propagation.StrictOverrides)
}

func TestValidate(t *testing.T) {
	base := Config{
		Database: DatabaseConfig{Driver: DriverMemory},
		Session:  SessionConfig{Backend: "memory"},
	}
	require.NoError(t, base.Validate())

	noDSN := base
	noDSN.Database.Driver = DriverPostgres
	assert.Error(t, noDSN.Validate())

	badDriver := base
	badDriver.Database.Driver = "oracle"
	assert.Error(t, badDriver.Validate())

	badSession := base
	badSession.Session.Backend = "memcached"
	assert.Error(t, badSession.Validate())
}
