package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "quizzesDB", cfg.Mongo.Database)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry())
	assert.True(t, cfg.Policy.EnforceParticipantView)
	assert.True(t, cfg.Store.CreateIfMissing)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsYAMLAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "8181"
database:
  driver: sqlite
  sqlite_path: /tmp/quizzy-test.db
policy:
  enforce_participant_view: false
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("ACCESS_TOKEN_SECRET", "from-env")
	t.Setenv("QUIZZY_STORE_CREATE_IF_MISSING", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/quizzy-test.db", cfg.Database.SQLitePath)
	assert.False(t, cfg.Policy.EnforceParticipantView)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.False(t, cfg.Store.CreateIfMissing)
}

func TestLoadRejectsShortSecretInRelease(t *testing.T) {
	t.Setenv("QUIZZY_SERVER_MODE", "release")
	t.Setenv("ACCESS_TOKEN_SECRET", "short")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "JWT secret is too short")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("QUIZZY_DATABASE_DRIVER", "cassandra")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestInitDBOpensSQLite(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Driver = DriverSQLite
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "quizzy.db")

	db, err := InitDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	assert.NoError(t, sqlDB.Ping())
}
