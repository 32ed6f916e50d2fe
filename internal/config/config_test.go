package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("SCHEDULER_TEST_REDIS_PASSWORD", "s3cret")
	path := writeConfig(t, `
database:
  driver: sqlite3
  path: /tmp/test.db
redis:
  address: localhost:6379
  password: ${SCHEDULER_TEST_REDIS_PASSWORD}
  cache_ttl_seconds: 30
scheduling:
  timezone: Europe/Berlin
booking:
  duplicate_window_days: 7
  transaction_timeout_seconds: 2
  retry:
    max_attempts: 5
    base_delay_ms: 50
sweeper:
  interval_minutes: 15
  run_on_start: true
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Redis.Password)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, 7*24*time.Hour, cfg.DuplicateWindow())
	assert.Equal(t, 2*time.Second, cfg.TransactionTimeout())
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval())
	assert.True(t, cfg.Sweeper.RunOnStart)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 2.0, policy.Multiplier)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/scheduler.db", cfg.Database.Path)
	assert.Equal(t, 2, cfg.Scheduling.DefaultWeeks)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 14*24*time.Hour, cfg.DuplicateWindow())
	assert.Equal(t, 5*time.Second, cfg.TransactionTimeout())
	assert.Equal(t, time.Hour, cfg.SweepInterval())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Zero(t, cfg.CacheTTL())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"pgx without dsn", "database:\n  driver: pgx\n"},
		{"bad timezone", "scheduling:\n  timezone: Mars/Olympus\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad multiplier", "booking:\n  retry:\n    multiplier: 0.5\n"},
		{"malformed yaml", "database: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\nsweeper:\n  interval_minutes: 60\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan [2]Runtime, 4)
	require.NoError(t, Watch(ctx, path, 10*time.Millisecond, func(prev, next Runtime) {
		changes <- [2]Runtime{prev, next}
	}))

	// Replace the file atomically so a poll never sees a half-written revision.
	rewrite := func(content string, offset time.Duration) {
		tmp := path + ".tmp"
		require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
		mod := time.Now().Add(offset)
		require.NoError(t, os.Chtimes(tmp, mod, mod))
		require.NoError(t, os.Rename(tmp, path))
	}

	rewrite("logging:\n  level: warn\nsweeper:\n  interval_minutes: 5\n", time.Minute)
	select {
	case c := <-changes:
		assert.Equal(t, Runtime{LogLevel: zerolog.InfoLevel, SweepInterval: time.Hour}, c[0])
		assert.Equal(t, Runtime{LogLevel: zerolog.WarnLevel, SweepInterval: 5 * time.Minute}, c[1])
	case <-time.After(time.Second):
		t.Fatal("change not reported")
	}

	// An invalid revision is skipped, and an unchanged runtime part is not reported.
	rewrite("logging:\n  level: loud\n", 2*time.Minute)
	rewrite("logging:\n  level: warn\nsweeper:\n  interval_minutes: 5\napi:\n  port: 9999\n", 3*time.Minute)
	select {
	case c := <-changes:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), time.Second, nil)
	assert.Error(t, err)
}
