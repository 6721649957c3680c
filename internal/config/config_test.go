package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DB_PATH", "JWT_SECRET", "LOG_LEVEL", "MAX_UPLOAD_BYTES",
	"STAY_DISTANCE_KM", "STAY_MIN_DURATION", "RATE_LIMIT", "RATE_WINDOW",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "./data/tracks/tracks.db", cfg.DBPath)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 0.05, cfg.StayDistanceKm)
	assert.Equal(t, 15*time.Minute, cfg.StayMinDuration)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)

	opts := cfg.StayOptions()
	assert.Equal(t, 0.05, opts.DistanceKm)
	assert.Equal(t, 15*time.Minute, opts.MinDuration)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STAY_DISTANCE_KM", "0.2")
	t.Setenv("STAY_MIN_DURATION", "30m")
	t.Setenv("RATE_WINDOW", "10s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 0.2, cfg.StayDistanceKm)
	assert.Equal(t, 30*time.Minute, cfg.StayMinDuration)
	assert.Equal(t, 10*time.Second, cfg.RateWindow)
}

func TestLoad_InvalidValueNamesVariable(t *testing.T) {
	for _, key := range []string{"STAY_DISTANCE_KM", "STAY_MIN_DURATION", "RATE_LIMIT", "MAX_UPLOAD_BYTES", "LOG_LEVEL"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-value")

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nDB_PATH=\"/tmp/stays.db\"\nSTAY_MIN_DURATION = 5m\ninvalid line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/stays.db", cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.StayMinDuration)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.ErrorIs(t, err, ErrMissingJWTSecret)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-dotenv\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)
}
