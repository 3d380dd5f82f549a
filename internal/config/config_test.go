package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, uint(5), cfg.SSERetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.SSERetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.SessionSweep)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("ECOSORT_API_URL", "http://api.internal:8000")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "http://api.internal:8000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FEED_SIZE=12\nJWT_SECRET=from-file\n"), 0600))
	// Restore the process environment that godotenv mutates.
	t.Setenv("FEED_SIZE", "")
	require.NoError(t, os.Unsetenv("FEED_SIZE"))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.FeedSize)
	assert.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoadRejectsZeroPageSize(t *testing.T) {
	t.Setenv("PAGE_SIZE", "0")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadRejectsZeroRetryAttempts(t *testing.T) {
	t.Setenv("SSE_RETRY_ATTEMPTS", "0")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveFeedSize(t *testing.T) {
	for _, v := range []string{"0", "-1"} {
		t.Setenv("FEED_SIZE", v)

		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err, "FEED_SIZE=%s", v)
	}
}
