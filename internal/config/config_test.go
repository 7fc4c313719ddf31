package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Address())
	assert.Equal(t, 100, cfg.API.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.API.RateLimitWindow)
	assert.Equal(t, 32768, cfg.Download.BufferSize)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Contains(t, cfg.CORS.ExposedHeaders, "Content-Disposition")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("STREAM_BUFFER_SIZE", "65536")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.API.RateLimitWindow)
	assert.Equal(t, 65536, cfg.Download.BufferSize)
	assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unparseable window", key: "RATE_LIMIT_WINDOW", value: "soon"},
		{name: "zero rate limit", key: "RATE_LIMIT_REQUESTS", value: "0"},
		{name: "tiny buffer", key: "STREAM_BUFFER_SIZE", value: "16"},
		{name: "unknown log format", key: "LOG_FORMAT", value: "xml"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}
