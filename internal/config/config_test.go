package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"HTTP_ADDR", "HUGGINGFACE_API_TOKEN", "HUGGINGFACE_API_URL",
	"UPSTREAM_TIMEOUT", "SUMMARIZE_TIMEOUT", "MAX_WARMUP_WAIT",
	"DEFAULT_WARMUP_SECONDS", "MAX_IMAGE_SIZE", "TESSDATA_PREFIX",
	"HISTORY_BACKEND", "HISTORY_LIMIT", "HISTORY_TTL", "REDIS_URL",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.HuggingFaceToken)
	assert.Equal(t, DefaultSummarizationURL, cfg.HuggingFaceURL)
	assert.Equal(t, 60*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 3*time.Minute, cfg.SummarizeTimeout)
	assert.Equal(t, 60*time.Second, cfg.MaxWarmupWait)
	assert.Equal(t, 20.0, cfg.DefaultWarmupSecs)
	assert.Equal(t, int64(20<<20), cfg.MaxImageSize)
	assert.Equal(t, "memory", cfg.HistoryBackend)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 24*time.Hour, cfg.HistoryTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUGGINGFACE_API_TOKEN", "hf_test")
	t.Setenv("MAX_WARMUP_WAIT", "30000")
	t.Setenv("SUMMARIZE_TIMEOUT", "90000")
	t.Setenv("HISTORY_BACKEND", "Redis")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("DEFAULT_WARMUP_SECONDS", "12.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "hf_test", cfg.HuggingFaceToken)
	assert.Equal(t, 30*time.Second, cfg.MaxWarmupWait)
	assert.Equal(t, 90*time.Second, cfg.SummarizeTimeout)
	assert.Equal(t, "redis", cfg.HistoryBackend)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 12.5, cfg.DefaultWarmupSecs)
}

func TestLoadConfig_MalformedNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORY_LIMIT", "many")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 60*time.Second, cfg.UpstreamTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"timeout not above warmup cap", map[string]string{"SUMMARIZE_TIMEOUT": "60000", "MAX_WARMUP_WAIT": "60000"}},
		{"image size too small", map[string]string{"MAX_IMAGE_SIZE": "10"}},
		{"history limit zero", map[string]string{"HISTORY_LIMIT": "0"}},
		{"unknown backend", map[string]string{"HISTORY_BACKEND": "postgres"}},
		{"non-positive default warmup", map[string]string{"DEFAULT_WARMUP_SECONDS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HISTORY_LIMIT=25\nLOG_FORMAT=json\n"), 0o600))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, "json", cfg.LogFormat)
}
