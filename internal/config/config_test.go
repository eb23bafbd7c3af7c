package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 200, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, domain.DefaultMinCycles, cfg.UI.MinCycles)
	assert.Equal(t, 60, cfg.Proxy.RateLimit)
	assert.Equal(t, "10s", cfg.Proxy.Timeout)
}

func TestLoad_NoFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, domain.DefaultPrompts, cfg.Policy().DefaultPrompts)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := `
log_level: debug
store:
  backend: sqlite
  ttl: 24h
ui:
  min_cycles: 2
  default_prompts:
    - "What if..."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daydream.yaml"), []byte(content), 0o644))
	t.Setenv("DAYDREAM_SERVER_ADDR", ":9999")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "sk-env", cfg.Proxy.APIKey)
	assert.True(t, cfg.UseOpenAI())

	ttl, err := ParseDuration(cfg.Store.TTL)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)

	policy := cfg.Policy()
	assert.Equal(t, 2, policy.MinCycles)
	assert.Equal(t, []string{"What if..."}, policy.DefaultPrompts)
	assert.Equal(t, domain.LoadingMessages, policy.LoadingMessages)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load("/nonexistent/daydream.yaml")
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store: ["), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: tape\n"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "store.backend")
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		require.NoError(t, os.WriteFile(path, []byte("llm:\n  timeout: soon\n"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "llm.timeout")
	})
}

func TestUseOpenAI(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.UseOpenAI())

	cfg.LLM.ProxyURL = "https://proxy.example/"
	assert.True(t, cfg.UseOpenAI())

	cfg.LLM.Provider = ProviderOffline
	assert.False(t, cfg.UseOpenAI())
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".daydream", "config.yaml")
	require.NoError(t, Write(path, Default(), false))
	assert.Error(t, Write(path, Default(), false), "refuses to overwrite")
	require.NoError(t, Write(path, Default(), true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Proxy, cfg.Proxy)
	assert.Equal(t, Default().UI, cfg.UI)
}
