package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auria-labs/auria-agent/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFiles_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFiles(filepath.Join(dir, "missing.toml"), filepath.Join(dir, "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8787", cfg.Bind)
	assert.Equal(t, []string{"http://127.0.0.1:8080"}, cfg.NodeURLs)
	assert.Equal(t, models.TierStandard, cfg.DefaultTier)
	assert.Equal(t, uint64(0), cfg.MaxCostMicroUSDC)
	assert.Equal(t, "round_robin", cfg.RoutingStrategy)
	assert.Equal(t, "none", cfg.OTELExporterType)
}

func TestLoadFiles_Precedence(t *testing.T) {
	dir := t.TempDir()
	tomlPath := writeFile(t, dir, "auria.toml", `
bind = "0.0.0.0:9000"
node_urls = ["http://a:1", "http://b:2"]
default_tier = "nano"
max_cost_microusdc = 5
`)
	jsonPath := writeFile(t, dir, "auria.json", `{"default_tier": "PRO"}`)

	t.Setenv("AURIA_BIND", "127.0.0.1:7000")

	cfg, err := LoadFiles(tomlPath, jsonPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Bind)
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, cfg.NodeURLs)
	assert.Equal(t, models.TierPro, cfg.DefaultTier)
	assert.Equal(t, uint64(5), cfg.MaxCostMicroUSDC)
}

func TestLoadFiles_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AURIA_NODE_URLS", " http://x:1 , ,http://y:2,")
	t.Setenv("AURIA_DEFAULT_TIER", " max ")
	t.Setenv("AURIA_MAX_COST_MICROUSDC", "1200")
	t.Setenv("AURIA_RATE_LIMIT_TPM", "5000")
	t.Setenv("AURIA_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadFiles(filepath.Join(dir, "none.toml"), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"http://x:1", "http://y:2"}, cfg.NodeURLs)
	assert.Equal(t, models.TierMax, cfg.DefaultTier)
	assert.Equal(t, uint64(1200), cfg.MaxCostMicroUSDC)
	assert.Equal(t, int64(5000), cfg.RateLimitTPM)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFiles_InvalidEnvValuesKeepPrevious(t *testing.T) {
	dir := t.TempDir()
	tomlPath := writeFile(t, dir, "auria.toml", `default_tier = "PRO"`)
	t.Setenv("AURIA_DEFAULT_TIER", "gold")
	t.Setenv("AURIA_MAX_COST_MICROUSDC", "lots")

	cfg, err := LoadFiles(tomlPath, "")
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, cfg.DefaultTier)
	assert.Equal(t, uint64(0), cfg.MaxCostMicroUSDC)
}

func TestLoadFiles_EmptyNodeListIsLoaded(t *testing.T) {
	t.Setenv("AURIA_NODE_URLS", "")

	cfg, err := LoadFiles("", "")
	require.NoError(t, err)
	assert.Empty(t, cfg.NodeURLs)
}

func TestLoadFiles_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad toml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.toml", `bind = `)
		_, err := LoadFiles(path, "")
		assert.Error(t, err)
	})

	t.Run("unknown tier in file", func(t *testing.T) {
		path := writeFile(t, dir, "tier.toml", `default_tier = "gold"`)
		_, err := LoadFiles(path, "")
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `{`)
		_, err := LoadFiles("", path)
		assert.Error(t, err)
	})

	t.Run("bad rate limit", func(t *testing.T) {
		t.Setenv("AURIA_RATE_LIMIT_TPM", "fast")
		_, err := LoadFiles("", "")
		assert.ErrorContains(t, err, "AURIA_RATE_LIMIT_TPM")
	})

	t.Run("bad exporter", func(t *testing.T) {
		t.Setenv("AURIA_OTEL_EXPORTER_TYPE", "jaeger")
		_, err := LoadFiles("", "")
		assert.Error(t, err)
	})
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.PostgresDSN = "postgres://auria:s3cret@db:5432/auria?sslmode=disable"

	out := cfg.Redacted()
	assert.NotContains(t, out.PostgresDSN, "s3cret")
	assert.Contains(t, out.PostgresDSN, "db:5432")
	assert.Contains(t, cfg.PostgresDSN, "s3cret")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b"))
	assert.Nil(t, SplitList(" , "))
}
