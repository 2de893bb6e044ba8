package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leadpilot.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 2*time.Second, cfg.Store.SyncInterval)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(2048), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "perplexity", cfg.Discovery.Source)
	assert.Equal(t, "Istanbul", cfg.Discovery.DefaultLocation)
	assert.Equal(t, 20, cfg.Pipeline.Limit)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.Throttle)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.LookupTimeout)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.DiscoveryTimeout)
	assert.False(t, cfg.Pipeline.StopWhenOutOfCredit)
	assert.Equal(t, 10*time.Second, cfg.Automation.Timeout)
	assert.Equal(t, 5, cfg.Automation.FailureThreshold)
	assert.Equal(t, 1500, cfg.Credit.InitialBalance)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
pipeline:
  limit: 5
  throttle: 1s
profile:
  name: Deniz
  company_name: DeepVera
  webhook_url: https://n8n.example.com/webhook/leads
log:
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Pipeline.Limit)
	assert.Equal(t, time.Second, cfg.Pipeline.Throttle)
	assert.Equal(t, "Deniz", cfg.Profile.Name)
	assert.Equal(t, "https://n8n.example.com/webhook/leads", cfg.Profile.WebhookURL)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values.
	assert.Equal(t, 90*time.Second, cfg.Pipeline.LookupTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0644))

	t.Setenv("LEADPILOT_LOG_LEVEL", "warn")
	t.Setenv("LEADPILOT_SERVER_PORT", "3000")
	t.Setenv("LEADPILOT_PIPELINE_THROTTLE", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.Throttle)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEADPILOT_ANTHROPIC_KEY=sk-ant-from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LEADPILOT_ANTHROPIC_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-from-dotenv", cfg.Anthropic.Key)
}

func TestLoadSecretsFromEnvWithoutFile(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LEADPILOT_ANTHROPIC_KEY", "sk-ant-env")
	t.Setenv("LEADPILOT_PERPLEXITY_KEY", "pplx-env")
	t.Setenv("LEADPILOT_JINA_KEY", "jina-env")
	t.Setenv("LEADPILOT_GOOGLE_KEY", "google-env")
	t.Setenv("LEADPILOT_AUTOMATION_WEBHOOK_URL", "https://hooks.example.com/leads")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", cfg.Anthropic.Key)
	assert.Equal(t, "pplx-env", cfg.Perplexity.Key)
	assert.Equal(t, "jina-env", cfg.Jina.Key)
	assert.Equal(t, "google-env", cfg.Google.Key)
	assert.Equal(t, "https://hooks.example.com/leads", cfg.Automation.WebhookURL)
	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validPipeline() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "leadpilot.db"
	cfg.Discovery.Source = "perplexity"
	cfg.Perplexity.Key = "pplx-key"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Pipeline.Limit = 20
	cfg.Server.Port = 8080
	return cfg
}

func TestValidatePipeline_AllPresent(t *testing.T) {
	assert.NoError(t, validPipeline().Validate("pipeline"))
	assert.NoError(t, validPipeline().Validate("serve"))
}

func TestValidatePipeline_MissingKeys(t *testing.T) {
	cfg := validPipeline()
	cfg.Perplexity.Key = ""
	cfg.Anthropic.Key = ""

	err := cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perplexity.key is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidatePlacesSource(t *testing.T) {
	cfg := validPipeline()
	cfg.Discovery.Source = "places"
	err := cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")

	cfg.Google.Key = "g-key"
	assert.NoError(t, cfg.Validate("pipeline"))

	cfg.Discovery.Source = "yellowpages"
	assert.Error(t, cfg.Validate("pipeline"))
}

func TestValidateStoreOnly(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("credits")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
	// Credential checks only apply to pipeline modes.
	assert.NotContains(t, err.Error(), "anthropic.key")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validPipeline()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}
