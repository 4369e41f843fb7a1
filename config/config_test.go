package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "xgboost_json", cfg.Artifacts.ModelType)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.UseRegistry())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
  read_timeout: 5s
  allowed_origins: ["https://loans.example.com"]
log:
  level: debug
artifacts:
  model_type: decision_tree
  model_path: ./models/tree.json
  schema_path: ./models/columns.yaml
rate_limit:
  requests: 5
  window: 10s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, []string{"https://loans.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "decision_tree", cfg.Artifacts.ModelType)
	assert.Equal(t, "./models/columns.yaml", cfg.Artifacts.SchemaPath)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 10000, cfg.RateLimit.MaxClients)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 9090\n")
	t.Setenv("LOANWISE_HTTP_PORT", "7070")
	t.Setenv("LOANWISE_LOG_LEVEL", "error")
	t.Setenv("LOANWISE_REGISTRY_PATH", "/var/lib/loanwise/registry.db")
	t.Setenv("LOANWISE_ARTIFACT_NAME", "loan_approval_v2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.True(t, cfg.UseRegistry())
	assert.Equal(t, "loan_approval_v2", cfg.Artifacts.Name)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "http: [",
		"bad port":      "http:\n  port: 70000\n",
		"no model path": "artifacts:\n  model_path: \"\"\n",
		"negative rate": "rate_limit:\n  requests: -1\n",
		"bad duration":  "http:\n  read_timeout: soon\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestValidateRegistryNeedsName(t *testing.T) {
	cfg := Default()
	cfg.Artifacts.RegistryPath = "registry.db"
	cfg.Artifacts.Name = ""
	assert.Error(t, cfg.Validate())
}
