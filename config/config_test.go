package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGroq, cfg.Model.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Model.Name)
	assert.Empty(t, cfg.Model.APIKey)
	assert.Equal(t, []string{ThaiRecipesURL}, cfg.Knowledge.URLs)
	assert.Equal(t, 384, cfg.Embedder.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Agent.ToolTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_AGENTCREW_KEY", "secret")
	dir := t.TempDir()
	path := writeFile(t, dir, "agentcrew.yaml", `
model:
  provider: openai
  name: gpt-4o-mini
  api_key: ${TEST_AGENTCREW_KEY}
agent:
  tool_timeout: 5s
  max_tool_rounds: 3
knowledge:
  urls:
    - https://example.com/a.pdf
storage:
  database_url: postgres://ai:ai@localhost:5532/ai?sslmode=disable
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, "secret", cfg.Model.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Agent.ToolTimeout)
	assert.Equal(t, 3, cfg.Agent.MaxToolRounds)
	assert.Equal(t, []string{"https://example.com/a.pdf"}, cfg.Knowledge.URLs)
	assert.Equal(t, 1000, cfg.Knowledge.ChunkSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "agentcrew.yaml", "model:\n  provider: openai\n")

	t.Setenv("AGENTCREW_PROVIDER", "mock")
	t.Setenv("AGENTCREW_KNOWLEDGE_URLS", "https://a.example/1.pdf, https://a.example/2.pdf,")
	t.Setenv("AGENTCREW_SHOW_TOOL_CALLS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, cfg.Model.Provider)
	assert.Equal(t, []string{"https://a.example/1.pdf", "https://a.example/2.pdf"}, cfg.Knowledge.URLs)
	assert.False(t, cfg.Agent.ShowToolCalls)
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "AGENTCREW_MODEL=from-dotenv\n")
	path := writeFile(t, dir, "agentcrew.yaml", "")
	t.Cleanup(func() { _ = os.Unsetenv("AGENTCREW_MODEL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Model.Name)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "unknown.yaml", "modle:\n  provider: groq\n"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeFile(t, dir, "provider.yaml", "model:\n  provider: llama-cpp\n"))
	assert.True(t, core.IsConfigError(err))
	assert.ErrorContains(t, err, "model.provider")

	_, err = Load(writeFile(t, dir, "dsn.yaml", "storage:\n  database_url: mysql://x\n"))
	assert.True(t, core.IsConfigError(err))

	t.Setenv("AGENTCREW_MAX_TOOL_ROUNDS", "many")
	_, err = Load("")
	assert.True(t, core.IsConfigError(err))
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging = LoggingConfig{Level: "debug", Format: "json", Backend: "zap"}

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LogLevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "zap", lc.Backend)
}

func TestLoadDotEnv_MissingIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
