package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	content := `
defaults:
  max_rounds: 5
  variants_per_round: 4

llm_providers:
  anthropic-default:
    model: "claude-sonnet-4-5"
    api_key_env: "ANTHROPIC_API_KEY"
    max_output_tokens: 4096
`
	err := os.WriteFile(filepath.Join(dir, "evoengine.yaml"), []byte(content), 0644)
	require.NoError(t, err)
	return dir
}

func TestInitialize(t *testing.T) {
	configDir := setupTestConfigDir(t)
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotNil(t, cfg.Defaults)
	assert.NotNil(t, cfg.LLMProviderRegistry)
	assert.Equal(t, 5, cfg.Defaults.MaxRounds)
	assert.Equal(t, 4, cfg.Defaults.VariantsPerRound)
	assert.True(t, cfg.LLMProviderRegistry.Has("anthropic-default"))

	stats := cfg.Stats()
	assert.Equal(t, 1, stats.LLMProviders)
}

func TestInitializeMissingConfigDirUsesDefaults(t *testing.T) {
	ctx := context.Background()
	cfg, err := Initialize(ctx, "/nonexistent/directory")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 10, cfg.Defaults.MaxRounds)
	assert.Empty(t, cfg.LLMProviderRegistry.GetAll())
}

func TestInitializeInvalidYAML(t *testing.T) {
	configDir := t.TempDir()

	err := os.WriteFile(filepath.Join(configDir, "evoengine.yaml"), []byte(`{{{`), 0644)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeValidationFailure(t *testing.T) {
	configDir := t.TempDir()

	invalidConfig := `
llm_providers:
  broken-provider:
    model: ""
    api_key_env: "SOME_KEY"
    max_output_tokens: 4096
`
	err := os.WriteFile(filepath.Join(configDir, "evoengine.yaml"), []byte(invalidConfig), 0644)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestLoadEnvVarExpansion(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("TEST_MODEL_NAME", "claude-sonnet-4-5")

	content := `
llm_providers:
  anthropic-default:
    model: "${TEST_MODEL_NAME}"
    api_key_env: "ANTHROPIC_API_KEY"
    max_output_tokens: 2048
`
	err := os.WriteFile(filepath.Join(configDir, "evoengine.yaml"), []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := load(configDir)
	require.NoError(t, err)
	require.Contains(t, cfg.LLMProviders, "anthropic-default")
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLMProviders["anthropic-default"].Model)
}
