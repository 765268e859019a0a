package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesRuntimeDefaults(t *testing.T) {
	cfg := New("/repo")
	assert.Equal(t, defaultModel, cfg.Model)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, 0, cfg.MaxTurns)
	assert.Equal(t, 200_000, cfg.ContextLimit)
	assert.Equal(t, 10, cfg.MemoryLimit)
	assert.Equal(t, 3800, cfg.ToolBudget)
	assert.Equal(t, 8192, cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Sandbox.CommandTimeout)
	assert.Equal(t, "/repo", cfg.RepoRoot)
}

func TestParseProviderAcceptsAliasesCaseInsensitively(t *testing.T) {
	p, err := ParseProvider("ZAI")
	require.NoError(t, err)
	assert.Equal(t, ProviderZAI, p)

	p, err = ParseProvider("z.ai")
	require.NoError(t, err)
	assert.Equal(t, ProviderZAI, p)

	_, err = ParseProvider("bedrock")
	assert.Error(t, err)
}

func TestWithProviderSwapsDefaultModelForZAI(t *testing.T) {
	cfg := New("/repo").WithProvider(ProviderZAI)
	assert.Equal(t, defaultZAIModel, cfg.Model)
	assert.Equal(t, ProviderZAI, cfg.Provider)
}

func TestWithProviderKeepsExplicitModel(t *testing.T) {
	cfg := New("/repo")
	cfg.Model = "gpt-4-custom"
	cfg = cfg.WithProvider(ProviderZAI)
	assert.Equal(t, "gpt-4-custom", cfg.Model)
}

func TestSetDefaultsFillsOnlyZeroFields(t *testing.T) {
	cfg := RuntimeConfig{Model: "custom-model", MaxTokens: 1000}
	cfg.SetDefaults()
	assert.Equal(t, "custom-model", cfg.Model)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, 200_000, cfg.ContextLimit)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := RuntimeConfig{MaxTurns: -1, ContextLimit: 0, MaxTokens: 0}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model must not be empty")
	assert.Contains(t, err.Error(), "max_turns must not be negative")
	assert.Contains(t, err.Error(), "context_limit must be positive")
	assert.Contains(t, err.Error(), "repo_root must not be empty")
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := New("/repo")
	assert.NoError(t, cfg.Validate())
}

func TestSessionConfigProjectsFields(t *testing.T) {
	cfg := New("/repo")
	sc := cfg.SessionConfig()
	assert.Equal(t, cfg.Model, sc.Model)
	assert.Equal(t, "anthropic", sc.Provider)
	assert.Equal(t, cfg.RepoRoot, sc.RepoRoot)
}
