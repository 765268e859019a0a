package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML-facing shape of RuntimeConfig: field names
// match the CLI's `locus.yaml`, kept separate from RuntimeConfig so the
// in-memory struct's Duration/Provider types don't dictate the file
// format.
type fileConfig struct {
	Model        string             `yaml:"model,omitempty"`
	Provider     string             `yaml:"provider,omitempty"`
	MaxTurns     int                `yaml:"max_turns,omitempty"`
	ContextLimit int                `yaml:"context_limit,omitempty"`
	MemoryLimit  int                `yaml:"memory_limit,omitempty"`
	ToolBudget   int                `yaml:"tool_budget,omitempty"`
	MaxTokens    int                `yaml:"max_tokens,omitempty"`
	RepoRoot     string             `yaml:"repo_root,omitempty"`
	Sandbox      *sandboxFileConfig `yaml:"sandbox,omitempty"`
}

type sandboxFileConfig struct {
	AllowedPaths       []string `yaml:"allowed_paths,omitempty"`
	CommandTimeoutSecs int      `yaml:"command_timeout_secs,omitempty"`
}

// LoadFile reads a locus.yaml-shaped file at path into a RuntimeConfig
// seeded with New(repoRoot)'s defaults, then applies SetDefaults and
// Validate. repoRoot is used as-is unless the file itself sets repo_root.
func LoadFile(path, repoRoot string) (RuntimeConfig, error) {
	cfg := New(repoRoot)

	raw, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.Provider != "" {
		p, err := ParseProvider(fc.Provider)
		if err != nil {
			return RuntimeConfig{}, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg.Provider = p
	}
	if fc.MaxTurns != 0 {
		cfg.MaxTurns = fc.MaxTurns
	}
	if fc.ContextLimit != 0 {
		cfg.ContextLimit = fc.ContextLimit
	}
	if fc.MemoryLimit != 0 {
		cfg.MemoryLimit = fc.MemoryLimit
	}
	if fc.ToolBudget != 0 {
		cfg.ToolBudget = fc.ToolBudget
	}
	if fc.MaxTokens != 0 {
		cfg.MaxTokens = fc.MaxTokens
	}
	if fc.RepoRoot != "" {
		cfg.RepoRoot = fc.RepoRoot
	}
	if fc.Sandbox != nil {
		if len(fc.Sandbox.AllowedPaths) > 0 {
			cfg.Sandbox.AllowedPaths = fc.Sandbox.AllowedPaths
		}
		if fc.Sandbox.CommandTimeoutSecs != 0 {
			cfg.Sandbox.CommandTimeout = time.Duration(fc.Sandbox.CommandTimeoutSecs) * time.Second
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}
