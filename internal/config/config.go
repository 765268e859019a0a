// Package config defines the runtime's configuration surface: the LLM
// provider/model selection, turn and token budgets, sandbox policy, and
// the environment-variable and persisted-store overlays that populate
// them. It mirrors the shape session.Config expects so callers in
// cmd/locus can build one RuntimeConfig and hand its fields straight to
// session.New.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/locuscode/locus/internal/session"
)

// Provider identifies which LLM backend a RuntimeConfig targets.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderZAI       Provider = "zai"
)

// String renders the provider's canonical lowercase name.
func (p Provider) String() string { return string(p) }

// ParseProvider parses a provider name case-insensitively, accepting
// "z.ai" as an alias for ProviderZAI.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anthropic":
		return ProviderAnthropic, nil
	case "openai":
		return ProviderOpenAI, nil
	case "ollama":
		return ProviderOllama, nil
	case "zai", "z.ai":
		return ProviderZAI, nil
	default:
		return "", fmt.Errorf("config: invalid provider %q (valid: anthropic, openai, ollama, zai)", s)
	}
}

const defaultModel = "claude-sonnet-4-20250514"
const defaultZAIModel = "glm-5"

// SandboxPolicy bounds what the file and command tools are allowed to
// touch: an optional allow-list of path prefixes (empty means "the
// repo root and nothing else," enforced by the tools themselves) and a
// ceiling on how long a single shell command may run.
type SandboxPolicy struct {
	AllowedPaths   []string
	CommandTimeout time.Duration
}

// DefaultSandboxPolicy returns the policy a RuntimeConfig starts with:
// no extra allowed paths beyond the repo root, 60 second command cap.
func DefaultSandboxPolicy() SandboxPolicy {
	return SandboxPolicy{CommandTimeout: 60 * time.Second}
}

// RuntimeConfig is the core agent runtime's full configuration: model
// and provider selection, per-session turn/token budgets, the sandbox
// policy handed to the bash and filesystem tools, and the repository
// root the session operates against.
type RuntimeConfig struct {
	Model        string
	Provider     Provider
	MaxTurns     int
	ContextLimit int
	MemoryLimit  int
	ToolBudget   int
	MaxTokens    int
	Sandbox      SandboxPolicy
	RepoRoot     string
}

// New returns a RuntimeConfig with the runtime's built-in defaults for
// repoRoot: Claude Sonnet via Anthropic, unlimited turns, a 200k token
// context limit, a 10-memory recall cap, a 3800 token tool-schema
// budget, and 8192 max response tokens.
func New(repoRoot string) RuntimeConfig {
	return RuntimeConfig{
		Model:        defaultModel,
		Provider:     ProviderAnthropic,
		MaxTurns:     0,
		ContextLimit: 200_000,
		MemoryLimit:  10,
		ToolBudget:   3800,
		MaxTokens:    8192,
		Sandbox:      DefaultSandboxPolicy(),
		RepoRoot:     repoRoot,
	}
}

// WithProvider sets the provider and, if the model is still the
// default Anthropic model, swaps in the provider's own default model
// (ZAI's glm-5, in particular — it must never silently send an
// Anthropic model name to a ZAI endpoint).
func (c RuntimeConfig) WithProvider(p Provider) RuntimeConfig {
	c.Provider = p
	if p == ProviderZAI && c.Model == defaultModel {
		c.Model = defaultZAIModel
	}
	return c
}

// SetDefaults fills in any zero-valued field with the runtime default,
// without disturbing fields the caller already set. Safe to call on a
// RuntimeConfig assembled piecemeal from a YAML file and env overlay.
func (c *RuntimeConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	if c.ContextLimit == 0 {
		c.ContextLimit = 200_000
	}
	if c.MemoryLimit == 0 {
		c.MemoryLimit = 10
	}
	if c.ToolBudget == 0 {
		c.ToolBudget = 3800
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 8192
	}
	if c.Sandbox.CommandTimeout == 0 {
		c.Sandbox.CommandTimeout = 60 * time.Second
	}
	if c.Provider == ProviderZAI && c.Model == defaultModel {
		c.Model = defaultZAIModel
	}
}

// Validate checks the configuration for values the runtime cannot act
// on, collecting every problem rather than failing on the first.
func (c RuntimeConfig) Validate() error {
	var errs []string

	if c.Model == "" {
		errs = append(errs, "model must not be empty")
	}
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderZAI:
	default:
		errs = append(errs, fmt.Sprintf("provider %q is not one of anthropic, openai, ollama, zai", c.Provider))
	}
	if c.MaxTurns < 0 {
		errs = append(errs, "max_turns must not be negative")
	}
	if c.ContextLimit <= 0 {
		errs = append(errs, "context_limit must be positive")
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, "memory_limit must not be negative")
	}
	if c.ToolBudget < 0 {
		errs = append(errs, "tool_budget must not be negative")
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, "max_tokens must be positive")
	}
	if c.Sandbox.CommandTimeout <= 0 {
		errs = append(errs, "sandbox.command_timeout must be positive")
	}
	if c.RepoRoot == "" {
		errs = append(errs, "repo_root must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SessionConfig projects the fields session.New needs out of a
// RuntimeConfig. ToolBudget and Sandbox steer the Tool Registry and
// its tool constructors directly (see cmd/locus), not the Session.
func (c RuntimeConfig) SessionConfig() session.Config {
	return session.Config{
		Model:        c.Model,
		Provider:     c.Provider.String(),
		MaxTurns:     c.MaxTurns,
		ContextLimit: c.ContextLimit,
		MemoryLimit:  c.MemoryLimit,
		MaxTokens:    c.MaxTokens,
		RepoRoot:     c.RepoRoot,
	}
}
