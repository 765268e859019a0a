package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// FromEnv returns New(repoRoot) overlaid with every recognised
// LOCUS_* environment variable, mirroring original_source's
// RuntimeConfig::from_env: an explicit LOCUS_PROVIDER wins; otherwise
// the provider is inferred from whichever API key is set (ZAI first,
// since a lone ZAI_API_KEY should never silently fall back to
// Anthropic). WithProvider's default-model swap still applies, so a
// ZAI provider without an explicit LOCUS_MODEL gets glm-5.
func FromEnv(repoRoot string) RuntimeConfig {
	cfg := New(repoRoot)

	if model := os.Getenv("LOCUS_MODEL"); model != "" {
		cfg.Model = model
	}

	if providerStr := os.Getenv("LOCUS_PROVIDER"); providerStr != "" {
		if p, err := ParseProvider(providerStr); err == nil {
			cfg.Provider = p
		}
	} else {
		switch {
		case os.Getenv("ZAI_API_KEY") != "":
			cfg.Provider = ProviderZAI
		case os.Getenv("OPENAI_API_KEY") != "":
			cfg.Provider = ProviderOpenAI
		case os.Getenv("ANTHROPIC_API_KEY") != "":
			cfg.Provider = ProviderAnthropic
		}
	}

	// A caller who explicitly asked for the Anthropic default model but
	// then selected ZAI gets glm-5, not Anthropic's model name sent to
	// a ZAI endpoint. A caller who set LOCUS_MODEL to anything else
	// keeps exactly what they asked for.
	if cfg.Provider == ProviderZAI && cfg.Model == defaultModel {
		cfg.Model = defaultZAIModel
		if m := os.Getenv("ZAI_MODEL"); m != "" {
			cfg.Model = m
		}
	}

	if v, ok := getenvInt("LOCUS_MAX_TURNS"); ok {
		cfg.MaxTurns = v
	}
	if v, ok := getenvInt("LOCUS_CONTEXT_LIMIT"); ok {
		cfg.ContextLimit = v
	}
	if v, ok := getenvInt("LOCUS_TOOL_BUDGET"); ok {
		cfg.ToolBudget = v
	}
	if v, ok := getenvInt("LOCUS_MAX_TOKENS"); ok {
		cfg.MaxTokens = v
	}

	return cfg
}

// LoadEnvFiles sources the persisted store's env file (if present)
// followed by ./.env.local and ./.env, each overriding variables
// already present in the process environment from earlier in the
// chain. Missing files are not an error; anything else loading them is.
// Call this once at process start, before FromEnv.
func LoadEnvFiles() error {
	if dir, err := DefaultStoreDir(); err == nil {
		if err := loadEnvFileIfExists(filepath.Join(dir, "env")); err != nil {
			return err
		}
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := loadEnvFileIfExists(name); err != nil {
			return err
		}
	}
	return nil
}

func loadEnvFileIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func getenvInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
