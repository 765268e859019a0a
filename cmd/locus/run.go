package main

import (
	"context"
	"fmt"
	"os"

	"github.com/locuscode/locus/internal/config"
)

// RunCmd starts a brand new session and drives one prompt through it to
// completion or suspension, printing the streamed response to stdout.
// On success the session's turn log is persisted so `locus continue`
// can pick it back up.
type RunCmd struct {
	Prompt []string `arg:"" help:"The instruction to give the agent."`

	Provider string `help:"LLM provider (anthropic, openai, ollama, zai)."`
	Model    string `help:"Model name."`
	MaxTurns int    `name:"max-turns" help:"Cap on agent-loop iterations (0 = unlimited)."`
	RepoRoot string `name:"repo-root" help:"Repository root the agent operates against." type:"path"`
}

func (c *RunCmd) Run(cli *CLI, env *environment) error {
	repoRoot := c.RepoRoot
	if repoRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("locus: resolve working directory: %w", err)
		}
		repoRoot = wd
	}

	cfg := config.FromEnv(repoRoot)
	if c.Provider != "" {
		p, err := config.ParseProvider(c.Provider)
		if err != nil {
			return err
		}
		cfg = cfg.WithProvider(p)
	}
	if c.Model != "" {
		cfg.Model = c.Model
	}
	if c.MaxTurns != 0 {
		cfg.MaxTurns = c.MaxTurns
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prompt := joinArgs(c.Prompt)
	if prompt == "" {
		return fmt.Errorf("locus: run requires a prompt")
	}

	ctx := context.Background()
	built, err := buildRuntime(ctx, env, cfg)
	if err != nil {
		return err
	}
	defer built.close()

	env.metrics.SetSessionActive(true)
	defer env.metrics.SetSessionActive(false)

	stopPrinting := built.startPrinting(env.metrics)
	status, runErr := built.runtime.Run(ctx, prompt)
	stopPrinting()
	if runErr != nil {
		return fmt.Errorf("locus: run: %w", runErr)
	}

	if saveErr := saveTranscript(built.runtime.Session()); saveErr != nil {
		env.logger.Warn("locus: could not persist session transcript", "error", saveErr)
	}

	if status == "failed" {
		return fmt.Errorf("locus: session ended in failed status")
	}
	return nil
}
