package main

import (
	"context"
	"fmt"

	"github.com/locuscode/locus/internal/config"
)

// ContinueCmd resumes the most recently run or continued session,
// replaying its persisted turn log into a fresh Runtime before sending
// the new prompt.
type ContinueCmd struct {
	Prompt []string `arg:"" help:"The next instruction to give the agent."`
}

func (c *ContinueCmd) Run(cli *CLI, env *environment) error {
	prior, err := loadTranscript()
	if err != nil {
		return err
	}

	provider, err := config.ParseProvider(prior.Config.Provider)
	if err != nil {
		provider = config.ProviderAnthropic
	}
	cfg := config.New(prior.Config.RepoRoot).WithProvider(provider)
	cfg.Model = prior.Config.Model
	cfg.MaxTurns = prior.Config.MaxTurns
	cfg.ContextLimit = prior.Config.ContextLimit
	cfg.MemoryLimit = prior.Config.MemoryLimit
	cfg.MaxTokens = prior.Config.MaxTokens
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	prompt := joinArgs(c.Prompt)
	if prompt == "" {
		return fmt.Errorf("locus: continue requires a prompt")
	}

	ctx := context.Background()
	built, err := buildRuntime(ctx, env, cfg)
	if err != nil {
		return err
	}
	defer built.close()

	built.runtime.Session().ReplaceTurns(prior.Turns)

	env.metrics.SetSessionActive(true)
	defer env.metrics.SetSessionActive(false)

	stopPrinting := built.startPrinting(env.metrics)
	status, runErr := built.runtime.Run(ctx, prompt)
	stopPrinting()
	if runErr != nil {
		return fmt.Errorf("locus: continue: %w", runErr)
	}

	if saveErr := saveTranscript(built.runtime.Session()); saveErr != nil {
		env.logger.Warn("locus: could not persist session transcript", "error", saveErr)
	}

	if status == "failed" {
		return fmt.Errorf("locus: session ended in failed status")
	}
	return nil
}
