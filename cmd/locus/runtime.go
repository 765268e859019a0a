package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/locuscode/locus/internal/agent"
	"github.com/locuscode/locus/internal/config"
	"github.com/locuscode/locus/internal/dispatcher"
	"github.com/locuscode/locus/internal/event"
	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/mcp"
	"github.com/locuscode/locus/internal/memory"
	graphsqlite "github.com/locuscode/locus/internal/memory/graphstore/sqlite"
	"github.com/locuscode/locus/internal/observability"
	"github.com/locuscode/locus/internal/tool"
)

// providerFactoryName maps a config.Provider to the name its llm.Factory
// was registered under. Every provider but ZAI registers under its own
// name; ZAI's factory is registered as "zhipuai" (the API it actually
// speaks). Ollama has no registered factory in this build — llm.Build
// surfaces that as an ordinary "no provider registered" error.
func providerFactoryName(p config.Provider) string {
	if p == config.ProviderZAI {
		return "zhipuai"
	}
	return p.String()
}

// apiKeyEnvVar names the environment variable RuntimeConfig's provider
// expects its API key under.
func apiKeyEnvVar(p config.Provider) string {
	switch p {
	case config.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case config.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case config.ProviderZAI:
		return "ZAI_API_KEY"
	default:
		return ""
	}
}

// builtRuntime bundles an agent.Runtime with the collaborators the CLI
// must close or disconnect once the run completes.
type builtRuntime struct {
	runtime    *agent.Runtime
	events     chan event.Event
	mem        *memory.Client
	mcpClients []*mcp.Client
	printDone  chan struct{}
}

// startPrinting launches printEvents in the background and returns a
// function the caller must invoke, after Run has returned, to close the
// event channel and block until every already-queued event has actually
// been printed — otherwise the process can exit mid-drain.
func (b *builtRuntime) startPrinting(metrics *observability.Metrics) func() {
	b.printDone = make(chan struct{})
	go func() {
		printEvents(b.events, metrics, "")
		close(b.printDone)
	}()
	return func() {
		close(b.events)
		<-b.printDone
	}
}

// close releases every long-lived collaborator. Safe to call once, after
// the runtime's Run has returned and startPrinting's closer has run.
func (b *builtRuntime) close() {
	for _, c := range b.mcpClients {
		_ = c.Shutdown(context.Background())
	}
	if b.mem != nil {
		b.mem.Close()
	}
}

// buildRuntime assembles one agent.Runtime from cfg: the LLM provider,
// the built-in tool registry plus any auto-start MCP servers, the
// memory client backed by the reference SQLite graph-store adapter, and
// a confirmation-gated dispatcher. Mirrors the wiring every subcommand
// that actually drives a turn (run, continue) needs identically.
func buildRuntime(ctx context.Context, env *environment, cfg config.RuntimeConfig) (*builtRuntime, error) {
	provider, err := llm.Build(llm.ProviderConfig{
		Name:    providerFactoryName(cfg.Provider),
		APIKey:  os.Getenv(apiKeyEnvVar(cfg.Provider)),
		BaseURL: os.Getenv("LOCUS_BASE_URL"),
	})
	if err != nil {
		return nil, fmt.Errorf("locus: build provider: %w", err)
	}

	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry, cfg.RepoRoot, tool.BashConfig{
		AllowedCommands: nil,
		MaxDuration:     cfg.Sandbox.CommandTimeout,
	}); err != nil {
		return nil, fmt.Errorf("locus: register built-in tools: %w", err)
	}

	mem := openMemoryClient(env)

	var mcpClients []*mcp.Client
	serversPath, err := mcp.DefaultServersConfigPath()
	if err == nil {
		servers, err := mcp.LoadServersConfig(serversPath)
		if err != nil {
			return nil, fmt.Errorf("locus: load mcp servers: %w", err)
		}
		for _, serverCfg := range servers.AutoStartServers() {
			client, err := mcp.RegisterTools(ctx, serverCfg, registry, mem)
			if err != nil {
				env.logger.Warn("mcp: auto-start server failed", "server", serverCfg.ID, "error", err)
				continue
			}
			mcpClients = append(mcpClients, client)
		}
	}

	events := make(chan event.Event, event.Capacity)
	dispatch := dispatcher.New(registry, mem, dispatcher.AutoApproveWithWarning{})
	rt := agent.New(cfg.SessionConfig(), provider, registry, mem, dispatch, dispatcher.AutoApproveWithWarning{}, events, nil)

	return &builtRuntime{runtime: rt, events: events, mem: mem, mcpClients: mcpClients}, nil
}

// openMemoryClient opens the reference SQLite graph-store adapter at
// ~/.locus/memory.db. A store that cannot be opened is a MemoryFailed
// startup condition, not a Config one: it is logged and swallowed, and
// the CLI runs on with mem nil (recall degrades empty, hooks become
// no-ops) rather than refusing to start.
func openMemoryClient(env *environment) *memory.Client {
	dir, err := config.DefaultStoreDir()
	if err != nil {
		env.logger.Warn("locus: resolve store dir for memory", "error", err)
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		env.logger.Warn("locus: create store dir for memory", "error", err)
		return nil
	}
	store, err := graphsqlite.Open(filepath.Join(dir, "memory.db"))
	if err != nil {
		env.logger.Warn("locus: open memory store", "error", err)
		return nil
	}
	return memory.New(store)
}

// printEvents drains events to stdout until the channel closes, in the
// teacher's direct-executor style: plain text, no TUI. Tool starts and
// results are rendered as single summary lines; text deltas are printed
// as they arrive, thinking deltas are not printed. Tool and session
// outcomes are also folded into metrics as they're observed, since the
// CLI has no other vantage point from which to record them.
func printEvents(events <-chan event.Event, metrics *observability.Metrics, lastTool string) {
	for ev := range events {
		switch ev.Kind {
		case event.KindTextDelta:
			fmt.Print(ev.Text)
		case event.KindThinkingDelta:
			// Thinking deltas are intentionally not echoed to stdout in
			// the default CLI rendering; only the final answer is.
		case event.KindToolStart:
			if ev.ToolUse != nil {
				lastTool = ev.ToolUse.Name
				fmt.Printf("\n→ %s\n", ev.ToolUse.Name)
			}
		case event.KindToolDone:
			if ev.ToolResult != nil {
				outcome := "ok"
				if ev.ToolResult.IsError {
					outcome = "error"
					fmt.Printf("  error: %s\n", ev.ToolResult.Output)
				}
				metrics.RecordToolCall(lastTool, outcome, time.Duration(ev.ToolResult.Duration)*time.Millisecond)
			}
		case event.KindConfirmation:
			if ev.ToolUse != nil {
				fmt.Printf("\n⚠ auto-approved: %s\n", ev.ToolUse.Name)
			}
		case event.KindError:
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", ev.Text)
		case event.KindSessionEnd:
			fmt.Printf("\n\n[%s] prompt=%d completion=%d\n", ev.Status, ev.PromptTotal, ev.CompleteTotal)
			outcome := "completed"
			if ev.Status != "completed" && ev.Status != "waiting" {
				outcome = string(ev.Status)
			}
			metrics.RecordTurn(outcome, 0)
			metrics.RecordTokens("", ev.PromptTotal, ev.CompleteTotal)
		}
	}
}
