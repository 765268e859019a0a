// Command locus is the terminal-native CLI for the locus.codes agent
// runtime: it wires internal/config, internal/agent, internal/observability,
// and internal/mcp together behind the subcommands described in the
// runtime's external-interfaces contract, and is otherwise glue — the
// core accepts a RuntimeConfig and an event channel, nothing more.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/locuscode/locus/internal/config"

	_ "github.com/locuscode/locus/internal/llm/providers/anthropic"
	_ "github.com/locuscode/locus/internal/llm/providers/openai"
	_ "github.com/locuscode/locus/internal/llm/providers/zhipuai"
)

// CLI is the top-level command surface. The run command builds its
// RuntimeConfig from config.FromEnv overlaid with its own flags; the
// continue command rebuilds it from the saved transcript's settings.
// There is no separate project config file format beyond the persisted
// key/value store config.Store already maintains.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run a single prompt against a fresh session."`
	Continue ContinueCmd `cmd:"" help:"Continue the most recently run session with a new prompt."`
	Config   ConfigCmd   `cmd:"" help:"Configure provider API keys and the LocusGraph connection."`
	MCP      McpCmd      `cmd:"" help:"Manage MCP servers."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	LogLevel    string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat   string `help:"Log format (text or json)." default:"text"`
	Metrics     bool   `help:"Serve Prometheus metrics while running."`
	MetricsAddr string `help:"Address to serve /metrics on." default:"127.0.0.1:9090"`
	Trace       bool   `help:"Capture spans in an in-memory debug exporter."`
}

// VersionCmd prints the CLI's version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("locus 0.1.0")
	return nil
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("locus"),
		kong.Description("locus.codes terminal agent runtime"),
		kong.UsageOnError(),
	)

	env := newEnvironment(cli.LogLevel, cli.LogFormat, cli.Metrics, cli.MetricsAddr, cli.Trace)
	defer env.shutdown()

	err := kctx.Run(&cli, env)
	kctx.FatalIfErrorf(err)
}
