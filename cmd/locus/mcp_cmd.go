package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/locuscode/locus/internal/mcp"
)

// McpCmd groups MCP server management subcommands. Unlike
// original_source's McpManager, which keeps servers running under a
// long-lived daemon process, this CLI has no background service: each
// invocation is its own process, so "start"/"stop" toggle a server's
// auto_start flag in the persisted config (consulted by `locus run` and
// `locus continue` at the top of buildRuntime) and verify connectivity
// once rather than holding a subprocess open across commands.
type McpCmd struct {
	Add    McpAddCmd    `cmd:"" help:"Register an MCP server."`
	List   McpListCmd   `cmd:"" help:"List configured MCP servers."`
	Remove McpRemoveCmd `cmd:"" help:"Remove a configured MCP server."`
	Start  McpStartCmd  `cmd:"" help:"Enable auto-start and verify a server connects."`
	Stop   McpStopCmd   `cmd:"" help:"Disable a server's auto-start."`
	Test   McpTestCmd   `cmd:"" help:"Test connectivity to a configured server."`
	Info   McpInfoCmd   `cmd:"" help:"Show a server's configuration and tools."`
	Call   McpCallCmd   `cmd:"" help:"Call one tool on a configured server directly."`
}

func loadServers() (mcp.ServersConfig, string, error) {
	path, err := mcp.DefaultServersConfigPath()
	if err != nil {
		return mcp.ServersConfig{}, "", err
	}
	cfg, err := mcp.LoadServersConfig(path)
	return cfg, path, err
}

// McpAddCmd registers either a local (command) or remote (url) server.
type McpAddCmd struct {
	ID        string   `arg:"" help:"Unique server ID."`
	Name      string   `help:"Display name." default:""`
	Command   string   `help:"Command to launch a local (stdio) server."`
	URL       string   `help:"URL of a remote (SSE) server."`
	Args      []string `help:"Arguments to pass the local server command."`
	AuthType  string `name:"auth-type" help:"Auth type (bearer, basic, api_key)."`
	AuthToken string `name:"auth-token" help:"Auth token or $ENV_VAR reference."`
	AutoStart bool   `name:"auto-start" help:"Start this server automatically with every run."`
}

func (c *McpAddCmd) Run(cli *CLI, env *environment) error {
	if c.Command != "" && c.URL != "" {
		return fmt.Errorf("locus: specify either --command (local) or --url (remote), not both")
	}
	if c.Command == "" && c.URL == "" {
		return fmt.Errorf("locus: either --command or --url is required")
	}

	var serverCfg mcp.ServerConfig
	if c.Command != "" {
		serverCfg = mcp.NewLocalServerConfig(c.ID, c.Command)
		serverCfg.Args = c.Args
	} else {
		serverCfg = mcp.NewRemoteServerConfig(c.ID, c.URL)
	}
	if c.Name != "" {
		serverCfg.Name = c.Name
	} else {
		serverCfg.Name = c.ID
	}
	serverCfg.AutoStart = c.AutoStart

	if c.AuthType != "" {
		if c.AuthToken == "" {
			return fmt.Errorf("locus: --auth-token is required when --auth-type is set")
		}
		serverCfg.Auth = &mcp.AuthConfig{Type: c.AuthType, Token: c.AuthToken}
	}

	if err := serverCfg.Validate(); err != nil {
		return err
	}

	servers, path, err := loadServers()
	if err != nil {
		return err
	}
	servers.Add(serverCfg)
	if err := servers.Save(path); err != nil {
		return err
	}

	fmt.Printf("Added MCP server: %s (%s)\n", serverCfg.Name, serverCfg.ID)
	fmt.Printf("Start it with: locus mcp start %s\n", serverCfg.ID)
	return nil
}

// McpListCmd lists every configured server.
type McpListCmd struct {
	Detailed bool `help:"Show full configuration for each server."`
}

func (c *McpListCmd) Run(cli *CLI, env *environment) error {
	servers, _, err := loadServers()
	if err != nil {
		return err
	}
	if len(servers.Servers) == 0 {
		fmt.Println("No MCP servers configured.")
		fmt.Println("Add one with: locus mcp add <id> --command <command>")
		return nil
	}

	fmt.Println("MCP Servers")
	for _, s := range servers.Servers {
		status := "stopped"
		if s.AutoStart {
			status = "auto-start"
		}
		if c.Detailed {
			fmt.Printf("ID:         %s\n", s.ID)
			fmt.Printf("Name:       %s\n", s.Name)
			if s.IsRemote() {
				fmt.Printf("URL:        %s\n", s.URL)
			} else {
				fmt.Printf("Command:    %s %s\n", s.Command, strings.Join(s.Args, " "))
			}
			fmt.Printf("Status:     %s\n", status)
			fmt.Printf("Auto-start: %t\n\n", s.AutoStart)
		} else {
			endpoint := s.Command
			if s.IsRemote() {
				endpoint = s.URL
			}
			fmt.Printf("  %s  %s - %s (%s)\n", status, s.ID, s.Name, endpoint)
		}
	}
	return nil
}

// McpRemoveCmd deletes a configured server.
type McpRemoveCmd struct {
	ID string `arg:"" help:"Server ID to remove."`
}

func (c *McpRemoveCmd) Run(cli *CLI, env *environment) error {
	servers, path, err := loadServers()
	if err != nil {
		return err
	}
	if !servers.Remove(c.ID) {
		return fmt.Errorf("locus: no such server %q", c.ID)
	}
	if err := servers.Save(path); err != nil {
		return err
	}
	fmt.Printf("Removed MCP server: %s\n", c.ID)
	return nil
}

// McpStartCmd enables auto-start and verifies the server is reachable.
type McpStartCmd struct {
	ID string `arg:"" help:"Server ID to start."`
}

func (c *McpStartCmd) Run(cli *CLI, env *environment) error {
	servers, path, err := loadServers()
	if err != nil {
		return err
	}
	serverCfg, ok := servers.Find(c.ID)
	if !ok {
		return fmt.Errorf("locus: no such server %q", c.ID)
	}

	fmt.Printf("Starting MCP server: %s...\n", c.ID)
	ctx := context.Background()
	client, err := mcp.Connect(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("locus: connect to %s: %w", c.ID, err)
	}
	defer client.Shutdown(ctx)
	if _, err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("locus: initialize %s: %w", c.ID, err)
	}
	tools, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("locus: list tools on %s: %w", c.ID, err)
	}

	serverCfg.AutoStart = true
	servers.Add(serverCfg)
	if err := servers.Save(path); err != nil {
		return err
	}

	fmt.Printf("Started MCP server: %s\n", c.ID)
	if len(tools) > 0 {
		fmt.Println()
		fmt.Println("Available Tools")
		for _, t := range tools {
			fmt.Printf("  - %s - %s\n", t.Name, firstLine(t.Description))
		}
	}
	return nil
}

// McpStopCmd disables a server's auto-start flag.
type McpStopCmd struct {
	ID string `arg:"" help:"Server ID to stop."`
}

func (c *McpStopCmd) Run(cli *CLI, env *environment) error {
	servers, path, err := loadServers()
	if err != nil {
		return err
	}
	serverCfg, ok := servers.Find(c.ID)
	if !ok {
		return fmt.Errorf("locus: no such server %q", c.ID)
	}
	serverCfg.AutoStart = false
	servers.Add(serverCfg)
	if err := servers.Save(path); err != nil {
		return err
	}
	fmt.Printf("Stopped MCP server: %s\n", c.ID)
	return nil
}

// McpTestCmd connects and reports whether the server is reachable.
type McpTestCmd struct {
	ID string `arg:"" help:"Server ID to test."`
}

func (c *McpTestCmd) Run(cli *CLI, env *environment) error {
	servers, _, err := loadServers()
	if err != nil {
		return err
	}
	serverCfg, ok := servers.Find(c.ID)
	if !ok {
		return fmt.Errorf("locus: no such server %q", c.ID)
	}

	fmt.Printf("Testing MCP server: %s...\n", c.ID)
	ctx := context.Background()
	client, err := mcp.Connect(ctx, serverCfg)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		return fmt.Errorf("locus: server test failed")
	}
	defer client.Shutdown(ctx)

	initResult, err := client.Initialize(ctx)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		return fmt.Errorf("locus: server test failed")
	}
	tools, err := client.ListTools(ctx)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		return fmt.Errorf("locus: server test failed")
	}

	fmt.Println("Connection successful!")
	fmt.Printf("Server:  %s\n", initResult.ServerInfo.Name)
	fmt.Printf("Version: %s\n", initResult.ServerInfo.Version)
	fmt.Printf("Tools:   %d\n", len(tools))
	return nil
}

// McpInfoCmd shows one server's full configuration and, if reachable,
// its live tool list.
type McpInfoCmd struct {
	ID string `arg:"" help:"Server ID to show."`
}

func (c *McpInfoCmd) Run(cli *CLI, env *environment) error {
	servers, _, err := loadServers()
	if err != nil {
		return err
	}
	serverCfg, ok := servers.Find(c.ID)
	if !ok {
		return fmt.Errorf("locus: no such server %q", c.ID)
	}

	fmt.Printf("MCP Server: %s\n", serverCfg.Name)
	fmt.Printf("ID:         %s\n", serverCfg.ID)
	if serverCfg.IsRemote() {
		fmt.Printf("URL:        %s\n", serverCfg.URL)
	} else {
		fmt.Printf("Command:    %s\n", serverCfg.Command)
		if len(serverCfg.Args) > 0 {
			fmt.Printf("Arguments:  %s\n", strings.Join(serverCfg.Args, " "))
		}
		for k, v := range serverCfg.Env {
			fmt.Printf("    %s = %s\n", k, v)
		}
	}
	fmt.Printf("Auto-start:     %t\n", serverCfg.AutoStart)
	fmt.Printf("Restart policy: %s (max %d retries)\n", serverCfg.RestartPolicy.Mode, serverCfg.RestartPolicy.MaxRetries)
	if serverCfg.Auth != nil {
		fmt.Printf("Auth type:      %s\n", serverCfg.Auth.Type)
		fmt.Printf("Auth header:    %s\n", serverCfg.Auth.HeaderName())
	}

	ctx := context.Background()
	client, err := mcp.Connect(ctx, serverCfg)
	if err != nil {
		return nil
	}
	defer client.Shutdown(ctx)
	if _, err := client.Initialize(ctx); err != nil {
		return nil
	}
	tools, err := client.ListTools(ctx)
	if err != nil || len(tools) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("Available Tools")
	for _, t := range tools {
		fmt.Printf("  %s\n    %s\n", t.Name, firstLine(t.Description))
	}
	return nil
}

// McpCallCmd invokes one tool on a configured server directly, outside
// any agent loop — for diagnostics. tool is "server_id.tool_name" or
// "mcp.server_id.tool_name"; args is a JSON object literal.
type McpCallCmd struct {
	Tool string `arg:"" help:"Tool to call, as server_id.tool_name."`
	Args string `arg:"" optional:"" help:"JSON object of arguments." default:"{}"`
}

func (c *McpCallCmd) Run(cli *CLI, env *environment) error {
	serverID, toolName, err := splitToolRef(c.Tool)
	if err != nil {
		return err
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(c.Args), &args); err != nil {
		return fmt.Errorf("locus: parse args: %w", err)
	}

	servers, _, err := loadServers()
	if err != nil {
		return err
	}
	serverCfg, ok := servers.Find(serverID)
	if !ok {
		return fmt.Errorf("locus: no such server %q", serverID)
	}

	ctx := context.Background()
	client, err := mcp.Connect(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("locus: connect to %s: %w", serverID, err)
	}
	defer client.Shutdown(ctx)
	if _, err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("locus: initialize %s: %w", serverID, err)
	}

	text, isError, err := client.CallTool(ctx, toolName, args)
	if err != nil {
		return fmt.Errorf("locus: call %s: %w", c.Tool, err)
	}
	if isError {
		return fmt.Errorf("locus: %s returned an error: %s", c.Tool, text)
	}
	fmt.Println(text)
	return nil
}

// splitToolRef parses "server_id.tool_name" or "mcp.server_id.tool_name"
// into its two parts.
func splitToolRef(ref string) (serverID, toolName string, err error) {
	parts := strings.Split(ref, ".")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], nil
	case 3:
		if parts[0] == "mcp" {
			return parts[1], parts[2], nil
		}
	}
	return "", "", fmt.Errorf("locus: tool must be server_id.tool_name or mcp.server_id.tool_name, got %q", ref)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
