package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// protocolVersion is the MCP wire protocol version this client declares
// during initialize.
const protocolVersion = "2024-11-05"

// clientInfo identifies this runtime to the servers it connects to.
var clientInfo = mcp.Implementation{Name: "locus", Version: "0.1.0"}

// Tool is an MCP server's advertised tool, enough of it to register in
// the runtime's Tool Registry.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Client manages the lifecycle of a single MCP server connection:
// initialize -> tools/list -> tools/call -> close. It speaks stdio
// (local process, via mcp-go) or SSE (remote, over plain HTTP)
// depending on the server's configuration. No shutdown request or exit
// notification is sent on either transport.
type Client struct {
	cfg ServerConfig

	mu          sync.Mutex
	stdio       *mcpclient.Client // set when cfg.IsLocal()
	sse         *sseTransport     // set when cfg.IsRemote()
	initialized bool
}

// Connect spawns (stdio) or dials (SSE) the server named by cfg, without
// yet running the initialize handshake — call Initialize next.
func Connect(ctx context.Context, cfg ServerConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}

	if cfg.IsLocal() {
		raw, err := mcpclient.NewStdioMCPClient(cfg.Command, envSlice(cfg.Env), cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("mcp: spawn %s: %w", cfg.ID, err)
		}
		if err := raw.Start(ctx); err != nil {
			return nil, fmt.Errorf("mcp: start %s: %w", cfg.ID, err)
		}
		c.stdio = raw
		return c, nil
	}

	transport, err := newSSETransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("mcp: dial %s: %w", cfg.ID, err)
	}
	c.sse = transport
	return c, nil
}

// Initialize sends the initialize request. Over stdio, mcp-go's
// Initialize also sends the initialized notification; over SSE only
// the initialize request is sent.
func (c *Client) Initialize(ctx context.Context) (*mcp.InitializeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stdio != nil {
		req := mcp.InitializeRequest{}
		req.Params.ProtocolVersion = protocolVersion
		req.Params.ClientInfo = clientInfo
		result, err := c.stdio.Initialize(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("mcp: initialize %s: %w", c.cfg.ID, err)
		}
		c.initialized = true
		slog.Info("mcp: server initialized", "server", c.cfg.ID, "name", result.ServerInfo.Name, "version", result.ServerInfo.Version)
		return result, nil
	}

	result, err := c.sse.initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: initialize %s: %w", c.cfg.ID, err)
	}
	c.initialized = true
	slog.Info("mcp: server initialized", "server", c.cfg.ID, "name", result.ServerInfo.Name, "version", result.ServerInfo.Version)
	return result, nil
}

// ListTools returns every tool the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, fmt.Errorf("mcp: server %s not initialized", c.cfg.ID)
	}

	if c.stdio != nil {
		resp, err := c.stdio.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, fmt.Errorf("mcp: list tools %s: %w", c.cfg.ID, err)
		}
		out := make([]Tool, 0, len(resp.Tools))
		for _, t := range resp.Tools {
			out = append(out, Tool{Name: t.Name, Description: t.Description, InputSchema: schemaToMap(t.InputSchema)})
		}
		return out, nil
	}

	return c.sse.listTools(ctx)
}

// CallTool invokes name on the server with the given arguments, returning
// the concatenated text content (or the error message, with isError
// true).
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (text string, isError bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return "", false, fmt.Errorf("mcp: server %s not initialized", c.cfg.ID)
	}

	if c.stdio != nil {
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		resp, err := c.stdio.CallTool(ctx, req)
		if err != nil {
			return "", false, fmt.Errorf("mcp: call %s on %s: %w", name, c.cfg.ID, err)
		}
		return joinTextContent(resp), resp.IsError, nil
	}

	return c.sse.callTool(ctx, name, args)
}

// Shutdown marks the client uninitialized and, for stdio, closes the
// mcp-go client and its subprocess; for SSE there is nothing to close.
// It sends no shutdown request or exit notification to the server.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		if c.stdio != nil {
			return c.stdio.Close()
		}
		return nil
	}

	slog.Info("mcp: shutting down", "server", c.cfg.ID)
	c.initialized = false

	if c.stdio != nil {
		return c.stdio.Close()
	}
	return nil
}

// ServerID returns the configured id of the connected server.
func (c *Client) ServerID() string { return c.cfg.ID }

// IsRemote reports whether this client speaks SSE rather than stdio.
func (c *Client) IsRemote() bool { return c.sse != nil }

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func joinTextContent(resp *mcp.CallToolResult) string {
	var out string
	for i, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			if i > 0 {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
