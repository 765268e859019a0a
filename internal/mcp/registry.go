package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/locuscode/locus/internal/memory"
	"github.com/locuscode/locus/internal/memory/graphstore"
	"github.com/locuscode/locus/internal/tool"
)

// mcpTool adapts a single remote Tool, reached through a live Client, to
// the runtime's tool.Tool interface so the dispatcher can call it exactly
// like a built-in.
type mcpTool struct {
	client *Client
	name   string
	desc   string
	schema *jsonschema.Schema
}

func (t *mcpTool) Name() string        { return t.name }
func (t *mcpTool) Description() string { return t.desc }
func (t *mcpTool) Schema() *jsonschema.Schema {
	return t.schema
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	start := time.Now()
	text, isError, err := t.client.CallTool(ctx, t.name, args)
	if err != nil {
		return tool.ErrorResult(err.Error(), time.Since(start)), nil
	}
	if isError {
		return tool.ErrorResult(text, time.Since(start)), nil
	}
	return tool.SuccessResult(map[string]string{"result": text}, time.Since(start)), nil
}

// RegisterTools connects to the server named by cfg, runs the
// initialize handshake, lists its tools, and registers each as a
// tool.Tool in registry. mem may be nil (tests, or memory disabled); when
// non-nil, each registered tool's schema is recorded as a fact event per
// the runtime's tool-discovery convention. The returned Client stays
// connected — the caller owns its lifetime and must Shutdown it.
func RegisterTools(ctx context.Context, cfg ServerConfig, registry *tool.Registry, mem *memory.Client) (*Client, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if _, err := client.Initialize(ctx); err != nil {
		client.Shutdown(ctx)
		return nil, err
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		client.Shutdown(ctx)
		return nil, err
	}

	for _, t := range tools {
		schema, err := toJSONSchema(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcp: tool %s on %s: invalid schema: %w", t.Name, cfg.ID, err)
		}

		if err := registry.Register(&mcpTool{client: client, name: t.Name, desc: t.Description, schema: schema}); err != nil {
			return nil, fmt.Errorf("mcp: register tool %s from %s: %w", t.Name, cfg.ID, err)
		}

		if mem != nil {
			mem.StoreToolSchema(t.Name, t.Description, t.InputSchema, "mcp", []string{cfg.ID}, graphstore.NewEventLinks())
		}
	}

	return client, nil
}

// toJSONSchema round-trips a raw JSON-schema object (as received from an
// MCP server's tools/list response) through *jsonschema.Schema, the same
// type every built-in tool's Schema() returns, so MCP tools and built-ins
// are indistinguishable to the dispatcher and to tool_explain.
func toJSONSchema(raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(data, schema); err != nil {
		return nil, err
	}
	return schema, nil
}
