package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locuscode/locus/internal/tool"
)

func TestToJSONSchemaRoundTripsObjectShape(t *testing.T) {
	raw := map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	}

	schema, err := toJSONSchema(raw)
	require.NoError(t, err)
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Required, "path")
}

func TestToJSONSchemaNilDefaultsToObject(t *testing.T) {
	schema, err := toJSONSchema(nil)
	require.NoError(t, err)
	assert.Equal(t, "object", schema.Type)
}

func TestRegisterToolsConnectsAndRegistersEachTool(t *testing.T) {
	server := newFakeMCPServer(t, "", "")
	defer server.Close()

	cfg := NewRemoteServerConfig("fake", server.URL)
	registry := tool.NewRegistry()

	client, err := RegisterTools(context.Background(), cfg, registry, nil)
	require.NoError(t, err)
	defer client.Shutdown(context.Background())

	registered, ok := registry.Get("search_docs")
	require.True(t, ok)
	assert.Equal(t, "Search documentation", registered.Description())

	result, err := registry.Call(context.Background(), "search_docs", map[string]any{"query": "foo"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}
