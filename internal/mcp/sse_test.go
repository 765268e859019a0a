package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeMCPServer serves the three JSON-RPC methods an SSE client
// exercises, in plain JSON (not event-stream) responses — enough to
// drive sseTransport end to end without a real MCP server binary.
func newFakeMCPServer(t *testing.T, wantAuthHeader, wantAuthValue string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantAuthHeader != "" {
			assert.Equal(t, wantAuthValue, r.Header.Get(wantAuthHeader))
		}

		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "initialize":
			result = map[string]any{
				"protocolVersion": protocolVersion,
				"serverInfo":      map[string]any{"name": "fake-server", "version": "1.0"},
				"capabilities":    map[string]any{},
			}
		case "tools/list":
			result = map[string]any{
				"tools": []map[string]any{
					{
						"name":        "search_docs",
						"description": "Search documentation",
						"inputSchema": map[string]any{
							"type":       "object",
							"properties": map[string]any{"query": map[string]any{"type": "string"}},
						},
					},
				},
			}
		case "tools/call":
			result = map[string]any{
				"isError": false,
				"content": []map[string]any{{"type": "text", "text": "found 3 matches"}},
			}
		default:
			http.Error(w, "unknown method", http.StatusBadRequest)
			return
		}

		resultJSON, err := json.Marshal(result)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: resultJSON})
	}))
}

func TestSSEClientFullLifecycle(t *testing.T) {
	server := newFakeMCPServer(t, "", "")
	defer server.Close()

	cfg := NewRemoteServerConfig("fake", server.URL)
	ctx := context.Background()

	client, err := Connect(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, client.IsRemote())

	initResult, err := client.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fake-server", initResult.ServerInfo.Name)

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "search_docs", tools[0].Name)

	text, isError, err := client.CallTool(ctx, "search_docs", map[string]any{"query": "foo"})
	require.NoError(t, err)
	assert.False(t, isError)
	assert.Equal(t, "found 3 matches", text)

	require.NoError(t, client.Shutdown(ctx))
}

func TestSSEClientSendsAuthHeader(t *testing.T) {
	server := newFakeMCPServer(t, "Authorization", "Bearer my-secret")
	defer server.Close()

	cfg := NewRemoteServerConfig("fake", server.URL)
	cfg.Auth = &AuthConfig{Type: "bearer", Token: "my-secret"}

	ctx := context.Background()
	client, err := Connect(ctx, cfg)
	require.NoError(t, err)

	_, err = client.Initialize(ctx)
	require.NoError(t, err)
}

func TestListToolsBeforeInitializeErrors(t *testing.T) {
	server := newFakeMCPServer(t, "", "")
	defer server.Close()

	cfg := NewRemoteServerConfig("fake", server.URL)
	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)

	_, err = client.ListTools(context.Background())
	assert.Error(t, err)
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	_, err := Connect(context.Background(), ServerConfig{ID: "bad"})
	assert.Error(t, err)
}
