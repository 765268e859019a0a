package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// sseResponseTimeout bounds how long we wait for a remote server's SSE
// stream to yield a complete JSON-RPC response to a single request.
const sseResponseTimeout = 5 * time.Minute

// sseTransport speaks JSON-RPC 2.0 to a remote MCP server over plain
// HTTP POST, reading either a direct JSON body or a `text/event-stream`
// response for the same request/response pair. There is no streaming
// push channel here — every MCP method is a single request/response
// round trip, matching the protocol's request-scoped semantics.
type sseTransport struct {
	url        string
	headerName string
	headerVal  string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
	nextID    int
}

func newSSETransport(cfg ServerConfig) (*sseTransport, error) {
	t := &sseTransport{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.Auth != nil {
		name := cfg.Auth.HeaderName()
		value, err := cfg.Auth.HeaderValue()
		if err != nil {
			return nil, err
		}
		t.headerName, t.headerVal = name, value
	}
	return t, nil
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *sseTransport) initialize(ctx context.Context) (*mcp.InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      clientInfo,
		"capabilities":    map[string]any{},
	}
	resp, err := t.call(ctx, "initialize", params)
	if err != nil {
		return nil, err
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode initialize result: %w", err)
	}
	return &result, nil
}

func (t *sseTransport) listTools(ctx context.Context) ([]Tool, error) {
	resp, err := t.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &parsed); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}

	out := make([]Tool, 0, len(parsed.Tools))
	for _, pt := range parsed.Tools {
		out = append(out, Tool{Name: pt.Name, Description: pt.Description, InputSchema: pt.InputSchema})
	}
	return out, nil
}

func (t *sseTransport) callTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	resp, err := t.call(ctx, "tools/call", map[string]any{"name": name, "arguments": args})
	if err != nil {
		return "", false, err
	}

	var parsed struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp.Result, &parsed); err != nil {
		return "", false, fmt.Errorf("decode tools/call result: %w", err)
	}

	var texts []string
	for _, c := range parsed.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n"), parsed.IsError, nil
}

func (t *sseTransport) call(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.mu.Unlock()

	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if t.headerName != "" {
		req.Header.Set(t.headerName, t.headerVal)
	}

	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID != "" {
		req.Header.Set("mcp-session-id", sessionID)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if newSessionID := resp.Header.Get("mcp-session-id"); newSessionID != "" {
		t.mu.Lock()
		t.sessionID = newSessionID
		t.mu.Unlock()
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var rpcResp *jsonRPCResponse
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		rpcResp, err = readSSEResponse(resp.Body)
	} else {
		var data []byte
		data, err = io.ReadAll(resp.Body)
		if err == nil {
			rpcResp = &jsonRPCResponse{}
			err = json.Unmarshal(data, rpcResp)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	return rpcResp, nil
}

// readSSEResponse reads a single complete JSON-RPC message out of an
// SSE body: a run of `data:` lines terminated by a blank line.
func readSSEResponse(body io.Reader) (*jsonRPCResponse, error) {
	reader := bufio.NewReader(body)
	var data strings.Builder

	deadline := time.Now().Add(sseResponseTimeout)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")))
		case trimmed == "" && data.Len() > 0:
			var resp jsonRPCResponse
			if jsonErr := json.Unmarshal([]byte(data.String()), &resp); jsonErr == nil {
				return &resp, nil
			}
			data.Reset()
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	if data.Len() > 0 {
		var resp jsonRPCResponse
		if jsonErr := json.Unmarshal([]byte(data.String()), &resp); jsonErr == nil {
			return &resp, nil
		}
	}
	return nil, fmt.Errorf("sse stream ended without a complete response")
}
