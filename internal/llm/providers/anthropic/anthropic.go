// Package anthropic implements the LLM Provider contract against the
// Anthropic Messages API.
package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/locuscode/locus/internal/llm"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	messagesPath     = "/messages"
)

// Provider calls the Anthropic Messages API.
type Provider struct {
	APIKey  string
	BaseURL string
}

// New creates a provider. baseURL may be "" to use the public Anthropic API.
func New(apiKey, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (p *Provider) Name() string { return "anthropic" }

func init() {
	llm.RegisterFactory("anthropic", func(cfg llm.ProviderConfig) llm.Provider {
		return New(cfg.APIKey, cfg.BaseURL)
	})
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"x-api-key": p.APIKey, "anthropic-version": anthropicVersion}
}

// --- wire types ---

type wireImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	URL       string `json:"url,omitempty"`
}

type wireContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *wireImageSource `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type wireMessage struct {
	Role    string             `json:"role"`
	Content []wireContentBlock `json:"content"`
}

type wireToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	StopSequences []string    `json:"stop_sequences,omitempty"`
	Tools       []wireToolDef `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

type wireResponse struct {
	Content    []wireContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      wireUsage          `json:"usage"`
}

// Streaming events per Anthropic's SSE protocol.
type wireStreamEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	Message      *struct {
		Usage wireUsage `json:"usage"`
	} `json:"message,omitempty"`
	ContentBlock *wireContentBlock `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *wireUsage `json:"usage,omitempty"`
}

// --- translation ---

func toWireMaxTokens(opts llm.Options) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return 4096
}

func toWireMessages(msgs []llm.Message) (system string, out []wireMessage) {
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			for _, part := range m.Parts {
				if part.Kind == llm.PartText {
					system += part.Text
				}
			}
			continue
		}

		var blocks []wireContentBlock
		for _, part := range m.Parts {
			switch part.Kind {
			case llm.PartText:
				blocks = append(blocks, wireContentBlock{Type: "text", Text: part.Text})
			case llm.PartImage:
				blocks = append(blocks, wireContentBlock{Type: "image", Source: &wireImageSource{Type: "url", URL: part.ImageURL}})
			case llm.PartToolCall:
				blocks = append(blocks, wireContentBlock{
					Type: "tool_use", ID: part.ToolCall.ID, Name: part.ToolCall.Name, Input: part.ToolCall.Args,
				})
			case llm.PartToolResult:
				blocks = append(blocks, wireContentBlock{
					Type: "tool_result", ToolUseID: part.ToolResult.ToolUseID, Content: string(part.ToolResult.Content),
				})
			}
		}

		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "assistant"
		}
		out = append(out, wireMessage{Role: role, Content: blocks})
	}
	return system, out
}

func toWireTools(tools []llm.ToolSpec) []wireToolDef {
	var out []wireToolDef
	for _, t := range tools {
		schema, _ := json.Marshal(t.Schema)
		out = append(out, wireToolDef{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out
}

func toWireToolChoice(tc llm.ToolChoice) any {
	switch tc.Kind {
	case llm.ToolChoiceNone:
		return map[string]string{"type": "none"}
	case llm.ToolChoiceRequired:
		if tc.Name != "" {
			return map[string]string{"type": "tool", "name": tc.Name}
		}
		return map[string]string{"type": "any"}
	default:
		return nil
	}
}

func toWireRequest(req llm.Request, stream bool) wireRequest {
	system, messages := toWireMessages(req.Messages)
	return wireRequest{
		Model: req.Model, System: system, Messages: messages,
		Temperature: req.Options.Temperature, TopP: req.Options.TopP,
		MaxTokens: toWireMaxTokens(req.Options), StopSequences: req.Options.StopSequences,
		Tools: toWireTools(req.Options.Tools), ToolChoice: toWireToolChoice(req.Options.ToolChoice),
		Stream: stream,
	}
}

func finishReason(raw string) (llm.FinishReason, string) {
	switch raw {
	case "end_turn", "stop_sequence":
		return llm.FinishStop, ""
	case "max_tokens":
		return llm.FinishLength, ""
	case "tool_use":
		return llm.FinishToolCalls, ""
	default:
		return llm.FinishOther, raw
	}
}

func toUsage(u wireUsage) llm.Usage {
	return llm.Usage{
		PromptTokens: u.InputTokens, CompletionTokens: u.OutputTokens,
		TotalTokens: u.InputTokens + u.OutputTokens,
		CacheReadTokens: u.CacheReadInputTokens, CacheWriteTokens: u.CacheCreationInputTokens,
	}
}

// --- Provider methods ---

func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body := toWireRequest(req, false)
	resp, err := llm.PostJSON(ctx, p.BaseURL+messagesPath, body, p.headers())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}

	var text string
	var calls []llm.ToolCall
	for _, block := range wr.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			calls = append(calls, llm.ToolCall{ID: block.ID, Name: block.Name, Args: block.Input})
		}
	}

	reason, raw := finishReason(wr.StopReason)
	return &llm.Response{Text: text, ToolCalls: calls, Usage: toUsage(wr.Usage), FinishReason: reason, RawOther: raw}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	body := toWireRequest(req, true)
	resp, err := llm.PostJSON(ctx, p.BaseURL+messagesPath, body, p.headers())
	if err != nil {
		return nil, err
	}

	events := make(chan llm.StreamEvent, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var usage llm.Usage
		blockIDs := map[int]string{}
		blockNames := map[int]string{}

		err := llm.ScanSSE(scanner, func(data string) bool {
			var ev wireStreamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return false
			}

			switch ev.Type {
			case "message_start":
				if ev.Message != nil {
					usage = toUsage(ev.Message.Usage)
				}
				events <- llm.StreamEvent{Kind: llm.EventStart}
			case "content_block_start":
				if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
					blockIDs[ev.Index] = ev.ContentBlock.ID
					blockNames[ev.Index] = ev.ContentBlock.Name
					events <- llm.StreamEvent{Kind: llm.EventToolCallStart, ID: ev.ContentBlock.ID, ToolName: ev.ContentBlock.Name}
				}
			case "content_block_delta":
				if ev.Delta == nil {
					return false
				}
				switch ev.Delta.Type {
				case "text_delta":
					events <- llm.StreamEvent{Kind: llm.EventTextDelta, Text: ev.Delta.Text}
				case "input_json_delta":
					id := blockIDs[ev.Index]
					events <- llm.StreamEvent{Kind: llm.EventToolCallDelta, ID: id, Text: ev.Delta.PartialJSON}
				}
			case "content_block_stop":
				if id, ok := blockIDs[ev.Index]; ok {
					events <- llm.StreamEvent{Kind: llm.EventToolCallEnd, ID: id, ToolName: blockNames[ev.Index]}
				}
			case "message_delta":
				if ev.Usage != nil {
					u := toUsage(*ev.Usage)
					usage.CompletionTokens = u.CompletionTokens
					usage.TotalTokens = usage.PromptTokens + u.CompletionTokens
				}
				if ev.Delta != nil && ev.Delta.StopReason != "" {
					reason, raw := finishReason(ev.Delta.StopReason)
					events <- llm.StreamEvent{Kind: llm.EventFinish, Finish: reason, RawFinish: raw, Usage: usage}
					return true
				}
			case "error":
				events <- llm.StreamEvent{Kind: llm.EventError, Err: fmt.Errorf("anthropic stream error")}
				return true
			}
			return false
		})
		if err != nil {
			events <- llm.StreamEvent{Kind: llm.EventError, Err: err}
		}
	}()

	return events, nil
}
