// Package openai implements the LLM Provider contract against the
// OpenAI Chat Completions API (and any OpenAI-compatible endpoint, by
// overriding BaseURL — Ollama and most local servers speak this wire
// format too).
package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/locuscode/locus/internal/llm"
)

// chatCompletionsPath is relative to Provider.BaseURL.
const chatCompletionsPath = "/chat/completions"

const defaultBaseURL = "https://api.openai.com/v1"

// Provider calls an OpenAI-compatible /chat/completions endpoint.
type Provider struct {
	APIKey  string
	BaseURL string
}

// New creates a provider. baseURL may be "" to use the public OpenAI API.
func New(apiKey, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (p *Provider) Name() string { return "openai" }

func init() {
	llm.RegisterFactory("openai", func(cfg llm.ProviderConfig) llm.Provider {
		return New(cfg.APIKey, cfg.BaseURL)
	})
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.APIKey}
}

// --- wire types ---

type wireFunction struct {
	Name       string          `json:"name"`
	Arguments  string          `json:"arguments,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

type wireToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function wireFunction `json:"function"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *wireImageURL   `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireMessage struct {
	Role       string            `json:"role"`
	Content    any               `json:"content,omitempty"`
	ToolCalls  []wireToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireStreamDelta struct {
	Content   string         `json:"content,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireStreamChoice struct {
	Delta        wireStreamDelta `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
}

type wireStreamChunk struct {
	ID      string             `json:"id"`
	Choices []wireStreamChoice `json:"choices"`
	Usage   *wireUsage         `json:"usage"`
}

// --- request translation ---

func toWireMessages(msgs []llm.Message) []wireMessage {
	var out []wireMessage
	for _, m := range msgs {
		role := string(m.Role)
		var toolCalls []wireToolCall
		var content []wireContentPart
		var plainText strings.Builder
		var toolResultForID string
		var toolResultContent string

		for _, part := range m.Parts {
			switch part.Kind {
			case llm.PartText:
				plainText.WriteString(part.Text)
				content = append(content, wireContentPart{Type: "text", Text: part.Text})
			case llm.PartImage:
				content = append(content, wireContentPart{Type: "image_url", ImageURL: &wireImageURL{URL: part.ImageURL}})
			case llm.PartToolCall:
				toolCalls = append(toolCalls, wireToolCall{
					ID: part.ToolCall.ID, Type: "function",
					Function: wireFunction{Name: part.ToolCall.Name, Arguments: string(part.ToolCall.Args)},
				})
			case llm.PartToolResult:
				toolResultForID = part.ToolResult.ToolUseID
				toolResultContent = string(part.ToolResult.Content)
			}
		}

		if toolResultForID != "" {
			out = append(out, wireMessage{Role: "tool", Content: toolResultContent, ToolCallID: toolResultForID})
			continue
		}

		wm := wireMessage{Role: role, ToolCalls: toolCalls}
		if len(content) == 1 && content[0].Type == "text" {
			wm.Content = plainText.String()
		} else if len(content) > 0 {
			wm.Content = content
		} else if len(toolCalls) == 0 {
			wm.Content = ""
		}
		out = append(out, wm)
	}
	return out
}

func toWireTools(tools []llm.ToolSpec) []wireTool {
	var out []wireTool
	for _, t := range tools {
		schema, _ := json.Marshal(t.Schema)
		out = append(out, wireTool{Type: "function", Function: wireFunction{
			Name: t.Name, Description: t.Description, Parameters: schema,
		}})
	}
	return out
}

func toWireToolChoice(tc llm.ToolChoice) any {
	switch tc.Kind {
	case llm.ToolChoiceNone:
		return "none"
	case llm.ToolChoiceRequired:
		if tc.Name != "" {
			return map[string]any{"type": "function", "function": map[string]string{"name": tc.Name}}
		}
		return "required"
	default:
		return nil
	}
}

func toWireRequest(req llm.Request, stream bool) wireRequest {
	return wireRequest{
		Model:       req.Model,
		Messages:    toWireMessages(req.Messages),
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		MaxTokens:   req.Options.MaxTokens,
		Stop:        req.Options.StopSequences,
		Tools:       toWireTools(req.Options.Tools),
		ToolChoice:  toWireToolChoice(req.Options.ToolChoice),
		Stream:      stream,
	}
}

func finishReason(raw string) (llm.FinishReason, string) {
	switch raw {
	case "stop":
		return llm.FinishStop, ""
	case "length":
		return llm.FinishLength, ""
	case "tool_calls":
		return llm.FinishToolCalls, ""
	case "content_filter":
		return llm.FinishContentFilter, ""
	default:
		return llm.FinishOther, raw
	}
}

func toUsage(u wireUsage) llm.Usage {
	return llm.Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

// --- Provider methods ---

func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body := toWireRequest(req, false)
	resp, err := llm.PostJSON(ctx, p.BaseURL+chatCompletionsPath, body, p.headers())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(wr.Choices) == 0 {
		return nil, fmt.Errorf("openai response had no choices")
	}
	choice := wr.Choices[0]
	reason, raw := finishReason(choice.FinishReason)

	var calls []llm.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: json.RawMessage(tc.Function.Arguments)})
	}

	text, _ := choice.Message.Content.(string)
	return &llm.Response{
		Text: text, ToolCalls: calls, Usage: toUsage(wr.Usage),
		FinishReason: reason, RawOther: raw,
	}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	body := toWireRequest(req, true)
	resp, err := llm.PostJSON(ctx, p.BaseURL+chatCompletionsPath, body, p.headers())
	if err != nil {
		return nil, err
	}

	events := make(chan llm.StreamEvent, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		started := false
		type toolBuf struct {
			name string
			args strings.Builder
		}
		byIndex := map[int]string{} // index -> id, first time an id is seen for that index
		bufs := map[string]*toolBuf{}
		var order []string

		emitStart := func(id string) {
			if !started {
				started = true
				events <- llm.StreamEvent{Kind: llm.EventStart, ID: id}
			}
		}

		scanErr := llm.ScanSSE(scanner, func(data string) bool {
			if data == "[DONE]" {
				return true
			}

			var chunk wireStreamChunk
			if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr != nil {
				return false
			}
			emitStart(chunk.ID)

			if len(chunk.Choices) == 0 {
				return false
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				events <- llm.StreamEvent{Kind: llm.EventTextDelta, ID: chunk.ID, Text: choice.Delta.Content}
			}

			for _, tc := range choice.Delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				id, known := byIndex[idx]
				if !known {
					id = tc.ID
					byIndex[idx] = id
					bufs[id] = &toolBuf{name: tc.Function.Name}
					order = append(order, id)
					events <- llm.StreamEvent{Kind: llm.EventToolCallStart, ID: id, ToolName: tc.Function.Name}
				}
				if tc.Function.Arguments != "" {
					bufs[id].args.WriteString(tc.Function.Arguments)
					events <- llm.StreamEvent{Kind: llm.EventToolCallDelta, ID: id, Text: tc.Function.Arguments}
				}
			}

			if choice.FinishReason != nil {
				for _, id := range order {
					b := bufs[id]
					events <- llm.StreamEvent{Kind: llm.EventToolCallEnd, ID: id, ToolName: b.name, ToolArgs: json.RawMessage(b.args.String())}
				}
				reason, raw := finishReason(*choice.FinishReason)
				var usage llm.Usage
				if chunk.Usage != nil {
					usage = toUsage(*chunk.Usage)
				}
				events <- llm.StreamEvent{Kind: llm.EventFinish, Finish: reason, RawFinish: raw, Usage: usage}
				return true
			}
			return false
		})
		if scanErr != nil {
			events <- llm.StreamEvent{Kind: llm.EventError, Err: scanErr}
		}
	}()

	return events, nil
}
