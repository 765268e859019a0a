// Package llm defines the abstract LLM Provider contract — a one-shot
// Generate and a streaming Stream operation — and the wire-agnostic
// request/response/event types concrete providers translate to and from
// their own JSON.
package llm

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartKind discriminates a Message's content parts.
type PartKind string

const (
	PartText       PartKind = "text"
	PartImage      PartKind = "image"
	PartToolCall   PartKind = "tool_call"
	PartToolResult PartKind = "tool_result"
)

// ToolCall is a provider-emitted tool invocation request: an opaque
// per-response-unique id, a tool name, and JSON-encoded arguments.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResultPart answers a prior ToolCall by id with JSON content.
type ToolResultPart struct {
	ToolUseID string
	Content   json.RawMessage
}

// Part is one content fragment of a Message. Exactly one typed field is
// meaningful, selected by Kind.
type Part struct {
	Kind       PartKind
	Text       string
	ImageURL   string
	ToolCall   *ToolCall
	ToolResult *ToolResultPart
}

func TextPart(text string) Part { return Part{Kind: PartText, Text: text} }
func ImagePart(url string) Part { return Part{Kind: PartImage, ImageURL: url} }
func ToolCallPart(tc ToolCall) Part { return Part{Kind: PartToolCall, ToolCall: &tc} }
func ToolResultPartOf(tr ToolResultPart) Part { return Part{Kind: PartToolResult, ToolResult: &tr} }

// Message is one role-tagged, content-parted turn in a request.
type Message struct {
	Role  Role
	Parts []Part
}

// ToolChoiceKind selects how strongly a request steers tool use.
type ToolChoiceKind string

const (
	ToolChoiceAuto     ToolChoiceKind = "auto"
	ToolChoiceNone     ToolChoiceKind = "none"
	ToolChoiceRequired ToolChoiceKind = "required"
)

// ToolChoice is the tool-selection policy for a request.
type ToolChoice struct {
	Kind ToolChoiceKind
	Name string // meaningful only when Kind == ToolChoiceRequired
}

// ToolSpec is the (name, description, JSON-schema) triple a request
// offers the model for tool-calling.
type ToolSpec struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// Options carries generation parameters common across providers.
type Options struct {
	Temperature   float64
	TopP          float64
	MaxTokens     int
	StopSequences []string
	Tools         []ToolSpec
	ToolChoice    ToolChoice
	// ProviderOptions carries provider-specific extensions (e.g. a
	// reasoning-effort knob) a concrete provider may inspect by its own key.
	ProviderOptions map[string]any
}

// Request is one Generate or Stream call's full input.
type Request struct {
	Model    string
	Messages []Message
	Options  Options
}

// FinishReason normalises every provider's stop signal to one of a fixed
// set, preserving the provider's raw string under Other when it doesn't
// map cleanly.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls      FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther         FinishReason = "other"
)

// Usage is normalised token accounting for one generation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CacheReadTokens  int
	CacheWriteTokens int
	ReasoningTokens  int
}

// Response is the one-shot Generate result.
type Response struct {
	Text         string
	Reasoning    string
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason FinishReason
	RawOther     string // raw provider finish-reason string when FinishReason == FinishOther
}

// EventKind discriminates a streamed generation event.
type EventKind string

const (
	EventStart          EventKind = "start"
	EventTextDelta       EventKind = "text_delta"
	EventReasoningDelta EventKind = "reasoning_delta"
	EventToolCallStart  EventKind = "tool_call_start"
	EventToolCallDelta  EventKind = "tool_call_delta"
	EventToolCallEnd    EventKind = "tool_call_end"
	EventFinish         EventKind = "finish"
	EventError          EventKind = "error"
)

// StreamEvent is one unit in a provider's streaming event sequence.
// ToolCallStart(id) always precedes any ToolCallDelta(id)/ToolCallEnd(id)
// for that id; exactly one Finish terminates a non-errored stream.
type StreamEvent struct {
	Kind      EventKind
	ID        string // generation id (Start) or tool-call id (ToolCall*)
	Text      string // TextDelta/ReasoningDelta/ToolCallDelta payload
	ToolName  string // ToolCallStart/ToolCallEnd
	ToolArgs  json.RawMessage // ToolCallEnd: authoritative full arguments
	Usage     Usage           // Finish
	Finish    FinishReason    // Finish
	RawFinish string          // Finish: raw provider string when Finish == FinishOther
	Err       error           // Error
}

// Provider is the abstract LLM collaborator the agent orchestrator
// consumes. Concrete providers are external collaborators (spec §6) that
// must honor the streaming event ordering contract above.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}
