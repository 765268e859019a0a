// Package event defines the outbound Event stream the orchestrator, the
// streaming handler, and the dispatcher all write to, and a TUI or
// logging sink reads from. It carries no behaviour of its own — it is
// the channel payload type shared across internal/agent,
// internal/stream, and internal/dispatcher to avoid an import cycle
// between them.
package event

import (
	"github.com/locuscode/locus/internal/session"
)

// Kind discriminates an Event's payload, mirroring the call sites
// original_source's runtime fires (SessionEvent::turn_start, ::tool_done,
// ::status, and so on).
type Kind string

const (
	KindTurnStart     Kind = "turn_start"
	KindTurnEnd       Kind = "turn_end"
	KindTextDelta     Kind = "text_delta"
	KindThinkingDelta Kind = "thinking_delta"
	KindToolStart     Kind = "tool_start"
	KindToolDone      Kind = "tool_done"
	KindConfirmation  Kind = "confirmation_required"
	KindStatus        Kind = "status"
	KindError         Kind = "error"
	KindSessionEnd    Kind = "session_end"
)

// Event is one entry on the outbound channel. Exactly the fields
// relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind Kind

	// KindTurnStart
	Role session.Role

	// KindTextDelta / KindThinkingDelta / KindStatus / KindError
	Text string

	// KindToolStart / KindToolDone / KindConfirmation
	ToolUse    *session.ToolUse
	ToolResult *session.ToolResult

	// KindSessionEnd
	Status        session.Status
	PromptTotal   int
	CompleteTotal int
}

// TurnStart reports the beginning of a new turn authored by role.
func TurnStart(role session.Role) Event { return Event{Kind: KindTurnStart, Role: role} }

// TurnEnd reports the end of the current turn.
func TurnEnd() Event { return Event{Kind: KindTurnEnd} }

// TextDelta forwards one streamed text fragment.
func TextDelta(text string) Event { return Event{Kind: KindTextDelta, Text: text} }

// ThinkingDelta forwards one streamed reasoning fragment.
func ThinkingDelta(text string) Event { return Event{Kind: KindThinkingDelta, Text: text} }

// ToolStart reports that tu is about to be dispatched.
func ToolStart(tu session.ToolUse) Event { return Event{Kind: KindToolStart, ToolUse: &tu} }

// ToolDone reports tu's result once dispatch completes.
func ToolDone(tu session.ToolUse, result session.ToolResult) Event {
	return Event{Kind: KindToolDone, ToolUse: &tu, ToolResult: &result}
}

// Confirmation reports that tu was classified destructive and is
// awaiting (or was auto-granted) approval before dispatch.
func Confirmation(tu session.ToolUse) Event { return Event{Kind: KindConfirmation, ToolUse: &tu} }

// Status reports a human-readable progress message with no structural
// meaning (e.g. "Session started", "Context near limit, compressing...").
func Status(text string) Event { return Event{Kind: KindStatus, Text: text} }

// Error reports a fault as a single human-readable message. Runtime.Run
// emits it when a run fails, followed by a SessionEnd with Failed status.
func Error(message string) Event { return Event{Kind: KindError, Text: message} }

// SessionEnd reports the terminal status and cumulative token totals for
// the session.
func SessionEnd(status session.Status, promptTotal, completeTotal int) Event {
	return Event{Kind: KindSessionEnd, Status: status, PromptTotal: promptTotal, CompleteTotal: completeTotal}
}

// Capacity is the outbound channel's default buffer depth. Senders that
// find it full must degrade gracefully (drop non-essential status
// events via a non-blocking select) rather than block tool execution.
const Capacity = 100
