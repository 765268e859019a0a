// Package stream implements the Streaming Response Handler: it drives a
// provider's event channel and materialises exactly one assistant Turn
// (plus the tool calls it requested) from the accumulated deltas.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/session"
)

// ErrCancelled is returned by Drive when the context is cancelled before
// the stream finishes; no partial state is appended to the session.
var ErrCancelled = errors.New("stream: cancelled before finish")

// toolEntry is one buffered tool call under construction.
type toolEntry struct {
	name string
	args string // raw argument text, authoritative once set by ToolCallEnd
}

// Accumulator is the state machine spec §4.5 names: a text buffer, a
// reasoning buffer, an insertion-ordered map of tool-call entries, and
// the captured usage/finish-reason. It is not safe for concurrent use —
// one Accumulator drives exactly one stream.
type Accumulator struct {
	genID string

	text      string
	reasoning string

	order   []string
	entries map[string]*toolEntry

	usage        llm.Usage
	finishReason llm.FinishReason
	finishRaw    string
	finished     bool
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{entries: make(map[string]*toolEntry)}
}

// Apply folds one stream event into the accumulator's state. Events
// after Finish are ignored (a Debug log records the anomaly rather than
// erroring — some providers emit one Finish per choice when the caller
// only asked for one).
func (a *Accumulator) Apply(ev llm.StreamEvent) {
	if a.finished && ev.Kind != llm.EventError {
		slog.Debug("stream: ignoring event received after finish", "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case llm.EventStart:
		a.genID = ev.ID

	case llm.EventTextDelta:
		a.text += ev.Text

	case llm.EventReasoningDelta:
		a.reasoning += ev.Text

	case llm.EventToolCallStart:
		if _, exists := a.entries[ev.ID]; !exists {
			a.entries[ev.ID] = &toolEntry{name: ev.ToolName}
			a.order = append(a.order, ev.ID)
		}

	case llm.EventToolCallDelta:
		entry, ok := a.entries[ev.ID]
		if !ok {
			// Out-of-order provider: reconcile by creating the entry now.
			entry = &toolEntry{}
			a.entries[ev.ID] = entry
			a.order = append(a.order, ev.ID)
		}
		entry.args += ev.Text

	case llm.EventToolCallEnd:
		entry, ok := a.entries[ev.ID]
		if !ok {
			entry = &toolEntry{}
			a.entries[ev.ID] = entry
			a.order = append(a.order, ev.ID)
		}
		if ev.ToolName != "" {
			entry.name = ev.ToolName
		}
		// Authoritative only when the provider actually supplies full
		// arguments here; providers that only ever stream incremental
		// deltas (no end-of-call payload) must not have their
		// already-accumulated buffer erased by an empty overwrite.
		if len(ev.ToolArgs) > 0 {
			entry.args = string(ev.ToolArgs)
		}

	case llm.EventFinish:
		a.usage = ev.Usage
		a.finishReason = ev.Finish
		a.finishRaw = ev.RawFinish
		a.finished = true
	}
}

// Finished reports whether a Finish event has been applied.
func (a *Accumulator) Finished() bool { return a.finished }

// FinishReason returns the captured finish reason (meaningless before
// Finished()).
func (a *Accumulator) FinishReason() (llm.FinishReason, string) { return a.finishReason, a.finishRaw }

// Usage returns the captured token usage (meaningless before Finished()).
func (a *Accumulator) Usage() llm.Usage { return a.usage }

// rawArgsKey and parseErrorKey are the reserved keys a malformed tool-call
// argument buffer is wrapped under, rather than being discarded.
const (
	rawArgsKey   = "__raw_arguments"
	parseErrorKey = "__parse_error"
)

// Turn materialises the accumulated state into one assistant Turn, block
// order: Thinking (if any reasoning), Text (if any), then one ToolUse
// per tool-call entry in first-seen order. Call only after Finished().
func (a *Accumulator) Turn() session.Turn {
	turn := session.NewTurn(session.RoleAssistant)

	if a.reasoning != "" {
		turn = turn.WithBlock(session.ThinkingBlock(a.reasoning))
	}
	if a.text != "" {
		turn = turn.WithBlock(session.TextBlock(a.text))
	}
	for _, id := range a.order {
		entry := a.entries[id]
		turn = turn.WithBlock(session.ToolUseBlock(session.ToolUse{
			ID: id, Name: entry.name, Args: parseToolArgs(entry.args),
		}))
	}

	turn = turn.WithUsage(session.Usage{PromptTokens: a.usage.PromptTokens, CompletionTokens: a.usage.CompletionTokens})
	return turn
}

// parseToolArgs validates the buffered argument text as JSON. On parse
// failure it preserves the raw string under a reserved key rather than
// discarding it, so a malformed tool call still surfaces to the caller.
func parseToolArgs(raw string) json.RawMessage {
	if raw == "" {
		raw = "{}"
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	wrapped, err := json.Marshal(map[string]string{rawArgsKey: raw, parseErrorKey: "argument buffer was not valid JSON"})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return wrapped
}

// ToolUses extracts the ToolUse payloads in first-seen order, the set
// the orchestrator passes to the dispatcher when the turn has tool calls.
func (a *Accumulator) ToolUses() []session.ToolUse {
	out := make([]session.ToolUse, 0, len(a.order))
	for _, id := range a.order {
		entry := a.entries[id]
		out = append(out, session.ToolUse{ID: id, Name: entry.name, Args: parseToolArgs(entry.args)})
	}
	return out
}

// Drive consumes events from ch until Finish, Error, or ctx cancellation.
// It checks ctx before processing each event, giving cancellation
// priority over an already-buffered event: on cancellation it abandons
// the stream and returns ErrCancelled without appending partial state —
// the caller must discard the accumulator.
func Drive(ctx context.Context, ch <-chan llm.StreamEvent, onDelta func(llm.StreamEvent)) (*Accumulator, error) {
	acc := New()
	for {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
		}

		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		case ev, ok := <-ch:
			if !ok {
				if !acc.Finished() {
					return nil, fmt.Errorf("stream: channel closed before Finish")
				}
				return acc, nil
			}
			if ev.Kind == llm.EventError {
				return nil, fmt.Errorf("stream: provider error: %w", ev.Err)
			}
			acc.Apply(ev)
			if onDelta != nil && (ev.Kind == llm.EventTextDelta || ev.Kind == llm.EventReasoningDelta) {
				onDelta(ev)
			}
			if ev.Kind == llm.EventFinish {
				return acc, nil
			}
		}
	}
}
