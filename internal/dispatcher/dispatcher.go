// Package dispatcher implements the Tool Dispatcher: it partitions a
// turn's ToolUse blocks into in-process meta-tools and Tool Registry
// calls, sequences execution, gates destructive calls behind an
// ApprovalPolicy, forwards ToolStart/ToolDone framing onto the event
// channel, and assembles the resulting Tool-role turn.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/locuscode/locus/internal/event"
	"github.com/locuscode/locus/internal/memory"
	"github.com/locuscode/locus/internal/memory/graphstore"
	"github.com/locuscode/locus/internal/session"
	"github.com/locuscode/locus/internal/tool"
)

// TaskRunner spawns the "task" meta-tool's sub-agent and returns its
// final assistant text (or an error). It is injected rather than called
// directly against internal/agent to avoid a dispatcher↔agent import
// cycle — the agent package wires it in at construction, mirroring the
// llm package's RegisterFactory seam.
type TaskRunner func(ctx context.Context, prompt, description string) (string, error)

// DefaultMaxParallelTasks bounds how many concurrent "task" sub-agents
// one Dispatch call will run, the implementation-chosen bound spec §4.4
// permits.
const DefaultMaxParallelTasks = 4

// Dispatcher holds the collaborators one Dispatch call needs: the Tool
// Registry for non-meta calls, the Memory Client for the store_* hooks,
// an ApprovalPolicy for confirmation gating, and an optional TaskRunner.
type Dispatcher struct {
	registry *tool.Registry
	memory   *memory.Client
	approval ApprovalPolicy
	runTask  TaskRunner

	maxParallelTasks int
}

// New constructs a Dispatcher. approval may be nil, defaulting to
// AutoApproveWithWarning. runTask may be nil; "task" calls then fail
// with a structured error until SetTaskRunner is called.
func New(registry *tool.Registry, mem *memory.Client, approval ApprovalPolicy) *Dispatcher {
	if approval == nil {
		approval = AutoApproveWithWarning{}
	}
	return &Dispatcher{
		registry:         registry,
		memory:           mem,
		approval:         approval,
		maxParallelTasks: DefaultMaxParallelTasks,
	}
}

// SetTaskRunner wires the "task" meta-tool's sub-agent spawner. Called by
// internal/agent once the Runtime that will own sub-agents exists.
func (d *Dispatcher) SetTaskRunner(fn TaskRunner) { d.runTask = fn }

// trySend is a non-blocking send: a full event channel degrades by
// dropping the event rather than stalling tool execution (spec §5
// backpressure rule).
func trySend(events chan<- event.Event, ev event.Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

// Dispatch executes every tool call in tools and returns one Tool-role
// turn whose ToolResult blocks are in the calls' original order,
// regardless of which phase actually executed each one.
//
// Non-meta and tool_search/tool_explain calls run sequentially, in
// order; task calls are collected and run in a bounded-parallel phase
// after the sequential pass completes.
func (d *Dispatcher) Dispatch(ctx context.Context, tools []session.ToolUse, events chan<- event.Event) session.Turn {
	results := make(map[string]session.ToolResult, len(tools))

	var taskCalls []session.ToolUse
	for _, tu := range tools {
		if tu.Name == "task" {
			taskCalls = append(taskCalls, tu)
			continue
		}
		results[tu.ID] = d.dispatchOne(ctx, tu, events)
	}

	if len(taskCalls) > 0 {
		for id, result := range d.dispatchTasks(ctx, taskCalls, events) {
			results[id] = result
		}
	}

	turn := session.NewTurn(session.RoleTool)
	for _, tu := range tools {
		turn = turn.WithBlock(session.ToolResultBlock(results[tu.ID]))
	}
	return turn
}

// dispatchOne routes a single non-task call to a meta-tool handler or
// the registry, never letting a panic reach the caller — a tool failure
// becomes a structured error result.
func (d *Dispatcher) dispatchOne(ctx context.Context, tu session.ToolUse, events chan<- event.Event) (result session.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(tu.ID, fmt.Sprintf("tool panicked: %v", r), 0)
		}
	}()

	switch tu.Name {
	case "tool_search":
		return d.handleToolSearch(ctx, tu, events)
	case "tool_explain":
		return d.handleToolExplain(ctx, tu, events)
	default:
		return d.handleRegistryTool(ctx, tu, events)
	}
}

// isFileEditTool reports whether name is one of the built-in tools that
// mutate file content, the set store_file_edit should fire for.
func isFileEditTool(name string) bool {
	switch name {
	case "edit_file", "multi_edit_file", "create_file", "undo_edit", "delete_file":
		return true
	default:
		return false
	}
}

func (d *Dispatcher) handleRegistryTool(ctx context.Context, tu session.ToolUse, events chan<- event.Event) session.ToolResult {
	if requiresConfirmation(tu) {
		trySend(events, event.Confirmation(tu))
		if !d.approval.Approve(ctx, tu) {
			result := errorResult(tu.ID, "tool call rejected by approval policy", 0)
			if d.memory != nil {
				d.memory.StoreError("tool_"+tu.Name, string(result.Output), nil, graphstore.EventLinks{})
			}
			return result
		}
	}

	trySend(events, event.ToolStart(tu))

	var args map[string]any
	if err := json.Unmarshal(tu.Args, &args); err != nil {
		args = map[string]any{}
	}

	start := time.Now()
	res, err := d.registry.Call(ctx, tu.Name, args)
	duration := time.Since(start)

	var result session.ToolResult
	if err != nil {
		result = errorResult(tu.ID, err.Error(), duration.Milliseconds())
		if d.memory != nil {
			path := firstNonEmpty(stringArg(tu.Args, "path"), stringArg(tu.Args, "file_path"))
			var pathPtr *string
			if path != "" {
				pathPtr = &path
			}
			d.memory.StoreError("tool_"+tu.Name, err.Error(), pathPtr, graphstore.EventLinks{})
		}
	} else {
		result = session.ToolResult{ToolUseID: tu.ID, Output: res.Output, Duration: duration.Milliseconds(), IsError: res.IsError}
	}

	if d.memory != nil {
		d.memory.StoreToolRun(tu.Name, json.RawMessage(tu.Args), result.Output, duration.Milliseconds(), result.IsError, graphstore.EventLinks{})
		if !result.IsError {
			d.memory.StoreToolUsage(tu.Name, "", true, duration.Milliseconds(), graphstore.EventLinks{})
		}
	}

	trySend(events, event.ToolDone(tu, result))

	if isFileEditTool(tu.Name) && d.memory != nil {
		path := firstNonEmpty(stringArg(tu.Args, "path"), stringArg(tu.Args, "file_path"))
		if path != "" {
			summary := fmt.Sprintf("%s on %s", tu.Name, path)
			d.memory.StoreFileEdit(path, summary, nil, graphstore.EventLinks{})
		}
	}

	return result
}

func errorResult(toolUseID, message string, durationMS int64) session.ToolResult {
	out, _ := json.Marshal(map[string]string{"error": message})
	return session.ToolResult{ToolUseID: toolUseID, Output: out, Duration: durationMS, IsError: true}
}
