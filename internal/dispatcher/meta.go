package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/locuscode/locus/internal/event"
	"github.com/locuscode/locus/internal/memory/graphstore"
	"github.com/locuscode/locus/internal/session"
)

// defaultToolSearchMaxResults mirrors tool_handler.rs's max_results default
// when the "tool_search" caller omits it.
const defaultToolSearchMaxResults = 5

// handleToolSearch answers the tool_search meta-tool by querying the
// Memory Client scoped to fact-type contexts, mirroring
// tool_handler.rs's handle_tool_search. It never touches the Tool
// Registry.
func (d *Dispatcher) handleToolSearch(ctx context.Context, tu session.ToolUse, events chan<- event.Event) session.ToolResult {
	trySend(events, event.ToolStart(tu))
	start := time.Now()

	query := stringArg(tu.Args, "query")
	maxResults := intArg(tu.Args, "max_results", defaultToolSearchMaxResults)

	var result session.ToolResult
	if d.memory == nil {
		result = session.ToolResult{ToolUseID: tu.ID, Output: mustMarshal(map[string]any{
			"results": "", "items_found": 0,
		}), Duration: time.Since(start).Milliseconds()}
	} else {
		ctxResult := d.memory.RetrieveMemories(ctx, query, graphstore.RetrieveOptions{
			Limit:       maxResults,
			ContextType: graphstore.ContextTypeFilter{ContextType: "fact"},
		})
		result = session.ToolResult{
			ToolUseID: tu.ID,
			Output: mustMarshal(map[string]any{
				"results":     ctxResult.Memories,
				"items_found": ctxResult.ItemsFound,
			}),
			Duration: time.Since(start).Milliseconds(),
			IsError:  false,
		}
	}

	if d.memory != nil {
		d.memory.StoreToolRun("tool_search", json.RawMessage(tu.Args), result.Output, result.Duration, false, graphstore.EventLinks{})
		d.memory.StoreToolUsage("tool_search", query, true, result.Duration, graphstore.EventLinks{})
	}

	trySend(events, event.ToolDone(tu, result))
	return result
}

// handleToolExplain answers the tool_explain meta-tool by looking up a
// single registered tool's descriptor, mirroring tool_handler.rs's
// handle_tool_explain.
func (d *Dispatcher) handleToolExplain(ctx context.Context, tu session.ToolUse, events chan<- event.Event) session.ToolResult {
	trySend(events, event.ToolStart(tu))
	start := time.Now()

	toolID := stringArg(tu.Args, "tool_id")

	var payload map[string]any
	found := false
	for _, desc := range d.registry.Descriptors() {
		if desc.Name == toolID {
			payload = map[string]any{
				"tool_id":     desc.Name,
				"description": desc.Description,
				"parameters":  desc.Schema,
			}
			found = true
			break
		}
	}
	if !found {
		payload = map[string]any{"error": fmt.Sprintf("Tool %q not found", toolID)}
	}

	result := session.ToolResult{
		ToolUseID: tu.ID,
		Output:    mustMarshal(payload),
		Duration:  time.Since(start).Milliseconds(),
		IsError:   !found,
	}

	if d.memory != nil {
		d.memory.StoreToolRun("tool_explain", json.RawMessage(tu.Args), result.Output, result.Duration, !found, graphstore.EventLinks{})
		if found {
			d.memory.StoreToolUsage("tool_explain", toolID, true, result.Duration, graphstore.EventLinks{})
		}
	}

	trySend(events, event.ToolDone(tu, result))
	return result
}

// dispatchTasks runs every "task" meta-tool call through d.runTask,
// bounded to d.maxParallelTasks concurrent sub-agents (spec §4.4). A nil
// runTask fails every call with a structured error rather than panicking.
func (d *Dispatcher) dispatchTasks(ctx context.Context, calls []session.ToolUse, events chan<- event.Event) map[string]session.ToolResult {
	results := make(map[string]session.ToolResult, len(calls))
	resultsCh := make(chan struct {
		id     string
		result session.ToolResult
	}, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxParallelTasks)

	for _, tu := range calls {
		tu := tu
		g.Go(func() error {
			resultsCh <- struct {
				id     string
				result session.ToolResult
			}{tu.ID, d.runOneTask(gctx, tu, events)}
			return nil
		})
	}
	_ = g.Wait()
	close(resultsCh)

	for r := range resultsCh {
		results[r.id] = r.result
	}
	return results
}

func (d *Dispatcher) runOneTask(ctx context.Context, tu session.ToolUse, events chan<- event.Event) (result session.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(tu.ID, fmt.Sprintf("task panicked: %v", r), 0)
		}
	}()

	trySend(events, event.ToolStart(tu))
	start := time.Now()

	if d.runTask == nil {
		result = errorResult(tu.ID, "no task runner configured", time.Since(start).Milliseconds())
		trySend(events, event.ToolDone(tu, result))
		return result
	}

	prompt := stringArg(tu.Args, "prompt")
	description := stringArg(tu.Args, "description")

	text, err := d.runTask(ctx, prompt, description)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		result = errorResult(tu.ID, err.Error(), duration)
		if d.memory != nil {
			d.memory.StoreError("task", err.Error(), nil, graphstore.EventLinks{})
		}
		trySend(events, event.ToolDone(tu, result))
		return result
	}

	result = session.ToolResult{
		ToolUseID: tu.ID,
		Output:    mustMarshal(map[string]any{"result": text}),
		Duration:  duration,
	}
	if d.memory != nil {
		d.memory.StoreToolRun("task", json.RawMessage(tu.Args), result.Output, duration, false, graphstore.EventLinks{})
	}
	trySend(events, event.ToolDone(tu, result))
	return result
}

func intArg(args json.RawMessage, key string, def int) int {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return def
	}
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

func mustMarshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		out, _ = json.Marshal(map[string]string{"error": "failed to marshal output"})
	}
	return out
}
