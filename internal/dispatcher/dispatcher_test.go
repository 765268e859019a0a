package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locuscode/locus/internal/event"
	"github.com/locuscode/locus/internal/memory"
	memstore "github.com/locuscode/locus/internal/memory/graphstore/memory"
	"github.com/locuscode/locus/internal/session"
	"github.com/locuscode/locus/internal/tool"
)

// echoTool is a minimal Tool double: it returns its args verbatim, or
// panics/errors when told to, so dispatch behaviour can be observed
// without touching the filesystem or a shell.
type echoTool struct {
	name    string
	failWith error
	panicWith any
}

func (e *echoTool) Name() string                 { return e.name }
func (e *echoTool) Description() string          { return "echoes its arguments" }
func (e *echoTool) Schema() *jsonschema.Schema    { return &jsonschema.Schema{} }
func (e *echoTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	if e.panicWith != nil {
		panic(e.panicWith)
	}
	if e.failWith != nil {
		return tool.Result{}, e.failWith
	}
	return tool.SuccessResult(args, time.Millisecond), nil
}

func newTestRegistry(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, reg.Register(tl))
	}
	return reg
}

func newTestMemory(t *testing.T) *memory.Client {
	t.Helper()
	c := memory.New(memstore.New())
	t.Cleanup(c.Close)
	return c
}

func toolUse(id, name string, args map[string]any) session.ToolUse {
	raw, _ := json.Marshal(args)
	return session.ToolUse{ID: id, Name: name, Args: raw}
}

func TestDispatchRunsNonTaskCallsSequentiallyInOrder(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "alpha"}, &echoTool{name: "beta"})
	d := New(reg, newTestMemory(t), nil)

	tools := []session.ToolUse{
		toolUse("1", "alpha", map[string]any{"x": 1}),
		toolUse("2", "beta", map[string]any{"x": 2}),
	}
	turn := d.Dispatch(context.Background(), tools, nil)

	results := turn.ToolResults()
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ToolUseID)
	assert.Equal(t, "2", results[1].ToolUseID)
	assert.False(t, results[0].IsError)
	assert.False(t, results[1].IsError)
}

func TestDispatchUnknownToolReturnsStructuredError(t *testing.T) {
	reg := newTestRegistry(t)
	d := New(reg, newTestMemory(t), nil)

	turn := d.Dispatch(context.Background(), []session.ToolUse{toolUse("1", "missing", nil)}, nil)
	results := turn.ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
}

func TestDispatchRecoversFromPanickingTool(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "boom", panicWith: "kaboom"})
	d := New(reg, newTestMemory(t), nil)

	turn := d.Dispatch(context.Background(), []session.ToolUse{toolUse("1", "boom", nil)}, nil)
	results := turn.ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, string(results[0].Output), "panicked")
}

func TestDispatchEmitsToolStartAndToolDoneEvents(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "alpha"})
	d := New(reg, newTestMemory(t), nil)

	events := make(chan event.Event, event.Capacity)
	d.Dispatch(context.Background(), []session.ToolUse{toolUse("1", "alpha", nil)}, events)
	close(events)

	var kinds []event.Kind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, event.KindToolStart)
	assert.Contains(t, kinds, event.KindToolDone)
}

func TestDispatchConfirmationRejectedByApprovalPolicyBecomesError(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "bash"})
	d := New(reg, newTestMemory(t), rejectAll{})

	turn := d.Dispatch(context.Background(), []session.ToolUse{
		toolUse("1", "bash", map[string]any{"command": "rm -rf /tmp/x"}),
	}, nil)
	results := turn.ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, string(results[0].Output), "rejected")
}

func TestDispatchAutoApproveWithWarningStillRunsDestructiveCall(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "bash"})
	d := New(reg, newTestMemory(t), AutoApproveWithWarning{})

	events := make(chan event.Event, event.Capacity)
	turn := d.Dispatch(context.Background(), []session.ToolUse{
		toolUse("1", "bash", map[string]any{"command": "rm -rf /tmp/x"}),
	}, events)
	close(events)

	results := turn.ToolResults()
	require.Len(t, results, 1)
	assert.False(t, results[0].IsError)

	sawConfirmation := false
	for ev := range events {
		if ev.Kind == event.KindConfirmation {
			sawConfirmation = true
		}
	}
	assert.True(t, sawConfirmation)
}

func TestDispatchTaskWithNoRunnerConfiguredReturnsStructuredError(t *testing.T) {
	reg := newTestRegistry(t)
	d := New(reg, newTestMemory(t), nil)

	turn := d.Dispatch(context.Background(), []session.ToolUse{
		toolUse("1", "task", map[string]any{"prompt": "do a thing", "description": "thing"}),
	}, nil)
	results := turn.ToolResults()
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
}

func TestDispatchTaskRunnerSuccessIsWrapped(t *testing.T) {
	reg := newTestRegistry(t)
	d := New(reg, newTestMemory(t), nil)
	d.SetTaskRunner(func(ctx context.Context, prompt, description string) (string, error) {
		return "sub-agent done: " + prompt, nil
	})

	turn := d.Dispatch(context.Background(), []session.ToolUse{
		toolUse("1", "task", map[string]any{"prompt": "do a thing", "description": "thing"}),
	}, nil)
	results := turn.ToolResults()
	require.Len(t, results, 1)
	assert.False(t, results[0].IsError)
	assert.Contains(t, string(results[0].Output), "sub-agent done")
}

func TestDispatchRunsManyTaskCallsBoundedInParallel(t *testing.T) {
	reg := newTestRegistry(t)
	d := New(reg, newTestMemory(t), nil)
	d.SetTaskRunner(func(ctx context.Context, prompt, description string) (string, error) {
		return fmt.Sprintf("done:%s", prompt), nil
	})

	var calls []session.ToolUse
	for i := 0; i < 10; i++ {
		calls = append(calls, toolUse(fmt.Sprintf("t%d", i), "task", map[string]any{
			"prompt": fmt.Sprintf("task-%d", i), "description": "x",
		}))
	}
	turn := d.Dispatch(context.Background(), calls, nil)
	results := turn.ToolResults()
	require.Len(t, results, 10)
	for i, r := range results {
		assert.False(t, r.IsError)
		assert.Contains(t, string(r.Output), fmt.Sprintf("task-%d", i))
	}
}

func TestDispatchPreservesOriginalOrderAcrossMixedTaskAndNonTaskCalls(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "alpha"})
	d := New(reg, newTestMemory(t), nil)
	d.SetTaskRunner(func(ctx context.Context, prompt, description string) (string, error) {
		return "task-result", nil
	})

	tools := []session.ToolUse{
		toolUse("1", "alpha", nil),
		toolUse("2", "task", map[string]any{"prompt": "p", "description": "d"}),
		toolUse("3", "alpha", nil),
	}
	turn := d.Dispatch(context.Background(), tools, nil)
	results := turn.ToolResults()
	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].ToolUseID)
	assert.Equal(t, "2", results[1].ToolUseID)
	assert.Equal(t, "3", results[2].ToolUseID)
}

// rejectAll is an ApprovalPolicy double that always blocks dispatch.
type rejectAll struct{}

func (rejectAll) Approve(ctx context.Context, tu session.ToolUse) bool { return false }
