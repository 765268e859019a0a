package stream

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleTextReplyProducesSingleTextBlock(t *testing.T) {
	acc := New()
	acc.Apply(llm.StreamEvent{Kind: llm.EventStart, ID: "gen1"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventTextDelta, Text: "hello"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishStop, Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 1}})

	turn := acc.Turn()
	require.Len(t, turn.Blocks, 1)
	assert.Equal(t, session.BlockText, turn.Blocks[0].Kind)
	assert.Equal(t, "hello", turn.Text())
	assert.Equal(t, 5, turn.Usage.PromptTokens)
	assert.Equal(t, 1, turn.Usage.CompletionTokens)
}

func TestToolCallSequenceProducesOrderedToolUseBlock(t *testing.T) {
	acc := New()
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallStart, ID: "c1", ToolName: "ls"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallDelta, ID: "c1", Text: "{}"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallEnd, ID: "c1", ToolName: "ls", ToolArgs: []byte("{}")})
	acc.Apply(llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishToolCalls})

	turn := acc.Turn()
	require.Len(t, turn.Blocks, 1)
	require.Equal(t, session.BlockToolUse, turn.Blocks[0].Kind)
	assert.Equal(t, "ls", turn.Blocks[0].ToolUse.Name)
	assert.JSONEq(t, "{}", string(turn.Blocks[0].ToolUse.Args))
}

func TestBlockOrderIsThinkingThenTextThenToolUse(t *testing.T) {
	acc := New()
	acc.Apply(llm.StreamEvent{Kind: llm.EventReasoningDelta, Text: "thinking..."})
	acc.Apply(llm.StreamEvent{Kind: llm.EventTextDelta, Text: "answer"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallStart, ID: "c1", ToolName: "grep"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallEnd, ID: "c1", ToolName: "grep", ToolArgs: []byte(`{"pattern":"x"}`)})
	acc.Apply(llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishToolCalls})

	turn := acc.Turn()
	require.Len(t, turn.Blocks, 3)
	assert.Equal(t, session.BlockThinking, turn.Blocks[0].Kind)
	assert.Equal(t, session.BlockText, turn.Blocks[1].Kind)
	assert.Equal(t, session.BlockToolUse, turn.Blocks[2].Kind)
}

func TestMalformedToolArgsPreserveRawUnderReservedKey(t *testing.T) {
	acc := New()
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallStart, ID: "c1", ToolName: "bash"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallDelta, ID: "c1", Text: "{not valid json"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishToolCalls})

	turn := acc.Turn()
	var out map[string]string
	require.NoError(t, json.Unmarshal(turn.Blocks[0].ToolUse.Args, &out))
	assert.Equal(t, "{not valid json", out[rawArgsKey])
	assert.NotEmpty(t, out[parseErrorKey])
}

func TestAnthropicStyleToolCallEndWithoutArgsKeepsAccumulatedDeltas(t *testing.T) {
	acc := New()
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallStart, ID: "c1", ToolName: "grep"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallDelta, ID: "c1", Text: `{"pattern":`})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallDelta, ID: "c1", Text: `"x"}`})
	acc.Apply(llm.StreamEvent{Kind: llm.EventToolCallEnd, ID: "c1", ToolName: "grep"}) // no ToolArgs
	acc.Apply(llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishToolCalls})

	turn := acc.Turn()
	assert.JSONEq(t, `{"pattern":"x"}`, string(turn.Blocks[0].ToolUse.Args))
}

func TestEventsAfterFinishAreIgnored(t *testing.T) {
	acc := New()
	acc.Apply(llm.StreamEvent{Kind: llm.EventTextDelta, Text: "hello"})
	acc.Apply(llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishStop})
	acc.Apply(llm.StreamEvent{Kind: llm.EventTextDelta, Text: " world"})

	assert.Equal(t, "hello", acc.Turn().Text())
}

func TestDriveReturnsCancelledWithoutPartialState(t *testing.T) {
	ch := make(chan llm.StreamEvent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Drive(ctx, ch, nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestDriveStopsAtFinish(t *testing.T) {
	ch := make(chan llm.StreamEvent, 4)
	ch <- llm.StreamEvent{Kind: llm.EventTextDelta, Text: "x"}
	ch <- llm.StreamEvent{Kind: llm.EventFinish, Finish: llm.FinishStop, Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 1}}

	acc, err := Drive(context.Background(), ch, nil)
	require.NoError(t, err)
	assert.True(t, acc.Finished())
	assert.Equal(t, "x", acc.Turn().Text())
}

func TestDrivePropagatesProviderError(t *testing.T) {
	ch := make(chan llm.StreamEvent, 1)
	ch <- llm.StreamEvent{Kind: llm.EventError, Err: assertError{}}

	_, err := Drive(context.Background(), ch, nil)
	assert.Error(t, err)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
