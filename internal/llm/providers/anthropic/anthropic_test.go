package anthropic

import (
	"testing"

	"github.com/locuscode/locus/internal/llm"
)

func TestToWireMessagesExtractsSystemPrompt(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Parts: []llm.Part{llm.TextPart("be terse")}},
		{Role: llm.RoleUser, Parts: []llm.Part{llm.TextPart("hi")}},
	}
	system, wire := toWireMessages(msgs)
	if system != "be terse" {
		t.Fatalf("expected system prompt extracted, got %q", system)
	}
	if len(wire) != 1 || wire[0].Role != "user" {
		t.Fatalf("expected single user message, got %+v", wire)
	}
}

func TestToWireMessagesMapsToolUseAndResult(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleAssistant, Parts: []llm.Part{llm.ToolCallPart(llm.ToolCall{ID: "c1", Name: "ls", Args: []byte(`{}`)})}},
		{Role: llm.RoleTool, Parts: []llm.Part{llm.ToolResultPartOf(llm.ToolResultPart{ToolUseID: "c1", Content: []byte(`"README.md"`)})}},
	}
	_, wire := toWireMessages(msgs)
	if wire[0].Content[0].Type != "tool_use" || wire[0].Content[0].ID != "c1" {
		t.Fatalf("expected tool_use block, got %+v", wire[0].Content)
	}
	if wire[1].Content[0].Type != "tool_result" || wire[1].Content[0].ToolUseID != "c1" {
		t.Fatalf("expected tool_result block, got %+v", wire[1].Content)
	}
}

func TestFinishReasonMapsToolUseToToolCalls(t *testing.T) {
	got, _ := finishReason("tool_use")
	if got != llm.FinishToolCalls {
		t.Errorf("expected FinishToolCalls, got %q", got)
	}
	got, _ = finishReason("max_tokens")
	if got != llm.FinishLength {
		t.Errorf("expected FinishLength, got %q", got)
	}
}

func TestToWireMaxTokensDefaultsWhenUnset(t *testing.T) {
	got := toWireMaxTokens(llm.Options{})
	if got != 4096 {
		t.Errorf("expected default max tokens 4096, got %d", got)
	}
}
