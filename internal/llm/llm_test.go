package llm

import "testing"

func TestUsageTotalEqualsPromptPlusCompletion(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	if u.TotalTokens != u.PromptTokens+u.CompletionTokens {
		t.Fatalf("total should equal prompt+completion, got %+v", u)
	}
}

func TestTextPartConstructorsSetKind(t *testing.T) {
	tests := []struct {
		part Part
		kind PartKind
	}{
		{TextPart("hi"), PartText},
		{ImagePart("http://x"), PartImage},
		{ToolCallPart(ToolCall{ID: "c1", Name: "ls"}), PartToolCall},
		{ToolResultPartOf(ToolResultPart{ToolUseID: "c1"}), PartToolResult},
	}
	for _, tc := range tests {
		if tc.part.Kind != tc.kind {
			t.Errorf("expected kind %s, got %s", tc.kind, tc.part.Kind)
		}
	}
}
