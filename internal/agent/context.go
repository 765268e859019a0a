package agent

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/memory"
	"github.com/locuscode/locus/internal/memory/graphstore"
	"github.com/locuscode/locus/internal/session"
)

const systemPromptPreamble = "You are locus.codes, a terminal-native coding agent with persistent memory."

const safetyRules = `## Safety Rules
- Never run destructive commands without confirmation.
- Never commit secrets.
- Always verify file paths before acting on them.
- Use bash with caution; prefer the dedicated file tools when one fits.`

const memoryRules = `## Memory
- Maintain consistency with prior decisions in this repository.
- Learn from past errors instead of repeating them.
- Remember project conventions you discover.
- Track user preferences across turns.`

const behaviorRules = `## Behavior
- Be concise.
- Make autonomous decisions where the task allows it.
- Ask the user only when a requirement is truly ambiguous.
- Store important decisions so future turns (and sub-agents) can recall them.`

// buildSystemPrompt composes the fixed agent-identity preamble with the
// active tool list and the safety/memory/behavior sections, mirroring
// context.rs's build_system_prompt verbatim.
func buildSystemPrompt(tools []llm.ToolSpec) string {
	var b strings.Builder
	b.WriteString(systemPromptPreamble)
	b.WriteString("\n\n## Role\nYou help the user accomplish coding tasks in their repository by reading, writing, and running things directly.")
	b.WriteString("\n\n## Tools Available\n")
	b.WriteString(formatTools(tools))
	b.WriteString("\n\n")
	b.WriteString(safetyRules)
	b.WriteString("\n\n")
	b.WriteString(memoryRules)
	b.WriteString("\n\n")
	b.WriteString(behaviorRules)
	return b.String()
}

// formatTools renders one bullet per tool using its first description
// line, or a fixed placeholder when there are none.
func formatTools(tools []llm.ToolSpec) string {
	if len(tools) == 0 {
		return "No tools available."
	}
	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- **%s**: %s", t.Name, firstLine(t.Description))
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// buildSessionContext renders the per-session block appended after the
// system prompt: working directory, session id, turn count, and recently
// mentioned files. Mirrors context.rs's build_session_context.
func buildSessionContext(sess *session.Session) string {
	cfg := sess.Config()
	turns := sess.Turns()

	var b strings.Builder
	fmt.Fprintf(&b, "Working directory: %s\n", cfg.RepoRoot)
	fmt.Fprintf(&b, "Session ID: %s\n", sess.ID())
	fmt.Fprintf(&b, "Turns completed: %d", len(turns))

	files := extractRecentFiles(turns)
	if len(files) > 0 {
		b.WriteString("\nFiles recently mentioned: ")
		b.WriteString(strings.Join(files, ", "))
	}
	return b.String()
}

// extractRecentFiles scans the last 5 turns, most recent first, for
// text blocks containing a path-bearing keyword, and returns up to 5
// deduplicated path-like tokens. Mirrors context.rs's
// extract_recent_files/extract_path_from_line.
func extractRecentFiles(turns []session.Turn) []string {
	start := len(turns) - 5
	if start < 0 {
		start = 0
	}
	window := turns[start:]

	seen := make(map[string]struct{})
	var out []string
	for i := len(window) - 1; i >= 0 && len(out) < 5; i-- {
		for _, b := range window[i].Blocks {
			if b.Kind != session.BlockText {
				continue
			}
			for _, line := range strings.Split(b.Text, "\n") {
				lower := strings.ToLower(line)
				if !strings.Contains(lower, "file_path") && !strings.Contains(lower, "path") && !strings.Contains(lower, "file:") {
					continue
				}
				p, ok := extractPathFromLine(line)
				if !ok {
					continue
				}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				out = append(out, p)
				if len(out) >= 5 {
					break
				}
			}
			if len(out) >= 5 {
				break
			}
		}
	}
	return out
}

// extractPathFromLine pulls the first whitespace-delimited token in line
// that looks like a file path: it contains a slash or has a file
// extension, and doesn't start with punctuation.
func extractPathFromLine(line string) (string, bool) {
	for _, tok := range strings.Fields(line) {
		tok = strings.Trim(tok, `"',`)
		if tok == "" {
			continue
		}
		if strings.ContainsAny(tok[:1], ".,:;!?\"'()[]{}") {
			continue
		}
		if strings.Contains(tok, "/") || path.Ext(tok) != "" {
			return tok, true
		}
	}
	return "", false
}

// turnToMessage converts a session turn into a provider Message,
// mirroring context.rs's turn_to_message: Thinking/Error render as
// marked text, ToolUse/ToolResult render as structured parts. Returns
// false if the turn has no renderable content.
func turnToMessage(t session.Turn) (llm.Message, bool) {
	var role llm.Role
	switch t.Role {
	case session.RoleUser:
		role = llm.RoleUser
	case session.RoleAssistant:
		role = llm.RoleAssistant
	case session.RoleSystem:
		role = llm.RoleSystem
	case session.RoleTool:
		role = llm.RoleTool
	default:
		role = llm.RoleUser
	}

	var parts []llm.Part
	for _, b := range t.Blocks {
		switch b.Kind {
		case session.BlockText:
			if b.Text != "" {
				parts = append(parts, llm.TextPart(b.Text))
			}
		case session.BlockThinking:
			if b.Text != "" {
				parts = append(parts, llm.TextPart("[Thinking] "+b.Text))
			}
		case session.BlockError:
			if b.Text != "" {
				parts = append(parts, llm.TextPart("[Error] "+b.Text))
			}
		case session.BlockToolUse:
			if b.ToolUse != nil {
				parts = append(parts, llm.ToolCallPart(llm.ToolCall{
					ID: b.ToolUse.ID, Name: b.ToolUse.Name, Args: b.ToolUse.Args,
				}))
			}
		case session.BlockToolResult:
			if b.ToolResult != nil {
				parts = append(parts, llm.ToolResultPartOf(llm.ToolResultPart{
					ToolUseID: b.ToolResult.ToolUseID, Content: b.ToolResult.Output,
				}))
			}
		}
	}
	if len(parts) == 0 {
		return llm.Message{}, false
	}
	return llm.Message{Role: role, Parts: parts}, true
}

// buildMessages prepends a single System message (system prompt +
// session context + relevant-memories section, present but empty when
// there are no memories) followed by one message per non-empty turn.
// Mirrors context.rs's build_messages.
func buildMessages(systemPrompt string, sess *session.Session, memories string) []llm.Message {
	var sysText strings.Builder
	sysText.WriteString(systemPrompt)
	sysText.WriteString("\n\n")
	sysText.WriteString(buildSessionContext(sess))
	sysText.WriteString("\n\n## Relevant Memories\n")
	sysText.WriteString(memories)

	messages := []llm.Message{{Role: llm.RoleSystem, Parts: []llm.Part{llm.TextPart(sysText.String())}}}
	for _, t := range sess.Turns() {
		if msg, ok := turnToMessage(t); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// buildGenerateRequest assembles the provider Request: composed
// messages, the active tool set, and fixed generation options. Tool
// choice is Auto only when tools are non-empty. Mirrors context.rs's
// build_generate_request.
func buildGenerateRequest(model string, messages []llm.Message, tools []llm.ToolSpec, maxTokens int) llm.Request {
	opts := llm.Options{
		Temperature: 0.7,
		MaxTokens:   maxTokens,
		Tools:       tools,
	}
	if len(tools) > 0 {
		opts.ToolChoice = llm.ToolChoice{Kind: llm.ToolChoiceAuto}
	}
	return llm.Request{Model: model, Messages: messages, Options: opts}
}

// nearContextLimit reports whether estimated exceeds 85% of limit.
func nearContextLimit(estimated, limit int) bool {
	if limit <= 0 {
		return false
	}
	return float64(estimated) > 0.85*float64(limit)
}

// summarizeTurns renders a compact per-turn digest ("**Role**: first 500
// chars of joined text"), the input compressContext feeds to
// GenerateInsight. Mirrors context.rs's summarize_turns.
func summarizeTurns(turns []session.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		text := t.Text()
		if len(text) > 500 {
			text = text[:500]
		}
		parts = append(parts, fmt.Sprintf("**%s**: %s", t.Role, text))
	}
	return strings.Join(parts, "\n\n")
}

// compressContext replaces all but the last 3 turns with a single System
// summary turn when the session is near its context limit, mirroring
// context.rs's compress_context. statusFn, if non-nil, is called with
// human-readable progress text (the orchestrator wires this to the
// outbound status event).
func compressContext(ctx context.Context, mem *memory.Client, sess *session.Session, contextIDs []string, statusFn func(string)) {
	if statusFn != nil {
		statusFn("Context near limit, compressing...")
	}

	turns := sess.Turns()
	summary, err := mem.GenerateInsight(ctx, summarizeTurns(turns), graphstore.InsightsOptions{ContextIDs: contextIDs})
	var insightText string
	if err == nil {
		insightText = summary.Insight
	}

	keep := 3
	if keep > len(turns) {
		keep = len(turns)
	}
	tail := turns[len(turns)-keep:]

	summaryTurn := session.NewTurn(session.RoleSystem).WithBlock(session.TextBlock("[Context Summary]\n" + insightText))
	replaced := make([]session.Turn, 0, len(tail)+1)
	replaced = append(replaced, summaryTurn)
	replaced = append(replaced, tail...)
	sess.ReplaceTurns(replaced)

	if statusFn != nil {
		statusFn(fmt.Sprintf("Context compressed. %d turns remaining.", len(replaced)))
	}
}

// summarizeIntent reduces message to a short label for the user_intent
// memory hook: the first sentence up to 100 chars, else a 97-char prefix
// with an ellipsis, else the message as-is. Mirrors agent_loop.rs's
// summarize_intent exactly.
func summarizeIntent(message string) string {
	if i := strings.IndexAny(message, ".!?"); i >= 0 && i < 100 {
		return strings.TrimSpace(message[:i+1])
	}
	if len(message) > 100 {
		cut := message
		if len(cut) > 97 {
			cut = cut[:97]
		}
		return cut + "..."
	}
	return message
}
