package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/memory"
	memstore "github.com/locuscode/locus/internal/memory/graphstore/memory"
	"github.com/locuscode/locus/internal/session"
)

func TestBuildSystemPromptIncludesPreambleAndTools(t *testing.T) {
	tools := []llm.ToolSpec{{Name: "read_file", Description: "Read a file.\nMore detail."}}
	prompt := buildSystemPrompt(tools)
	assert.Contains(t, prompt, "locus.codes")
	assert.Contains(t, prompt, "**read_file**: Read a file.")
	assert.NotContains(t, prompt, "More detail.")
	assert.Contains(t, prompt, "## Safety Rules")
	assert.Contains(t, prompt, "## Memory")
	assert.Contains(t, prompt, "## Behavior")
}

func TestFormatToolsEmpty(t *testing.T) {
	assert.Equal(t, "No tools available.", formatTools(nil))
}

func TestBuildSessionContextReportsTurnCount(t *testing.T) {
	sess := session.New(session.Config{RepoRoot: "/repo"})
	require.NoError(t, sess.AppendTurn(session.NewTurn(session.RoleUser).WithBlock(session.TextBlock("hi"))))

	ctx := buildSessionContext(sess)
	assert.Contains(t, ctx, "/repo")
	assert.Contains(t, ctx, sess.ID())
	assert.Contains(t, ctx, "Turns completed: 1")
}

func TestExtractRecentFilesFindsPathLikeTokens(t *testing.T) {
	turns := []session.Turn{
		session.NewTurn(session.RoleAssistant).WithBlock(session.TextBlock("Edited file_path: internal/agent/runtime.go successfully")),
		session.NewTurn(session.RoleUser).WithBlock(session.TextBlock("please check path internal/tool/fs.go too")),
	}
	files := extractRecentFiles(turns)
	assert.Contains(t, files, "internal/tool/fs.go")
}

func TestTurnToMessageMapsBlockKinds(t *testing.T) {
	turn := session.NewTurn(session.RoleAssistant).
		WithBlock(session.ThinkingBlock("pondering")).
		WithBlock(session.TextBlock("the answer"))
	msg, ok := turnToMessage(turn)
	require.True(t, ok)
	assert.Equal(t, llm.RoleAssistant, msg.Role)
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, "[Thinking] pondering", msg.Parts[0].Text)
	assert.Equal(t, "the answer", msg.Parts[1].Text)
}

func TestTurnToMessageEmptyTurnReturnsFalse(t *testing.T) {
	_, ok := turnToMessage(session.NewTurn(session.RoleAssistant))
	assert.False(t, ok)
}

func TestBuildMessagesPrependsSystemMessage(t *testing.T) {
	sess := session.New(session.Config{RepoRoot: "/repo"})
	require.NoError(t, sess.AppendTurn(session.NewTurn(session.RoleUser).WithBlock(session.TextBlock("hi"))))

	messages := buildMessages("SYSTEM PROMPT", sess, "some memory digest")
	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Parts[0].Text, "SYSTEM PROMPT")
	assert.Contains(t, messages[0].Parts[0].Text, "## Relevant Memories")
	assert.Contains(t, messages[0].Parts[0].Text, "some memory digest")
}

func TestNearContextLimit(t *testing.T) {
	assert.False(t, nearContextLimit(100, 1000))
	assert.True(t, nearContextLimit(851, 1000))
	assert.False(t, nearContextLimit(100, 0))
}

func TestSummarizeIntentFirstSentence(t *testing.T) {
	assert.Equal(t, "Fix the bug.", summarizeIntent("Fix the bug. Then run tests."))
}

func TestSummarizeIntentLongMessageTruncates(t *testing.T) {
	msg := ""
	for i := 0; i < 30; i++ {
		msg += "word "
	}
	got := summarizeIntent(msg)
	assert.True(t, len(got) <= 100)
	assert.Contains(t, got, "...")
}

func TestSummarizeIntentShortMessagePassesThrough(t *testing.T) {
	assert.Equal(t, "hi", summarizeIntent("hi"))
}

func TestCompressContextReplacesAllButLastThreeTurns(t *testing.T) {
	store := memstore.New()
	mem := memory.New(store)
	t.Cleanup(mem.Close)

	sess := session.New(session.Config{RepoRoot: "/repo"})
	for i := 0; i < 6; i++ {
		require.NoError(t, sess.AppendTurn(session.NewTurn(session.RoleUser).WithBlock(session.TextBlock("turn"))))
	}

	var statuses []string
	compressContext(context.Background(), mem, sess, nil, func(s string) { statuses = append(statuses, s) })

	turns := sess.Turns()
	require.Len(t, turns, 4) // 1 summary + last 3
	assert.Equal(t, session.RoleSystem, turns[0].Role)
	assert.Contains(t, turns[0].Text(), "[Context Summary]")
	require.Len(t, statuses, 2)
	assert.Contains(t, statuses[0], "compressing")
	assert.Contains(t, statuses[1], "remaining")
}

func TestCompressContextKeepsOnlyTheLastThreeTurns(t *testing.T) {
	store := memstore.New()
	mem := memory.New(store)
	t.Cleanup(mem.Close)

	sess := session.New(session.Config{RepoRoot: "/repo"})
	const total = 10
	for i := 0; i < total; i++ {
		require.NoError(t, sess.AppendTurn(session.NewTurn(session.RoleUser).WithBlock(session.TextBlock(fmt.Sprintf("turn-%d", i)))))
	}

	compressContext(context.Background(), mem, sess, nil, nil)

	turns := sess.Turns()
	require.Len(t, turns, 4) // 1 summary + last 3, regardless of total turn count
	assert.Equal(t, session.RoleSystem, turns[0].Role)
	assert.Equal(t, "turn-7", turns[1].Text())
	assert.Equal(t, "turn-8", turns[2].Text())
	assert.Equal(t, "turn-9", turns[3].Text())
}
