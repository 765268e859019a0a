package memory

import (
	"fmt"

	"github.com/locuscode/locus/internal/memory/graphstore"
)

// Context id constants shared across hooks, one per feedback loop. The
// store expects context ids in "kind:name" form; these are the fixed
// roots the dynamic per-event ids (action:terminal_<tool>, etc.) link
// back to.
const (
	ContextDecisions  = "decision:decisions"
	ContextEditorLink = "action:editor"
	ContextErrors     = "observation:errors"
	ContextTools      = "fact:tools"
	ContextUserIntent = "observation:user_intent"
)

// StoreToolRun records the outcome of any tool execution (bash, grep,
// edit_file, …). Auto-links related_to the user-intent root.
func (c *Client) StoreToolRun(toolName string, args, result any, durationMS int64, isError bool, links graphstore.EventLinks) {
	auto := graphstore.NewEventLinks().AddRelatedTo(ContextUserIntent)

	kind := graphstore.EventAction
	if isError {
		kind = graphstore.EventObservation
	}
	event := graphstore.NewCreateEventRequest(kind, map[string]any{
		"kind": "tool_run",
		"data": map[string]any{
			"tool":           toolName,
			"args":           args,
			"result_preview": truncateResult(result),
			"duration_ms":    durationMS,
			"is_error":       isError,
		},
	}).
		WithContextID(fmt.Sprintf("action:terminal_%s", safeContextName(toolName))).
		WithSource("executor").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreFileEdit records a write/edit to a file. Auto-links related_to
// the decisions root.
func (c *Client) StoreFileEdit(path, summary string, diffPreview *string, links graphstore.EventLinks) {
	auto := graphstore.NewEventLinks().AddRelatedTo(ContextDecisions)

	event := graphstore.NewCreateEventRequest(graphstore.EventAction, map[string]any{
		"kind": "file_edit",
		"data": map[string]any{
			"path":         path,
			"summary":      summary,
			"diff_preview": diffPreview,
		},
	}).
		WithContextID(fmt.Sprintf("action:editor_%s", safeContextName(pathToContext(path)))).
		WithSource("executor").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreUserIntent records an incoming user message. No auto-links — user
// intent is a root event.
func (c *Client) StoreUserIntent(message, intentSummary string, links graphstore.EventLinks) {
	event := graphstore.NewCreateEventRequest(graphstore.EventObservation, map[string]any{
		"kind": "user_intent",
		"data": map[string]any{
			"message_preview": truncateString(message, 500),
			"intent_summary":  intentSummary,
		},
	}).
		WithContextID(ContextUserIntent).
		WithSource("user").
		WithLinks(links)

	c.StoreEvent(event)
}

// StoreError records a tool failure, LLM error, or any other fault. No
// auto-links — the caller should supply Contradicts (e.g. the failed
// tool's own context id).
func (c *Client) StoreError(context, errorMessage string, commandOrFile *string, links graphstore.EventLinks) {
	event := graphstore.NewCreateEventRequest(graphstore.EventObservation, map[string]any{
		"kind": "error",
		"data": map[string]any{
			"context":         context,
			"error_message":   errorMessage,
			"command_or_file": commandOrFile,
		},
	}).
		WithContextID(ContextErrors).
		WithSource("system").
		WithLinks(links)

	c.StoreEvent(event)
}

// StoreDecision records the LLM's reasoning/decision for a turn.
// Auto-links extends the user-intent root.
func (c *Client) StoreDecision(summary string, reasoning *string, links graphstore.EventLinks) {
	auto := graphstore.NewEventLinks().AddExtends(ContextUserIntent)

	event := graphstore.NewCreateEventRequest(graphstore.EventDecision, map[string]any{
		"kind": "decision",
		"data": map[string]any{
			"summary":   summary,
			"reasoning": reasoning,
		},
	}).
		WithContextID(ContextDecisions).
		WithSource("agent").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreProjectConvention records a discovered project convention. No
// auto-links — the caller should supply Reinforces for an existing
// convention or Contradicts if this supersedes one.
func (c *Client) StoreProjectConvention(repo, convention string, examples []string, links graphstore.EventLinks) {
	event := graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]any{
		"kind": "project_convention",
		"data": map[string]any{
			"repo":       repo,
			"convention": convention,
			"examples":   examples,
		},
	}).
		WithContextID(fmt.Sprintf("fact:project_%s", simpleHash(repo))).
		WithSource("agent").
		WithLinks(links)

	c.StoreEvent(event)
}

// StoreSkill records a validated, reusable pattern. No auto-links — the
// caller should supply Reinforces for prior observations or Contradicts
// for a superseded skill.
func (c *Client) StoreSkill(name, description string, steps []string, validated bool, links graphstore.EventLinks) {
	event := graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]any{
		"kind": "skill",
		"data": map[string]any{
			"name":        name,
			"description": description,
			"steps":       steps,
			"validated":   validated,
		},
	}).
		WithContextID(fmt.Sprintf("fact:skill_%s", safeContextName(name))).
		WithSource("agent").
		WithLinks(links)

	c.StoreEvent(event)
}

// StoreLLMCall records model usage and token counts for one LLM
// invocation. Auto-links related_to the decisions root.
func (c *Client) StoreLLMCall(model string, promptTokens, completionTokens uint64, durationMS int64, isError bool, links graphstore.EventLinks) {
	auto := graphstore.NewEventLinks().AddRelatedTo(ContextDecisions)

	kind := graphstore.EventAction
	if isError {
		kind = graphstore.EventObservation
	}
	event := graphstore.NewCreateEventRequest(kind, map[string]any{
		"kind": "llm_call",
		"data": map[string]any{
			"model":             model,
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"duration_ms":       durationMS,
			"is_error":          isError,
		},
	}).
		WithContextID(fmt.Sprintf("action:llm_%s", safeContextName(pathToContext(model)))).
		WithSource("executor").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreTestRun records a test invocation's pass/fail counts. Auto-links
// Reinforces the editor root on a clean pass, Contradicts it on any
// failure.
func (c *Client) StoreTestRun(testFile string, passed, failed uint32, durationMS int64, outputPreview *string, links graphstore.EventLinks) {
	var auto graphstore.EventLinks
	kind := graphstore.EventAction
	if failed > 0 {
		auto = graphstore.NewEventLinks().AddContradicts(ContextEditorLink)
		kind = graphstore.EventObservation
	} else {
		auto = graphstore.NewEventLinks().AddReinforces(ContextEditorLink)
	}

	var preview *string
	if outputPreview != nil {
		p := truncateString(*outputPreview, 500)
		preview = &p
	}

	event := graphstore.NewCreateEventRequest(kind, map[string]any{
		"kind": "test_run",
		"data": map[string]any{
			"test_file":      testFile,
			"passed":         passed,
			"failed":         failed,
			"total":          passed + failed,
			"duration_ms":    durationMS,
			"output_preview": preview,
		},
	}).
		WithContextID(fmt.Sprintf("action:test_%s", safeContextName(pathToContext(testFile)))).
		WithSource("executor").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreGitOp records a version-control action (add, commit, push, …).
// Auto-links related_to the editor root.
func (c *Client) StoreGitOp(repo, operation string, details *string, isError bool, links graphstore.EventLinks) {
	auto := graphstore.NewEventLinks().AddRelatedTo(ContextEditorLink)

	kind := graphstore.EventAction
	if isError {
		kind = graphstore.EventObservation
	}
	event := graphstore.NewCreateEventRequest(kind, map[string]any{
		"kind": "git_op",
		"data": map[string]any{
			"repo":      repo,
			"operation": operation,
			"details":   details,
			"is_error":  isError,
		},
	}).
		WithContextID(fmt.Sprintf("action:git_%s", simpleHash(repo))).
		WithSource("executor").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreToolSchema registers a tool's description and JSON schema as a
// memory so tool_search can surface it for a matching user intent.
// Called once per tool at startup (ToolBus tools) or on connect
// (MCP tools). Auto-links related_to the tools root.
func (c *Client) StoreToolSchema(toolName, description string, parametersSchema any, sourceType string, tags []string, links graphstore.EventLinks) {
	auto := graphstore.NewEventLinks().AddRelatedTo(ContextTools)

	event := graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]any{
		"kind": "tool_schema",
		"data": map[string]any{
			"tool":        toolName,
			"description": description,
			"parameters":  parametersSchema,
			"source_type": sourceType,
			"tags":        tags,
		},
	}).
		WithContextID(fmt.Sprintf("fact:tool_%s", safeContextName(toolName))).
		WithSource("system").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}

// StoreToolUsage records a successful (or failed) tool invocation as a
// discovery signal, linking the user's intent to the tool so future
// RetrieveMemories calls surface this tool for similar intents.
// Auto-links related_to the tool's own schema context.
func (c *Client) StoreToolUsage(toolName, userIntent string, success bool, durationMS int64, links graphstore.EventLinks) {
	toolCtx := fmt.Sprintf("fact:tool_%s", safeContextName(toolName))
	auto := graphstore.NewEventLinks().AddRelatedTo(toolCtx)

	kind := graphstore.EventAction
	if !success {
		kind = graphstore.EventObservation
	}
	event := graphstore.NewCreateEventRequest(kind, map[string]any{
		"kind": "tool_usage",
		"data": map[string]any{
			"tool":        toolName,
			"intent":      userIntent,
			"success":     success,
			"duration_ms": durationMS,
		},
	}).
		WithContextID(fmt.Sprintf("action:tool_usage_%s", safeContextName(toolName))).
		WithSource("executor").
		WithLinks(auto.Merge(links))

	c.StoreEvent(event)
}
