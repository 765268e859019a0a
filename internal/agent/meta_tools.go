package agent

import (
	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/tool"
)

// ToolSearchArgs is tool_search's argument contract.
type ToolSearchArgs struct {
	Query      string `json:"query" jsonschema:"required,description=What the agent is trying to do"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return (default 5)"`
}

// ToolExplainArgs is tool_explain's argument contract.
type ToolExplainArgs struct {
	ToolID string `json:"tool_id" jsonschema:"required,description=Name of the registered tool to describe"`
}

// TaskArgs is the "task" meta-tool's argument contract.
type TaskArgs struct {
	Prompt      string `json:"prompt" jsonschema:"required,description=The task for the sub-agent to perform"`
	Description string `json:"description" jsonschema:"required,description=A short human-readable label for the task"`
}

const taskToolDescription = "Run a sub-task in a separate agent with its own context window. " +
	"Use this to delegate focused, multi-step work (e.g. \"investigate why X is failing\", " +
	"\"implement Y across the package\") so the parent agent's context stays small. " +
	"Multiple task calls in the same response run in parallel. " +
	"Do NOT use for simple single-file edits — call the file tools directly instead."

// metaToolDefinitions returns the three in-process meta-tools
// (tool_search, tool_explain, task) the dispatcher handles itself, never
// routing them through the Tool Registry. Mirrors context.rs's
// meta_tool_definitions/task_tool_definition.
func metaToolDefinitions() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        "tool_search",
			Description: "Search the memory graph for tools relevant to a task by semantic similarity.",
			Schema:      tool.SchemaFor(ToolSearchArgs{}),
		},
		{
			Name:        "tool_explain",
			Description: "Get the full description and JSON-schema parameters for a registered tool.",
			Schema:      tool.SchemaFor(ToolExplainArgs{}),
		},
		{
			Name:        "task",
			Description: taskToolDescription,
			Schema:      tool.SchemaFor(TaskArgs{}),
		},
	}
}

// isMetaToolName reports whether name is one of the three in-process
// meta-tools, rather than a Tool Registry entry.
func isMetaToolName(name string) bool {
	switch name {
	case "tool_search", "tool_explain", "task":
		return true
	default:
		return false
	}
}

// toolSpecFromDescriptor adapts a Tool Registry descriptor to the
// provider-facing llm.ToolSpec shape.
func toolSpecFromDescriptor(d tool.Descriptor) llm.ToolSpec {
	return llm.ToolSpec{Name: d.Name, Description: d.Description, Schema: d.Schema}
}

// buildActiveTools unions the registry's descriptors with the meta-tool
// set, skipping any registry entry whose name collides with a meta-tool
// (the meta-tool wins, since it's handled in-process). This set is cached
// at session construction — it does not change over a Runtime's lifetime.
func buildActiveTools(descriptors []tool.Descriptor) []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(descriptors)+3)
	for _, d := range descriptors {
		if isMetaToolName(d.Name) {
			continue
		}
		specs = append(specs, toolSpecFromDescriptor(d))
	}
	specs = append(specs, metaToolDefinitions()...)
	return specs
}
