package memory

import "github.com/locuscode/locus/internal/memory/graphstore"

// ToolDescriptor is the minimal shape BootstrapToolSchemas needs from a
// registered tool; the agent runtime copies each internal/tool.Descriptor
// into one field by field.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      any
}

// BootstrapToolSchemas fires one StoreToolSchema hook per descriptor at
// session start, so tool_search is immediately useful without waiting
// for each tool to actually be invoked once first.
func (c *Client) BootstrapToolSchemas(descriptors []ToolDescriptor, sourceType string) {
	for _, d := range descriptors {
		c.StoreToolSchema(d.Name, d.Description, d.Schema, sourceType, nil, graphstore.EventLinks{})
	}
}
