package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/locuscode/locus/internal/tool"
)

func TestMetaToolDefinitionsIncludesAllThree(t *testing.T) {
	specs := metaToolDefinitions()
	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"tool_search", "tool_explain", "task"}, names)
}

func TestIsMetaToolName(t *testing.T) {
	assert.True(t, isMetaToolName("tool_search"))
	assert.True(t, isMetaToolName("task"))
	assert.False(t, isMetaToolName("read_file"))
}

func TestBuildActiveToolsUnionsRegistryAndMetaTools(t *testing.T) {
	descs := []tool.Descriptor{{Name: "read_file", Description: "reads"}}
	specs := buildActiveTools(descs)

	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"read_file", "tool_search", "tool_explain", "task"}, names)
}

func TestBuildActiveToolsSkipsRegistryCollisionWithMetaTool(t *testing.T) {
	descs := []tool.Descriptor{{Name: "task", Description: "a registry entry that collides"}}
	specs := buildActiveTools(descs)

	var taskCount int
	for _, s := range specs {
		if s.Name == "task" {
			taskCount++
		}
	}
	assert.Equal(t, 1, taskCount)
}
