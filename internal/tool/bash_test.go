package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBashRejectsDisallowedCommand(t *testing.T) {
	root := t.TempDir()
	b := NewBashTool(root, DefaultBashConfig())

	res, err := b.Execute(context.Background(), map[string]any{"command": "rm -rf /"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestBashRunsAllowedCommand(t *testing.T) {
	root := t.TempDir()
	b := NewBashTool(root, DefaultBashConfig())

	res, err := b.Execute(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out struct {
		Stdout   string `json:"stdout"`
		ExitCode int    `json:"exit_code"`
	}
	decodeOutput(t, res, &out)
	assert.Equal(t, "hi\n", out.Stdout)
	assert.Equal(t, 0, out.ExitCode)
}

func TestBashEnforcesTimeout(t *testing.T) {
	root := t.TempDir()
	cfg := BashConfig{AllowedCommands: []string{"sh"}, MaxDuration: 50 * time.Millisecond}
	b := NewBashTool(root, cfg)

	start := time.Now()
	_, err := b.Execute(context.Background(), map[string]any{"command": "sh -c 'sleep 2'"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
