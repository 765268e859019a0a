package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrepFindsLiteralMatchesAcrossFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("func Foo() {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.go"), []byte("func Bar() { Foo() }\n"), 0o644))

	g := NewGrepTool(root)
	res, err := g.Execute(context.Background(), map[string]any{"pattern": "Foo"})
	require.NoError(t, err)

	var out struct {
		TotalMatches     int `json:"total_matches"`
		FilesWithMatches int `json:"files_with_matches"`
	}
	decodeOutput(t, res, &out)
	assert.Equal(t, 2, out.TotalMatches)
	assert.Equal(t, 2, out.FilesWithMatches)
}

func TestGrepSkipsVCSAndBuildDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "hidden.go"), []byte("Foo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "visible.go"), []byte("Foo"), 0o644))

	g := NewGrepTool(root)
	res, err := g.Execute(context.Background(), map[string]any{"pattern": "Foo"})
	require.NoError(t, err)

	var out struct {
		Matches []GrepMatch `json:"matches"`
	}
	decodeOutput(t, res, &out)
	require.Len(t, out.Matches, 1)
	assert.Equal(t, "visible.go", out.Matches[0].File)
}

func TestGrepRegexModeVsLiteralMode(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("foo.bar\nfooXbar\n"), 0o644))
	g := NewGrepTool(root)

	res, err := g.Execute(context.Background(), map[string]any{"pattern": "foo.bar", "regex": false})
	require.NoError(t, err)
	var literalOut struct {
		TotalMatches int `json:"total_matches"`
	}
	decodeOutput(t, res, &literalOut)
	assert.Equal(t, 1, literalOut.TotalMatches, "literal mode must not treat '.' as wildcard")

	res, err = g.Execute(context.Background(), map[string]any{"pattern": "foo.bar", "regex": true})
	require.NoError(t, err)
	var regexOut struct {
		TotalMatches int `json:"total_matches"`
	}
	decodeOutput(t, res, &regexOut)
	assert.Equal(t, 2, regexOut.TotalMatches, "regex mode treats '.' as any character")
}

func TestGrepEmptyPatternIsError(t *testing.T) {
	root := t.TempDir()
	g := NewGrepTool(root)
	res, err := g.Execute(context.Background(), map[string]any{"pattern": ""})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
