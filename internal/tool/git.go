package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

// gitTool wraps a single git subcommand. The subcommand and its fixed
// argument prefix are set at construction, never influenced by model
// input, so these tools can't be redirected into an arbitrary git
// invocation the way a raw bash git call could.
type gitTool struct {
	root     string
	name     string
	desc     string
	subArgs  []string
	schema   *jsonschema.Schema
	buildCmd func(a map[string]any) ([]string, error)
}

func (t *gitTool) Name() string                    { return t.name }
func (t *gitTool) Description() string             { return t.desc }
func (t *gitTool) Schema() *jsonschema.Schema { return t.schema }

func (t *gitTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	extra, err := t.buildCmd(args)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	full := append(append([]string{}, t.subArgs...), extra...)

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(runCtx, "git", full...)
	cmd.Dir = t.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return ErrorResult(fmt.Sprintf("git %s: %v", t.name, runErr), time.Since(start)), nil
		}
	}
	return SuccessResult(map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}, time.Since(start)), nil
}

type emptyArgs struct{}

// NewGitStatusTool reports the working tree status.
func NewGitStatusTool(root string) Tool {
	return &gitTool{
		root: root, name: "git_status", desc: "Show the working tree status (git status --porcelain).",
		subArgs: []string{"status", "--porcelain=v1", "--branch"},
		schema:  SchemaFor(emptyArgs{}),
		buildCmd: func(a map[string]any) ([]string, error) { return nil, nil },
	}
}

type GitDiffArgs struct {
	Staged bool `json:"staged,omitempty" mapstructure:"staged"`
}

// NewGitDiffTool shows unstaged (or, with staged=true, staged) changes.
func NewGitDiffTool(root string) Tool {
	return &gitTool{
		root: root, name: "git_diff", desc: "Show unstaged changes, or staged changes with staged=true.",
		subArgs: []string{"diff"},
		schema:  SchemaFor(GitDiffArgs{}),
		buildCmd: func(a map[string]any) ([]string, error) {
			var parsed GitDiffArgs
			if err := decodeArgs(a, &parsed); err != nil {
				return nil, err
			}
			if parsed.Staged {
				return []string{"--staged"}, nil
			}
			return nil, nil
		},
	}
}

type GitAddArgs struct {
	Paths []string `json:"paths" mapstructure:"paths"`
}

// NewGitAddTool stages the given paths (or everything, if paths is empty).
func NewGitAddTool(root string) Tool {
	return &gitTool{
		root: root, name: "git_add", desc: "Stage files for commit.",
		subArgs: []string{"add"},
		schema:  SchemaFor(GitAddArgs{}),
		buildCmd: func(a map[string]any) ([]string, error) {
			var parsed GitAddArgs
			if err := decodeArgs(a, &parsed); err != nil {
				return nil, err
			}
			if len(parsed.Paths) == 0 {
				return []string{"-A"}, nil
			}
			return parsed.Paths, nil
		},
	}
}

type GitCommitArgs struct {
	Message string `json:"message" mapstructure:"message"`
}

// NewGitCommitTool commits staged changes with the given message.
func NewGitCommitTool(root string) Tool {
	return &gitTool{
		root: root, name: "git_commit", desc: "Commit staged changes.",
		subArgs: []string{"commit"},
		schema:  SchemaFor(GitCommitArgs{}),
		buildCmd: func(a map[string]any) ([]string, error) {
			var parsed GitCommitArgs
			if err := decodeArgs(a, &parsed); err != nil {
				return nil, err
			}
			if strings.TrimSpace(parsed.Message) == "" {
				return nil, fmt.Errorf("message cannot be empty")
			}
			return []string{"-m", parsed.Message}, nil
		},
	}
}

type GitPushArgs struct {
	Remote string `json:"remote,omitempty" mapstructure:"remote"`
	Branch string `json:"branch,omitempty" mapstructure:"branch"`
}

// NewGitPushTool pushes the current (or given) branch to a remote. This
// tool matches a confirmation-gated destructive pattern and should only
// run after the dispatcher's approval gate clears it.
func NewGitPushTool(root string) Tool {
	return &gitTool{
		root: root, name: "git_push", desc: "Push commits to a remote.",
		subArgs: []string{"push"},
		schema:  SchemaFor(GitPushArgs{}),
		buildCmd: func(a map[string]any) ([]string, error) {
			var parsed GitPushArgs
			if err := decodeArgs(a, &parsed); err != nil {
				return nil, err
			}
			var extra []string
			if parsed.Remote != "" {
				extra = append(extra, parsed.Remote)
			}
			if parsed.Branch != "" {
				extra = append(extra, parsed.Branch)
			}
			return extra, nil
		},
	}
}
