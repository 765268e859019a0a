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

// defaultAllowedCommands is the allow-list a bash tool falls back to
// when none is configured: inspection commands plus git, go, npm,
// curl, wget and sh. Because sh is on the list, a command of the form
// `sh -c ...` can still run programs that are not listed.
var defaultAllowedCommands = []string{
	"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd",
	"git", "go", "npm", "curl", "wget", "echo", "date", "sh",
}

type BashArgs struct {
	Command    string `json:"command" mapstructure:"command"`
	WorkingDir string `json:"working_dir,omitempty" mapstructure:"working_dir"`
}

// BashConfig controls the bash tool's allow-list and execution bounds.
type BashConfig struct {
	AllowedCommands []string
	MaxDuration     time.Duration
}

// DefaultBashConfig returns the secure-by-default bash configuration:
// a narrow allow-list and a 30 second execution ceiling.
func DefaultBashConfig() BashConfig {
	return BashConfig{AllowedCommands: defaultAllowedCommands, MaxDuration: 30 * time.Second}
}

type bashTool struct {
	root   string
	config BashConfig
}

// NewBashTool executes a shell command under an allow-list and timeout.
// This is a seatbelt, not a sandbox: a caller with `sh -c` access can
// still chain disallowed commands via shell features the allow-list
// doesn't parse (pipes, subshells, env expansion). Callers that need a
// real security boundary must run this tool inside an OS-level sandbox
// (container, VM, restricted user).
func NewBashTool(root string, config BashConfig) Tool { return &bashTool{root: root, config: config} }

func (t *bashTool) Name() string        { return "bash" }
func (t *bashTool) Description() string { return "Run a shell command in the workspace." }
func (t *bashTool) Schema() *jsonschema.Schema { return SchemaFor(BashArgs{}) }

func (t *bashTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a BashArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	if strings.TrimSpace(a.Command) == "" {
		return ErrorResult("command cannot be empty", time.Since(start)), nil
	}
	if err := t.validateCommand(a.Command); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}

	workDir := t.root
	if a.WorkingDir != "" {
		full, err := resolvePath(t.root, a.WorkingDir)
		if err != nil {
			return ErrorResult(err.Error(), time.Since(start)), nil
		}
		workDir = full
	}

	maxDur := t.config.MaxDuration
	if maxDur <= 0 {
		maxDur = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, maxDur)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", a.Command)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return ErrorResult(fmt.Sprintf("command failed: %v", err), time.Since(start)), nil
		}
	}

	return SuccessResult(map[string]any{
		"command":   a.Command,
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}, time.Since(start)), nil
}

// validateCommand checks the command's leading word (first whitespace-
// separated token) against the allow-list. Shell operators (&&, |, ;)
// mean this only bounds the first invoked program, not the whole line.
func (t *bashTool) validateCommand(command string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("command cannot be empty")
	}
	head := fields[0]
	for _, allowed := range t.config.AllowedCommands {
		if head == allowed {
			return nil
		}
	}
	return fmt.Errorf("command %q is not in the allowed list", head)
}
