package dispatcher

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/locuscode/locus/internal/session"
)

// dangerousBashPatterns is the fixed deny-list of substrings that mark a
// bash command as destructive. This is a seatbelt, not a security
// boundary: it can be bypassed by whitespace tricks, pipes, or
// shell-variable expansion.
var dangerousBashPatterns = []string{
	"rm ",
	"rm -",
	"rmdir",
	"git push",
	"git reset --hard",
	"drop",
	"truncate",
	"delete from",
	":(){ :|:& };:",
	"mkfs",
	"dd if=",
	"> /dev/",
	"chmod -r 777",
	"chown -r",
}

// sensitivePathSubstrings marks a file-writing tool's target path as
// sensitive, case-insensitive.
var sensitivePathSubstrings = []string{
	".env",
	".ssh",
	".gnupg",
	"credentials",
	"secrets",
	"id_rsa",
	"authorized_keys",
}

// requiresConfirmation classifies tu as destructive by pattern, matching
// tool_handler.rs's requires_confirmation exactly: bash commands against
// the deny-list, edit_file/create_file against the sensitive-path list.
func requiresConfirmation(tu session.ToolUse) bool {
	switch tu.Name {
	case "bash":
		cmd := stringArg(tu.Args, "command")
		cmdLower := strings.ToLower(cmd)
		for _, pattern := range dangerousBashPatterns {
			if strings.Contains(cmdLower, pattern) {
				return true
			}
		}
		return false
	case "edit_file", "create_file":
		path := strings.ToLower(firstNonEmpty(stringArg(tu.Args, "path"), stringArg(tu.Args, "file_path")))
		for _, sensitive := range sensitivePathSubstrings {
			if strings.Contains(path, sensitive) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func stringArg(args json.RawMessage, key string) string {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ApprovalPolicy decides whether a destructive tool call proceeds. The
// spec leaves the exact mechanism open (§9); this is the pluggable
// collaborator the dispatcher consults.
type ApprovalPolicy interface {
	// Approve is called only for tool calls requiresConfirmation flags.
	// Returning false blocks dispatch; the call's result becomes a
	// structured error instead.
	Approve(ctx context.Context, tu session.ToolUse) bool
}

// AutoApproveWithWarning is the default ApprovalPolicy (Open Question
// resolution, see DESIGN.md): it never blocks dispatch, but every
// destructive call it sees is still surfaced on the event channel as a
// KindConfirmation event before execution, so a TUI consumer can at
// least display a warning even though nothing blocks on its response.
type AutoApproveWithWarning struct{}

// Approve always returns true.
func (AutoApproveWithWarning) Approve(ctx context.Context, tu session.ToolUse) bool { return true }
