package dispatcher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/locuscode/locus/internal/session"
)

func bashCall(command string) session.ToolUse {
	args, _ := json.Marshal(map[string]string{"command": command})
	return session.ToolUse{ID: "1", Name: "bash", Args: args}
}

func editCall(name, path string) session.ToolUse {
	args, _ := json.Marshal(map[string]string{"path": path})
	return session.ToolUse{ID: "1", Name: name, Args: args}
}

func TestRequiresConfirmationFlagsDestructiveBash(t *testing.T) {
	assert.True(t, requiresConfirmation(bashCall("rm -rf /tmp/build")))
	assert.True(t, requiresConfirmation(bashCall("git push --force origin main")))
	assert.True(t, requiresConfirmation(bashCall("DROP TABLE users")))
}

func TestRequiresConfirmationIgnoresSafeBash(t *testing.T) {
	assert.False(t, requiresConfirmation(bashCall("ls -la")))
	assert.False(t, requiresConfirmation(bashCall("git status")))
	assert.False(t, requiresConfirmation(bashCall("go test ./...")))
}

func TestRequiresConfirmationFlagsSensitiveFilePaths(t *testing.T) {
	assert.True(t, requiresConfirmation(editCall("edit_file", "/home/user/.ssh/id_rsa")))
	assert.True(t, requiresConfirmation(editCall("create_file", "secrets/api_keys.env")))
}

func TestRequiresConfirmationIgnoresOrdinaryFilePaths(t *testing.T) {
	assert.False(t, requiresConfirmation(editCall("edit_file", "src/main.go")))
}

func TestRequiresConfirmationIgnoresOtherToolNames(t *testing.T) {
	assert.False(t, requiresConfirmation(session.ToolUse{ID: "1", Name: "read_file", Args: json.RawMessage(`{"path":"/etc/passwd"}`)}))
}

func TestIsFileEditToolClassifiesMutatingToolsOnly(t *testing.T) {
	for _, name := range []string{"edit_file", "multi_edit_file", "create_file", "undo_edit", "delete_file"} {
		assert.True(t, isFileEditTool(name), name)
	}
	for _, name := range []string{"read_file", "grep", "bash", "tool_search"} {
		assert.False(t, isFileEditTool(name), name)
	}
}

func TestAutoApproveWithWarningAlwaysApproves(t *testing.T) {
	policy := AutoApproveWithWarning{}
	assert.True(t, policy.Approve(nil, bashCall("rm -rf /")))
}
