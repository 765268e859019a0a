package tool

// RegisterBuiltins populates reg with the full built-in tool set rooted
// at repoRoot, sharing one undo History across every file-mutating tool.
func RegisterBuiltins(reg *Registry, repoRoot string, bashConfig BashConfig) error {
	history := NewHistory()

	builtins := []Tool{
		NewReadFileTool(repoRoot),
		NewCreateFileTool(repoRoot, history),
		NewEditFileTool(repoRoot, history),
		NewMultiEditFileTool(repoRoot, history),
		NewDeleteFileTool(repoRoot, history),
		NewUndoEditTool(repoRoot, history),
		NewListDirectoryTool(repoRoot),
		NewGrepTool(repoRoot),
		NewBashTool(repoRoot, bashConfig),
		NewGitStatusTool(repoRoot),
		NewGitDiffTool(repoRoot),
		NewGitAddTool(repoRoot),
		NewGitCommitTool(repoRoot),
		NewGitPushTool(repoRoot),
	}

	for _, t := range builtins {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
