package tool

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath resolves p against root and rejects any result that would
// escape root, mirroring the workspace-containment check every
// file-mutating built-in applies before touching disk.
func resolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	var full string
	if filepath.IsAbs(p) {
		full = p
	} else {
		full = filepath.Join(root, p)
	}
	full = filepath.Clean(full)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	absRoot = filepath.Clean(absRoot)

	if full != absRoot && !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace root: %s", p)
	}
	return full, nil
}
