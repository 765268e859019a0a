package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
)

// skippedDirs are never descended into: build output, package caches,
// and VCS metadata produce noise, not matches.
var skippedDirs = map[string]bool{
	"node_modules": true, "vendor": true, ".git": true, "target": true, "dist": true, "build": true,
}

type GrepMatch struct {
	File          string   `json:"file"`
	LineNumber    int      `json:"line_number"`
	Column        int      `json:"column"`
	Line          string   `json:"line"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

type GrepArgs struct {
	Pattern       string `json:"pattern" mapstructure:"pattern"`
	Path          string `json:"path,omitempty" mapstructure:"path"`
	Regex         bool   `json:"regex,omitempty" mapstructure:"regex"`
	CaseSensitive bool   `json:"case_sensitive,omitempty" mapstructure:"case_sensitive"`
	FilesOnly     bool   `json:"files_only,omitempty" mapstructure:"files_only"`
	ContextLines  int    `json:"context_lines,omitempty" mapstructure:"context_lines"`
	MaxResults    int    `json:"max_results,omitempty" mapstructure:"max_results"`
}

const defaultGrepMaxResults = 200

type grepTool struct{ root string }

// NewGrepTool recursively searches text files under root for a literal
// or regular-expression pattern, skipping VCS/build directories and
// non-UTF-8 files.
func NewGrepTool(root string) Tool { return &grepTool{root: root} }

func (t *grepTool) Name() string { return "grep" }
func (t *grepTool) Description() string {
	return "Recursively search file contents for a pattern, with optional regex and context lines."
}
func (t *grepTool) Schema() *jsonschema.Schema { return SchemaFor(GrepArgs{}) }

func (t *grepTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	start := time.Now()
	var a GrepArgs
	if err := decodeArgs(args, &a); err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	if strings.TrimSpace(a.Pattern) == "" {
		return ErrorResult("pattern cannot be empty", time.Since(start)), nil
	}
	if a.MaxResults <= 0 {
		a.MaxResults = defaultGrepMaxResults
	}

	pattern := a.Pattern
	if !a.Regex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if !a.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ErrorResult(fmt.Sprintf("invalid pattern: %v", err), time.Since(start)), nil
	}

	searchPath := t.root
	if a.Path != "" {
		full, err := resolvePath(t.root, a.Path)
		if err != nil {
			return ErrorResult(err.Error(), time.Since(start)), nil
		}
		if _, err := os.Stat(full); err != nil {
			return ErrorResult(fmt.Sprintf("path does not exist: %s", a.Path), time.Since(start)), nil
		}
		searchPath = full
	}

	var matches []GrepMatch
	filesWithMatches := 0
	totalMatches := 0
	truncated := false

	searchFile := func(path string) {
		if truncated {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		if !utf8.Valid(data) {
			return
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			rel = path
		}
		lines := strings.Split(string(data), "\n")
		fileHasMatch := false

		for i, line := range lines {
			if len(matches) >= a.MaxResults {
				truncated = true
				return
			}
			locs := re.FindAllStringIndex(line, -1)
			for _, loc := range locs {
				if len(matches) >= a.MaxResults {
					truncated = true
					return
				}
				if !fileHasMatch {
					fileHasMatch = true
					filesWithMatches++
				}
				totalMatches++
				if a.FilesOnly {
					continue
				}
				m := GrepMatch{File: rel, LineNumber: i + 1, Column: loc[0] + 1, Line: line}
				if a.ContextLines > 0 {
					before := max(0, i-a.ContextLines)
					after := min(len(lines), i+a.ContextLines+1)
					m.ContextBefore = append([]string{}, lines[before:i]...)
					m.ContextAfter = append([]string{}, lines[i+1:after]...)
				}
				matches = append(matches, m)
			}
		}
		if fileHasMatch && a.FilesOnly {
			matches = append(matches, GrepMatch{File: rel})
		}
	}

	info, err := os.Stat(searchPath)
	if err != nil {
		return ErrorResult(err.Error(), time.Since(start)), nil
	}
	if !info.IsDir() {
		searchFile(searchPath)
	} else {
		_ = filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if truncated {
				return filepath.SkipAll
			}
			if d.IsDir() {
				name := d.Name()
				if name != "." && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
					return filepath.SkipDir
				}
				return nil
			}
			searchFile(path)
			return nil
		})
	}

	return SuccessResult(map[string]any{
		"pattern":            a.Pattern,
		"matches":            matches,
		"total_matches":      totalMatches,
		"files_with_matches": filesWithMatches,
		"truncated":          truncated,
	}, time.Since(start)), nil
}
