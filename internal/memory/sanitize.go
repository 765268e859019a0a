package memory

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
)

// safeContextName sanitises s for use as the name half of a "kind:name"
// context id: upper-case letters are lowercased, lower-case letters,
// digits and '_' are kept, and every other rune becomes an underscore.
func safeContextName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}

// pathToContext turns a filesystem path into a context-safe string by
// replacing path and extension separators with underscores.
func pathToContext(path string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ".", "_", ":", "_")
	return replacer.Replace(path)
}

// simpleHash returns a short hex digest of s, used where a context id
// needs a stable per-value suffix (repo names, git remotes) without
// leaking the raw value into the id.
func simpleHash(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return strconv.FormatUint(h.Sum64(), 16)
}

// truncateString returns s truncated to at most maxLen bytes, cut at the
// nearest preceding UTF-8 rune boundary so multi-byte characters are
// never split.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	end := maxLen
	for end > 0 && !isRuneBoundary(s, end) {
		end--
	}
	return s[:end]
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i >= len(s) {
		return true
	}
	// A byte is a UTF-8 continuation byte iff its top two bits are 10.
	return s[i]&0xC0 != 0x80
}

// truncateResult renders value as JSON and, if it exceeds 1000 bytes,
// replaces it with a {truncated, preview, length} wrapper previewing the
// first 500 bytes (rune-boundary safe) rather than storing the whole
// payload — mirrors the result-preview behaviour tool-run events need so
// large tool output doesn't bloat the graph.
func truncateResult(value any) json.RawMessage {
	raw, err := json.Marshal(value)
	if err != nil {
		return json.RawMessage(`{"error":"serialization_failed"}`)
	}
	if len(raw) <= 1000 {
		return raw
	}
	preview := truncateString(string(raw), 500)
	wrapped, err := json.Marshal(map[string]any{
		"truncated": true,
		"preview":   preview,
		"length":    len(raw),
	})
	if err != nil {
		return json.RawMessage(`{"error":"serialization_failed"}`)
	}
	return wrapped
}
