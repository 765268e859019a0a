package memory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeContextNameLowercasesAndReplacesNonAlnum(t *testing.T) {
	assert.Equal(t, "use_redis_for_caching_", safeContextName("Use Redis For Caching!"))
}

func TestPathToContextReplacesSeparatorsAndDots(t *testing.T) {
	assert.Equal(t, "pkg_foo_test_go", pathToContext("pkg/foo_test.go"))
}

func TestSimpleHashIsStableForSameInput(t *testing.T) {
	assert.Equal(t, simpleHash("github.com/acme/widgets"), simpleHash("github.com/acme/widgets"))
	assert.NotEqual(t, simpleHash("a"), simpleHash("b"))
}

func TestTruncateStringIsUTF8BoundarySafe(t *testing.T) {
	s := strings.Repeat("a", 10) + "日本語"
	truncated := truncateString(s, 11)
	assert.True(t, len(truncated) <= 11)
	// Must not have cut a multi-byte rune in half.
	assert.True(t, isRuneBoundary(s, len(truncated)))
}

func TestTruncateStringNoopUnderLimit(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 500))
}

func TestTruncateResultWrapsOversizedPayload(t *testing.T) {
	big := map[string]string{"output": strings.Repeat("x", 2000)}
	raw := truncateResult(big)

	var wrapped map[string]any
	require.NoError(t, json.Unmarshal(raw, &wrapped))
	assert.Equal(t, true, wrapped["truncated"])
	assert.NotEmpty(t, wrapped["preview"])
}

func TestTruncateResultPassesThroughSmallPayload(t *testing.T) {
	small := map[string]string{"ok": "true"}
	raw := truncateResult(small)

	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "true", out["ok"])
}
