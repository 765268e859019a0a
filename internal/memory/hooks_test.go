package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locuscode/locus/internal/memory/graphstore"
	memstore "github.com/locuscode/locus/internal/memory/graphstore/memory"
)

func newTestClient(t *testing.T) (*Client, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	c := New(store)
	t.Cleanup(c.Close)
	return c, store
}

func TestStoreToolRunUsesTerminalContextIDAndLinksUserIntent(t *testing.T) {
	c, store := newTestClient(t)
	c.StoreToolRun("grep", map[string]string{"pattern": "foo"}, map[string]string{"matches": "1"}, 12, false, graphstore.EventLinks{})
	c.Close()

	contexts, err := store.SearchContexts(context.Background(), "terminal_grep", "action", graphstore.Page{})
	require.NoError(t, err)
	require.Len(t, contexts, 1)

	linked, err := store.ListContextsByType(context.Background(), "observation", graphstore.Page{})
	require.NoError(t, err)
	found := false
	for _, c := range linked {
		if c.ContextID == ContextUserIntent {
			found = true
		}
	}
	assert.True(t, found, "expected store_tool_run to reference the user-intent context via related_to")
}

func TestStoreToolRunIsErrorUsesObservationKind(t *testing.T) {
	c, store := newTestClient(t)
	c.StoreToolRun("bash", map[string]string{}, map[string]string{}, 5, true, graphstore.EventLinks{})
	c.Close()

	result, err := store.Retrieve(context.Background(), "tool_run", graphstore.RetrieveOptions{ContextType: graphstore.ContextTypeFilter{ContextType: "observation"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsFound)
}

func TestStoreUserIntentHasNoAutoLinks(t *testing.T) {
	c, store := newTestClient(t)
	c.StoreUserIntent("please fix the bug in main.go", "fix bug", graphstore.EventLinks{})
	c.Close()

	result, err := store.Retrieve(context.Background(), "fix bug", graphstore.RetrieveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsFound)
}

func TestStoreTestRunContradictsEditorOnFailure(t *testing.T) {
	c, store := newTestClient(t)
	c.StoreTestRun("pkg/foo_test.go", 3, 1, 100, nil, graphstore.EventLinks{})
	c.Close()

	linked, err := store.ListContextsByType(context.Background(), "action", graphstore.Page{})
	require.NoError(t, err)
	found := false
	for _, c := range linked {
		if c.ContextID == ContextEditorLink {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStoreSkillContextIDUsesSafeName(t *testing.T) {
	c, store := newTestClient(t)
	c.StoreSkill("Use Redis For Caching!", "cache hot reads", []string{"wire client", "set TTL"}, true, graphstore.EventLinks{})
	c.Close()

	contexts, err := store.SearchContexts(context.Background(), "use_redis_for_caching_", "fact", graphstore.Page{})
	require.NoError(t, err)
	require.Len(t, contexts, 1)
}

func TestStoreProjectConventionAndGitOpHashRepoName(t *testing.T) {
	c, store := newTestClient(t)
	c.StoreProjectConvention("github.com/acme/widgets", "use table-driven tests", nil, graphstore.EventLinks{})
	c.StoreGitOp("github.com/acme/widgets", "commit", nil, false, graphstore.EventLinks{})
	c.Close()

	expected := simpleHash("github.com/acme/widgets")

	facts, err := store.SearchContexts(context.Background(), "project_"+expected, "fact", graphstore.Page{})
	require.NoError(t, err)
	assert.Len(t, facts, 1)

	actions, err := store.SearchContexts(context.Background(), "git_"+expected, "action", graphstore.Page{})
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestBootstrapToolSchemasFiresOnePerDescriptor(t *testing.T) {
	c, store := newTestClient(t)
	c.BootstrapToolSchemas([]ToolDescriptor{
		{Name: "grep", Description: "search files"},
		{Name: "bash", Description: "run a command"},
	}, "toolbus")
	c.Close()

	contexts, err := store.ListContextsByType(context.Background(), "fact", graphstore.Page{})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, c := range contexts {
		names[c.ContextID] = true
	}
	assert.True(t, names["fact:tool_grep"])
	assert.True(t, names["fact:tool_bash"])
}
