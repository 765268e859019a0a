package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locuscode/locus/internal/memory/graphstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateEventThenRetrieveFindsItByKeyword(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{"note": "uses redis for caching"}).
		WithContextID("fact:redis_caching").WithSource("agent"))
	require.NoError(t, err)

	result, err := s.Retrieve(ctx, "redis", graphstore.RetrieveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsFound)
	assert.Contains(t, result.Memories, "redis_caching")
}

func TestCreateEventPersistsLinksAndTouchesTargetContexts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventAction, map[string]string{}).
		WithContextID("action:terminal_grep").
		WithLinks(graphstore.NewEventLinks().AddRelatedTo("observation:user_intent")))
	require.NoError(t, err)

	contexts, err := s.ListContextsByType(ctx, "observation", graphstore.Page{})
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	assert.Equal(t, "observation:user_intent", contexts[0].ContextID)
}

func TestListContextTypesCountsByKind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{}).WithContextID("fact:a"))
	s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{}).WithContextID("fact:b"))
	s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventAction, map[string]string{}).WithContextID("action:c"))

	types, err := s.ListContextTypes(ctx, graphstore.Page{})
	require.NoError(t, err)

	counts := map[string]int{}
	for _, ct := range types {
		counts[ct.ContextType] = ct.Count
	}
	assert.Equal(t, 2, counts["fact"])
	assert.Equal(t, 1, counts["action"])
}

func TestSearchContextsMatchesByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{}).WithContextID("fact:redis_caching"))
	s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{}).WithContextID("fact:postgres_pooling"))

	results, err := s.SearchContexts(ctx, "redis", "", graphstore.Page{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fact:redis_caching", results[0].ContextID)
}

func TestInsightsConfidenceGrowsWithEvidence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	none, err := s.Insights(ctx, "deploy", graphstore.InsightsOptions{})
	require.NoError(t, err)
	assert.Less(t, none.Confidence, 0.2)

	s.CreateEvent(ctx, graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{"x": "deploy steps"}).WithContextID("fact:deploy"))

	some, err := s.Insights(ctx, "deploy", graphstore.InsightsOptions{})
	require.NoError(t, err)
	assert.Greater(t, some.Confidence, none.Confidence)
}
