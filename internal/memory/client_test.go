package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locuscode/locus/internal/memory/graphstore"
	memstore "github.com/locuscode/locus/internal/memory/graphstore/memory"
)

// failingStore always errors, simulating an unreachable graph service.
type failingStore struct{}

func (failingStore) CreateEvent(ctx context.Context, req graphstore.CreateEventRequest) (string, error) {
	return "", errors.New("connection refused")
}
func (failingStore) Retrieve(ctx context.Context, query string, opts graphstore.RetrieveOptions) (graphstore.ContextResult, error) {
	return graphstore.ContextResult{}, errors.New("connection refused")
}
func (failingStore) Insights(ctx context.Context, task string, opts graphstore.InsightsOptions) (graphstore.InsightResult, error) {
	return graphstore.InsightResult{}, errors.New("connection refused")
}
func (failingStore) ListContextTypes(ctx context.Context, page graphstore.Page) ([]graphstore.ContextType, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) ListContextsByType(ctx context.Context, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) SearchContexts(ctx context.Context, query, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	return nil, errors.New("connection refused")
}

func TestRetrieveMemoriesDegradesOnTransportFailure(t *testing.T) {
	c := New(failingStore{})
	defer c.Close()

	result := c.RetrieveMemories(context.Background(), "anything", graphstore.RetrieveOptions{})
	assert.True(t, result.Degraded)
	assert.Equal(t, 0, result.ItemsFound)
	assert.Empty(t, result.Memories)
}

func TestRetrieveMemoriesSucceedsAgainstWorkingStore(t *testing.T) {
	store := memstore.New()
	c := New(store)
	defer c.Close()

	_, err := c.StoreEventResult(context.Background(), graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{"x": "caching with redis"}).
		WithContextID("fact:redis"))
	require.NoError(t, err)

	result := c.RetrieveMemories(context.Background(), "redis", graphstore.RetrieveOptions{})
	assert.False(t, result.Degraded)
	assert.Equal(t, 1, result.ItemsFound)
}

func TestStoreEventIsFireAndForget(t *testing.T) {
	store := memstore.New()
	c := New(store)

	c.StoreEvent(graphstore.NewCreateEventRequest(graphstore.EventFact, map[string]string{}).WithContextID("fact:async"))
	c.Close() // waits for the worker to drain

	result, err := store.Retrieve(context.Background(), "", graphstore.RetrieveOptions{ContextIDs: []string{"fact:async"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsFound)
}

func TestStoreEventDropsRatherThanBlocksWhenQueueFull(t *testing.T) {
	c := &Client{store: memstore.New(), pending: make(chan graphstore.CreateEventRequest), done: make(chan struct{})}
	// No worker goroutine started: the channel has zero capacity, so the
	// very first StoreEvent call must hit the default branch and return
	// immediately instead of blocking forever.
	done := make(chan struct{})
	go func() {
		c.StoreEvent(graphstore.NewCreateEventRequest(graphstore.EventFact, nil).WithContextID("fact:x"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StoreEvent blocked instead of dropping")
	}
}
