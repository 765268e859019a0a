// Package memory implements the Memory Client: a thin wrapper over a
// graphstore.Store that degrades gracefully on recall failure, fires
// typed hooks fire-and-forget, and exposes paginated browsing for
// diagnostics. See graphstore for the wire types and storage contract.
package memory

import (
	"context"
	"log/slog"

	"github.com/locuscode/locus/internal/memory/graphstore"
)

// Client is the runtime's single memory collaborator; it is shareable
// across concurrent goroutines. Write ordering across StoreEvent calls
// is not guaranteed — only that each is eventually applied or dropped
// with a logged reason.
type Client struct {
	store graphstore.Store

	pending chan graphstore.CreateEventRequest
	done    chan struct{}
}

// QueueSize is the fire-and-forget worker's buffer depth; once the
// worker falls this far behind, StoreEvent drops new events (with a
// logged warning) instead of blocking.
const QueueSize = 256

// New wraps store and starts the fire-and-forget worker goroutine that
// backs StoreEvent. Callers should call Close on shutdown to drain it.
func New(store graphstore.Store) *Client {
	c := &Client{
		store:   store,
		pending: make(chan graphstore.CreateEventRequest, QueueSize),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Client) run() {
	defer close(c.done)
	for req := range c.pending {
		if _, err := c.store.CreateEvent(context.Background(), req); err != nil {
			slog.Warn("memory: fire-and-forget store_event failed", "context_id", req.ContextID, "error", err)
		}
	}
}

// Close stops accepting new fire-and-forget events and waits for the
// worker to drain whatever is already queued.
func (c *Client) Close() {
	close(c.pending)
	<-c.done
}

// RetrieveMemories asks the store for up to opts.Limit memories matching
// query. It never errors to the caller: a transport failure degrades to
// an empty, degraded=true result so the agent loop remains functional
// without memory.
func (c *Client) RetrieveMemories(ctx context.Context, query string, opts graphstore.RetrieveOptions) graphstore.ContextResult {
	result, err := c.store.Retrieve(ctx, query, opts)
	if err != nil {
		slog.Warn("memory: retrieve_memories degraded", "query", query, "error", err)
		return graphstore.ContextResult{Degraded: true}
	}
	return result
}

// GenerateInsight asks the store to summarise events relevant to task.
// Unlike RetrieveMemories, it does not degrade: a store failure is
// logged and returned to the caller.
func (c *Client) GenerateInsight(ctx context.Context, task string, opts graphstore.InsightsOptions) (graphstore.InsightResult, error) {
	result, err := c.store.Insights(ctx, task, opts)
	if err != nil {
		slog.Warn("memory: generate_insight failed", "task", task, "error", err)
		return graphstore.InsightResult{}, err
	}
	return result, nil
}

// ListContextTypes lists the distinct context types known to the store.
func (c *Client) ListContextTypes(ctx context.Context, page graphstore.Page) ([]graphstore.ContextType, error) {
	return c.store.ListContextTypes(ctx, page)
}

// ListContextsByType lists the contexts of one type.
func (c *Client) ListContextsByType(ctx context.Context, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	return c.store.ListContextsByType(ctx, contextType, page)
}

// SearchContexts searches contexts by name, optionally narrowed to one
// type.
func (c *Client) SearchContexts(ctx context.Context, query, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	return c.store.SearchContexts(ctx, query, contextType, page)
}

// StoreEvent enqueues req for asynchronous, fire-and-forget persistence.
// If the worker's queue is full it logs and drops the event rather than
// blocking the caller — a lossy write-back path is the documented
// trade-off for never stalling the agent loop on memory.
func (c *Client) StoreEvent(req graphstore.CreateEventRequest) {
	select {
	case c.pending <- req:
	default:
		slog.Warn("memory: store_event dropped, worker queue full", "context_id", req.ContextID)
	}
}

// StoreEventResult stores req synchronously and returns its assigned id,
// the reliable variant StoreEvent forgoes for throughput — tests and any
// caller that needs the id should use this instead.
func (c *Client) StoreEventResult(ctx context.Context, req graphstore.CreateEventRequest) (string, error) {
	return c.store.CreateEvent(ctx, req)
}
