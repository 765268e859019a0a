package graphstore

import "context"

// Store is the collaborator contract the Memory Client depends on. Both
// graphstore/memory and graphstore/sqlite implement it; original_source
// treats the graph as an external service reached over RPC, but the Go
// port generalises the transport away behind this interface so the
// in-process adapter and the SQLite-backed one are interchangeable.
type Store interface {
	// CreateEvent persists one event and returns its assigned id.
	CreateEvent(ctx context.Context, req CreateEventRequest) (string, error)

	// Retrieve renders a markdown digest of events matching query,
	// bounded by opts.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) (ContextResult, error)

	// Insights summarises events relevant to task into a recommendation.
	Insights(ctx context.Context, task string, opts InsightsOptions) (InsightResult, error)

	// ListContextTypes returns the distinct context types and their
	// event counts, paginated.
	ListContextTypes(ctx context.Context, page Page) ([]ContextType, error)

	// ListContextsByType returns the contexts of one type, paginated.
	ListContextsByType(ctx context.Context, contextType string, page Page) ([]Context, error)

	// SearchContexts returns contexts matching query, optionally
	// narrowed to one type, paginated.
	SearchContexts(ctx context.Context, query, contextType string, page Page) ([]Context, error)
}
