// Package memory implements graphstore.Store as an in-process, map-backed
// adapter. It is the zero-config default and the one used by tests: no
// external service, no disk state, events vanish with the process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/locuscode/locus/internal/memory/graphstore"
)

type event struct {
	id        string
	req       graphstore.CreateEventRequest
	seq       int
	timestamp int64
}

// Store is an in-memory graphstore.Store. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	events  []event
	nextSeq int

	// contexts tracks first-seen/last-touched bookkeeping per context id,
	// independent of any single event, so ListContextTypes/
	// ListContextsByType/SearchContexts can answer without rescanning
	// every event's payload each call.
	contexts map[string]*contextRow
}

type contextRow struct {
	contextID string
	kind      string
	name      string
	createdAt int64
	updatedAt int64
	refCount  int
}

// New creates an empty Store.
func New() *Store {
	return &Store{contexts: make(map[string]*contextRow)}
}

func splitContextID(contextID string) (kind, name string) {
	kind, name, ok := strings.Cut(contextID, ":")
	if !ok {
		return "fact", contextID
	}
	return kind, name
}

func (s *Store) touchContext(contextID string, ts int64) {
	row, ok := s.contexts[contextID]
	if !ok {
		kind, name := splitContextID(contextID)
		row = &contextRow{contextID: contextID, kind: kind, name: name, createdAt: ts}
		s.contexts[contextID] = row
	}
	row.updatedAt = ts
	row.refCount++
}

// CreateEvent stores req and touches the bookkeeping row for its context
// id and every linked context id (links make a context "referenced" even
// if no event was filed directly under it).
func (s *Store) CreateEvent(ctx context.Context, req graphstore.CreateEventRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := req.Timestamp
	if ts == 0 {
		ts = int64(s.nextSeq) // deterministic, monotonic stand-in clock
	}
	s.nextSeq++
	id := strconv.Itoa(s.nextSeq)

	s.events = append(s.events, event{id: id, req: req, seq: s.nextSeq, timestamp: ts})

	if req.ContextID != "" {
		s.touchContext(req.ContextID, ts)
	}
	for _, id := range allLinks(req.Links) {
		s.touchContext(id, ts)
	}
	return id, nil
}

func allLinks(l graphstore.EventLinks) []string {
	out := make([]string, 0, len(l.RelatedTo)+len(l.Extends)+len(l.Reinforces)+len(l.Contradicts))
	out = append(out, l.RelatedTo...)
	out = append(out, l.Extends...)
	out = append(out, l.Reinforces...)
	out = append(out, l.Contradicts...)
	return out
}

func matchesQuery(e event, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	haystack := strings.ToLower(e.req.ContextID + " " + e.req.Source + " " + string(e.req.Payload))
	for _, word := range strings.Fields(q) {
		if strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

func matchesOptions(e event, opts graphstore.RetrieveOptions) bool {
	if opts.ContextType.ContextType != "" {
		if string(e.req.Kind) != opts.ContextType.ContextType {
			return false
		}
	}
	if len(opts.ContextIDs) > 0 {
		found := false
		for _, id := range opts.ContextIDs {
			if id == e.req.ContextID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Retrieve implements a naive keyword-overlap scorer: events whose
// context id, source, or payload JSON contains a query word are
// candidates, most-recent first, truncated to opts.Limit (default 10).
func (s *Store) Retrieve(ctx context.Context, query string, opts graphstore.RetrieveOptions) (graphstore.ContextResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	var matched []event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if matchesOptions(e, opts) && matchesQuery(e, query) {
			matched = append(matched, e)
			if len(matched) >= limit {
				break
			}
		}
	}

	if len(matched) == 0 {
		return graphstore.ContextResult{}, nil
	}

	var b strings.Builder
	for _, e := range matched {
		fmt.Fprintf(&b, "- **%s** (%s, source=%s): %s\n", e.req.ContextID, e.req.Kind, e.req.Source, string(e.req.Payload))
	}
	return graphstore.ContextResult{Memories: b.String(), ItemsFound: len(matched)}, nil
}

// Insights summarises the events matching task into a single
// recommendation; confidence grows with how much corroborating evidence
// was found, capped at 0.95 (never full certainty — this is a heuristic,
// not a model).
func (s *Store) Insights(ctx context.Context, task string, opts graphstore.InsightsOptions) (graphstore.InsightResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events {
		if len(opts.ContextIDs) > 0 {
			found := false
			for _, id := range opts.ContextIDs {
				if id == e.req.ContextID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if matchesQuery(e, task) {
			count++
		}
	}

	if count == 0 {
		return graphstore.InsightResult{
			Insight:        "no prior events relate to this task",
			Recommendation: "proceed without additional context",
			Confidence:     0.1,
		}, nil
	}

	confidence := 0.3 + 0.1*float64(count)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return graphstore.InsightResult{
		Insight:        fmt.Sprintf("%d related event(s) found for %q", count, task),
		Recommendation: "review related events before proceeding",
		Confidence:     confidence,
	}, nil
}

// ListContextTypes returns the distinct kinds present, with event counts
// (not reference counts), alphabetically, paginated.
func (s *Store) ListContextTypes(ctx context.Context, page graphstore.Page) ([]graphstore.ContextType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.events {
		kind, _ := splitContextID(e.req.ContextID)
		counts[kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	out := make([]graphstore.ContextType, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, graphstore.ContextType{ContextType: k, Count: counts[k]})
	}
	return paginate(out, page), nil
}

// ListContextsByType returns every context row of the given kind,
// most-recently-updated first, paginated.
func (s *Store) ListContextsByType(ctx context.Context, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.contextsOfType(contextType, ""), page), nil
}

// SearchContexts returns context rows whose name contains query,
// optionally narrowed to one type, paginated.
func (s *Store) SearchContexts(ctx context.Context, query, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.contextsOfType(contextType, query), page), nil
}

func (s *Store) contextsOfType(contextType, nameQuery string) []graphstore.Context {
	var rows []*contextRow
	for _, row := range s.contexts {
		if contextType != "" && row.kind != contextType {
			continue
		}
		if nameQuery != "" && !strings.Contains(strings.ToLower(row.name), strings.ToLower(nameQuery)) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].updatedAt > rows[j].updatedAt })

	out := make([]graphstore.Context, 0, len(rows))
	for _, row := range rows {
		out = append(out, graphstore.Context{
			ContextID:      row.contextID,
			ContextType:    row.kind,
			ContextName:    row.name,
			CreatedAt:      row.createdAt,
			UpdatedAt:      row.updatedAt,
			ReferenceCount: row.refCount,
		})
	}
	return out
}

func paginate[T any](items []T, page graphstore.Page) []T {
	size := page.PageSize
	if size <= 0 {
		size = 20
	}
	start := page.Page * size
	if start < 0 || start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var _ graphstore.Store = (*Store)(nil)
