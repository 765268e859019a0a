// Package sqlite implements graphstore.Store against a local SQLite
// database via github.com/mattn/go-sqlite3, the reference persistent
// adapter for deployments that want memory to survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/locuscode/locus/internal/memory/graphstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	context_id TEXT NOT NULL,
	source TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_context_id ON events(context_id);

CREATE TABLE IF NOT EXISTS event_links (
	event_id INTEGER NOT NULL REFERENCES events(id),
	relation TEXT NOT NULL,
	target_context_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_links_target ON event_links(target_context_id);

CREATE TABLE IF NOT EXISTS contexts (
	context_id TEXT PRIMARY KEY,
	context_type TEXT NOT NULL,
	context_name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	reference_count INTEGER NOT NULL DEFAULT 0
);
`

// Store is a graphstore.Store backed by a SQLite database opened at path.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// applies the schema. Callers own the returned Store's lifetime and
// should call Close when done.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("graphstore/sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("graphstore/sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func splitContextID(contextID string) (kind, name string) {
	kind, name, ok := strings.Cut(contextID, ":")
	if !ok {
		return "fact", contextID
	}
	return kind, name
}

func (s *Store) touchContext(ctx context.Context, tx *sql.Tx, contextID string, ts int64) error {
	if contextID == "" {
		return nil
	}
	kind, name := splitContextID(contextID)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contexts (context_id, context_type, context_name, created_at, updated_at, reference_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(context_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			reference_count = reference_count + 1
	`, contextID, kind, name, ts, ts)
	return err
}

// CreateEvent inserts the event row, its four link rows, and touches the
// bookkeeping row for the event's own context id and every linked one,
// all inside one transaction.
func (s *Store) CreateEvent(ctx context.Context, req graphstore.CreateEventRequest) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	ts := req.Timestamp
	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (kind, context_id, source, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(req.Kind), req.ContextID, req.Source, string(req.Payload), ts)
	if err != nil {
		return "", fmt.Errorf("graphstore/sqlite: insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	links := []struct {
		relation string
		targets  []string
	}{
		{"related_to", req.Links.RelatedTo},
		{"extends", req.Links.Extends},
		{"reinforces", req.Links.Reinforces},
		{"contradicts", req.Links.Contradicts},
	}
	for _, l := range links {
		for _, target := range l.targets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_links (event_id, relation, target_context_id) VALUES (?, ?, ?)`,
				id, l.relation, target); err != nil {
				return "", fmt.Errorf("graphstore/sqlite: insert link: %w", err)
			}
			if err := s.touchContext(ctx, tx, target, ts); err != nil {
				return "", err
			}
		}
	}
	if err := s.touchContext(ctx, tx, req.ContextID, ts); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", id), nil
}

// Retrieve runs a SQL LIKE scan over context_id/source/payload, most
// recent first. Unlike graphstore/memory, where any one query word is
// enough, an event matches only if every query word appears in it.
func (s *Store) Retrieve(ctx context.Context, query string, opts graphstore.RetrieveOptions) (graphstore.ContextResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := strings.Builder{}
	sqlQuery.WriteString(`SELECT context_id, kind, source, payload FROM events WHERE 1=1`)
	var args []any

	if opts.ContextType.ContextType != "" {
		sqlQuery.WriteString(` AND kind = ?`)
		args = append(args, opts.ContextType.ContextType)
	}
	if len(opts.ContextIDs) > 0 {
		placeholders := strings.Repeat("?,", len(opts.ContextIDs))
		placeholders = placeholders[:len(placeholders)-1]
		sqlQuery.WriteString(fmt.Sprintf(` AND context_id IN (%s)`, placeholders))
		for _, id := range opts.ContextIDs {
			args = append(args, id)
		}
	}
	for _, word := range strings.Fields(strings.ToLower(query)) {
		sqlQuery.WriteString(` AND (lower(context_id) LIKE ? OR lower(source) LIKE ? OR lower(payload) LIKE ?)`)
		like := "%" + word + "%"
		args = append(args, like, like, like)
	}
	sqlQuery.WriteString(` ORDER BY id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery.String(), args...)
	if err != nil {
		return graphstore.ContextResult{}, fmt.Errorf("graphstore/sqlite: retrieve: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	count := 0
	for rows.Next() {
		var contextID, kind, source, payload string
		if err := rows.Scan(&contextID, &kind, &source, &payload); err != nil {
			return graphstore.ContextResult{}, err
		}
		fmt.Fprintf(&b, "- **%s** (%s, source=%s): %s\n", contextID, kind, source, payload)
		count++
	}
	if err := rows.Err(); err != nil {
		return graphstore.ContextResult{}, err
	}
	if count == 0 {
		return graphstore.ContextResult{}, nil
	}
	return graphstore.ContextResult{Memories: b.String(), ItemsFound: count}, nil
}

// Insights counts matching events and derives a confidence score the
// same way graphstore/memory does.
func (s *Store) Insights(ctx context.Context, task string, opts graphstore.InsightsOptions) (graphstore.InsightResult, error) {
	sqlQuery := strings.Builder{}
	sqlQuery.WriteString(`SELECT COUNT(*) FROM events WHERE 1=1`)
	var args []any

	if len(opts.ContextIDs) > 0 {
		placeholders := strings.Repeat("?,", len(opts.ContextIDs))
		placeholders = placeholders[:len(placeholders)-1]
		sqlQuery.WriteString(fmt.Sprintf(` AND context_id IN (%s)`, placeholders))
		for _, id := range opts.ContextIDs {
			args = append(args, id)
		}
	}
	for _, word := range strings.Fields(strings.ToLower(task)) {
		sqlQuery.WriteString(` AND (lower(context_id) LIKE ? OR lower(source) LIKE ? OR lower(payload) LIKE ?)`)
		like := "%" + word + "%"
		args = append(args, like, like, like)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, sqlQuery.String(), args...).Scan(&count); err != nil {
		return graphstore.InsightResult{}, fmt.Errorf("graphstore/sqlite: insights: %w", err)
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

// ListContextTypes returns distinct kinds with event counts, paginated.
func (s *Store) ListContextTypes(ctx context.Context, page graphstore.Page) ([]graphstore.ContextType, error) {
	size, offset := pageBounds(page)
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) c FROM events GROUP BY kind ORDER BY kind LIMIT ? OFFSET ?
	`, size, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graphstore.ContextType
	for rows.Next() {
		var ct graphstore.ContextType
		if err := rows.Scan(&ct.ContextType, &ct.Count); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// ListContextsByType returns every context row of contextType,
// most-recently-updated first, paginated.
func (s *Store) ListContextsByType(ctx context.Context, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	return s.queryContexts(ctx, `context_type = ?`, []any{contextType}, page)
}

// SearchContexts returns context rows whose name matches query,
// optionally narrowed to one type, paginated.
func (s *Store) SearchContexts(ctx context.Context, query, contextType string, page graphstore.Page) ([]graphstore.Context, error) {
	where := `context_name LIKE ?`
	args := []any{"%" + query + "%"}
	if contextType != "" {
		where += ` AND context_type = ?`
		args = append(args, contextType)
	}
	return s.queryContexts(ctx, where, args, page)
}

func (s *Store) queryContexts(ctx context.Context, where string, args []any, page graphstore.Page) ([]graphstore.Context, error) {
	size, offset := pageBounds(page)
	query := fmt.Sprintf(`
		SELECT context_id, context_type, context_name, created_at, updated_at, reference_count
		FROM contexts WHERE %s ORDER BY updated_at DESC LIMIT ? OFFSET ?
	`, where)
	rows, err := s.db.QueryContext(ctx, query, append(append([]any{}, args...), size, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graphstore.Context
	for rows.Next() {
		var c graphstore.Context
		if err := rows.Scan(&c.ContextID, &c.ContextType, &c.ContextName, &c.CreatedAt, &c.UpdatedAt, &c.ReferenceCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func pageBounds(page graphstore.Page) (size, offset int) {
	size = page.PageSize
	if size <= 0 {
		size = 20
	}
	if page.Page > 0 {
		offset = page.Page * size
	}
	return size, offset
}

var _ graphstore.Store = (*Store)(nil)
