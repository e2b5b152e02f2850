package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// SearchRepository implements report.SearchRepository for SQLite
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new SearchRepository
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Search performs a full-text search over report descriptions and locations.
// Results are ordered by bm25 rank, best first.
func (r *SearchRepository) Search(ctx context.Context, query string, opts report.SearchOptions) ([]report.SearchResult, error) {
	baseQuery := `
		SELECT
			r.id, r.owner_id, r.type, r.description, r.location, r.status,
			r.created_at, r.created_at_client,
			bm25(reports_fts) as rank,
			snippet(reports_fts, 0, '[', ']', '...', 8) as snippet
		FROM reports_fts
		JOIN reports r ON r.rowid = reports_fts.rowid
		WHERE reports_fts MATCH ?
	`

	args := []interface{}{query}
	conditions := []string{}

	if opts.OwnerID != "" {
		conditions = append(conditions, "r.owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, len(opts.Statuses))
		for i, status := range opts.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ",")))
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY rank, r.id"

	if opts.Limit > 0 {
		baseQuery += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			baseQuery += " LIMIT -1"
		}
		baseQuery += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search reports: %w", err)
	}
	defer rows.Close()

	var results []report.SearchResult
	for rows.Next() {
		var (
			rank    float64
			snippet string
		)
		doc, err := scanDocument(scanWithTail(rows, &rank, &snippet))
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, report.SearchResult{
			Report:  doc.Normalize(),
			Rank:    rank,
			Snippet: snippet,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// tailScanner appends extra destinations to every Scan call.
type tailScanner struct {
	row  rowScanner
	tail []any
}

func scanWithTail(row rowScanner, tail ...any) rowScanner {
	return tailScanner{row: row, tail: tail}
}

func (s tailScanner) Scan(dest ...any) error {
	return s.row.Scan(append(dest, s.tail...)...)
}
