package report

import "context"

// Repository provides persistence for report documents.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	List(ctx context.Context, opts ListOptions) ([]Document, error)
}

// SearchRepository performs full-text search.
type SearchRepository interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}
