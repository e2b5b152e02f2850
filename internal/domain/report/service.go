package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/civicwatch/civicwatch/internal/repository"
)

// Service handles read access to stored reports outside the live snapshot.
type Service struct {
	reports Repository
	search  SearchRepository
	logger  *slog.Logger
}

// NewService creates a new report service.
func NewService(reports Repository, search SearchRepository, logger *slog.Logger) *Service {
	return &Service{
		reports: reports,
		search:  search,
		logger:  logger,
	}
}

// Get returns a normalized report by ID.
func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.reports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("getting report: %w", err)
	}
	rep := doc.Normalize()
	return &rep, nil
}

// List returns normalized reports newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Report, error) {
	docs, err := s.reports.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return Normalized(docs), nil
}

// Search runs full-text search over descriptions and locations.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if s.search == nil {
		return nil, fmt.Errorf("search repository not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	return s.search.Search(ctx, query, opts)
}
