// Package store is the record store: durable report rows behind a
// push-subscribable change feed, with an optional mirror to a message bus.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/feed"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// Mirror receives every document written to the store.
type Mirror interface {
	Publish(ctx context.Context, doc report.Document) error
}

// Store wraps a report repository with change notification.
type Store struct {
	reports report.Repository
	hub     *feed.Hub
	mirror  Mirror
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a store. mirror may be nil.
func New(reports report.Repository, mirror Mirror, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{
		reports: reports,
		mirror:  mirror,
		logger:  logger,
		now:     time.Now,
	}
	s.hub = feed.NewHub(s.loadAll, logger)
	return s
}

// Subscribe opens a change-feed subscription. The first batch is the
// current state.
func (s *Store) Subscribe(ctx context.Context, filter feed.Filter) (feed.Subscription, error) {
	return s.hub.Subscribe(ctx, filter)
}

// Fetch reads the current filtered document set once, without subscribing.
func (s *Store) Fetch(ctx context.Context, filter feed.Filter) ([]report.Document, error) {
	docs, err := s.reports.List(ctx, report.ListOptions{OwnerID: filter.OwnerID})
	if err != nil {
		return nil, fmt.Errorf("fetching reports: %w", err)
	}
	return docs, nil
}

// UpdateStatus writes a status change and notifies subscribers.
func (s *Store) UpdateStatus(ctx context.Context, id string, status report.Status) error {
	if strings.TrimSpace(id) == "" {
		return report.ErrInvalidInput
	}
	if _, err := report.ParseStatus(string(status)); err != nil {
		return err
	}

	if err := s.reports.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return report.ErrReportNotFound
		}
		return fmt.Errorf("updating report status: %w", err)
	}

	if s.mirror != nil {
		if doc, err := s.reports.Get(ctx, id); err != nil {
			s.logger.Warn("mirror_lookup_failed", "report_id", id, "error", err)
		} else {
			s.mirrorDocument(ctx, *doc)
		}
	}
	s.publish(ctx)
	return nil
}

// CreateReport stores a new report and returns the confirmed document.
func (s *Store) CreateReport(ctx context.Context, req report.SubmitRequest) (report.Document, error) {
	if err := report.ValidateSubmit(req); err != nil {
		return report.Document{}, err
	}

	now := s.now().UTC()
	doc := report.Document{
		ID:      uuid.NewString(),
		OwnerID: req.OwnerID,
		Type:    string(report.NormalizeCategory(req.Category)),
		Status:  string(report.StatusNew),
	}
	doc.ServerTime = &now
	if desc := strings.TrimSpace(req.Description); desc != "" {
		doc.Description = &desc
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		doc.Location = &loc
	}

	if err := s.reports.Create(ctx, &doc); err != nil {
		return report.Document{}, fmt.Errorf("creating report: %w", err)
	}

	s.mirrorDocument(ctx, doc)
	s.publish(ctx)
	return doc, nil
}

// Publish pushes the current state to subscribers. Writes call it
// automatically; callers that change rows behind the store's back use it to
// resynchronize.
func (s *Store) Publish(ctx context.Context) error {
	return s.hub.Publish(ctx)
}

func (s *Store) publish(ctx context.Context) {
	if err := s.hub.Publish(ctx); err != nil {
		s.logger.Warn("feed_publish_failed", "error", err)
	}
}

func (s *Store) mirrorDocument(ctx context.Context, doc report.Document) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Publish(ctx, doc); err != nil {
		s.logger.Warn("mirror_publish_failed", "report_id", doc.ID, "error", err)
	}
}

func (s *Store) loadAll(ctx context.Context) ([]report.Document, error) {
	return s.reports.List(ctx, report.ListOptions{})
}
