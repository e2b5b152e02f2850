// Package feed defines the record store change-feed contract and an
// in-process fan-out hub implementing it.
package feed

import (
	"context"
	"errors"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// ErrClosed is returned by Next once the subscription has been closed.
var ErrClosed = errors.New("subscription closed")

// Filter restricts a subscription to a subset of documents.
type Filter struct {
	// OwnerID limits the feed to documents owned by one principal.
	OwnerID string
}

// Matches reports whether doc passes the filter.
func (f Filter) Matches(doc report.Document) bool {
	return f.OwnerID == "" || doc.OwnerID == f.OwnerID
}

// Apply returns the documents passing the filter, preserving order.
func (f Filter) Apply(docs []report.Document) []report.Document {
	out := make([]report.Document, 0, len(docs))
	for _, doc := range docs {
		if f.Matches(doc) {
			out = append(out, doc)
		}
	}
	return out
}

// Batch is one change delivery. Documents always holds the full filtered
// result set, never a delta. Seq increases across deliveries.
type Batch struct {
	Seq       uint64
	Documents []report.Document
}

// Source is a push-subscribable record store.
type Source interface {
	Subscribe(ctx context.Context, filter Filter) (Subscription, error)
}

// Subscription delivers batches until closed.
type Subscription interface {
	// Next blocks until a batch is available, the context ends or the
	// subscription is closed.
	Next(ctx context.Context) (Batch, error)
	Close() error
}
