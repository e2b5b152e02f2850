package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// Loader reads the current authoritative document set.
type Loader func(ctx context.Context) ([]report.Document, error)

// Hub fans the record store's state out to in-process subscribers. Every
// Publish reloads the document set once and hands each subscriber its
// filtered view. A subscriber keeps only its latest undelivered batch, so a
// slow reader skips intermediate states but never sees them out of order.
type Hub struct {
	load   Loader
	logger *slog.Logger

	// pubMu serializes load-and-deliver so batches are totally ordered.
	pubMu sync.Mutex
	mu    sync.Mutex
	seq   uint64
	subs  map[*hubSubscription]struct{}
}

// NewHub creates a hub reading documents through load.
func NewHub(load Loader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		load:   load,
		logger: logger,
		subs:   make(map[*hubSubscription]struct{}),
	}
}

// Subscribe registers a subscriber. The first Next returns the current state.
func (h *Hub) Subscribe(ctx context.Context, filter Filter) (Subscription, error) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	docs, err := h.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading initial batch: %w", err)
	}

	sub := &hubSubscription{
		hub:    h,
		filter: filter,
		notify: make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.seq++
	sub.offer(Batch{Seq: h.seq, Documents: filter.Apply(docs)})
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("feed_subscribed", "owner_id", filter.OwnerID, "subscribers", count)
	return sub, nil
}

// Publish reloads the document set and delivers it to every subscriber. A
// load error is delivered to subscribers as well and returned.
func (h *Hub) Publish(ctx context.Context) error {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	docs, err := h.load(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		if err != nil {
			return fmt.Errorf("loading batch: %w", err)
		}
		return nil
	}
	if err != nil {
		for sub := range h.subs {
			sub.fail(err)
		}
		h.logger.Warn("feed_publish_failed", "error", err, "subscribers", len(h.subs))
		return fmt.Errorf("loading batch: %w", err)
	}

	h.seq++
	for sub := range h.subs {
		sub.offer(Batch{Seq: h.seq, Documents: sub.filter.Apply(docs)})
	}
	return nil
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(sub *hubSubscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

type hubSubscription struct {
	hub    *Hub
	filter Filter
	notify chan struct{}

	mu      sync.Mutex
	pending *Batch
	err     error
	closed  bool
}

func (s *hubSubscription) offer(b Batch) {
	s.mu.Lock()
	s.pending = &b
	s.err = nil
	s.mu.Unlock()
	s.wake()
}

func (s *hubSubscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.wake()
}

func (s *hubSubscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *hubSubscription) Next(ctx context.Context) (Batch, error) {
	for {
		s.mu.Lock()
		switch {
		case s.closed:
			s.mu.Unlock()
			return Batch{}, ErrClosed
		case s.err != nil:
			err := s.err
			s.err = nil
			s.mu.Unlock()
			return Batch{}, err
		case s.pending != nil:
			b := *s.pending
			s.pending = nil
			s.mu.Unlock()
			return b, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		case <-s.notify:
		}
	}
}

func (s *hubSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	s.hub.remove(s)
	s.wake()
	return nil
}
