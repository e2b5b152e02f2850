// Package ingest turns the record store change feed into ordered, normalized
// report snapshots.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/feed"
)

// DefaultRetryInterval is the wait before resubscribing after a failure.
const DefaultRetryInterval = 2 * time.Second

// IngestFailure reports a change-feed transport error. The live snapshot
// keeps its last good state.
type IngestFailure struct {
	Cause error
	At    time.Time
}

func (e *IngestFailure) Error() string {
	return fmt.Sprintf("ingest failure: %v", e.Cause)
}

func (e *IngestFailure) Unwrap() error {
	return e.Cause
}

// Options configure an Ingestor.
type Options struct {
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Ingestor subscribes to a feed source and maintains live snapshots.
type Ingestor struct {
	source feed.Source
	retry  time.Duration
	logger *slog.Logger
}

// New creates an ingestor over source.
func New(source feed.Source, opts Options) *Ingestor {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingestor{source: source, retry: opts.RetryInterval, logger: opts.Logger}
}

// Subscribe opens a feed subscription and starts emitting snapshots. The
// returned handle must be closed.
func (i *Ingestor) Subscribe(ctx context.Context, filter feed.Filter) (*Handle, error) {
	sub, err := i.source.Subscribe(ctx, filter)
	if err != nil {
		return nil, &IngestFailure{Cause: err, At: time.Now()}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle{
		live:     NewLive(),
		updates:  make(chan report.Snapshot, 1),
		failures: make(chan error, 1),
		cancel:   cancel,
	}

	h.wg.Add(2)
	go i.consume(runCtx, h, filter, sub)
	go h.emit(runCtx)
	return h, nil
}

// consume applies batches to the live snapshot, resubscribing after
// failures until ctx ends.
func (i *Ingestor) consume(ctx context.Context, h *Handle, filter feed.Filter, sub feed.Subscription) {
	defer h.wg.Done()
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()

	for {
		if sub == nil {
			var err error
			sub, err = i.source.Subscribe(ctx, filter)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.fail(i.logger, err)
				if !sleep(ctx, i.retry) {
					return
				}
				continue
			}
		}

		batch, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			sub.Close()
			sub = nil
			if !errors.Is(err, feed.ErrClosed) {
				h.fail(i.logger, err)
			}
			if !sleep(ctx, i.retry) {
				return
			}
			continue
		}

		reports := report.Normalized(batch.Documents)
		h.live.Replace(reports)
		batchesTotal.Inc()
		i.logger.Debug("ingest_batch_applied", "seq", batch.Seq, "reports", len(reports))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Handle is a live subscription. Updates carries the newest snapshot after
// every change; a slow reader only misses intermediate snapshots.
type Handle struct {
	live     *Live
	updates  chan report.Snapshot
	failures chan error
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	closeOnce sync.Once
}

// Updates delivers snapshots until the handle is closed.
func (h *Handle) Updates() <-chan report.Snapshot {
	return h.updates
}

// Failures delivers *IngestFailure values until the handle is closed.
func (h *Handle) Failures() <-chan error {
	return h.failures
}

// Current returns the latest composed snapshot.
func (h *Handle) Current() report.Snapshot {
	return h.live.Current()
}

// Live exposes the mutation context shared with the remediation
// coordinator.
func (h *Handle) Live() *Live {
	return h.live
}

// Close stops the subscription. No emission happens after Close returns and
// both channels are closed.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.cancel()
		h.wg.Wait()
		close(h.updates)
		close(h.failures)
	})
}

func (h *Handle) emit(ctx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.live.Changed():
			offerLatest(h.updates, h.live.Current())
		}
	}
}

func (h *Handle) fail(logger *slog.Logger, err error) {
	failuresTotal.Inc()
	logger.Warn("ingest_failure", "error", err)
	offerLatest[error](h.failures, &IngestFailure{Cause: err, At: time.Now()})
}

// offerLatest sends v, replacing an undelivered value. Each channel has a
// single sender.
func offerLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
