package kafkabus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/feed"
)

// messageReader mirrors the subset of kafka.Reader used by the source.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Source materializes the mirrored topic into full-state batches. Each
// subscription replays the topic from the first offset, and its first batch
// arrives within initialWait even when the topic is empty.
type Source struct {
	newReader func() messageReader
	logger    *slog.Logger
	// settle is how long Next keeps draining after the first message before
	// it emits, so a burst becomes one batch.
	settle time.Duration
	// initialWait bounds the first Next of a subscription; an empty topic
	// then yields an empty batch instead of blocking.
	initialWait time.Duration
}

// defaultInitialWait is how long a new subscription waits for the first
// message before reporting the topic empty.
const defaultInitialWait = 2 * time.Second

// NewSource builds a source reading the configured topic.
func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var source *Source
	newReader := func() messageReader {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		})
		if err := reader.SetOffset(kafka.FirstOffset); err != nil {
			source.logger.Warn("kafka_source_seek_failed", "topic", cfg.Topic, "error", err)
		}
		return reader
	}
	source = newSource(newReader, logger)
	return source, nil
}

func newSource(newReader func() messageReader, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Source{
		newReader:   newReader,
		logger:      logger.With(slog.String("component", "kafka-source")),
		settle:      50 * time.Millisecond,
		initialWait: defaultInitialWait,
	}
}

// Subscribe opens a reader from the start of the topic.
func (s *Source) Subscribe(_ context.Context, filter feed.Filter) (feed.Subscription, error) {
	return &subscription{
		reader:      s.newReader(),
		filter:      filter,
		logger:      s.logger,
		settle:      s.settle,
		initialWait: s.initialWait,
		docs:        make(map[string]report.Document),
	}, nil
}

type subscription struct {
	reader      messageReader
	filter      feed.Filter
	logger      *slog.Logger
	settle      time.Duration
	initialWait time.Duration

	mu     sync.Mutex
	closed bool
	seq    uint64
	docs   map[string]report.Document
	order  []string
}

func (s *subscription) Next(ctx context.Context) (feed.Batch, error) {
	if s.isClosed() {
		return feed.Batch{}, feed.ErrClosed
	}

	first := s.seq == 0
	fetchCtx, cancel := ctx, context.CancelFunc(func() {})
	if first && s.initialWait > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, s.initialWait)
	}
	msg, err := s.reader.FetchMessage(fetchCtx)
	cancel()
	if err != nil {
		if first && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Info("kafka_source_topic_empty", "waited", s.initialWait)
			return s.batch(), nil
		}
		return feed.Batch{}, s.mapErr(err)
	}
	s.apply(msg)

	for {
		drainCtx, cancel := context.WithTimeout(ctx, s.settle)
		msg, err := s.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			return feed.Batch{}, s.mapErr(err)
		}
		s.apply(msg)
	}

	return s.batch(), nil
}

func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.reader.Close()
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *subscription) mapErr(err error) error {
	if s.isClosed() || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return feed.ErrClosed
	}
	return err
}

// apply upserts a document; an empty value is a tombstone.
func (s *subscription) apply(msg kafka.Message) {
	id := string(msg.Key)
	if len(msg.Value) == 0 {
		if _, ok := s.docs[id]; ok {
			delete(s.docs, id)
			s.order = removeID(s.order, id)
		}
		return
	}

	var doc report.Document
	if err := json.Unmarshal(msg.Value, &doc); err != nil {
		s.logger.Warn("kafka_source_decode_error", "offset", msg.Offset, "error", err)
		return
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID == "" {
		s.logger.Warn("kafka_source_missing_id", "offset", msg.Offset)
		return
	}
	if _, ok := s.docs[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc
}

func (s *subscription) batch() feed.Batch {
	s.seq++
	docs := make([]report.Document, 0, len(s.order))
	for _, id := range s.order {
		if doc := s.docs[id]; s.filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	return feed.Batch{Seq: s.seq, Documents: docs}
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
