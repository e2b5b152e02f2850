// Package kafkabus mirrors the record store onto a Kafka topic and reads it
// back as a change feed.
package kafkabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// Config holds broker connection settings.
type Config struct {
	Brokers []string
	Topic   string
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one broker is required")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return errors.New("topic must not be empty")
	}
	return nil
}

// messageWriter mirrors the subset of kafka.Writer used by the mirror.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Mirror publishes every stored document to a compacted topic keyed by
// report id.
type Mirror struct {
	writer  messageWriter
	logger  *slog.Logger
	timeout time.Duration
}

// NewMirror builds a mirror writing to the configured topic.
func NewMirror(cfg Config, logger *slog.Logger) (*Mirror, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newMirror(writer, logger), nil
}

func newMirror(writer messageWriter, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mirror{writer: writer, logger: logger.With(slog.String("component", "kafka-mirror")), timeout: 5 * time.Second}
}

// Publish writes doc to the topic.
func (m *Mirror) Publish(ctx context.Context, doc report.Document) error {
	if doc.ID == "" {
		return errors.New("document id must not be empty")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(doc.ID),
		Value: payload,
		Time:  time.Now(),
	}); err != nil {
		return fmt.Errorf("write document %s: %w", doc.ID, err)
	}
	m.logger.Debug("mirror_published", "report_id", doc.ID, "status", doc.Status)
	return nil
}

// Close flushes and closes the underlying writer.
func (m *Mirror) Close() error {
	if m == nil || m.writer == nil {
		return nil
	}
	return m.writer.Close()
}
