package kafkabus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/feed"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu     sync.Mutex
	queue  []kafka.Message
	err    error
	closed chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) push(msgs ...kafka.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, msgs...)
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

func docMessage(t *testing.T, doc report.Document) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(doc.ID), Value: payload}
}

func TestMirror_PublishKeysByReportID(t *testing.T) {
	writer := &fakeWriter{}
	mirror := newMirror(writer, nil)
	loc := "Lagos"

	require.NoError(t, mirror.Publish(context.Background(), report.Document{ID: "r1", OwnerID: "u1", Type: "noise", Location: &loc, Status: "new"}))
	require.Len(t, writer.msgs, 1)
	require.Equal(t, "r1", string(writer.msgs[0].Key))

	var decoded report.Document
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &decoded))
	require.Equal(t, "u1", decoded.OwnerID)
	require.Equal(t, "Lagos", *decoded.Location)

	require.Error(t, mirror.Publish(context.Background(), report.Document{}))

	writer.err = errors.New("leader not available")
	require.ErrorIs(t, mirror.Publish(context.Background(), report.Document{ID: "r2"}), writer.err)

	require.NoError(t, mirror.Close())
	require.True(t, writer.closed)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewMirror(Config{Topic: "reports"}, nil)
	require.Error(t, err)
	_, err = NewSource(Config{Brokers: []string{"localhost:9092"}}, nil)
	require.Error(t, err)
}

func TestSource_MaterializesUpserts(t *testing.T) {
	reader := newFakeReader()
	reader.push(
		docMessage(t, report.Document{ID: "r1", OwnerID: "u1", Type: "noise", Status: "new"}),
		docMessage(t, report.Document{ID: "r2", OwnerID: "u2", Type: "crowd", Status: "new"}),
		docMessage(t, report.Document{ID: "r1", OwnerID: "u1", Type: "noise", Status: "cleaned"}),
	)
	source := newSource(func() messageReader { return reader }, nil)
	source.settle = 5 * time.Millisecond

	sub, err := source.Subscribe(context.Background(), feed.Filter{})
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	batch, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), batch.Seq)
	require.Len(t, batch.Documents, 2)
	require.Equal(t, "r1", batch.Documents[0].ID)
	require.Equal(t, "cleaned", batch.Documents[0].Status)

	reader.push(kafka.Message{Key: []byte("r2")}, kafka.Message{Key: []byte("bad"), Value: []byte("{")})
	batch, err = sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), batch.Seq)
	require.Len(t, batch.Documents, 1)
	require.Equal(t, "r1", batch.Documents[0].ID)
}

func TestSource_OwnerFilter(t *testing.T) {
	reader := newFakeReader(
		docMessage(t, report.Document{ID: "r1", OwnerID: "u1"}),
		docMessage(t, report.Document{ID: "r2", OwnerID: "u2"}),
	)
	source := newSource(func() messageReader { return reader }, nil)
	source.settle = 5 * time.Millisecond

	sub, err := source.Subscribe(context.Background(), feed.Filter{OwnerID: "u2"})
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	batch, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 1)
	require.Equal(t, "r2", batch.Documents[0].ID)
}

func TestSource_ErrorsAndClose(t *testing.T) {
	reader := newFakeReader()
	reader.err = errors.New("broker unreachable")
	source := newSource(func() messageReader { return reader }, nil)

	sub, err := source.Subscribe(context.Background(), feed.Filter{})
	require.NoError(t, err)

	_, err = sub.Next(context.Background())
	require.ErrorIs(t, err, reader.err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, err = sub.Next(context.Background())
	require.ErrorIs(t, err, feed.ErrClosed)
}

func TestSource_EmptyTopicYieldsInitialBatch(t *testing.T) {
	reader := newFakeReader()
	source := newSource(func() messageReader { return reader }, nil)
	source.settle = 5 * time.Millisecond
	source.initialWait = 20 * time.Millisecond

	sub, err := source.Subscribe(context.Background(), feed.Filter{})
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	batch, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), batch.Seq)
	require.Empty(t, batch.Documents)

	// Later batches wait for data rather than timing out.
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer shortCancel()
	_, err = sub.Next(shortCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	reader.push(docMessage(t, report.Document{ID: "r1", OwnerID: "u1", Type: "noise"}))
	batch, err = sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), batch.Seq)
	require.Len(t, batch.Documents, 1)
}
