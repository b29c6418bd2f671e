package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			m := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type countingHandler struct {
	topic    string
	mu       sync.Mutex
	calls    int
	failFor  int
	panicOut bool
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.panicOut {
		panic("bad payload")
	}
	if h.calls <= h.failFor {
		return errors.New("transient")
	}
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "")

	require.NoError(t, p.Publish(context.Background(), "regime.reports", []byte("AAPL"), map[string]int{"regimes": 4}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "plain"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "regime.reports", w.msgs[0].Topic)
	assert.Equal(t, []byte("AAPL"), w.msgs[0].Key)
	var got map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, 4, got["regimes"])
	assert.Nil(t, w.msgs[1].Key)
	assert.Equal(t, []byte("plain"), w.msgs[1].Value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishWrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "gzip")

	err := p.PublishMessage(context.Background(), "t", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.ErrorIs(t, err, w.err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}

func TestNewConsumer_RequiresBrokers(t *testing.T) {
	_, err := NewConsumer(nil)
	assert.Error(t, err)
}

func newTestConsumer(t *testing.T, reader *fakeReader, dlq *fakeWriter, h MessageHandler) *Consumer {
	t.Helper()
	c, err := NewConsumer(nil,
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
		WithConsumerWorkers(2),
	)
	require.NoError(t, err)
	c.newReader = func(string) messageReader { return reader }
	if dlq != nil {
		c.cfg.DLQTopic = "regime.requests.dlq"
		c.dlq = dlq
	}
	c.RegisterHandler(h)
	return c
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Topic: "regime.requests", Value: []byte(`{}`)}}}
	h := &countingHandler{topic: "regime.requests", failFor: 2}
	c := newTestConsumer(t, reader, nil, h)

	require.NoError(t, c.Start())
	assert.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, 3, h.count())
}

func TestConsumer_DeadLettersAfterRetries(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Topic: "regime.requests", Key: []byte("k"), Value: []byte(`bad`)}}}
	dlq := &fakeWriter{}
	h := &countingHandler{topic: "regime.requests", failFor: 100}
	c := newTestConsumer(t, reader, dlq, h)

	require.NoError(t, c.Start())
	assert.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, 3, h.count())
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "regime.requests.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte("bad"), dlq.msgs[0].Value)
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.True(t, dlq.closed)
}

func TestConsumer_PanicIsNotRetried(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Topic: "regime.requests", Value: []byte(`x`)}}}
	h := &countingHandler{topic: "regime.requests", panicOut: true}
	c := newTestConsumer(t, reader, nil, h)

	require.NoError(t, c.Start())
	assert.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, 1, h.count())
}

func TestConsumer_StartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(nil, WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Error(t, c.Start())
	assert.NoError(t, c.Stop(context.Background()))
}
