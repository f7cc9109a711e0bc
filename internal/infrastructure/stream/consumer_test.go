package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/logging"
	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed int
}

func (r *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += len(msgs)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type memorySink struct {
	mu      sync.Mutex
	baskets []association.Transaction
	fail    bool
}

func (s *memorySink) Append(_ context.Context, tx association.Transaction, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	s.baskets = append(s.baskets, tx)
	return nil
}

func TestConsumerStoresBaskets(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte(`{"order_id":"o1","items":["P1","P2"]}`)},
		{Value: []byte(`{"order_id":"o2","items":["P3"]}`)},
	}}
	sink := &memorySink{}
	c := NewConsumerWithReader(reader, sink, logging.NewNopLogger())

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, sink.baskets, 2)
	assert.Equal(t, []string{"P1", "P2"}, sink.baskets[0].Items)
	assert.Equal(t, 2, reader.committed)
	assert.Equal(t, int64(2), c.Stats().Stored.Load())
}

func TestConsumerSkipsMalformedMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte(`not json`)},
		{Value: []byte(`{"order_id":"o1","items":["P1"]}`)},
	}}
	sink := &memorySink{}
	c := NewConsumerWithReader(reader, sink, logging.NewNopLogger())

	require.NoError(t, c.Run(context.Background()))

	// The malformed message is committed so the partition keeps moving.
	require.Len(t, sink.baskets, 1)
	assert.Equal(t, 2, reader.committed)
	assert.Equal(t, int64(1), c.Stats().Malformed.Load())
}

func TestConsumerDoesNotCommitOnSinkFailure(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte(`{"order_id":"o1","items":["P1"]}`)},
	}}
	sink := &memorySink{fail: true}
	c := NewConsumerWithReader(reader, sink, logging.NewNopLogger())

	require.NoError(t, c.Run(context.Background()))

	assert.Zero(t, reader.committed, "failed baskets stay uncommitted for redelivery")
	assert.Equal(t, int64(1), c.Stats().Failed.Load())
}

func TestConsumerPublishesIngestMetrics(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "dropsight"}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte(`not json`)},
		{Value: []byte(`{"order_id":"o1","items":["P1"],"occurred_at":"` + time.Now().Add(-2*time.Second).Format(time.RFC3339) + `"}`)},
	}}
	c := NewConsumerWithReader(reader, &memorySink{}, logging.NewNopLogger(), WithMetrics(metrics))
	require.NoError(t, c.Run(context.Background()))

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `dropsight_baskets_ingested_total{status="stored"} 1`)
	assert.Contains(t, body, `dropsight_baskets_ingested_total{status="malformed"} 1`)
	assert.Contains(t, body, "dropsight_ingest_lag_seconds")
}

func TestConsumerConfigValidation(t *testing.T) {
	cases := []ConsumerConfig{
		{Topic: "orders", GroupID: "g"},
		{Brokers: []string{"localhost:9092"}, GroupID: "g"},
		{Brokers: []string{"localhost:9092"}, Topic: "orders"},
	}
	for i, cfg := range cases {
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
	assert.NoError(t, ConsumerConfig{
		Brokers: []string{"localhost:9092"}, Topic: "orders", GroupID: "g",
	}.Validate())
}
