package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[sample]([]byte(`{"document_id":"a","content":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, sample{DocumentID: "a", Content: "hi"}, got)

	_, err = DecodeJSON[sample]([]byte(`{"document_id":`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestEncode_CarriesRequestID(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-7")
	msg, err := encode(ctx, Event{Key: "doc-1", Value: sample{DocumentID: "doc-1"}})
	require.NoError(t, err)

	assert.Equal(t, []byte("doc-1"), msg.Key)
	assert.JSONEq(t, `{"document_id":"doc-1","content":""}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, HeaderRequestID, msg.Headers[0].Key)

	got := withHeaders(context.Background(), msg.Headers)
	assert.Equal(t, "req-7", logger.RequestID(got))
}

func TestEncode_NoRequestID(t *testing.T) {
	msg, err := encode(context.Background(), Event{Key: "k", Value: 1})
	require.NoError(t, err)
	assert.Empty(t, msg.Headers)
	assert.Empty(t, logger.RequestID(withHeaders(context.Background(), []kafka.Header{{Key: "other", Value: []byte("x")}})))
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := encode(context.Background(), Event{Key: "k", Value: make(chan int)})
	assert.ErrorContains(t, err, `encoding event "k"`)
}

func TestReaderConfig(t *testing.T) {
	rc := readerConfig(config.KafkaConfig{Brokers: []string{"b:9092"}, ConsumerGroup: "g"}, "document-parse")
	assert.Equal(t, "document-parse", rc.Topic)
	assert.Equal(t, "g", rc.GroupID)
	assert.Equal(t, kafka.FirstOffset, rc.StartOffset)
}

func TestPing_NoBrokers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, Ping(ctx, nil))
}

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	r.cancel()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumer_FailedMessageIsNotCommittedPast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reader := &fakeReader{
		messages: []kafka.Message{{Offset: 5, Key: []byte("d5")}, {Offset: 6, Key: []byte("d6")}},
		cancel:   cancel,
	}

	var handled []string
	failures := 2
	c := newConsumer(reader, "document-parse", func(_ context.Context, key, _ []byte) error {
		handled = append(handled, string(key))
		if string(key) == "d5" && failures > 0 {
			failures--
			return errors.New("store unavailable")
		}
		return nil
	})
	c.initialDelay = time.Millisecond
	c.maxDelay = time.Millisecond

	require.NoError(t, c.Start(ctx))

	assert.Equal(t, []string{"d5", "d5", "d5", "d6"}, handled)
	assert.Equal(t, []int64{5, 6}, reader.committed)
	assert.True(t, reader.closed)
}

func TestConsumer_StopsWithoutCommitWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{messages: []kafka.Message{{Offset: 9}}, cancel: cancel}

	c := newConsumer(reader, "document-parse", func(context.Context, []byte, []byte) error {
		cancel()
		return errors.New("store unavailable")
	})
	c.initialDelay = time.Hour

	require.NoError(t, c.Start(ctx))
	assert.Empty(t, reader.committed)
	assert.True(t, reader.closed)
}
