package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/memory"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
)

type recordingStore struct {
	calls   int
	batches [][]index.Entry
	err     error
}

func (r *recordingStore) SaveIndexEntries(_ context.Context, _ string, entries []index.Entry) error {
	r.calls++
	r.batches = append(r.batches, entries)
	return r.err
}

func TestEntries(t *testing.T) {
	entries, err := Entries("doc-1", []index.WordOffsets{
		{Word: "hello", Offsets: []int{0, 12}},
		{Word: "world", Offsets: []int{6}},
	})
	require.NoError(t, err)
	assert.Equal(t, []index.Entry{
		{Word: "hello", DocumentID: "doc-1", Offsets: "[0,12]"},
		{Word: "world", DocumentID: "doc-1", Offsets: "[6]"},
	}, entries)
}

func TestEntries_SkipsWordsWithoutOffsets(t *testing.T) {
	entries, err := Entries("doc-1", []index.WordOffsets{{Word: "ghost"}})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmit_SendsOneBatch(t *testing.T) {
	rs := &recordingStore{}
	a := New(rs, resilience.CircuitBreakerConfig{}, nil)

	err := a.Submit(context.Background(), "doc-1", []index.WordOffsets{
		{Word: "a", Offsets: []int{0}},
		{Word: "b", Offsets: []int{2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rs.calls)
	assert.Len(t, rs.batches[0], 2)
}

func TestSubmit_EmptyBatchIsNoOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rs := &recordingStore{}
	a := New(rs, resilience.CircuitBreakerConfig{}, m)

	require.NoError(t, a.Submit(context.Background(), "doc-1", nil))
	assert.Zero(t, rs.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("skipped")))
}

func TestSubmit_FailureIsSubmissionKind(t *testing.T) {
	rs := &recordingStore{err: errors.New("connection reset")}
	a := New(rs, resilience.CircuitBreakerConfig{}, nil)

	err := a.Submit(context.Background(), "doc-1", []index.WordOffsets{{Word: "a", Offsets: []int{0}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSubmission)
	assert.True(t, apperrors.IsRetryable(err))
	assert.NotErrorIs(t, err, apperrors.ErrScanFailed)
}

func TestSubmit_UnknownDocumentKeepsCause(t *testing.T) {
	a := New(memory.New(), resilience.CircuitBreakerConfig{}, nil)

	err := a.Submit(context.Background(), "missing", []index.WordOffsets{{Word: "a", Offsets: []int{0}}})
	assert.ErrorIs(t, err, apperrors.ErrSubmission)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestSubmit_WritesToStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SaveDocument(ctx, store.Document{ID: "doc-1", Content: "hi hi"}))
	a := New(s, resilience.CircuitBreakerConfig{}, nil)

	require.NoError(t, a.Submit(ctx, "doc-1", []index.WordOffsets{{Word: "hi", Offsets: []int{0, 3}}}))

	found, err := s.FindByWord(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, []index.Entry{{Word: "hi", DocumentID: "doc-1", Offsets: "[0,3]"}}, found)
	doc, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusIndexed, doc.Status)
}

func TestSubmit_OpenCircuitStopsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rs := &recordingStore{err: errors.New("down")}
	a := New(rs, resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}, m)
	words := []index.WordOffsets{{Word: "a", Offsets: []int{0}}}

	for i := 0; i < 2; i++ {
		assert.Error(t, a.Submit(context.Background(), "doc-1", words))
	}
	assert.Equal(t, resilience.StateOpen, a.Breaker().GetState())
	assert.Equal(t, float64(resilience.StateOpen),
		testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("document-store")))

	err := a.Submit(context.Background(), "doc-1", words)
	assert.ErrorIs(t, err, apperrors.ErrSubmission)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, rs.calls)
}

func TestSubmit_RejectionsKeepCircuitClosed(t *testing.T) {
	a := New(memory.New(), resilience.CircuitBreakerConfig{FailureThreshold: 1}, nil)
	words := []index.WordOffsets{{Word: "a", Offsets: []int{0}}}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, a.Submit(context.Background(), "missing", words), apperrors.ErrDocumentNotFound)
	}
	assert.Equal(t, resilience.StateClosed, a.Breaker().GetState())
}
