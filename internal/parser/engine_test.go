package parser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/cache"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/dispatch"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/merger"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/normalizer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/submit"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/memory"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	calls map[string][]index.WordOffsets
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, documentID string, words []index.WordOffsets) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string][]index.WordOffsets)
	}
	f.calls[documentID] = words
	return f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newEngine(t *testing.T, planner chunk.Planner, sub Submitter, opts ...Option) *Engine {
	t.Helper()
	pool := dispatch.NewPool(planner.MaxWorkers)
	t.Cleanup(pool.Close)
	return NewEngine(planner, dispatch.NewController(pool), sub, opts...)
}

func sequential(content string) []index.WordOffsets {
	return merger.Flatten(tokenizer.ScanAll(normalizer.Normalize(content)))
}

func repeatedWords() string {
	var b strings.Builder
	for n := 0; n < 500; n++ {
		fmt.Fprintf(&b, "word%d Word%d WORd%d ", n, n, n)
	}
	return b.String()
}

func TestParse_SingleThreadedSentence(t *testing.T) {
	sub := &fakeSubmitter{}
	e := newEngine(t, chunk.NewPlanner(10_000, 4), sub)

	words, err := e.Parse(context.Background(), index.Document{
		ID:      "doc-1",
		Content: "Hello world. Welcome to the parser test.",
	})
	require.NoError(t, err)

	assert.Equal(t, []index.WordOffsets{
		{Word: "hello", Offsets: []int{0}},
		{Word: "parser", Offsets: []int{28}},
		{Word: "test", Offsets: []int{35}},
		{Word: "the", Offsets: []int{24}},
		{Word: "to", Offsets: []int{21}},
		{Word: "welcome", Offsets: []int{13}},
		{Word: "world", Offsets: []int{6}},
	}, words)
	assert.Equal(t, words, sub.calls["doc-1"])
}

func TestParse_MultiChunkRepeatedWords(t *testing.T) {
	content := repeatedWords()
	require.Len(t, []rune(content), 11670)

	sub := &fakeSubmitter{}
	e := newEngine(t, chunk.NewPlanner(500, 8), sub)
	chunks := e.planner.Plan(normalizer.Normalize(content))
	require.Greater(t, len(chunks), 1)

	words, err := e.Parse(context.Background(), index.Document{ID: "doc-2", Content: content})
	require.NoError(t, err)

	assert.Equal(t, sequential(content), words)
	require.Len(t, words, 1)
	assert.Equal(t, "word", words[0].Word)
	assert.Len(t, words[0].Offsets, 1500)
}

func TestAnalyze_EquivalentToSequentialScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdeÉéüßxyz  .,\n-'0123ÀÇ")
	e := newEngine(t, chunk.NewPlanner(16, 6), &fakeSubmitter{})

	for i := 0; i < 200; i++ {
		size := rng.Intn(400)
		runes := make([]rune, size)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		content := string(runes)

		got, err := e.Analyze(context.Background(), content)
		require.NoError(t, err)
		assert.Equal(t, sequential(content), got, "content %q", content)
	}
}

func TestAnalyze_OffsetsPointAtWholeWords(t *testing.T) {
	content := strings.Repeat("Übermäßig lange Wörter, café crème! ", 80)
	e := newEngine(t, chunk.NewPlanner(50, 8), &fakeSubmitter{})

	words, err := e.Analyze(context.Background(), content)
	require.NoError(t, err)

	text := normalizer.Normalize(content)
	total := 0
	for _, w := range words {
		word := []rune(w.Word)
		for _, off := range w.Offsets {
			require.LessOrEqual(t, off+len(word), len(text))
			assert.Equal(t, w.Word, string(text[off:off+len(word)]))
			if off > 0 {
				assert.False(t, unicode.IsLetter(text[off-1]), "word %q at %d starts mid-run", w.Word, off)
			}
			if end := off + len(word); end < len(text) {
				assert.False(t, unicode.IsLetter(text[end]), "word %q at %d ends mid-run", w.Word, off)
			}
		}
		assert.IsIncreasing(t, w.Offsets)
		total += len(w.Offsets)
	}
	assert.Equal(t, tokenizer.ScanAll(text).Count(), total)
}

func TestAnalyze_Idempotent(t *testing.T) {
	content := repeatedWords()
	e := newEngine(t, chunk.NewPlanner(100, 8), &fakeSubmitter{})

	first, err := e.Analyze(context.Background(), content)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Analyze(context.Background(), content)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParse_EmptyContentSubmitsNothing(t *testing.T) {
	// The document is not in the store, so any submitted batch would fail.
	adapter := submit.New(memory.New(), resilience.CircuitBreakerConfig{}, nil)
	e := newEngine(t, chunk.NewPlanner(500, 2), adapter)

	for _, content := range []string{"", "   \n\t ", "123 456 !!"} {
		words, err := e.Parse(context.Background(), index.Document{ID: "absent", Content: content})
		require.NoError(t, err, "content %q", content)
		assert.Empty(t, words)
	}
}

func TestParse_ScanFailureSubmitsNothing(t *testing.T) {
	pool := dispatch.NewPool(4)
	t.Cleanup(pool.Close)
	controller := dispatch.NewController(pool, dispatch.WithScanFunc(
		func(text []rune, c chunk.Chunk) (index.Occurrences, error) {
			if c.Start > 0 {
				return nil, errors.New("disk on fire")
			}
			return tokenizer.Scan(text, c), nil
		}))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sub := &fakeSubmitter{}
	e := NewEngine(chunk.NewPlanner(50, 4), controller, sub, WithMetrics(m))

	words, err := e.Parse(context.Background(), index.Document{ID: "doc-3", Content: repeatedWords()})
	require.Error(t, err)
	assert.Nil(t, words)
	assert.ErrorIs(t, err, apperrors.ErrScanFailed)
	assert.False(t, apperrors.IsRetryable(err))
	assert.Zero(t, sub.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParsesTotal.WithLabelValues("scan_error")))
}

func TestParse_SubmissionFailureIsDistinct(t *testing.T) {
	sub := &fakeSubmitter{err: apperrors.Submission(errors.New("store down"))}
	e := newEngine(t, chunk.NewPlanner(500, 2), sub)

	_, err := e.Parse(context.Background(), index.Document{ID: "doc-4", Content: "alpha beta"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSubmission)
	assert.NotErrorIs(t, err, apperrors.ErrScanFailed)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestParse_RequiresDocumentID(t *testing.T) {
	sub := &fakeSubmitter{}
	e := newEngine(t, chunk.NewPlanner(500, 2), sub)

	_, err := e.Parse(context.Background(), index.Document{Content: "alpha"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, sub.count())
}

func TestAnalyze_Timeout(t *testing.T) {
	pool := dispatch.NewPool(2)
	t.Cleanup(pool.Close)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	controller := dispatch.NewController(pool, dispatch.WithScanFunc(
		func(text []rune, c chunk.Chunk) (index.Occurrences, error) {
			<-block
			return tokenizer.Scan(text, c), nil
		}))
	e := NewEngine(chunk.NewPlanner(500, 2), controller, &fakeSubmitter{}, WithTimeout(20*time.Millisecond))

	_, err := e.Analyze(context.Background(), "slow document")
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestAnalyze_UsesCache(t *testing.T) {
	pool := dispatch.NewPool(2)
	t.Cleanup(pool.Close)
	var scans int
	var mu sync.Mutex
	controller := dispatch.NewController(pool, dispatch.WithScanFunc(
		func(text []rune, c chunk.Chunk) (index.Occurrences, error) {
			mu.Lock()
			scans++
			mu.Unlock()
			return tokenizer.Scan(text, c), nil
		}))
	backend, err := cache.NewLRU(4)
	require.NoError(t, err)
	e := NewEngine(chunk.NewPlanner(500, 2), controller, &fakeSubmitter{}, WithCache(cache.New(backend, nil)))

	first, err := e.Analyze(context.Background(), "cached words cached")
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), "cached words cached")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, scans)
}

func TestAnalyze_CancelledCallerDoesNotFailSharedParse(t *testing.T) {
	pool := dispatch.NewPool(2)
	t.Cleanup(pool.Close)
	scanning := make(chan struct{}, 4)
	release := make(chan struct{})
	controller := dispatch.NewController(pool, dispatch.WithScanFunc(
		func(text []rune, c chunk.Chunk) (index.Occurrences, error) {
			scanning <- struct{}{}
			<-release
			return tokenizer.Scan(text, c), nil
		}))
	backend, err := cache.NewLRU(4)
	require.NoError(t, err)
	e := NewEngine(chunk.NewPlanner(500, 2), controller, &fakeSubmitter{}, WithCache(cache.New(backend, nil)))
	const content = "shared content shared"

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := e.Analyze(ctxA, content)
		errA <- err
	}()
	<-scanning

	type result struct {
		words []index.WordOffsets
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		words, err := e.Analyze(context.Background(), content)
		resB <- result{words, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, merger.Flatten(tokenizer.ScanAll(normalizer.Normalize(content))), b.words)
}

func BenchmarkAnalyze(b *testing.B) {
	content := strings.Repeat(repeatedWords(), 8)
	pool := dispatch.NewPool(runtime.NumCPU())
	defer pool.Close()
	e := NewEngine(chunk.NewPlanner(500, runtime.NumCPU()), dispatch.NewController(pool), &fakeSubmitter{})
	b.SetBytes(int64(len(content)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Analyze(context.Background(), content); err != nil {
			b.Fatal(err)
		}
	}
}
