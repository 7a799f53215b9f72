package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/chunk"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/dispatch"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/submit"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/memory"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
)

type stubParser struct {
	err error
}

func (s stubParser) Parse(context.Context, index.Document) ([]index.WordOffsets, error) {
	return nil, s.err
}

func newTestServer(t *testing.T, maxContentBytes int) (*http.ServeMux, *memory.Store) {
	t.Helper()
	pool := dispatch.NewPool(4)
	t.Cleanup(pool.Close)
	s := memory.New()
	engine := parser.NewEngine(
		chunk.NewPlanner(16, 4),
		dispatch.NewController(pool),
		submit.New(s, resilience.CircuitBreakerConfig{}, nil),
	)
	mux := http.NewServeMux()
	New(engine, s, maxContentBytes).Register(mux)
	return mux, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestParse_IndexesAndStores(t *testing.T) {
	mux, s := newTestServer(t, 1<<20)

	rec := do(t, mux, http.MethodPost, "/api/v1/parse",
		`{"document_id":"a1","title":"Greeting","content":"Hello world. Welcome to the parser test."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ParseResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "a1", resp.DocumentID)
	require.Len(t, resp.Words, 7)
	assert.Equal(t, index.WordOffsets{Word: "hello", Offsets: []int{0}}, resp.Words[0])

	doc, err := s.GetDocument(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusIndexed, doc.Status)
	assert.Equal(t, "Greeting", doc.Title)
}

func TestParse_EmptyContent(t *testing.T) {
	mux, s := newTestServer(t, 1<<20)

	rec := do(t, mux, http.MethodPost, "/api/v1/parse", `{"document_id":"empty","content":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"document_id":"empty","words":[]}`, rec.Body.String())

	doc, err := s.GetDocument(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, doc.Status)
}

func TestParse_RejectsBadRequests(t *testing.T) {
	mux, _ := newTestServer(t, 32)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"document_id":`, http.StatusBadRequest},
		{"missing id", `{"content":"hello"}`, http.StatusBadRequest},
		{"blank id", `{"document_id":"   ","content":"hello"}`, http.StatusBadRequest},
		{"content too large", `{"document_id":"x","content":"` + strings.Repeat("a", 33) + `"}`, http.StatusBadRequest},
		{"body too large", `{"document_id":"x","content":"` + strings.Repeat("a", 70<<10) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, "/api/v1/parse", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestParse_ValidationFields(t *testing.T) {
	mux, _ := newTestServer(t, 1<<20)
	rec := do(t, mux, http.MethodPost, "/api/v1/parse", `{"content":"hello"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "document_id")
}

func TestReparse(t *testing.T) {
	mux, s := newTestServer(t, 1<<20)
	require.NoError(t, s.SaveDocument(context.Background(), store.Document{ID: "stored", Content: "Café café CAFE"}))

	rec := do(t, mux, http.MethodPost, "/api/v1/documents/stored/parse", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"document_id":"stored","words":[{"word":"cafe","offsets":[0,5,10]}]}`, rec.Body.String())

	rec = do(t, mux, http.MethodPost, "/api/v1/documents/nope/parse", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindWord(t *testing.T) {
	mux, _ := newTestServer(t, 1<<20)
	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/api/v1/parse",
		`{"document_id":"d1","content":"hello hello"}`).Code)
	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/api/v1/parse",
		`{"document_id":"d2","content":"say hello"}`).Code)

	rec := do(t, mux, http.MethodGet, "/api/v1/words/HELLO!", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp WordResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, WordResponse{
		Word: "hello",
		Locations: []WordLocation{
			{DocumentID: "d1", Offsets: []int{0, 6}},
			{DocumentID: "d2", Offsets: []int{4}},
		},
	}, resp)

	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodGet, "/api/v1/words/absent", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/v1/words/1234", "").Code)
}

func TestParse_ErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.Submission(errors.New("store down")), http.StatusBadGateway},
		{apperrors.ErrScanFailed, http.StatusInternalServerError},
		{apperrors.ErrTimeout, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			mux := http.NewServeMux()
			New(stubParser{err: tt.err}, memory.New(), 1<<20).Register(mux)

			rec := do(t, mux, http.MethodPost, "/api/v1/parse", `{"document_id":"x","content":"abc"}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
