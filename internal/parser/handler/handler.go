// Package handler exposes the parse engine and word lookups over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/normalizer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/tracing"
)

// bodyOverhead is the JSON framing allowed on top of the content limit.
const bodyOverhead = 64 << 10

// Parser is the engine operation the handler calls.
type Parser interface {
	Parse(ctx context.Context, doc index.Document) ([]index.WordOffsets, error)
}

// Store is the part of store.DocumentStore the handler uses.
type Store interface {
	SaveDocument(ctx context.Context, doc store.Document) error
	GetDocument(ctx context.Context, id string) (store.Document, error)
	FindByWord(ctx context.Context, word string) ([]index.Entry, error)
}

type Handler struct {
	parser          Parser
	store           Store
	maxContentBytes int
	logger          *slog.Logger
}

func New(p Parser, s Store, maxContentBytes int) *Handler {
	return &Handler{
		parser:          p,
		store:           s,
		maxContentBytes: maxContentBytes,
		logger:          slog.Default().With("component", "parser-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/parse", h.Parse)
	mux.HandleFunc("POST /api/v1/documents/{id}/parse", h.Reparse)
	mux.HandleFunc("GET /api/v1/words/{word}", h.FindWord)
}

// Parse stores the posted document and indexes it.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxContentBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxContentBytes)+bodyOverhead)
	}
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateParseRequest(&req, h.maxContentBytes); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveDocument(ctx, store.Document{ID: req.DocumentID, Title: req.Title, Content: req.Content}); err != nil {
		h.fail(ctx, w, "saving document failed", err)
		return
	}
	h.parse(w, r, index.Document{ID: req.DocumentID, Title: req.Title, Content: req.Content})
}

// Reparse indexes a document already held by the store.
func (h *Handler) Reparse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	doc, err := h.store.GetDocument(ctx, id)
	if err != nil {
		h.fail(ctx, w, "loading document failed", err)
		return
	}
	h.parse(w, r, index.Document{ID: doc.ID, Title: doc.Title, Content: doc.Content})
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request, doc index.Document) {
	ctx, trace := tracing.Start(r.Context(), "http-parse", logger.RequestID(r.Context()))
	trace.Set("doc_id", doc.ID)
	words, err := h.parser.Parse(ctx, doc)
	trace.Finish()
	if err != nil {
		h.fail(ctx, w, "parse failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, ParseResponse{DocumentID: doc.ID, Words: words})
}

// FindWord returns the documents and offsets of a word. The path value is
// normalized and cut to its first letter run, the same way content is.
func (h *Handler) FindWord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	word, ok := tokenizer.FirstWord(normalizer.Normalize(r.PathValue("word")))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "word must contain at least one letter")
		return
	}
	entries, err := h.store.FindByWord(ctx, word)
	if err != nil {
		h.fail(ctx, w, "word lookup failed", err)
		return
	}
	if len(entries) == 0 {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("word %q not found", word))
		return
	}

	resp := WordResponse{Word: word, Locations: make([]WordLocation, 0, len(entries))}
	for _, e := range entries {
		var offsets []int
		if err := json.Unmarshal([]byte(e.Offsets), &offsets); err != nil {
			h.fail(ctx, w, "word lookup failed",
				fmt.Errorf("%w: decoding offsets of %q in %s: %v", apperrors.ErrInternal, e.Word, e.DocumentID, err))
			return
		}
		resp.Locations = append(resp.Locations, WordLocation{DocumentID: e.DocumentID, Offsets: offsets})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	statusCode := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(ctx)
	if statusCode >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, msg)
		return
	}
	log.Info(msg, "error", err, "status_code", statusCode)
	h.writeError(w, statusCode, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
