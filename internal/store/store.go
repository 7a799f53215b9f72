// Package store defines the Document Store: it holds article content and
// accepts finished index batches. Backends live in the memory, sqlite and
// postgres sub-packages.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
)

// Status is the indexing state of a stored document.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusIndexed Status = "INDEXED"
)

// Document is a stored article.
type Document struct {
	ID        string
	Title     string
	Content   string
	Status    Status
	CreatedAt time.Time
	IndexedAt time.Time
}

// DocumentStore is implemented by every backend.
type DocumentStore interface {
	// SaveDocument inserts or replaces a document and resets it to PENDING.
	SaveDocument(ctx context.Context, doc Document) error
	// GetDocument returns apperrors.ErrDocumentNotFound for unknown ids.
	GetDocument(ctx context.Context, id string) (Document, error)
	// SaveIndexEntries atomically replaces the document's index with entries
	// and marks it INDEXED. Empty batches are rejected with
	// apperrors.ErrEmptyBatch and unknown documents with
	// apperrors.ErrDocumentNotFound.
	SaveIndexEntries(ctx context.Context, documentID string, entries []index.Entry) error
	// FindByWord returns the entries for word across all documents, ordered
	// by document id.
	FindByWord(ctx context.Context, word string) ([]index.Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// ValidateBatch checks a batch before any backend writes it.
func ValidateBatch(documentID string, entries []index.Entry) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: document %s", apperrors.ErrEmptyBatch, documentID)
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.DocumentID != documentID {
			return fmt.Errorf("%w: entry for word %q belongs to document %q, batch is for %q",
				apperrors.ErrInvalidInput, e.Word, e.DocumentID, documentID)
		}
		if e.Word == "" {
			return fmt.Errorf("%w: entry with empty word", apperrors.ErrInvalidInput)
		}
		if e.Offsets == "" || e.Offsets == "[]" {
			return fmt.Errorf("%w: word %q has no offsets", apperrors.ErrInvalidInput, e.Word)
		}
		if _, dup := seen[e.Word]; dup {
			return fmt.Errorf("%w: word %q appears twice in batch", apperrors.ErrInvalidInput, e.Word)
		}
		seen[e.Word] = struct{}{}
	}
	return nil
}
