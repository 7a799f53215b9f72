// Package memory is an in-process Document Store used by tests and by the
// "memory" store driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
)

// Ensure Store implements the interface.
var _ store.DocumentStore = (*Store)(nil)

// Store keeps documents and their index entries in maps.
type Store struct {
	mu        sync.RWMutex
	documents map[string]store.Document
	// entries[documentID][word]
	entries map[string]map[string]index.Entry
	now     func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		documents: make(map[string]store.Document),
		entries:   make(map[string]map[string]index.Entry),
		now:       time.Now,
	}
}

func (s *Store) SaveDocument(_ context.Context, doc store.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Status = store.StatusPending
	doc.IndexedAt = time.Time{}
	if existing, ok := s.documents[doc.ID]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = s.now().UTC()
	}
	s.documents[doc.ID] = doc
	delete(s.entries, doc.ID)
	return nil
}

func (s *Store) GetDocument(_ context.Context, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return store.Document{}, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (s *Store) SaveIndexEntries(_ context.Context, documentID string, entries []index.Entry) error {
	if err := store.ValidateBatch(documentID, entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, documentID)
	}
	byWord := make(map[string]index.Entry, len(entries))
	for _, e := range entries {
		byWord[e.Word] = e
	}
	s.entries[documentID] = byWord
	doc.Status = store.StatusIndexed
	doc.IndexedAt = s.now().UTC()
	s.documents[documentID] = doc
	return nil
}

func (s *Store) FindByWord(_ context.Context, word string) ([]index.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []index.Entry
	for _, byWord := range s.entries {
		if e, ok := byWord[word]; ok {
			found = append(found, e)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].DocumentID < found[j].DocumentID
	})
	return found, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
