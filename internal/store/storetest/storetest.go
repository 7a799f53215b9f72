// Package storetest holds the behaviour every Document Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
)

// Run exercises s. The store must start empty of the document ids used here.
func Run(t *testing.T, s store.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := s.GetDocument(ctx, "storetest-missing")
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	})

	t.Run("save and get document", func(t *testing.T) {
		require.NoError(t, s.SaveDocument(ctx, store.Document{ID: "storetest-1", Title: "First", Content: "Hello world"}))
		doc, err := s.GetDocument(ctx, "storetest-1")
		require.NoError(t, err)
		assert.Equal(t, "First", doc.Title)
		assert.Equal(t, "Hello world", doc.Content)
		assert.Equal(t, store.StatusPending, doc.Status)
		assert.False(t, doc.CreatedAt.IsZero())
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		err := s.SaveIndexEntries(ctx, "storetest-1", nil)
		assert.ErrorIs(t, err, apperrors.ErrEmptyBatch)
	})

	t.Run("batch for unknown document rejected", func(t *testing.T) {
		err := s.SaveIndexEntries(ctx, "storetest-missing", []index.Entry{
			{Word: "x", DocumentID: "storetest-missing", Offsets: "[0]"},
		})
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	})

	t.Run("batch marks document indexed", func(t *testing.T) {
		err := s.SaveIndexEntries(ctx, "storetest-1", []index.Entry{
			{Word: "hello", DocumentID: "storetest-1", Offsets: "[0]"},
			{Word: "world", DocumentID: "storetest-1", Offsets: "[6]"},
		})
		require.NoError(t, err)
		doc, err := s.GetDocument(ctx, "storetest-1")
		require.NoError(t, err)
		assert.Equal(t, store.StatusIndexed, doc.Status)
		assert.False(t, doc.IndexedAt.IsZero())
	})

	t.Run("find by word across documents", func(t *testing.T) {
		require.NoError(t, s.SaveDocument(ctx, store.Document{ID: "storetest-2", Title: "Second", Content: "world world"}))
		require.NoError(t, s.SaveIndexEntries(ctx, "storetest-2", []index.Entry{
			{Word: "world", DocumentID: "storetest-2", Offsets: "[0,6]"},
		}))

		found, err := s.FindByWord(ctx, "world")
		require.NoError(t, err)
		assert.Equal(t, []index.Entry{
			{Word: "world", DocumentID: "storetest-1", Offsets: "[6]"},
			{Word: "world", DocumentID: "storetest-2", Offsets: "[0,6]"},
		}, found)

		none, err := s.FindByWord(ctx, "storetest-absent")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("reindex replaces previous entries", func(t *testing.T) {
		require.NoError(t, s.SaveIndexEntries(ctx, "storetest-1", []index.Entry{
			{Word: "goodbye", DocumentID: "storetest-1", Offsets: "[0]"},
		}))
		hello, err := s.FindByWord(ctx, "hello")
		require.NoError(t, err)
		assert.Empty(t, hello)
		goodbye, err := s.FindByWord(ctx, "goodbye")
		require.NoError(t, err)
		assert.Len(t, goodbye, 1)
	})

	t.Run("saving document again resets it", func(t *testing.T) {
		require.NoError(t, s.SaveDocument(ctx, store.Document{ID: "storetest-2", Title: "Second", Content: "new text"}))
		doc, err := s.GetDocument(ctx, "storetest-2")
		require.NoError(t, err)
		assert.Equal(t, store.StatusPending, doc.Status)
		assert.Equal(t, "new text", doc.Content)
		found, err := s.FindByWord(ctx, "world")
		require.NoError(t, err)
		for _, e := range found {
			assert.NotEqual(t, "storetest-2", e.DocumentID)
		}
	})
}
