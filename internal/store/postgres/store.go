// Package postgres is the PostgreSQL Document Store used by the parser
// service in production.
//
// It requires the following tables, created by EnsureSchema:
//
//	CREATE TABLE documents (
//	    id          TEXT PRIMARY KEY,
//	    title       TEXT NOT NULL DEFAULT '',
//	    content     TEXT NOT NULL,
//	    status      TEXT NOT NULL DEFAULT 'PENDING',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    indexed_at  TIMESTAMPTZ
//	);
//	CREATE TABLE word_mappings (
//	    word        TEXT NOT NULL,
//	    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
//	    offsets     JSON NOT NULL,
//	    PRIMARY KEY (word, document_id)
//	);
//
// offsets is JSON rather than JSONB so the stored text round-trips exactly.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    content     TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'PENDING',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    indexed_at  TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS word_mappings (
    word        TEXT NOT NULL,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    offsets     JSON NOT NULL,
    PRIMARY KEY (word, document_id)
);
CREATE INDEX IF NOT EXISTS idx_word_mappings_document ON word_mappings(document_id);
`

// Ensure Store implements the interface.
var _ store.DocumentStore = (*Store)(nil)

// Store persists documents and word mappings in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a Store on an open client.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "document-store"),
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Store) SaveDocument(ctx context.Context, doc store.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, title, content, status, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				status = EXCLUDED.status,
				indexed_at = NULL`,
			doc.ID, doc.Title, doc.Content, string(store.StatusPending), time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM word_mappings WHERE document_id = $1`, doc.ID); err != nil {
			return fmt.Errorf("clearing index of document %s: %w", doc.ID, err)
		}
		return nil
	})
}

func (s *Store) GetDocument(ctx context.Context, id string) (store.Document, error) {
	var (
		doc       store.Document
		status    string
		indexedAt sql.NullTime
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, title, content, status, created_at, indexed_at FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Title, &doc.Content, &status, &doc.CreatedAt, &indexedAt)
	if err == sql.ErrNoRows {
		return store.Document{}, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("querying document %s: %w", id, err)
	}
	doc.Status = store.Status(status)
	if indexedAt.Valid {
		doc.IndexedAt = indexedAt.Time
	}
	return doc, nil
}

func (s *Store) SaveIndexEntries(ctx context.Context, documentID string, entries []index.Entry) error {
	if err := store.ValidateBatch(documentID, entries); err != nil {
		return err
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var locked string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM documents WHERE id = $1 FOR UPDATE`, documentID,
		).Scan(&locked)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, documentID)
		}
		if err != nil {
			return fmt.Errorf("locking document %s: %w", documentID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM word_mappings WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("clearing index of document %s: %w", documentID, err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO word_mappings (word, document_id, offsets) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Word, e.DocumentID, e.Offsets); err != nil {
				return fmt.Errorf("inserting word %q: %w", e.Word, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET status = $1, indexed_at = $2 WHERE id = $3`,
			string(store.StatusIndexed), time.Now().UTC(), documentID,
		); err != nil {
			return fmt.Errorf("marking document %s indexed: %w", documentID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("index entries saved", "doc_id", documentID, "words", len(entries))
	return nil
}

func (s *Store) FindByWord(ctx context.Context, word string) ([]index.Entry, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT word, document_id, offsets::text FROM word_mappings WHERE word = $1 ORDER BY document_id`,
		word,
	)
	if err != nil {
		return nil, fmt.Errorf("querying word %q: %w", word, err)
	}
	defer rows.Close()

	var found []index.Entry
	for rows.Next() {
		var e index.Entry
		if err := rows.Scan(&e.Word, &e.DocumentID, &e.Offsets); err != nil {
			return nil, fmt.Errorf("scanning word mapping row: %w", err)
		}
		found = append(found, e)
	}
	return found, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
