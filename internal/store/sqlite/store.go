package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/sqlite/migrations"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
)

// Ensure Store implements the interface.
var _ store.DocumentStore = (*Store)(nil)

// Store is a SQLite-backed store.DocumentStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database in dataDir and applies
// pending migrations.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: sqlite data directory is required", apperrors.ErrInvalidInput)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "articles.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY between our own transactions.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) SaveDocument(ctx context.Context, doc store.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", apperrors.ErrInvalidInput)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, status, created_at, indexed_at)
			VALUES (?, ?, ?, ?, ?, NULL)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				content = excluded.content,
				status = excluded.status,
				indexed_at = NULL
		`, doc.ID, doc.Title, doc.Content, string(store.StatusPending), time.Now().UTC()); err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM word_mappings WHERE document_id = ?`, doc.ID); err != nil {
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
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, status, created_at, indexed_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Title, &doc.Content, &status, &doc.CreatedAt, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
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
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, documentID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, documentID)
		}
		if err != nil {
			return fmt.Errorf("checking document %s: %w", documentID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM word_mappings WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("clearing index of document %s: %w", documentID, err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO word_mappings (word, document_id, offsets) VALUES (?, ?, ?)`)
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
			`UPDATE documents SET status = ?, indexed_at = ? WHERE id = ?`,
			string(store.StatusIndexed), time.Now().UTC(), documentID,
		); err != nil {
			return fmt.Errorf("marking document %s indexed: %w", documentID, err)
		}
		return nil
	})
}

func (s *Store) FindByWord(ctx context.Context, word string) ([]index.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word, document_id, offsets FROM word_mappings
		WHERE word = ? ORDER BY document_id
	`, word)
	if err != nil {
		return nil, fmt.Errorf("querying word %q: %w", word, err)
	}
	defer rows.Close()
	var found []index.Entry
	for rows.Next() {
		var e index.Entry
		if err := rows.Scan(&e.Word, &e.DocumentID, &e.Offsets); err != nil {
			return nil, fmt.Errorf("scanning word mapping: %w", err)
		}
		found = append(found, e)
	}
	return found, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// migrate runs all pending *.up.sql migrations.
func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}
