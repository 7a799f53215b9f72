// Package sqlite provides a Document Store backed by a local SQLite file.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. The database lives at <dataDir>/articles.db and is opened in WAL
// mode. The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// Index batches are written in one transaction: earlier entries of the
// document are removed, the new entries inserted and the document marked
// INDEXED, so readers never see a half-written index.
package sqlite
