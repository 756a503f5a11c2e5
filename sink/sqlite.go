package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/ingestkit/dbopen"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT PRIMARY KEY,
    fingerprint  TEXT NOT NULL UNIQUE,
    path         TEXT NOT NULL,
    file_type    TEXT NOT NULL,
    mime_type    TEXT,
    title        TEXT,
    text         TEXT,
    ingested_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS elements (
    document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    idx          INTEGER NOT NULL,
    type         TEXT NOT NULL,
    level        INTEGER,
    text         TEXT,
    metadata     TEXT,
    PRIMARY KEY (document_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(file_type);
`

// SQLite persists records to a local database. Delivering a record whose
// fingerprint is already stored replaces the previous document, so
// re-ingesting an unchanged tree is idempotent.
type SQLite struct {
	db    *sql.DB
	owned bool
}

// NewSQLite opens (or creates) the database at path and runs migrations.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := dbopen.Open(ctx, path,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(sqliteSchema),
	)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite: %w", err)
	}
	return &SQLite{db: db, owned: true}, nil
}

// NewSQLiteDB wraps an already-open database. The caller keeps ownership
// of the handle; Close is a no-op. Used by tests and by callers sharing
// one database across components.
func NewSQLiteDB(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("sink: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Deliver(ctx context.Context, rec Record) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		var oldID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM documents WHERE fingerprint = ?`, rec.Fingerprint,
		).Scan(&oldID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if oldID != "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, oldID); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, fingerprint, path, file_type, mime_type, title, text, ingested_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Fingerprint, rec.Path, rec.FileType, rec.MimeType,
			rec.Title, rec.Text, rec.IngestedAt.Format(time.RFC3339),
		)
		if err != nil {
			return err
		}

		for i, el := range rec.Elements {
			var meta string
			if len(el.Metadata) > 0 {
				data, err := json.Marshal(el.Metadata)
				if err != nil {
					return fmt.Errorf("marshal element metadata: %w", err)
				}
				meta = string(data)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO elements (document_id, idx, type, level, text, metadata)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				rec.ID, i, el.Type, el.Level, el.Text, meta,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Count returns the number of stored documents.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// HasFingerprint reports whether a document with this fingerprint is
// already stored. The ingester uses it to skip unchanged files.
func (s *SQLite) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE fingerprint = ?`, fingerprint,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
