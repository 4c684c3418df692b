package dal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlDocuments
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer keeps ":memory:" databases on a single connection and
	// avoids SQLITE_BUSY on concurrent batches.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{sqlDocuments{
		db: db,
		q: sqlQueries{
			get: `SELECT data FROM documents WHERE kind = ? AND key = ?`,
			upsert: `INSERT INTO documents (kind, key, data, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(kind, key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			latest: `SELECT key, data FROM documents WHERE kind = ? ORDER BY id DESC LIMIT 1`,
			list:   `SELECT key, data FROM documents WHERE kind = ? ORDER BY id ASC`,
		},
	}}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(kind, key)
	);

	CREATE INDEX IF NOT EXISTS documents_kind_id ON documents(kind, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}
