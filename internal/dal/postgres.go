package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL JSONB documents
type PostgresStore struct {
	sqlDocuments
}

// NewPostgresStore connects to PostgreSQL, retrying the initial ping while
// cluster DNS settles.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	s := &PostgresStore{sqlDocuments{
		db: db,
		q: sqlQueries{
			get: `SELECT data FROM documents WHERE kind = $1 AND key = $2`,
			upsert: `INSERT INTO documents (kind, key, data, updated_at) VALUES ($1, $2, $3::jsonb, $4)
				ON CONFLICT (kind, key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
			latest: `SELECT key, data FROM documents WHERE kind = $1 ORDER BY id DESC LIMIT 1`,
			list:   `SELECT key, data FROM documents WHERE kind = $1 ORDER BY id ASC`,
		},
	}}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (kind, key)
	);

	CREATE INDEX IF NOT EXISTS documents_kind_id ON documents (kind, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}
	return nil
}
