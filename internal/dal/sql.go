package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqlQueries holds the dialect-specific statements of a documents table.
type sqlQueries struct {
	get    string
	upsert string
	latest string
	list   string
}

// sqlDocuments is the database/sql half shared by the SQLite and Postgres stores.
type sqlDocuments struct {
	db *sql.DB
	q  sqlQueries
}

func (s *sqlDocuments) Get(ctx context.Context, kind, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.q.get, kind, NormalizeKey(key)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", kind, key, err)
	}
	return data, nil
}

func (s *sqlDocuments) Put(ctx context.Context, docs ...Document) error {
	if err := checkDocs(docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, s.q.upsert, d.Kind, NormalizeKey(d.Key), string(d.Data), now); err != nil {
			return fmt.Errorf("put %s/%s: %w", d.Kind, d.Key, err)
		}
	}
	return tx.Commit()
}

func (s *sqlDocuments) Latest(ctx context.Context, kind string) (Document, error) {
	doc := Document{Kind: kind}
	err := s.db.QueryRowContext(ctx, s.q.latest, kind).Scan(&doc.Key, &doc.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("latest %s: %w", kind, err)
	}
	return doc, nil
}

func (s *sqlDocuments) List(ctx context.Context, kind string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, s.q.list, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc := Document{Kind: kind}
		if err := rows.Scan(&doc.Key, &doc.Data); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *sqlDocuments) Close() error {
	return s.db.Close()
}
