package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SQLite stores documents as JSON in the documents table of a database
// prepared by db.EnsureSchema.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database. Close does not close db.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// List returns all documents of a collection in insertion order.
func (s *SQLite) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, fields FROM documents WHERE collection = ? ORDER BY seq`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s document: %w", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", collection, key, err)
		}
		docs = append(docs, Document{Key: key, Fields: fields})
	}
	return docs, rows.Err()
}

// Get returns a single document.
func (s *SQLite) Get(ctx context.Context, collection, key string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND key = ?`, collection, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting %s/%s: %w", collection, key, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return Document{}, fmt.Errorf("decoding %s/%s: %w", collection, key, err)
	}
	return Document{Key: key, Fields: fields}, nil
}

// Add inserts a document under a new random key.
func (s *SQLite) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding %s document: %w", collection, err)
	}

	key := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, fields) VALUES (?, ?, ?)`,
		collection, key, string(raw),
	)
	if err != nil {
		return "", fmt.Errorf("adding %s document: %w", collection, err)
	}
	return key, nil
}

// Update merges fields into an existing document.
func (s *SQLite) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND key = ?`, collection, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s/%s: %w", collection, key, err)
	}

	current, err := decodeFields(raw)
	if err != nil {
		return fmt.Errorf("decoding %s/%s: %w", collection, key, err)
	}
	updated, err := json.Marshal(merge(current, fields))
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, key, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET fields = ? WHERE collection = ? AND key = ?`,
		string(updated), collection, key,
	)
	if err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return nil
}

// Delete removes a document.
func (s *SQLite) Delete(ctx context.Context, collection, key string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`, collection, key,
	)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; the database belongs to the caller.
func (s *SQLite) Close() error { return nil }

func decodeFields(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
