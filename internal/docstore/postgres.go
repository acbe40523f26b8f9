package docstore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres stores documents as JSONB rows.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and applies pending migrations.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

func migrate(pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// List returns all documents of a collection in insertion order.
func (p *Postgres) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, fields FROM documents WHERE collection = $1 ORDER BY seq`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s document: %w", collection, err)
		}
		fields, err := decodeFields(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", collection, key, err)
		}
		docs = append(docs, Document{Key: key, Fields: fields})
	}
	return docs, rows.Err()
}

// Get returns a single document.
func (p *Postgres) Get(ctx context.Context, collection, key string) (Document, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND key = $2`, collection, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting %s/%s: %w", collection, key, err)
	}
	fields, err := decodeFields(string(raw))
	if err != nil {
		return Document{}, fmt.Errorf("decoding %s/%s: %w", collection, key, err)
	}
	return Document{Key: key, Fields: fields}, nil
}

// Add inserts a document under a new random key.
func (p *Postgres) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding %s document: %w", collection, err)
	}

	key := uuid.NewString()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, fields) VALUES ($1, $2, $3::jsonb)`,
		collection, key, string(raw),
	)
	if err != nil {
		return "", fmt.Errorf("adding %s document: %w", collection, err)
	}
	return key, nil
}

// Update merges fields into an existing document with the jsonb || operator.
func (p *Postgres) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, key, err)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE documents SET fields = fields || $3::jsonb WHERE collection = $1 AND key = $2`,
		collection, key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document.
func (p *Postgres) Delete(ctx context.Context, collection, key string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`, collection, key,
	)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
