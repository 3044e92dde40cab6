package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresBackend keeps the document as a row of the store_documents table.
type PostgresBackend struct {
	db   *sql.DB
	name string
}

// NewPostgresBackend constructs a PostgresBackend for the row with the given name.
func NewPostgresBackend(db *sql.DB, name string) *PostgresBackend {
	return &PostgresBackend{db: db, name: name}
}

func (b *PostgresBackend) Exists(ctx context.Context) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM store_documents WHERE name = $1)`
	var exists bool
	if err := b.db.QueryRowContext(ctx, query, b.name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	const query = `
		SELECT body
		FROM store_documents
		WHERE name = $1`
	var body []byte
	err := b.db.QueryRowContext(ctx, query, b.name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return body, nil
}

func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO store_documents (name, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at`
	_, err := b.db.ExecContext(ctx, query, b.name, string(data), time.Now().UTC())
	return err
}

func (b *PostgresBackend) Name() string {
	return "postgres"
}
