package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/serroba/urls-node/internal/dbconn"
	"github.com/serroba/urls-node/internal/shortener"
)

// Schema creates the urls table. The primary key on short_id is what turns a
// generated-id collision into ErrDuplicateID.
const Schema = `
	CREATE TABLE IF NOT EXISTS urls (
		short_id     TEXT PRIMARY KEY,
		url          TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		requester_ip TEXT NOT NULL DEFAULT ''
	)
`

// EnsureSchema applies Schema on conn.
func EnsureSchema(ctx context.Context, conn dbconn.Conn) error {
	if _, err := conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create urls table: %w", err)
	}

	return nil
}

// PostgresStore is a PostgreSQL implementation of shortener.Repository bound
// to a single leased connection.
type PostgresStore struct {
	conn dbconn.Conn
}

// NewPostgresStore creates a store on conn.
func NewPostgresStore(conn dbconn.Conn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// PostgresFactory adapts NewPostgresStore to shortener.RepositoryFactory.
func PostgresFactory(conn dbconn.Conn) shortener.Repository {
	return NewPostgresStore(conn)
}

func (p *PostgresStore) Insert(ctx context.Context, mapping *shortener.Mapping) error {
	query := `
		INSERT INTO urls (short_id, url, created_at, requester_ip)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (short_id) DO NOTHING
	`

	tag, err := p.conn.Exec(ctx, query,
		string(mapping.ShortID),
		mapping.URL,
		mapping.CreatedAt,
		mapping.RequesterIP,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", shortener.ErrWriteFailed, err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrDuplicateID
	}

	return nil
}

func (p *PostgresStore) FindByShortID(ctx context.Context, id shortener.ShortID) (*shortener.Mapping, error) {
	query := `
		SELECT short_id, url, created_at, requester_ip
		FROM urls
		WHERE short_id = $1
	`

	var mapping shortener.Mapping

	err := p.conn.QueryRow(ctx, query, string(id)).Scan(
		&mapping.ShortID,
		&mapping.URL,
		&mapping.CreatedAt,
		&mapping.RequesterIP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, fmt.Errorf("%w: %w", shortener.ErrReadFailed, err)
	}

	return &mapping, nil
}

var _ shortener.Repository = (*PostgresStore)(nil)
