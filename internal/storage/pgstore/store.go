// Package pgstore keeps session records in a PostgreSQL table.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yndnr/authrelay-go/internal/core/domain"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "authrelay_sessions"

// Config configures the store.
type Config struct {
	// Table name, optionally schema qualified ("auth.sessions").
	Table string

	// MaxConns caps the pool size (0 keeps the pgx default).
	MaxConns int32

	// Migrate creates the table and index when missing.
	Migrate bool

	// PingTimeout bounds the connectivity check on open.
	PingTimeout time.Duration
}

// Store is a PostgreSQL-backed session table.
type Store struct {
	pool  *pgxpool.Pool
	table string
	owned bool

	qGet, qPut, qDelete, qSweep string
}

// New wraps an existing pool. The caller keeps ownership of pool.
func New(pool *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	ident := quoteTable(table)
	return &Store{
		pool:    pool,
		table:   ident,
		qGet:    `SELECT claims, created_at FROM ` + ident + ` WHERE id = $1`,
		qPut:    `INSERT INTO ` + ident + ` (id, claims, created_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET claims = EXCLUDED.claims, created_at = EXCLUDED.created_at`,
		qDelete: `DELETE FROM ` + ident + ` WHERE id = $1`,
		qSweep:  `DELETE FROM ` + ident + ` WHERE created_at < $1`,
	}
}

// Open connects to dsn and optionally migrates. Close releases the pool.
func Open(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	s := New(pool, cfg.Table)
	s.owned = true

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func quoteTable(table string) string {
	for i := 0; i < len(table); i++ {
		if table[i] == '.' {
			return pgx.Identifier{table[:i], table[i+1:]}.Sanitize()
		}
	}
	return pgx.Identifier{table}.Sanitize()
}

// Migrate creates the session table and its created_at index.
func (s *Store) Migrate(ctx context.Context) error {
	index := pgx.Identifier{indexName(s.table)}.Sanitize()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id         text PRIMARY KEY,
			claims     text NOT NULL,
			created_at bigint NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + index + ` ON ` + s.table + ` (created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

func indexName(quoted string) string {
	name := make([]byte, 0, len(quoted)+len("_created_idx"))
	for i := 0; i < len(quoted); i++ {
		switch c := quoted[i]; c {
		case '"':
		case '.':
			name = append(name, '_')
		default:
			name = append(name, c)
		}
	}
	return string(name) + "_created_idx"
}

// Get returns the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	rec := &domain.Session{ID: id}
	err := s.pool.QueryRow(ctx, s.qGet, id).Scan(&rec.Claims, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return rec, nil
}

// Put inserts or replaces the record.
func (s *Store) Put(ctx context.Context, rec *domain.Session) error {
	if _, err := s.pool.Exec(ctx, s.qPut, rec.ID, rec.Claims, rec.CreatedAt); err != nil {
		return fmt.Errorf("postgres: put: %w", err)
	}
	return nil
}

// Delete removes the record. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, s.qDelete, id); err != nil {
		return fmt.Errorf("postgres: delete: %w", err)
	}
	return nil
}

// DeleteCreatedBefore removes rows created strictly before cutoff.
func (s *Store) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, s.qSweep, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("postgres: sweep: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping acquires a connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close releases the pool if the store opened it.
func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
