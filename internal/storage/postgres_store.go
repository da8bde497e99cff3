package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const (
	postgresOpTimeout = 5 * time.Second

	createSeenEntriesSQL = `CREATE TABLE IF NOT EXISTS seen_entries (
	id         TEXT PRIMARY KEY,
	marked_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`
	selectSeenEntrySQL = `SELECT marked_at, expires_at FROM seen_entries WHERE id = $1`
	deleteSeenEntrySQL = `DELETE FROM seen_entries WHERE id = $1`
	upsertSeenEntrySQL = `INSERT INTO seen_entries (id, marked_at, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET marked_at = EXCLUDED.marked_at, expires_at = EXCLUDED.expires_at`
	purgeSeenEntriesSQL = `DELETE FROM seen_entries WHERE expires_at <= $1`
)

// postgresStore keeps seen entries in the seen_entries table.
type postgresStore struct {
	db  *sql.DB
	ret *retention
}

// openPostgres connects, verifies the connection and ensures the table exists.
func openPostgres(dsn string, opts Options) (*postgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createSeenEntriesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create seen_entries table: %w", err)
	}

	return &postgresStore{db: db, ret: newRetention(opts)}, nil
}

func (p *postgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// SeenEntry reports whether id has a live row; an expired row is deleted.
func (p *postgresStore) SeenEntry(id string) (bool, error) {
	if p == nil || p.db == nil {
		return false, nil
	}
	now := p.ret.now()
	if err := p.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	var rec seenRecord
	err := p.db.QueryRowContext(ctx, selectSeenEntrySQL, id).Scan(&rec.MarkedAt, &rec.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup entry: %w", err)
	case rec.live(now):
		return true, nil
	}

	if _, err := p.db.ExecContext(ctx, deleteSeenEntrySQL, id); err != nil {
		return false, fmt.Errorf("delete expired entry: %w", err)
	}
	return false, nil
}

// MarkEntry upserts a fresh row for id.
func (p *postgresStore) MarkEntry(id string) error {
	if p == nil || p.db == nil {
		return nil
	}
	now := p.ret.now()
	if err := p.maybeCleanupExpired(now); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	rec := p.ret.record(now)
	if _, err := p.db.ExecContext(ctx, upsertSeenEntrySQL, id, rec.MarkedAt.UTC(), rec.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("mark entry: %w", err)
	}
	return nil
}

func (p *postgresStore) maybeCleanupExpired(now time.Time) error {
	return p.ret.sweep(now, p.purge)
}

func (p *postgresStore) purge(now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	if _, err := p.db.ExecContext(ctx, purgeSeenEntriesSQL, now.UTC()); err != nil {
		return fmt.Errorf("cleanup expired entries: %w", err)
	}
	return nil
}
