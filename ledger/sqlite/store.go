package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrEthical07/goGuard/ledger"
)

// Store is a ledger.Backend on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens dsn (a file path or ":memory:") with a single connection so writers are
// serialized and in-memory databases are shared.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Open creates the store and applies migrations.
func Open(dsn string) (*Store, error) {
	s, err := NewStore(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyMigrations(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return dbError(err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, subject string) (ledger.Record, error) {
	var (
		version int64
		raw     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, entries FROM issued_token_ledgers WHERE subject = ?`, subject,
	).Scan(&version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{Subject: subject}, nil
	}
	if err != nil {
		return ledger.Record{}, dbError(err)
	}

	entries, err := ledger.DecodeEntries([]byte(raw))
	if err != nil {
		return ledger.Record{}, err
	}
	return ledger.Record{Subject: subject, Version: uint64(version), Entries: entries}, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, rec ledger.Record) (bool, error) {
	data, err := ledger.EncodeEntries(rec.Entries)
	if err != nil {
		return false, err
	}
	now := s.now().Unix()

	var res sql.Result
	if rec.Version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO issued_token_ledgers (subject, version, entries, updated_at)
			 VALUES (?, 1, ?, ?) ON CONFLICT (subject) DO NOTHING`,
			rec.Subject, string(data), now)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE issued_token_ledgers SET version = version + 1, entries = ?, updated_at = ?
			 WHERE subject = ? AND version = ?`,
			string(data), now, rec.Subject, int64(rec.Version))
	}
	if err != nil {
		return false, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbError(err)
	}
	return n == 1, nil
}

func (s *Store) IncidentTime(ctx context.Context) (int64, bool, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx, `SELECT latest FROM incident_clock WHERE id = 1`).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, dbError(err)
	}
	return ts, true, nil
}

func (s *Store) InitIncidentTime(ctx context.Context, ts int64) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO incident_clock (id, latest) VALUES (1, ?) ON CONFLICT (id) DO NOTHING`, ts,
	); err != nil {
		return 0, dbError(err)
	}
	cur, ok, err := s.IncidentTime(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ts, nil
	}
	return cur, nil
}

func (s *Store) SetIncidentTime(ctx context.Context, ts int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO incident_clock (id, latest) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET latest = excluded.latest`, ts,
	); err != nil {
		return dbError(err)
	}
	return nil
}

func dbError(err error) error {
	return fmt.Errorf("%w: db error: %v", ledger.ErrUnavailable, err)
}
