package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/goGuard/ledger"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a ledger.Backend on PostgreSQL.
type Store struct {
	DB DBTX
}

// NewStore wraps db.
func NewStore(db DBTX) *Store {
	return &Store{DB: db}
}

const loadRecord = `-- name: Load ledger record
SELECT version, entries
FROM issued_token_ledgers
WHERE subject = $1`

func (s *Store) Load(ctx context.Context, subject string) (ledger.Record, error) {
	rows, _ := s.DB.Query(ctx, loadRecord, subject)
	rec, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (ledger.Record, error) {
		var (
			r   = ledger.Record{Subject: subject}
			v   int64
			raw []byte
		)
		if err := row.Scan(&v, &raw); err != nil {
			return r, err
		}
		r.Version = uint64(v)
		entries, err := ledger.DecodeEntries(raw)
		r.Entries = entries
		return r, err
	})

	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, pgx.ErrNoRows):
		return ledger.Record{Subject: subject}, nil
	case errors.Is(err, ledger.ErrCorruptRecord):
		return ledger.Record{}, err
	default:
		return ledger.Record{}, dbError(err)
	}
}

const insertRecord = `-- name: Create ledger record
INSERT INTO issued_token_ledgers (subject, version, entries, updated_at)
VALUES ($1, 1, $2::jsonb, now())
ON CONFLICT (subject) DO NOTHING`

const updateRecord = `-- name: Replace ledger entries if version matches
UPDATE issued_token_ledgers
SET version = version + 1, entries = $2::jsonb, updated_at = now()
WHERE subject = $1 AND version = $3`

func (s *Store) CompareAndSwap(ctx context.Context, rec ledger.Record) (bool, error) {
	data, err := ledger.EncodeEntries(rec.Entries)
	if err != nil {
		return false, err
	}

	var tag pgconn.CommandTag
	if rec.Version == 0 {
		tag, err = s.DB.Exec(ctx, insertRecord, rec.Subject, string(data))
	} else {
		tag, err = s.DB.Exec(ctx, updateRecord, rec.Subject, string(data), int64(rec.Version))
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return false, nil
		}
		return false, dbError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.DB.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return dbError(err)
	}
	return nil
}

const selectIncident = `SELECT latest FROM incident_clock WHERE id = 1`

func (s *Store) IncidentTime(ctx context.Context) (int64, bool, error) {
	var ts int64
	err := s.DB.QueryRow(ctx, selectIncident).Scan(&ts)
	switch {
	case err == nil:
		return ts, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, false, nil
	default:
		return 0, false, dbError(err)
	}
}

const initIncident = `-- name: Init incident clock
INSERT INTO incident_clock (id, latest) VALUES (1, $1)
ON CONFLICT (id) DO NOTHING`

func (s *Store) InitIncidentTime(ctx context.Context, ts int64) (int64, error) {
	if _, err := s.DB.Exec(ctx, initIncident, ts); err != nil {
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

const setIncident = `-- name: Set incident clock
INSERT INTO incident_clock (id, latest) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET latest = EXCLUDED.latest`

func (s *Store) SetIncidentTime(ctx context.Context, ts int64) error {
	if _, err := s.DB.Exec(ctx, setIncident, ts); err != nil {
		return dbError(err)
	}
	return nil
}

func dbError(err error) error {
	return fmt.Errorf("%w: db error: %v", ledger.ErrUnavailable, err)
}
