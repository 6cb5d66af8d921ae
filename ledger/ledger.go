package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goGuard/incident"
	"github.com/MrEthical07/goGuard/jwt"
)

var (
	// ErrInvalidAction is returned for operations without a subject.
	ErrInvalidAction = errors.New("subject id cannot be empty")
	// ErrConflict is returned when a mutation keeps losing the compare-and-swap race.
	ErrConflict = errors.New("ledger update conflict")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("ledger backend unavailable")
	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = errors.New("ledger record corrupt")
	// ErrStoreRequired is returned by New when store is nil.
	ErrStoreRequired = errors.New("ledger store is required")
)

// DefaultMaxRetries bounds the compare-and-swap attempts of a single mutation.
const DefaultMaxRetries = 8

// Store persists versioned records.
type Store interface {
	// Load returns the stored record or an empty record with version 0.
	Load(ctx context.Context, subject string) (Record, error)
	// CompareAndSwap writes rec.Entries with version rec.Version+1 if the stored
	// version still equals rec.Version. It reports false on a lost race.
	CompareAndSwap(ctx context.Context, rec Record) (bool, error)
	Ping(ctx context.Context) error
}

// Backend is a Store that also hosts the incident clock.
type Backend interface {
	Store
	incident.Store
}

// Ledger serializes per-subject mutations over a Store.
type Ledger struct {
	store      Store
	maxRetries int
	log        logrus.FieldLogger
	onConflict func()
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxRetries overrides DefaultMaxRetries. Values below 1 are ignored.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithConflictHook registers fn to run on every lost compare-and-swap.
func WithConflictHook(fn func()) Option {
	return func(l *Ledger) {
		l.onConflict = fn
	}
}

// New returns a Ledger over store.
func New(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	l := &Ledger{store: store, maxRetries: DefaultMaxRetries, log: discard}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Store returns the underlying store.
func (l *Ledger) Store() Store {
	return l.store
}

func checkSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return ErrInvalidAction
	}
	return nil
}

// Load returns the subject's record.
func (l *Ledger) Load(ctx context.Context, subject string) (Record, error) {
	if err := checkSubject(subject); err != nil {
		return Record{}, err
	}
	return l.store.Load(ctx, subject)
}

// Exists reports whether a record has been stored for subject.
func (l *Ledger) Exists(ctx context.Context, subject string) (bool, error) {
	rec, err := l.Load(ctx, subject)
	if err != nil {
		return false, err
	}
	return rec.Exists(), nil
}

// Initialize stores an empty record for subject unless one exists.
func (l *Ledger) Initialize(ctx context.Context, subject string) error {
	_, err := l.Update(ctx, subject, func(rec *Record) (bool, error) {
		return !rec.Exists(), nil
	})
	return err
}

// Update loads the record, applies fn and writes the result back when fn reports a change.
// A lost race reloads and reapplies fn, up to the configured retry limit.
func (l *Ledger) Update(ctx context.Context, subject string, fn func(*Record) (bool, error)) (Record, error) {
	if err := checkSubject(subject); err != nil {
		return Record{}, err
	}

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}
		rec, err := l.store.Load(ctx, subject)
		if err != nil {
			return Record{}, err
		}
		rec.Subject = subject

		next := rec.Clone()
		changed, err := fn(&next)
		if err != nil {
			return Record{}, err
		}
		if !changed {
			return rec, nil
		}

		ok, err := l.store.CompareAndSwap(ctx, next)
		if err != nil {
			return Record{}, err
		}
		if ok {
			next.Version = rec.Version + 1
			return next, nil
		}

		if l.onConflict != nil {
			l.onConflict()
		}
		l.log.WithFields(logrus.Fields{
			"subject": subject,
			"attempt": attempt,
			"version": rec.Version,
		}).Debug("ledger compare-and-swap lost, retrying")
	}

	return Record{}, fmt.Errorf("%w: subject %s after %d attempts", ErrConflict, subject, l.maxRetries)
}

// RecordIssuance marks (userAgent, typ) as issued at at and clears any blacklist flag.
func (l *Ledger) RecordIssuance(ctx context.Context, subject, userAgent string, typ jwt.TokenType, at int64) error {
	return l.put(ctx, subject, Entry{UserAgent: userAgent, Type: typ, IssuedAt: at})
}

// RecordRevocation marks (userAgent, typ) as blacklisted at at, creating the entry if needed.
func (l *Ledger) RecordRevocation(ctx context.Context, subject, userAgent string, typ jwt.TokenType, at int64) error {
	return l.put(ctx, subject, Entry{UserAgent: userAgent, Type: typ, IssuedAt: at, Blacklisted: true})
}

// RecordRevocations applies RecordRevocation for each type in one write.
func (l *Ledger) RecordRevocations(ctx context.Context, subject, userAgent string, types []jwt.TokenType, at int64) error {
	_, err := l.Update(ctx, subject, func(rec *Record) (bool, error) {
		for _, typ := range types {
			rec.Put(Entry{UserAgent: userAgent, Type: typ, IssuedAt: at, Blacklisted: true})
		}
		return len(types) > 0, nil
	})
	return err
}

func (l *Ledger) put(ctx context.Context, subject string, e Entry) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown token type %q", ErrInvalidAction, e.Type)
	}
	_, err := l.Update(ctx, subject, func(rec *Record) (bool, error) {
		rec.Put(e)
		return true, nil
	})
	return err
}

// RevokeEntries blacklists every existing entry matched by match and bumps its iat to at.
// It returns the number of entries revoked.
func (l *Ledger) RevokeEntries(ctx context.Context, subject string, at int64, match func(Entry) bool) (int, error) {
	var n int
	_, err := l.Update(ctx, subject, func(rec *Record) (bool, error) {
		n = 0
		for i, e := range rec.Entries {
			if !match(e) {
				continue
			}
			rec.Entries[i].Blacklisted = true
			rec.Entries[i].IssuedAt = at
			n++
		}
		return n > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Active returns non-blacklisted entries, restricted to types when given.
func (l *Ledger) Active(ctx context.Context, subject string, types ...jwt.TokenType) ([]Entry, error) {
	rec, err := l.Load(ctx, subject)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rec.Entries))
	for _, e := range rec.Entries {
		if e.Blacklisted || !typeIn(e.Type, types) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func typeIn(t jwt.TokenType, types []jwt.TokenType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}
