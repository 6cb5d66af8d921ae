package incident

import (
	"context"
	"errors"
	"time"
)

// Key is the storage key of the incident timestamp in key-value backends.
const Key = "jwt.latest_incident_date_time"

// ErrStoreRequired is returned by NewClock when store is nil.
var ErrStoreRequired = errors.New("incident store is required")

// Store persists a single unix timestamp without expiry.
type Store interface {
	// IncidentTime returns the stored timestamp and whether it exists.
	IncidentTime(ctx context.Context) (int64, bool, error)
	// InitIncidentTime stores ts only when no value exists and returns the value in effect.
	InitIncidentTime(ctx context.Context, ts int64) (int64, error)
	// SetIncidentTime overwrites the stored value.
	SetIncidentTime(ctx context.Context, ts int64) error
}

// Clock reads and advances the incident time.
type Clock struct {
	store Store
	now   func() time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow overrides the time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClock returns a Clock backed by store.
func NewClock(store Store, opts ...Option) (*Clock, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	c := &Clock{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EnsureInitialized sets the incident time to one second before now when it is absent.
// Concurrent callers across processes converge on the first stored value.
func (c *Clock) EnsureInitialized(ctx context.Context) (int64, error) {
	ts, ok, err := c.store.IncidentTime(ctx)
	if err != nil {
		return 0, err
	}
	if ok {
		return ts, nil
	}
	return c.store.InitIncidentTime(ctx, c.now().Unix()-1)
}

// Get returns the incident time, initializing it first if needed.
func (c *Clock) Get(ctx context.Context) (int64, error) {
	return c.EnsureInitialized(ctx)
}

// Declare moves the incident time to now. Every token issued up to and including this
// second is treated as blacklisted afterwards.
func (c *Clock) Declare(ctx context.Context) (int64, error) {
	ts := c.now().Unix()
	if err := c.store.SetIncidentTime(ctx, ts); err != nil {
		return 0, err
	}
	return ts, nil
}
