package incident

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	mu  sync.Mutex
	ts  int64
	set bool
	err error
}

func (m *mapStore) IncidentTime(context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ts, m.set, m.err
}

func (m *mapStore) InitIncidentTime(_ context.Context, ts int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if !m.set {
		m.ts, m.set = ts, true
	}
	return m.ts, nil
}

func (m *mapStore) SetIncidentTime(_ context.Context, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.ts, m.set = ts, true
	return nil
}

func TestClockInitializesOnce(t *testing.T) {
	now := time.Unix(5000, 0)
	store := &mapStore{}
	clock, err := NewClock(store, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	ts, err := clock.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4999), ts)

	now = time.Unix(9000, 0)
	ts, err = clock.EnsureInitialized(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4999), ts, "existing value must not move")
}

func TestClockDeclare(t *testing.T) {
	now := time.Unix(5000, 0)
	store := &mapStore{}
	clock, err := NewClock(store, WithNow(func() time.Time { return now }))
	require.NoError(t, err)
	_, err = clock.Get(context.Background())
	require.NoError(t, err)

	now = time.Unix(7000, 0)
	ts, err := clock.Declare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7000), ts)

	got, err := clock.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7000), got)
}

func TestClockPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	clock, err := NewClock(&mapStore{err: boom})
	require.NoError(t, err)
	_, err = clock.Get(context.Background())
	require.ErrorIs(t, err, boom)
	_, err = clock.Declare(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNewClockRequiresStore(t *testing.T) {
	_, err := NewClock(nil)
	require.ErrorIs(t, err, ErrStoreRequired)
}
