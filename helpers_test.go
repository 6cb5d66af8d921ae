package goGuard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(unix int64) *fakeClock {
	return &fakeClock{t: time.Unix(unix, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Unix(unix, 0)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testUser struct {
	id       string
	login    string
	password string
	claims   map[string]any
}

func (u *testUser) AuthIdentifier() string       { return u.id }
func (u *testUser) CustomClaims() map[string]any { return u.claims }

type testDirectory struct {
	mu    sync.Mutex
	users map[string]*testUser
	err   error
}

func newTestDirectory(users ...*testUser) *testDirectory {
	d := &testDirectory{users: map[string]*testUser{}}
	for _, u := range users {
		d.users[u.id] = u
	}
	return d
}

func (d *testDirectory) RetrieveByID(_ context.Context, subject string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[subject]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (d *testDirectory) RetrieveByCredentials(_ context.Context, creds Credentials) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.login == creds["login"] {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *testDirectory) ValidateCredentials(_ context.Context, p Principal, creds Credentials) (bool, error) {
	u, ok := p.(*testUser)
	return ok && u.password == creds["password"], nil
}

func (d *testDirectory) add(u *testUser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.id] = u
}

func (d *testDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

type testEnv struct {
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	clock *fakeClock
	dir   *testDirectory
	sink  *ChannelSink
	alice *testUser
}

const (
	uaDesktop = "Mozilla/5.0 (X11; Linux x86_64)"
	uaPhone   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"
	uaTablet  = "Mozilla/5.0 (iPad; CPU OS 17_0)"
)

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// newTestEngine builds an engine over miniredis with a fake clock starting at unix 1000.
func newTestEngine(t testing.TB, opts ...func(*Builder)) (*Engine, *testEnv) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:    mr,
		rdb:   rdb,
		clock: newFakeClock(1000),
		sink:  NewChannelSink(256),
		alice: &testUser{id: "42", login: "alice", password: "correct-password-123", claims: map[string]any{"role": "admin"}},
	}
	env.dir = newTestDirectory(env.alice)

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("s", 64))
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(env.dir).
		WithAuditSink(env.sink).
		WithClock(env.clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, env
}

// drainEvents closes the engine and returns the audit event types in emission order.
func drainEvents(engine *Engine, sink *ChannelSink) []string {
	engine.Close()
	var out []string
	for len(sink.Events()) > 0 {
		out = append(out, (<-sink.Events()).EventType)
	}
	return out
}
