package goGuard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/ledger"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	engine, env := newTestEngine(t)
	ctx := context.Background()

	issued, err := engine.Issue(ctx, AccessToken, env.alice, uaDesktop)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Verifier)
	assert.Equal(t, int64(1000), issued.Claims.IssuedAt)
	assert.Equal(t, int64(4600), issued.Claims.ExpiresAt)

	token, err := engine.Verify(ctx, issued.Token)
	require.NoError(t, err)

	sub, err := token.Subject()
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
	typ, err := token.Type()
	require.NoError(t, err)
	assert.Equal(t, AccessToken, typ)
	ua, err := token.UserAgent()
	require.NoError(t, err)
	assert.Equal(t, uaDesktop, ua)
	atv, err := token.Verifier()
	require.NoError(t, err)
	assert.Equal(t, issued.Verifier, atv)
	id, err := token.ID()
	require.NoError(t, err)
	assert.Equal(t, issued.Claims.ID, id)
	role, err := token.Claim("role")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)
	headers, err := token.Headers()
	require.NoError(t, err)
	assert.Equal(t, "HS256", headers["alg"])

	_, err = token.Claim("missing")
	assert.ErrorIs(t, err, ErrUndefinedClaim)
	_, err = token.Issuer()
	assert.ErrorIs(t, err, ErrUndefinedClaim)
}

func TestRefreshTokenHasNoVerifier(t *testing.T) {
	engine, env := newTestEngine(t)
	ctx := context.Background()

	issued, err := engine.Issue(ctx, RefreshToken, env.alice, uaDesktop)
	require.NoError(t, err)
	assert.Empty(t, issued.Verifier)
	assert.Equal(t, int64(1000+604800), issued.Claims.ExpiresAt)

	token, err := engine.Verify(ctx, issued.Token)
	require.NoError(t, err)
	_, err = token.Verifier()
	assert.ErrorIs(t, err, ErrUndefinedClaim)
}

func TestNilRequestTokenAccessors(t *testing.T) {
	var token *RequestToken
	_, err := token.Subject()
	assert.ErrorIs(t, err, ErrUndefinedClaim)
	_, err = token.IssuedAt()
	assert.ErrorIs(t, err, ErrUndefinedClaim)
	_, err = token.Headers()
	assert.ErrorIs(t, err, ErrUndefinedClaim)
	_, err = token.Claims()
	assert.ErrorIs(t, err, ErrUndefinedClaim)
	assert.Empty(t, token.Raw())
}

func TestExpiryBoundary(t *testing.T) {
	engine, env := newTestEngine(t)
	ctx := context.Background()

	issued, err := engine.Issue(ctx, AccessToken, env.alice, uaDesktop)
	require.NoError(t, err)

	env.clock.Set(4600)
	_, err = engine.Verify(ctx, issued.Token)
	require.NoError(t, err, "token must still be valid at exp")

	env.clock.Set(4601)
	_, err = engine.Verify(ctx, issued.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, uint64(1), engine.MetricsSnapshot().Counters[MetricVerifyFailure])
}

func TestIssueRejectsInvalidInput(t *testing.T) {
	engine, env := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Issue(ctx, AccessToken, &testUser{id: " "}, uaDesktop)
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = engine.Issue(ctx, AccessToken, nil, uaDesktop)
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = engine.Issue(ctx, AccessToken, env.alice, "")
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = engine.Issue(ctx, TokenType("id"), env.alice, uaDesktop)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestCustomClaimsCannotOverrideReserved(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mallory := &testUser{id: "7", claims: map[string]any{"sub": "1", "type": "refresh", "exp": 99999999, "tenant": "acme"}}
	issued, err := engine.Issue(ctx, AccessToken, mallory, uaDesktop)
	require.NoError(t, err)

	token, err := engine.Verify(ctx, issued.Token)
	require.NoError(t, err)
	sub, _ := token.Subject()
	typ, _ := token.Type()
	exp, _ := token.ExpiresAt()
	tenant, _ := token.Claim("tenant")
	assert.Equal(t, "7", sub)
	assert.Equal(t, AccessToken, typ)
	assert.Equal(t, int64(4600), exp)
	assert.Equal(t, "acme", tenant)
}

func TestSingleEntryPerDeviceAndType(t *testing.T) {
	engine, env := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := engine.Issue(ctx, AccessToken, env.alice, uaDesktop)
		require.NoError(t, err)
		_, err = engine.Issue(ctx, RefreshToken, env.alice, uaDesktop)
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}
	_, err := engine.Issue(ctx, AccessToken, env.alice, uaPhone)
	require.NoError(t, err)

	rec, err := engine.Ledger().Load(ctx, "42")
	require.NoError(t, err)
	require.Len(t, rec.Entries, 3)
	seen := map[string]bool{}
	for _, e := range rec.Entries {
		key := e.UserAgent + "|" + string(e.Type)
		assert.False(t, seen[key], "duplicate entry %s", key)
		seen[key] = true
	}
	entry, ok := rec.Find(uaDesktop, jwt.Access)
	require.True(t, ok)
	assert.Equal(t, int64(1002), entry.IssuedAt)
	assert.False(t, entry.Blacklisted)

	assert.Equal(t, uint64(4), engine.MetricsSnapshot().Counters[MetricAccessIssued])
	assert.Equal(t, uint64(3), engine.MetricsSnapshot().Counters[MetricRefreshIssued])
}

func TestLedgerLayoutInRedis(t *testing.T) {
	engine, env := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Issue(ctx, AccessToken, env.alice, uaDesktop)
	require.NoError(t, err)

	require.True(t, env.mr.Exists("jwt.42"))
	assert.Equal(t, "1", env.mr.HGet("jwt.42", "v"))
	entries, err := ledger.DecodeEntries([]byte(env.mr.HGet("jwt.42", "entries")))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Entry{UserAgent: uaDesktop, Type: jwt.Access, IssuedAt: 1000}, entries[0])
	assert.Zero(t, env.mr.TTL("jwt.42"), "ledger records never expire")
}

func TestIssueFailsWhenLedgerUnavailable(t *testing.T) {
	engine, env := newTestEngine(t)
	env.mr.Close()

	_, err := engine.Issue(context.Background(), AccessToken, env.alice, uaDesktop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLedgerUnavailable), "got %v", err)
}

func TestBuildRequiresBackend(t *testing.T) {
	cfg := validConfig()
	_, err := New().WithConfig(cfg).Build()
	require.Error(t, err)
}

func TestBuildRequiresKeyMaterial(t *testing.T) {
	_, env := newTestEngine(t)
	_, err := New().WithRedis(env.rdb).Build()
	assert.ErrorIs(t, err, ErrKeyNotAvailable)

	cfg := validConfig()
	cfg.JWT.Algorithm = "PS256"
	_, err = New().WithConfig(cfg).WithRedis(env.rdb).Build()
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().WithConfig(validConfig()).WithRedis(rdb)
	engine, err := b.Build()
	require.NoError(t, err)
	defer engine.Close()
	_, err = b.Build()
	require.Error(t, err)
}

func TestMemoryBackend(t *testing.T) {
	store := ledger.NewMemoryStore()
	engine, err := New().WithConfig(validConfig()).WithBackend(store).Build()
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	require.NoError(t, engine.Ping(ctx))
	_, err = engine.Issue(ctx, AccessToken, &testUser{id: "9"}, uaDesktop)
	require.NoError(t, err)
	active, err := engine.ActiveTokens(ctx, "9")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
