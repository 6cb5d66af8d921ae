package directory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/ledger"
)

func cheapParams() Params {
	return Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(cheapParams())
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t)

	encoded, err := h.Hash("P@ssw0rd-Ascii")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"), encoded)

	ok, err := h.Verify("P@ssw0rd-Ascii", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := h.Hash("P@ssw0rd-Ascii")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "salt must differ")
}

func TestHasherRejects(t *testing.T) {
	_, err := NewHasher(Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	assert.ErrorIs(t, err, ErrWeakParams)

	h := newHasher(t)
	_, err = h.Hash("short")
	assert.ErrorIs(t, err, ErrShortSecret)

	for _, bad := range []string{
		"",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1,x=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		_, err := h.Verify("whatever-password", bad)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newHasher(t)
	encoded, err := weak.Hash("correct-password")
	require.NoError(t, err)

	need, err := weak.NeedsRehash(encoded)
	require.NoError(t, err)
	assert.False(t, need)

	stronger := cheapParams()
	stronger.Time = 2
	strong, err := NewHasher(stronger)
	require.NoError(t, err)
	need, err = strong.NeedsRehash(encoded)
	require.NoError(t, err)
	assert.True(t, need)
}

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory(newHasher(t))

	_, err := dir.Register("7", "Carol", "carol-password-1", map[string]any{"tier": "gold"})
	require.NoError(t, err)

	_, err = dir.Register("8", "carol", "another-password", nil)
	assert.ErrorIs(t, err, ErrDuplicateLogin)

	_, err = dir.Register("", "dave", "dave-password-1", nil)
	assert.ErrorIs(t, err, goGuard.ErrInvalidAction)

	p, err := dir.RetrieveByCredentials(ctx, goGuard.Credentials{FieldLogin: "CAROL"})
	require.NoError(t, err)
	assert.Equal(t, "7", p.AuthIdentifier())
	assert.Equal(t, "gold", p.CustomClaims()["tier"])

	ok, err := dir.ValidateCredentials(ctx, p, goGuard.Credentials{FieldPassword: "carol-password-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.ValidateCredentials(ctx, p, goGuard.Credentials{FieldPassword: "nope-nope-nope"})
	require.NoError(t, err)
	assert.False(t, ok)

	byID, err := dir.RetrieveByID(ctx, "7")
	require.NoError(t, err)
	assert.Same(t, p, byID)

	dir.Remove("7")
	_, err = dir.RetrieveByID(ctx, "7")
	assert.ErrorIs(t, err, goGuard.ErrUserNotFound)
	_, err = dir.RetrieveByCredentials(ctx, goGuard.Credentials{FieldLogin: "carol"})
	assert.ErrorIs(t, err, goGuard.ErrUserNotFound)
}

func TestMemoryWithEngine(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory(newHasher(t))
	_, err := dir.Register("1", "erin", "erin-password-1", nil)
	require.NoError(t, err)

	cfg := goGuard.DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("d", 40))
	engine, err := goGuard.New().WithConfig(cfg).WithBackend(memoryBackend()).WithUserDirectory(dir).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	const agent = "curl/8.4.0"
	res, err := engine.Attempt(ctx, goGuard.Credentials{FieldLogin: "erin", FieldPassword: "erin-password-1"}, agent)
	require.NoError(t, err)

	auth, err := engine.Authenticate(ctx, goGuard.AuthRequest{Token: res.AccessToken, UserAgent: agent})
	require.NoError(t, err)
	assert.Equal(t, "1", auth.Principal.AuthIdentifier())

	_, err = engine.Attempt(ctx, goGuard.Credentials{FieldLogin: "erin", FieldPassword: "bad-password"}, agent)
	assert.ErrorIs(t, err, goGuard.ErrInvalidCredentials)

	dir.Remove("1")
	_, err = engine.Authenticate(ctx, goGuard.AuthRequest{Token: res.AccessToken, UserAgent: agent})
	assert.ErrorIs(t, err, goGuard.ErrUnauthenticated)
}

func memoryBackend() *ledger.MemoryStore { return ledger.NewMemoryStore() }
