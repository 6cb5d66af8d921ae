// Package ledgertest holds the behaviour every ledger.Backend must share.
package ledgertest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/ledger"
)

// Run exercises backend contracts against stores produced by newBackend.
// Each subtest receives a fresh backend.
func Run(t *testing.T, newBackend func(t *testing.T) ledger.Backend) {
	t.Run("load missing record", func(t *testing.T) {
		b := newBackend(t)
		rec, err := b.Load(context.Background(), "nobody")
		require.NoError(t, err)
		assert.False(t, rec.Exists())
		assert.Empty(t, rec.Entries)
	})

	t.Run("compare and swap versions", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		entry := ledger.Entry{UserAgent: "ua", Type: jwt.Access, IssuedAt: 100}

		ok, err := b.CompareAndSwap(ctx, ledger.Record{Subject: "s1", Entries: []ledger.Entry{entry}})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = b.CompareAndSwap(ctx, ledger.Record{Subject: "s1"})
		require.NoError(t, err)
		assert.False(t, ok, "create must fail once the record exists")

		rec, err := b.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), rec.Version)
		assert.Equal(t, []ledger.Entry{entry}, rec.Entries)

		entry.Blacklisted = true
		ok, err = b.CompareAndSwap(ctx, ledger.Record{Subject: "s1", Version: 1, Entries: []ledger.Entry{entry}})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = b.CompareAndSwap(ctx, ledger.Record{Subject: "s1", Version: 1})
		require.NoError(t, err)
		assert.False(t, ok, "stale version must lose")

		rec, err = b.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), rec.Version)
		assert.True(t, rec.Entries[0].Blacklisted)
	})

	t.Run("empty record persists", func(t *testing.T) {
		b := newBackend(t)
		l, err := ledger.New(b)
		require.NoError(t, err)
		require.NoError(t, l.Initialize(context.Background(), "s2"))
		exists, err := l.Exists(context.Background(), "s2")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("concurrent issuance keeps every device", func(t *testing.T) {
		b := newBackend(t)
		l, err := ledger.New(b, ledger.WithMaxRetries(64))
		require.NoError(t, err)

		devices := []string{"d1", "d2", "d3", "d4", "d5", "d6"}
		var wg sync.WaitGroup
		errs := make(chan error, len(devices)*2)
		for _, d := range devices {
			for _, typ := range jwt.TokenTypes {
				wg.Add(1)
				go func(d string, typ jwt.TokenType) {
					defer wg.Done()
					errs <- l.RecordIssuance(context.Background(), "s3", d, typ, 100)
				}(d, typ)
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		rec, err := l.Load(context.Background(), "s3")
		require.NoError(t, err)
		assert.Len(t, rec.Entries, len(devices)*2)
	})

	t.Run("incident time", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, ok, err := b.IncidentTime(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		ts, err := b.InitIncidentTime(ctx, 500)
		require.NoError(t, err)
		assert.Equal(t, int64(500), ts)

		ts, err = b.InitIncidentTime(ctx, 900)
		require.NoError(t, err)
		assert.Equal(t, int64(500), ts, "init must not overwrite")

		require.NoError(t, b.SetIncidentTime(ctx, 900))
		ts, ok, err = b.IncidentTime(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(900), ts)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newBackend(t).Ping(context.Background()))
	})
}
