package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goGuard/internal/envconfig"
	"github.com/MrEthical07/goGuard/internal/logging"
	"github.com/MrEthical07/goGuard/ledger"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{envconfig.BackendMemory, envconfig.BackendMiniredis, envconfig.BackendSQLite} {
		t.Run(name, func(t *testing.T) {
			s := envconfig.NewSettings()
			s.Backend = name
			s.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")

			o, err := Open(ctx, s, logging.Discard())
			require.NoError(t, err)
			defer func() { assert.NoError(t, o.Close()) }()

			ts, err := o.InitIncidentTime(ctx, 100)
			require.NoError(t, err)
			assert.EqualValues(t, 100, ts)

			l, err := ledger.New(o)
			require.NoError(t, err)
			rec, err := l.Load(ctx, "42")
			require.NoError(t, err)
			assert.Empty(t, rec.Entries)
		})
	}
}

func TestOpenUnknown(t *testing.T) {
	s := envconfig.NewSettings()
	s.Backend = "etcd"
	_, err := Open(context.Background(), s, logging.Discard())
	assert.ErrorContains(t, err, "etcd")
}
