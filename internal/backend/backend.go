// Package backend opens the ledger backend named by envconfig settings.
package backend

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goGuard/incident"
	"github.com/MrEthical07/goGuard/internal/envconfig"
	"github.com/MrEthical07/goGuard/ledger"
	"github.com/MrEthical07/goGuard/ledger/dynamo"
	"github.com/MrEthical07/goGuard/ledger/postgres"
	"github.com/MrEthical07/goGuard/ledger/sqlite"
)

// Opened is a backend plus the function releasing its connections.
type Opened struct {
	ledger.Backend
	Name  string
	close []func() error
}

// Close releases resources in reverse order of acquisition.
func (o *Opened) Close() error {
	var first error
	for i := len(o.close) - 1; i >= 0; i-- {
		if err := o.close[i](); err != nil && first == nil {
			first = err
		}
	}
	o.close = nil
	return first
}

// Open connects to s.Backend and pings it.
func Open(ctx context.Context, s *envconfig.Settings, log logrus.FieldLogger) (*Opened, error) {
	o := &Opened{Name: s.Backend}

	switch s.Backend {
	case envconfig.BackendMemory:
		o.Backend = ledger.NewMemoryStore()

	case envconfig.BackendMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		o.close = append(o.close, func() error { mr.Close(); return nil })
		o.Backend = o.redis(mr.Addr())

	case envconfig.BackendRedis:
		o.Backend = o.redis(s.RedisAddr)

	case envconfig.BackendPostgres:
		pool, err := postgres.ConnectAndMigrate(ctx, s.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		o.close = append(o.close, func() error { pool.Close(); return nil })
		o.Backend = postgres.NewStore(pool)

	case envconfig.BackendSQLite:
		store, err := sqlite.Open(s.SQLitePath)
		if err != nil {
			return nil, err
		}
		o.close = append(o.close, store.Close)
		o.Backend = store

	case envconfig.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, s.AWSRegion, s.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		o.Backend = dynamo.NewStore(client, s.DynamoTable)

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", s.Backend)
	}

	if err := o.Ping(ctx); err != nil {
		_ = o.Close()
		return nil, fmt.Errorf("ping %s: %w", s.Backend, err)
	}
	log.WithField("backend", s.Backend).Debug("ledger backend ready")
	return o, nil
}

func (o *Opened) redis(addr string) ledger.Backend {
	client := redis.NewClient(&redis.Options{Addr: addr})
	o.close = append(o.close, client.Close)
	return ledger.NewRedisStore(client, ledger.DefaultKeyPrefix, incident.Key)
}
