package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGuard/incident"
)

// DefaultKeyPrefix namespaces ledger keys as "<prefix>.<subject>".
const DefaultKeyPrefix = "jwt"

const (
	fieldVersion = "v"
	fieldEntries = "entries"
)

const casScript = `
local cur = redis.call("HGET", KEYS[1], "v")
local expected = tonumber(ARGV[1])
if cur then
  if tonumber(cur) ~= expected then
    return 0
  end
elseif expected ~= 0 then
  return 0
end
redis.call("HSET", KEYS[1], "v", expected + 1, "entries", ARGV[2])
return 1
`

var casLua = redis.NewScript(casScript)

// RedisStore keeps each record as a hash with a version and the encoded entries.
type RedisStore struct {
	redis       redis.UniversalClient
	prefix      string
	incidentKey string
}

// NewRedisStore creates a RedisStore. Empty prefix and incidentKey fall back to
// DefaultKeyPrefix and incident.Key.
func NewRedisStore(client redis.UniversalClient, prefix, incidentKey string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if incidentKey == "" {
		incidentKey = incident.Key
	}
	return &RedisStore{redis: client, prefix: prefix, incidentKey: incidentKey}
}

func (s *RedisStore) key(subject string) string {
	return s.prefix + "." + subject
}

// Load reads the record with a single HMGET.
func (s *RedisStore) Load(ctx context.Context, subject string) (Record, error) {
	vals, err := s.redis.HMGet(ctx, s.key(subject), fieldVersion, fieldEntries).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec := Record{Subject: subject}
	if len(vals) != 2 || vals[0] == nil {
		return rec, nil
	}

	rawVersion, ok := vals[0].(string)
	if !ok {
		return Record{}, fmt.Errorf("%w: unexpected version type %T", ErrCorruptRecord, vals[0])
	}
	if rec.Version, err = strconv.ParseUint(rawVersion, 10, 64); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if raw, ok := vals[1].(string); ok {
		if rec.Entries, err = DecodeEntries([]byte(raw)); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

// CompareAndSwap runs the versioned write as one Lua script.
func (s *RedisStore) CompareAndSwap(ctx context.Context, rec Record) (bool, error) {
	data, err := EncodeEntries(rec.Entries)
	if err != nil {
		return false, err
	}
	res, err := casLua.Run(ctx, s.redis, []string{s.key(rec.Subject)}, rec.Version, string(data)).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) IncidentTime(ctx context.Context) (int64, bool, error) {
	ts, err := s.redis.Get(ctx, s.incidentKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ts, true, nil
}

// InitIncidentTime uses SETNX so racing processes agree on the first value.
func (s *RedisStore) InitIncidentTime(ctx context.Context, ts int64) (int64, error) {
	if err := s.redis.SetNX(ctx, s.incidentKey, ts, 0).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
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

func (s *RedisStore) SetIncidentTime(ctx context.Context, ts int64) error {
	if err := s.redis.Set(ctx, s.incidentKey, ts, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
