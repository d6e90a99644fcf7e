package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chama-ledger/ledger/internal/domain/ratelimit"
)

// hitScript runs one fixed-window step atomically.
// KEYS[1] record key; ARGV: now ms, window ms, capacity, now+window ms.
// Returns {allowed, count, start ms, expiry ms}.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[3])
local vals = redis.call('HMGET', KEYS[1], 'count', 'start', 'expiry')
local count = tonumber(vals[1])
local start = tonumber(vals[2])
local expiry = tonumber(vals[3])
if count == nil or expiry == nil or now >= expiry then
	redis.call('HSET', KEYS[1], 'count', '1', 'start', ARGV[1], 'expiry', ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return {1, 1, now, tonumber(ARGV[4])}
end
start = start or now
if count >= capacity then
	return {0, count, start, expiry}
end
count = redis.call('HINCRBY', KEYS[1], 'count', '1')
return {1, count, start, expiry}
`)

// sweepScript deletes the given keys whose window ended at or before ARGV[1] (ms).
var sweepScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local removed = 0
for _, key in ipairs(KEYS) do
	local expiry = tonumber(redis.call('HGET', key, 'expiry'))
	if expiry ~= nil and expiry <= now then
		redis.call('DEL', key)
		removed = removed + 1
	end
end
return removed
`)

const sweepBatch = 100

// RateLimitStore is the shared ratelimit.Store backed by Redis hashes.
type RateLimitStore struct {
	client redis.UniversalClient
}

// NewRateLimitStore wraps a configured client.
func NewRateLimitStore(client redis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

func (s *RateLimitStore) Hit(ctx context.Context, key string, capacity int, window time.Duration, now time.Time) (ratelimit.Hit, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()
	vals, err := hitScript.Run(ctx, s.client, []string{key},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(windowMs, 10),
		strconv.Itoa(capacity),
		strconv.FormatInt(nowMs+windowMs, 10),
	).Int64Slice()
	if err != nil {
		return ratelimit.Hit{}, fmt.Errorf("%w: hit %s: %v", ratelimit.ErrStoreUnavailable, key, err)
	}
	if len(vals) != 4 {
		return ratelimit.Hit{}, fmt.Errorf("%w: hit %s: unexpected reply length %d", ratelimit.ErrStoreUnavailable, key, len(vals))
	}
	return ratelimit.Hit{
		Allowed:      vals[0] == 1,
		Count:        int(vals[1]),
		WindowStart:  time.UnixMilli(vals[2]),
		WindowExpiry: time.UnixMilli(vals[3]),
	}, nil
}

func (s *RateLimitStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: reset %s: %v", ratelimit.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *RateLimitStore) Sweep(ctx context.Context, prefix string, now time.Time) (int, error) {
	nowArg := strconv.FormatInt(now.UnixMilli(), 10)
	removed := 0
	batch := make([]string, 0, sweepBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := sweepScript.Run(ctx, s.client, batch, nowArg).Int()
		batch = batch[:0]
		if err != nil {
			return err
		}
		removed += n
		return nil
	}

	iter := s.client.Scan(ctx, 0, prefix+":*", sweepBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == sweepBatch {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("%w: sweep %s: %v", ratelimit.ErrStoreUnavailable, prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: scan %s: %v", ratelimit.ErrStoreUnavailable, prefix, err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("%w: sweep %s: %v", ratelimit.ErrStoreUnavailable, prefix, err)
	}
	return removed, nil
}
