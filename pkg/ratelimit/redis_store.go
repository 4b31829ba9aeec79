package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// recordScript trims expired attempts, checks the limit, and records
// the new attempt in one atomic round trip. KEYS[1] is the window key;
// ARGV: now (unix micros), window (micros), limit, member.
const recordScript = `
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', tonumber(ARGV[1]) - tonumber(ARGV[2]))
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[3]) then
	return {0, count}
end
redis.call('ZADD', KEYS[1], tonumber(ARGV[1]), ARGV[4])
redis.call('PEXPIRE', KEYS[1], math.ceil(tonumber(ARGV[2]) / 1000))
return {1, count + 1}
`

// RedisStore shares attempt state across instances using a sorted set
// per key, scored by attempt time.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if client == nil {
		panic("ratelimit: redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{
		client: client,
		script: redis.NewScript(recordScript),
		prefix: prefix,
	}
}

// RecordIfAllowed implements Store.
func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	nowMicro := now.UnixMicro()
	// The member must be unique per attempt; identical timestamps from
	// concurrent logins would otherwise collapse into one set entry.
	member := fmt.Sprintf("%d:%s", nowMicro, uuid.NewString())

	raw, err := s.script.Run(ctx, s.client,
		[]string{s.key(key)}, nowMicro, window.Microseconds(), limit, member).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: record attempt: %w", err)
	}

	reply, ok := raw.([]any)
	if !ok || len(reply) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected script reply %T", raw)
	}
	allowed, _ := reply[0].(int64)
	count, _ := reply[1].(int64)
	return allowed == 1, count, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset key: %w", err)
	}
	return nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}
