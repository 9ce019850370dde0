// Package redis stores challenges in Redis. It only implements
// store.Challenges; users and login history stay in the SQL store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "gatekeep:challenge"

	// DefaultRetention keeps a challenge past its expiry so that a late
	// Consume reports ErrExpired rather than ErrNotFound.
	DefaultRetention = time.Hour
)

// consumeLua checks and marks a challenge in one step.
// KEYS[1] = challenge hash
// ARGV[1] = now in unix milliseconds
//
// Returns the hash as a flat field/value list, or an error string:
// "not_found", "already_consumed", "expired".
var consumeLua = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'expires_at', 'consumed_at')
if not state[1] then
  return {err='not_found'}
end
if state[2] then
  return {err='already_consumed'}
end
local now = tonumber(ARGV[1])
if now >= tonumber(state[1]) then
  return {err='expired'}
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

// Challenges implements store.Challenges on a Redis hash per key.
type Challenges struct {
	rdb       redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewChallenges returns a Redis backed challenge store. Empty or zero
// arguments fall back to the defaults.
func NewChallenges(rdb redis.UniversalClient, prefix string, retention time.Duration) *Challenges {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Challenges{rdb: rdb, prefix: prefix, retention: retention}
}

var _ store.Challenges = (*Challenges)(nil)

// Ping checks the Redis connection for readiness probes.
func (s *Challenges) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Challenges) key(k domain.ChallengeKey) string {
	return strings.Join([]string{s.prefix, string(k.Purpose), k.UserID, string(k.Factor)}, ":")
}

func (s *Challenges) Put(ctx context.Context, c domain.Challenge) error {
	key := s.key(c.Key)
	fields := map[string]any{
		"id":         c.ID,
		"secret":     c.Secret,
		"created_at": c.CreatedAt.UnixMilli(),
		"expires_at": c.ExpiresAt.UnixMilli(),
	}
	if c.ConsumedAt != nil {
		fields["consumed_at"] = c.ConsumedAt.UnixMilli()
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.PExpireAt(ctx, key, c.ExpiresAt.Add(s.retention))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put challenge: %w", err)
	}
	return nil
}

func (s *Challenges) Get(ctx context.Context, k domain.ChallengeKey) (domain.Challenge, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(k)).Result()
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("failed to get challenge: %w", err)
	}
	if len(fields) == 0 {
		return domain.Challenge{}, store.ErrNotFound
	}
	return decodeChallenge(k, fields)
}

func (s *Challenges) Consume(ctx context.Context, k domain.ChallengeKey, now time.Time) (domain.Challenge, error) {
	res, err := consumeLua.Run(ctx, s.rdb, []string{s.key(k)}, now.UnixMilli()).StringSlice()
	if err != nil {
		switch {
		case isScriptErr(err, "not_found"):
			return domain.Challenge{}, store.ErrNotFound
		case isScriptErr(err, "already_consumed"):
			return domain.Challenge{}, store.ErrAlreadyConsumed
		case isScriptErr(err, "expired"):
			return domain.Challenge{}, store.ErrExpired
		}
		return domain.Challenge{}, fmt.Errorf("failed to consume challenge: %w", err)
	}

	fields := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	return decodeChallenge(k, fields)
}

// DeleteExpired is a no-op: every key carries a TTL of its expiry plus the
// retention window, so Redis evicts them itself.
func (s *Challenges) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// isScriptErr matches an error reply raised by consumeLua. Some server
// versions prefix script errors, so only the suffix is compared.
func isScriptErr(err error, code string) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}
	return strings.HasSuffix(rerr.Error(), code)
}

func decodeChallenge(k domain.ChallengeKey, fields map[string]string) (domain.Challenge, error) {
	created, err := parseMillis(fields["created_at"])
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("challenge created_at: %w", err)
	}
	expires, err := parseMillis(fields["expires_at"])
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("challenge expires_at: %w", err)
	}

	c := domain.Challenge{
		ID:        fields["id"],
		Key:       k,
		Secret:    fields["secret"],
		CreatedAt: created,
		ExpiresAt: expires,
	}
	if raw, ok := fields["consumed_at"]; ok {
		consumed, err := parseMillis(raw)
		if err != nil {
			return domain.Challenge{}, fmt.Errorf("challenge consumed_at: %w", err)
		}
		c.ConsumedAt = &consumed
	}
	return c, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
