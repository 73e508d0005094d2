package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as JSON under <prefix>session:<token> with a
// TTL matching its expiry, plus a per-user index set used by DeleteByUserID.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisStore) key(token string) string { return r.prefix + "session:" + token }

func (r *RedisStore) userKey(id uuid.UUID) string { return r.prefix + "session:user:" + id.String() }

func (r *RedisStore) ttl(s *Session) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(r.now())
}

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	return r.write(ctx, s, false)
}

func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	return r.write(ctx, s, true)
}

func (r *RedisStore) write(ctx context.Context, s *Session, mustExist bool) error {
	if s == nil || s.Token == "" {
		return ErrInvalidSession
	}
	ttl := r.ttl(s)
	if ttl < 0 {
		return ErrSessionExpired
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if mustExist {
		ok, err := r.client.SetArgs(ctx, r.key(s.Token), payload, redis.SetArgs{Mode: "XX", TTL: ttl}).Result()
		if errors.Is(err, redis.Nil) || (err == nil && ok != "OK") {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
	} else if err := r.client.Set(ctx, r.key(s.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if s.UserID != nil {
		err := indexScript.Run(ctx, r.client, []string{r.userKey(*s.UserID)}, s.Token, ttl.Milliseconds()).Err()
		if err != nil {
			return fmt.Errorf("index session: %w", err)
		}
	}
	return nil
}

// indexScript adds a token to a user index and keeps the index alive at least
// as long as the token's session. A zero TTL makes the index persistent.
var indexScript = redis.NewScript(`
local current = redis.call('PTTL', KEYS[1])
local ttl = tonumber(ARGV[2])
redis.call('SADD', KEYS[1], ARGV[1])
if ttl <= 0 then
	redis.call('PERSIST', KEYS[1])
elseif current == -2 or (current >= 0 and current < ttl) then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if s.IsExpired(r.now()) {
		return nil, ErrSessionExpired
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	s, err := r.Get(ctx, token)
	if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(token))
	if s != nil && s.UserID != nil {
		pipe.SRem(ctx, r.userKey(*s.UserID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	tokens, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, r.key(t))
	}
	keys = append(keys, r.userKey(userID))
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	// the index key itself is counted by DEL when present
	if len(tokens) > 0 {
		n--
	}
	return int(n), nil
}

// RedisEpochStore keeps epochs under <prefix>session:epoch:<user id>.
type RedisEpochStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisEpochStore(client redis.UniversalClient, prefix string) *RedisEpochStore {
	return &RedisEpochStore{client: client, prefix: prefix}
}

func (r *RedisEpochStore) key(id uuid.UUID) string { return r.prefix + "session:epoch:" + id.String() }

func (r *RedisEpochStore) Current(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := r.client.Get(ctx, r.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get session epoch: %w", err)
	}
	return n, nil
}

func (r *RedisEpochStore) Bump(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := r.client.Incr(ctx, r.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("bump session epoch: %w", err)
	}
	return n, nil
}
