package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingAuth is what is remembered between the redirect and the callback.
type PendingAuth struct {
	Provider string `json:"provider"`
	Verifier string `json:"verifier"` // PKCE code verifier
}

// StateStore keeps pending authorizations keyed by the OAuth state parameter.
// Consume must be atomic: a state can be redeemed at most once.
type StateStore interface {
	Save(ctx context.Context, state string, pending PendingAuth, ttl time.Duration) error
	Consume(ctx context.Context, state string) (PendingAuth, error)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryStateStore keeps states in process memory. Suitable for a single
// replica and for tests.
type MemoryStateStore struct {
	mu      sync.Mutex
	pending map[string]memoryState
	now     func() time.Time
}

type memoryState struct {
	PendingAuth
	expiresAt time.Time
}

// NewMemoryStateStore returns an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{pending: map[string]memoryState{}, now: time.Now}
}

func (s *MemoryStateStore) Save(_ context.Context, state string, pending PendingAuth, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.pending {
		if !now.Before(v.expiresAt) {
			delete(s.pending, k)
		}
	}
	s.pending[state] = memoryState{PendingAuth: pending, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (PendingAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.pending[state]
	if !ok {
		return PendingAuth{}, ErrStateNotFound
	}
	delete(s.pending, state)
	if !s.now().Before(v.expiresAt) {
		return PendingAuth{}, ErrStateNotFound
	}
	return v.PendingAuth, nil
}

// RedisStateStore shares pending states between replicas. States are written
// with SET NX and redeemed with GETDEL.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore stores states under prefix + "oauth_state:".
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix + "oauth_state:"}
}

func (s *RedisStateStore) Save(ctx context.Context, state string, pending PendingAuth, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode oauth state: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.prefix+state, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	if !ok {
		return errors.New("oauth state collision")
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (PendingAuth, error) {
	data, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingAuth{}, ErrStateNotFound
	}
	if err != nil {
		return PendingAuth{}, fmt.Errorf("consume oauth state: %w", err)
	}
	var pending PendingAuth
	if err := json.Unmarshal(data, &pending); err != nil {
		return PendingAuth{}, fmt.Errorf("decode oauth state: %w", err)
	}
	return pending, nil
}

var (
	_ StateStore = (*MemoryStateStore)(nil)
	_ StateStore = (*RedisStateStore)(nil)
)
