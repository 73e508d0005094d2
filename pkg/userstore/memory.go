package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub/socialauth/pkg/auth"
)

// Memory is an in-process UserDirectory. Records are copied on the way in and
// out, so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*auth.User
	byEmail  map[string]uuid.UUID
	bySocial map[socialKey]uuid.UUID
	now      func() time.Time
}

type socialKey struct {
	provider   string
	externalID string
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uuid.UUID]*auth.User),
		byEmail:  make(map[string]uuid.UUID),
		bySocial: make(map[socialKey]uuid.UUID),
		now:      time.Now,
	}
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) FindByProviderID(_ context.Context, provider, externalID string) (*auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bySocial[socialKey{provider, externalID}]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return m.users[id].Clone(), nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return m.users[id].Clone(), nil
}

func (m *Memory) Create(_ context.Context, u auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := u.Clone()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Email = auth.NormalizeEmail(rec.Email)
	if rec.Role == "" {
		rec.Role = auth.RoleEmployee
	}
	if rec.Status == "" {
		rec.Status = auth.StatusActive
	}
	if _, ok := m.users[rec.ID]; ok {
		return nil, auth.ErrEmailAlreadyExists
	}
	if _, ok := m.byEmail[rec.Email]; ok {
		return nil, auth.ErrEmailAlreadyExists
	}
	for provider, ext := range rec.SocialIDs {
		if _, ok := m.bySocial[socialKey{provider, ext}]; ok {
			return nil, auth.ErrProviderLinked
		}
	}
	now := m.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	m.index(rec)
	return rec.Clone(), nil
}

func (m *Memory) Update(_ context.Context, id uuid.UUID, fields auth.UserFields) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}

	next := cur.Clone()
	fields.Apply(next)
	if err := fields.Guard(cur, next); err != nil {
		return nil, err
	}

	if next.Email != cur.Email {
		if owner, ok := m.byEmail[next.Email]; ok && owner != id {
			return nil, auth.ErrEmailAlreadyExists
		}
	}
	for provider, ext := range next.SocialIDs {
		if owner, ok := m.bySocial[socialKey{provider, ext}]; ok && owner != id {
			return nil, auth.ErrProviderLinked
		}
	}
	if !fields.IsZero() {
		next.UpdatedAt = m.now()
	}

	m.unindex(cur)
	m.index(next)
	return next.Clone(), nil
}

// Len returns the number of stored users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func (m *Memory) index(u *auth.User) {
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	for provider, ext := range u.SocialIDs {
		m.bySocial[socialKey{provider, ext}] = u.ID
	}
}

func (m *Memory) unindex(u *auth.User) {
	delete(m.users, u.ID)
	delete(m.byEmail, u.Email)
	for provider, ext := range u.SocialIDs {
		delete(m.bySocial, socialKey{provider, ext})
	}
}

var _ auth.UserDirectory = (*Memory)(nil)
