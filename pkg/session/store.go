package session

import (
	"context"

	"github.com/google/uuid"
)

// Store persists sessions by token. Get returns ErrSessionNotFound for
// unknown tokens and ErrSessionExpired for records past their expiry.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, token string) error
	// DeleteByUserID removes every session bound to userID and reports how many.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

// EpochStore keeps a per-user counter. Sessions stamped with an older epoch
// than the current one are revoked.
type EpochStore interface {
	Current(ctx context.Context, userID uuid.UUID) (int64, error)
	Bump(ctx context.Context, userID uuid.UUID) (int64, error)
}
