package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserDirectory is the user record store. Lookups that match nothing return
// ErrUserNotFound. Emails are compared after NormalizeEmail.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByProviderID(ctx context.Context, provider, externalID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Create stores u, assigning an ID and timestamps when unset.
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, id uuid.UUID, fields UserFields) (*User, error)
}
