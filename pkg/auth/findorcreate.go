package auth

import (
	"context"
	"errors"
)

// AccountHooks are the provider-specific steps of FindOrCreateUser.
type AccountHooks interface {
	FindUserBySocialID(ctx context.Context, externalID string) (*User, error)
	LinkSocialAccount(ctx context.Context, u *User, identity SocialIdentity) (*User, error)
	CreateUserFromSocialData(ctx context.Context, identity SocialIdentity) (*User, error)
	UpdateUserFromSocialData(ctx context.Context, u *User, identity SocialIdentity) (*User, error)
}

// FindOrCreateUser resolves identity to a local user:
//
//  1. a user already linked to this provider's external id is refreshed and returned;
//  2. otherwise a user with the same email gets the provider linked;
//  3. otherwise a new user is created.
//
// The provider id match always wins over an email match.
func FindOrCreateUser(ctx context.Context, hooks AccountHooks, users UserDirectory, identity SocialIdentity) (*User, error) {
	if identity.ExternalID == "" {
		return nil, ErrMissingExternalID
	}

	u, err := hooks.FindUserBySocialID(ctx, identity.ExternalID)
	if err == nil {
		return hooks.UpdateUserFromSocialData(ctx, u, identity)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if identity.Email != "" {
		u, err = users.FindByEmail(ctx, NormalizeEmail(identity.Email))
		if err == nil {
			return hooks.LinkSocialAccount(ctx, u, identity)
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	return hooks.CreateUserFromSocialData(ctx, identity)
}
