package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/bizhub/socialauth/pkg/logger"
)

// SocialAccounts is the default AccountHooks implementation. It stores the
// provider's external id under the provider name in User.SocialIDs.
type SocialAccounts struct {
	provider   string
	users      UserDirectory
	logger     *slog.Logger
	now        func() time.Time
	trustEmail func(SocialIdentity) bool
}

// NewSocialAccounts returns hooks for provider. trustEmail decides whether an
// identity's email may overwrite the stored one on re-login; nil trusts all.
func NewSocialAccounts(provider string, users UserDirectory, log *slog.Logger, now func() time.Time, trustEmail func(SocialIdentity) bool) *SocialAccounts {
	if log == nil {
		log = logger.Discard()
	}
	if now == nil {
		now = time.Now
	}
	if trustEmail == nil {
		trustEmail = func(SocialIdentity) bool { return true }
	}
	return &SocialAccounts{
		provider:   provider,
		users:      users,
		logger:     log,
		now:        now,
		trustEmail: trustEmail,
	}
}

func (a *SocialAccounts) FindUserBySocialID(ctx context.Context, externalID string) (*User, error) {
	return a.users.FindByProviderID(ctx, a.provider, externalID)
}

// UpdateUserFromSocialData refreshes the display name, avatar and email when
// the provider reports new values. Nothing is written when nothing changed.
// An email owned by another user is not taken over; the rest still applies.
func (a *SocialAccounts) UpdateUserFromSocialData(ctx context.Context, u *User, identity SocialIdentity) (*User, error) {
	var (
		fields  UserFields
		changed []string
	)
	if name := identity.DisplayName(); name != "" && name != u.Name {
		fields.Name = &name
		changed = append(changed, "name")
	}
	if identity.AvatarURL != "" && identity.AvatarURL != u.AvatarURL {
		avatar := identity.AvatarURL
		fields.AvatarURL = &avatar
		changed = append(changed, "avatar_url")
	}
	if email := NormalizeEmail(identity.Email); email != "" && email != u.Email && a.trustEmail(identity) {
		owner, err := a.users.FindByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != u.ID:
			a.skipEmail(ctx, u)
		case err == nil, errors.Is(err, ErrUserNotFound):
			fields.Email = &email
			changed = append(changed, "email")
		default:
			return nil, err
		}
	}
	if len(changed) == 0 {
		return u, nil
	}

	updated, err := a.users.Update(ctx, u.ID, fields)
	if errors.Is(err, ErrEmailAlreadyExists) && fields.Email != nil {
		// taken between the lookup and the write
		a.skipEmail(ctx, u)
		fields.Email = nil
		changed = slices.DeleteFunc(changed, func(f string) bool { return f == "email" })
		if len(changed) == 0 {
			return u, nil
		}
		updated, err = a.users.Update(ctx, u.ID, fields)
	}
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "updated user data",
		logger.UserID(u.ID),
		slog.Any("fields", changed),
	)
	return updated, nil
}

func (a *SocialAccounts) skipEmail(ctx context.Context, u *User) {
	a.logger.WarnContext(ctx, "provider email belongs to another user, keeping the stored one",
		logger.UserID(u.ID),
		logger.Field("email"),
	)
}

// LinkSocialAccount attaches the provider id and avatar to an existing user
// found by email.
func (a *SocialAccounts) LinkSocialAccount(ctx context.Context, u *User, identity SocialIdentity) (*User, error) {
	fields := UserFields{LinkProviders: map[string]string{a.provider: identity.ExternalID}}
	if identity.AvatarURL != "" {
		avatar := identity.AvatarURL
		fields.AvatarURL = &avatar
	}
	linked, err := a.users.Update(ctx, u.ID, fields)
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "linked social account to existing user", logger.UserID(u.ID))
	return linked, nil
}

// CreateUserFromSocialData creates a verified, active, social-only employee.
func (a *SocialAccounts) CreateUserFromSocialData(ctx context.Context, identity SocialIdentity) (*User, error) {
	if identity.Email == "" {
		return nil, &MissingIdentityEmailError{Name: a.provider}
	}
	now := a.now()
	created, err := a.users.Create(ctx, User{
		Email:           NormalizeEmail(identity.Email),
		Name:            identity.DisplayName(),
		SocialIDs:       map[string]string{a.provider: identity.ExternalID},
		AvatarURL:       identity.AvatarURL,
		IsVerified:      true,
		EmailVerifiedAt: &now,
		Role:            RoleEmployee,
		Status:          StatusActive,
	})
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "created user from social data", logger.UserID(created.ID))
	return created, nil
}
