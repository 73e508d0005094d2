package auth

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role of a user inside the business application.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Status of a user account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// User is the account record owned by the UserDirectory.
type User struct {
	ID              uuid.UUID
	Email           string
	Name            string
	SocialIDs       map[string]string // provider name -> external id
	AvatarURL       string
	PasswordHash    string // empty for social-only accounts
	IsVerified      bool
	EmailVerifiedAt *time.Time
	Role            Role
	Status          Status
	LastLoginAt     *time.Time
	LastLoginIP     string
	RememberToken   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.SocialIDs = maps.Clone(u.SocialIDs)
	if u.EmailVerifiedAt != nil {
		t := *u.EmailVerifiedAt
		c.EmailVerifiedAt = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// IsSocialOnly reports whether u can sign in only through linked providers.
func IsSocialOnly(u *User) bool {
	return u.PasswordHash == ""
}

// LinkedProviders returns the sorted names of providers linked to u.
func LinkedProviders(u *User) []string {
	names := make([]string, 0, len(u.SocialIDs))
	for name, id := range u.SocialIDs {
		if id != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// HasProvider reports whether provider is linked to u.
func HasProvider(u *User, provider string) bool {
	return u.SocialIDs[provider] != ""
}

// NormalizeEmail lowercases and trims an address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFields is a partial update. Nil pointers leave the field untouched.
// A pointer to "" clears string fields such as RememberToken or PasswordHash.
type UserFields struct {
	Email           *string
	Name            *string
	AvatarURL       *string
	PasswordHash    *string
	IsVerified      *bool
	EmailVerifiedAt *time.Time
	Role            *Role
	Status          *Status
	LastLoginAt     *time.Time
	LastLoginIP     *string
	RememberToken   *string

	LinkProviders   map[string]string
	UnlinkProviders []string

	// KeepSignInMethod makes the directory reject the update, under the same
	// lock or transaction that writes it, when an unlinked provider is not
	// linked or the result is a social-only user with no provider left.
	KeepSignInMethod bool
}

// IsZero reports whether f changes nothing.
func (f UserFields) IsZero() bool {
	return f.Email == nil && f.Name == nil && f.AvatarURL == nil && f.PasswordHash == nil &&
		f.IsVerified == nil && f.EmailVerifiedAt == nil && f.Role == nil && f.Status == nil &&
		f.LastLoginAt == nil && f.LastLoginIP == nil && f.RememberToken == nil &&
		len(f.LinkProviders) == 0 && len(f.UnlinkProviders) == 0
}

// Apply writes f onto u. Unlinks are applied after links.
func (f UserFields) Apply(u *User) {
	if f.Email != nil {
		u.Email = NormalizeEmail(*f.Email)
	}
	setString(&u.Name, f.Name)
	setString(&u.AvatarURL, f.AvatarURL)
	setString(&u.PasswordHash, f.PasswordHash)
	setString(&u.LastLoginIP, f.LastLoginIP)
	setString(&u.RememberToken, f.RememberToken)
	if f.IsVerified != nil {
		u.IsVerified = *f.IsVerified
	}
	if f.EmailVerifiedAt != nil {
		t := *f.EmailVerifiedAt
		u.EmailVerifiedAt = &t
	}
	if f.LastLoginAt != nil {
		t := *f.LastLoginAt
		u.LastLoginAt = &t
	}
	if f.Role != nil {
		u.Role = *f.Role
	}
	if f.Status != nil {
		u.Status = *f.Status
	}
	if len(f.LinkProviders) > 0 && u.SocialIDs == nil {
		u.SocialIDs = make(map[string]string, len(f.LinkProviders))
	}
	for name, id := range f.LinkProviders {
		u.SocialIDs[name] = id
	}
	for _, name := range f.UnlinkProviders {
		delete(u.SocialIDs, name)
	}
}

// Guard checks the invariants requested by f between the stored record cur and
// the record next that applying f produced. Directories call it before writing.
func (f UserFields) Guard(cur, next *User) error {
	if !f.KeepSignInMethod {
		return nil
	}
	for _, name := range f.UnlinkProviders {
		if !HasProvider(cur, name) {
			return ErrProviderNotLinked
		}
	}
	if IsSocialOnly(next) && len(LinkedProviders(next)) == 0 {
		return ErrLastProvider
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
