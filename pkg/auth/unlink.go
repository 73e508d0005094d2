package auth

import "context"

// UnlinkSocialProvider removes provider from u. It refuses, leaving u untouched,
// when u is social-only and provider is its last linked provider. The check is
// repeated by the directory against the stored record, so concurrent unlinks
// cannot strip the last provider.
func UnlinkSocialProvider(ctx context.Context, users UserDirectory, u *User, provider string) (*User, error) {
	if !HasProvider(u, provider) {
		return nil, ErrProviderNotLinked
	}
	if IsSocialOnly(u) && len(LinkedProviders(u)) <= 1 {
		return nil, ErrLastProvider
	}
	return users.Update(ctx, u.ID, UserFields{
		UnlinkProviders:  []string{provider},
		KeepSignInMethod: true,
	})
}
