// Package auth implements pluggable social sign-in.
//
// A Provider wraps one identity service (Google, GitHub, or anything
// registered at runtime). It validates its configuration, builds the
// authorization redirect, exchanges the callback through an OAuthClient and
// reconciles the returned SocialIdentity with a local User via
// FindOrCreateUser. The lookup order is fixed: an existing link by provider id,
// then a user with the same email, then a new account.
//
// Providers are obtained from a Registry, which constructs each provider once
// and caches it until ClearCache or RegisterProvider evicts it:
//
//	reg := auth.NewRegistry(auth.ProviderDeps{
//		Config: cfgSource,
//		OAuth:  oauthClient,
//		Users:  users,
//		Logger: log,
//	})
//	p, err := reg.Make("google")
//
// User records are plain data. Derived state such as IsSocialOnly or
// LinkedProviders lives in package-level functions, and UnlinkSocialProvider
// refuses to remove the last provider of an account without a password.
package auth
