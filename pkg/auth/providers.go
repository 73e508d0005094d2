package auth

import "github.com/bizhub/socialauth/pkg/logger"

// Names of the built-in providers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// GoogleProvider signs users in with a Google account. Google needs an explicit
// redirect URI registered with the client, so redirect is required.
type GoogleProvider struct {
	*BaseProvider
}

// NewGoogleProvider is the ProviderFactory for "google".
func NewGoogleProvider(deps ProviderDeps) Provider {
	deps = deps.withDefaults()
	spec := ProviderSpec{
		Name:         ProviderGoogle,
		DisplayName:  "Google",
		RequiredKeys: []string{KeyClientID, KeyClientSecret, KeyRedirect},
	}
	log := deps.Logger.With(logger.Component("auth"), logger.Provider(ProviderGoogle))
	// Google reports whether the address is verified; only verified
	// addresses replace the stored one.
	hooks := NewSocialAccounts(ProviderGoogle, deps.Users, log, deps.Now, func(id SocialIdentity) bool {
		return id.EmailVerified
	})
	return &GoogleProvider{BaseProvider: NewBaseProvider(spec, deps, hooks)}
}

// GitHubProvider signs users in with a GitHub account. The OAuth client only
// returns verified GitHub addresses, so every reported email is trusted.
type GitHubProvider struct {
	*BaseProvider
}

// NewGitHubProvider is the ProviderFactory for "github".
func NewGitHubProvider(deps ProviderDeps) Provider {
	spec := ProviderSpec{
		Name:        ProviderGitHub,
		DisplayName: "GitHub",
	}
	return &GitHubProvider{BaseProvider: NewBaseProvider(spec, deps, nil)}
}

var (
	_ Provider = (*GoogleProvider)(nil)
	_ Provider = (*GitHubProvider)(nil)
)
