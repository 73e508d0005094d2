package auth

import "context"

// CallbackParams are the query parameters the identity provider sends back to
// the callback URL.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// OAuthClient performs the OAuth handshake for a provider. Implementations
// return an error wrapping ErrStateMismatch when the callback state is unknown
// or was already used.
type OAuthClient interface {
	AuthorizationURL(ctx context.Context, provider string, cfg ProviderConfig) (string, error)
	ExchangeCallback(ctx context.Context, provider string, cfg ProviderConfig, params CallbackParams) (SocialIdentity, error)
}
