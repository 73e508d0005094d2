package oauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/bizhub/socialauth/pkg/auth"
)

const (
	googleIssuer      = "https://accounts.google.com"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleResolver verifies Google's ID token and reads the identity from its
// claims. When no ID token is returned it falls back to the userinfo endpoint.
type GoogleResolver struct {
	endpoint    oauth2.Endpoint
	issuer      string
	keySet      oidc.KeySet
	userInfoURL string
	httpClient  *http.Client
}

// GoogleOption configures a GoogleResolver.
type GoogleOption func(*GoogleResolver)

// WithGoogleEndpoint overrides the OAuth endpoints.
func WithGoogleEndpoint(e oauth2.Endpoint) GoogleOption {
	return func(r *GoogleResolver) { r.endpoint = e }
}

// WithGoogleKeySet replaces the remote JWKS used to verify ID tokens.
func WithGoogleKeySet(ks oidc.KeySet) GoogleOption {
	return func(r *GoogleResolver) { r.keySet = ks }
}

// WithGoogleIssuer overrides the expected ID token issuer.
func WithGoogleIssuer(issuer string) GoogleOption {
	return func(r *GoogleResolver) { r.issuer = issuer }
}

// WithGoogleUserInfoURL overrides the userinfo endpoint.
func WithGoogleUserInfoURL(u string) GoogleOption {
	return func(r *GoogleResolver) { r.userInfoURL = u }
}

// WithGoogleHTTPClient sets the client used to fetch signing keys.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(r *GoogleResolver) { r.httpClient = hc }
}

// NewGoogleResolver builds a resolver for Google. Signing keys are fetched
// lazily on the first verification, so construction does no network I/O.
func NewGoogleResolver(opts ...GoogleOption) *GoogleResolver {
	r := &GoogleResolver{
		endpoint:    google.Endpoint,
		issuer:      googleIssuer,
		userInfoURL: googleUserInfoURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.keySet == nil {
		r.keySet = oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), r.httpClient), googleJWKSURL)
	}
	return r
}

func (r *GoogleResolver) Endpoint() oauth2.Endpoint { return r.endpoint }

func (r *GoogleResolver) DefaultScopes() []string {
	return []string{oidc.ScopeOpenID, "email", "profile"}
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

func (r *GoogleResolver) Resolve(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (auth.SocialIdentity, error) {
	var claims googleClaims

	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		verifier := oidc.NewVerifier(r.issuer, r.keySet, &oidc.Config{ClientID: conf.ClientID})
		idToken, err := verifier.Verify(ctx, raw)
		if err != nil {
			return auth.SocialIdentity{}, fmt.Errorf("%w: verify google id token: %w", ErrProfileFailed, err)
		}
		if err := idToken.Claims(&claims); err != nil {
			return auth.SocialIdentity{}, fmt.Errorf("%w: decode google claims: %w", ErrProfileFailed, err)
		}
	} else {
		err := getJSON(ctx, conf.Client(ctx, tok), r.userInfoURL, nil, &claims)
		if err != nil {
			return auth.SocialIdentity{}, fmt.Errorf("%w: google userinfo: %w", ErrProfileFailed, err)
		}
	}

	if claims.Subject == "" {
		return auth.SocialIdentity{}, fmt.Errorf("%w: google profile without subject", ErrProfileFailed)
	}
	return auth.SocialIdentity{
		ExternalID:    claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Nickname:      claims.GivenName,
		AvatarURL:     claims.Picture,
	}, nil
}

var _ ProfileResolver = (*GoogleResolver)(nil)
