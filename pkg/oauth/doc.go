// Package oauth is the OAuth collaborator used by auth providers.
//
// Client builds authorization URLs and exchanges callback codes with
// golang.org/x/oauth2, protecting every round trip with a one-time state and a
// PKCE verifier kept in a StateStore. Profiles are read by per-provider
// resolvers: Google ID tokens are verified with go-oidc, GitHub profiles come
// from the REST API.
package oauth
