// Package social wires the provider registry, the user directory and the
// session manager into the social login flow.
//
// Flow.Callback runs the steps in a fixed order: resolve the provider, check
// it is enabled, handle the OAuth callback, reject identities without an
// email, find or create the user, record the last login, authenticate and
// regenerate the session, issue the remember token and log the activity. If
// anything fails once the user is resolved, the session is invalidated.
//
// Handler exposes the flow under /auth with chi; UserMessage turns errors into
// the text shown on the login page.
package social
