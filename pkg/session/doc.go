// Package session manages server-side sessions for the social login flow.
//
// A Manager sits on a Store (memory or Redis) and an EpochStore. Middleware
// loads the session named by the signed cookie or starts an anonymous one.
// After a successful login the flow calls Authenticate and RegenerateSession,
// then Commit to send the new token. ForceLogoutAllSessions bumps the user's
// epoch so every session authenticated before the bump fails Check, even on
// nodes that still hold the record.
//
// LogSessionActivity writes structured records and swallows every failure so
// that logging can never break a login or logout.
package session
