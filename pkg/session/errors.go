package session

import "errors"

var (
	ErrSessionNotFound  = errors.New("session.not_found")
	ErrSessionExpired   = errors.New("session.expired")
	ErrSessionRevoked   = errors.New("session.revoked")
	ErrInvalidSession   = errors.New("session.invalid")
	ErrNotAuthenticated = errors.New("session.not_authenticated")
	ErrTokenGeneration  = errors.New("session.token_generation_failed")
	ErrNoTransport      = errors.New("session.no_transport")
)
