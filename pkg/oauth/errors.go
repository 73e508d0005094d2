package oauth

import (
	"errors"

	"github.com/bizhub/socialauth/pkg/auth"
)

var (
	// ErrStateMismatch is auth.ErrStateMismatch; callers may test either.
	ErrStateMismatch = auth.ErrStateMismatch

	ErrStateNotFound       = errors.New("oauth state not found or expired")
	ErrExchangeFailed      = errors.New("oauth code exchange failed")
	ErrProfileFailed       = errors.New("failed to fetch provider profile")
	ErrUnsupportedProvider = errors.New("no profile resolver for provider")
)
