package social

import (
	"errors"
	"fmt"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/session"
)

const (
	MsgInvalidProvider = "Invalid authentication provider."
	MsgSessionExpired  = "Your session has expired. Please try again."
	MsgAuthFailed      = "Authentication failed. Please contact support if the problem persists."
	MsgNotSignedIn     = "Please sign in to continue."
	MsgLastProvider    = "You cannot unlink your only sign-in method. Set a password first."
	MsgNotLinked       = "That provider is not linked to your account."
	MsgLinkedElsewhere = "That account is already linked to another user."
	MsgInactive        = "Your account is not active. Please contact your administrator."
)

// UserMessage translates err into the text shown to the user.
func UserMessage(err error) string {
	var (
		unknown  *auth.UnknownProviderError
		disabled *auth.ProviderDisabledError
		callback *auth.ProviderCallbackError
		noEmail  *auth.MissingIdentityEmailError
		inactive *auth.AccountInactiveError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unknown):
		return MsgInvalidProvider
	case errors.As(err, &disabled):
		return fmt.Sprintf("%s authentication is currently disabled.", disabled.DisplayName)
	case errors.As(err, &callback):
		if callback.StateMismatch {
			return MsgSessionExpired
		}
		return MsgAuthFailed
	case errors.As(err, &noEmail):
		return fmt.Sprintf("We could not read an email address from your %s account. "+
			"Please make your email address public in your %s profile and try again.",
			displayName(noEmail.Name), displayName(noEmail.Name))
	case errors.As(err, &inactive):
		return MsgInactive
	case errors.Is(err, session.ErrNotAuthenticated):
		return MsgNotSignedIn
	case errors.Is(err, auth.ErrLastProvider):
		return MsgLastProvider
	case errors.Is(err, auth.ErrProviderNotLinked):
		return MsgNotLinked
	case errors.Is(err, auth.ErrProviderLinked):
		return MsgLinkedElsewhere
	default:
		return MsgAuthFailed
	}
}

func displayName(provider string) string {
	switch provider {
	case auth.ProviderGoogle:
		return "Google"
	case auth.ProviderGitHub:
		return "GitHub"
	default:
		return provider
	}
}
