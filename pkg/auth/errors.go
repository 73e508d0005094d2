package auth

import (
	"errors"
	"fmt"
)

// User directory errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrProviderLinked     = errors.New("provider already linked to another account")
)

// Social account errors
var (
	ErrMissingExternalID = errors.New("social identity has no external id")
	ErrProviderNotLinked = errors.New("provider is not linked to this account")
	ErrLastProvider      = errors.New("cannot unlink the only sign-in method of a social-only account")
	ErrStateMismatch     = errors.New("oauth state mismatch")
)

// Password errors
var (
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrPasswordTooLong    = errors.New("password is too long")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UnknownProviderError is returned when a provider name is not registered.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown auth provider %q", e.Name)
}

// ProviderDisabledError is returned when a registered provider is not
// configured or not switched on.
type ProviderDisabledError struct {
	Name        string
	DisplayName string
}

func (e *ProviderDisabledError) Error() string {
	return fmt.Sprintf("auth provider %q is disabled", e.Name)
}

// ProviderCallbackError wraps any failure of the OAuth exchange. StateMismatch
// is set when the callback state did not match a pending authorization.
type ProviderCallbackError struct {
	Name          string
	StateMismatch bool
	Err           error
}

func (e *ProviderCallbackError) Error() string {
	if e.StateMismatch {
		return fmt.Sprintf("%s callback: state mismatch: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s callback failed: %v", e.Name, e.Err)
}

func (e *ProviderCallbackError) Unwrap() error { return e.Err }

// NewProviderCallbackError wraps err, detecting state mismatches.
func NewProviderCallbackError(name string, err error) *ProviderCallbackError {
	return &ProviderCallbackError{
		Name:          name,
		StateMismatch: errors.Is(err, ErrStateMismatch),
		Err:           err,
	}
}

// MissingIdentityEmailError is returned when the provider did not disclose an
// email address for the authenticated account.
type MissingIdentityEmailError struct {
	Name string
}

func (e *MissingIdentityEmailError) Error() string {
	return fmt.Sprintf("%s did not return an email address", e.Name)
}

// AccountInactiveError is returned when a user that is not active tries to
// sign in.
type AccountInactiveError struct {
	Status Status
}

func (e *AccountInactiveError) Error() string {
	return fmt.Sprintf("account is %s", e.Status)
}

// CheckActive returns an *AccountInactiveError unless u may sign in.
func CheckActive(u *User) error {
	if u.Status != StatusActive {
		return &AccountInactiveError{Status: u.Status}
	}
	return nil
}

// InvalidProviderTypeError is returned by Registry.RegisterProvider when the
// supplied value cannot construct a Provider.
type InvalidProviderTypeError struct {
	Name string
	Type string
}

func (e *InvalidProviderTypeError) Error() string {
	return fmt.Sprintf("cannot register provider %q: %s is not a provider factory", e.Name, e.Type)
}
