package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/logger"
	"github.com/bizhub/socialauth/pkg/session"
)

// Event names written through session.Manager.LogSessionActivity.
const (
	EventSocialLogin  = "social_login"
	EventLogout       = "logout"
	EventSocialUnlink = "social_unlink"
)

// Login is the outcome of a successful callback.
type Login struct {
	User *auth.User
	// RememberToken is the user's remember-me token when one was requested.
	RememberToken string
}

// Flow sequences registry, provider, user directory and session manager for
// the social login, logout and unlink flows.
type Flow struct {
	registry *auth.Registry
	sessions *session.Manager
	users    auth.UserDirectory
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Flow.
type Option func(*Flow)

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(f *Flow) { f.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFlow(registry *auth.Registry, sessions *session.Manager, users auth.UserDirectory, opts ...Option) *Flow {
	f := &Flow{
		registry: registry,
		sessions: sessions,
		users:    users,
		logger:   logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(logger.Component("social_flow"))
	return f
}

func (f *Flow) enabledProvider(name string) (auth.Provider, error) {
	p, err := f.registry.Make(name)
	if err != nil {
		return nil, err
	}
	if !p.IsEnabled() {
		return nil, &auth.ProviderDisabledError{Name: p.Name(), DisplayName: p.DisplayName()}
	}
	return p, nil
}

// Redirect returns the authorization URL of provider name.
func (f *Flow) Redirect(ctx context.Context, name string) (string, error) {
	p, err := f.enabledProvider(name)
	if err != nil {
		return "", err
	}
	return p.RedirectURL(ctx)
}

// Callback completes a login. On any failure after the user is resolved the
// session is invalidated, so a rejected callback never leaves s authenticated.
func (f *Flow) Callback(ctx context.Context, s *session.Session, name string, params auth.CallbackParams, remember bool) (login *Login, err error) {
	defer func() { f.metrics.observeLogin(name, err) }()

	if s == nil {
		return nil, session.ErrInvalidSession
	}
	p, err := f.enabledProvider(name)
	if err != nil {
		return nil, err
	}

	identity, err := p.HandleCallback(ctx, params)
	if err != nil {
		var disabled *auth.ProviderDisabledError
		if errors.As(err, &disabled) {
			return nil, err
		}
		f.logger.WarnContext(ctx, "oauth callback failed", logger.Provider(name), logger.Error(err))
		return nil, auth.NewProviderCallbackError(name, err)
	}
	if identity.Email == "" {
		return nil, &auth.MissingIdentityEmailError{Name: name}
	}

	u, err := p.FindOrCreateUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckActive(u); err != nil {
		f.logger.WarnContext(ctx, "inactive user rejected", logger.Provider(name), logger.UserID(u.ID))
		return nil, err
	}

	login, err = f.establish(ctx, s, name, u, remember)
	if err != nil {
		if ierr := f.sessions.InvalidateSession(ctx, s); ierr != nil {
			f.logger.ErrorContext(ctx, "failed to invalidate session after rejected login", logger.Error(ierr))
		}
		return nil, err
	}
	return login, nil
}

func (f *Flow) establish(ctx context.Context, s *session.Session, name string, u *auth.User, remember bool) (*Login, error) {
	now := f.now().UTC()
	ip := s.IP
	u, err := f.users.Update(ctx, u.ID, auth.UserFields{LastLoginAt: &now, LastLoginIP: &ip})
	if err != nil {
		return nil, fmt.Errorf("record last login: %w", err)
	}

	if err := f.sessions.Authenticate(ctx, s, u.ID); err != nil {
		return nil, err
	}
	if err := f.sessions.RegenerateSession(ctx, s); err != nil {
		return nil, err
	}
	token, err := f.sessions.SetRememberToken(ctx, s, remember)
	if err != nil {
		return nil, err
	}
	if token != "" {
		u.RememberToken = token
	}

	f.sessions.LogSessionActivity(ctx, s, EventSocialLogin, map[string]any{
		"provider": name,
		"remember": remember,
	})
	return &Login{User: u, RememberToken: token}, nil
}

// Logout clears the remember token and invalidates s.
func (f *Flow) Logout(ctx context.Context, s *session.Session) error {
	f.sessions.LogSessionActivity(ctx, s, EventLogout, nil)
	clearErr := f.sessions.ClearRememberToken(ctx, s)
	invalidateErr := f.sessions.InvalidateSession(ctx, s)
	f.metrics.observeLogout()
	return errors.Join(clearErr, invalidateErr)
}

func (f *Flow) currentUser(ctx context.Context, s *session.Session) (*auth.User, error) {
	if !f.sessions.IsSessionValid(s) {
		return nil, session.ErrNotAuthenticated
	}
	return f.users.FindByID(ctx, *s.UserID)
}

// Unlink detaches provider name from the session's user.
func (f *Flow) Unlink(ctx context.Context, s *session.Session, name string) (u *auth.User, err error) {
	defer func() { f.metrics.observeUnlink(name, err) }()

	if !f.registry.HasProvider(name) {
		return nil, &auth.UnknownProviderError{Name: name}
	}
	u, err = f.currentUser(ctx, s)
	if err != nil {
		return nil, err
	}
	u, err = auth.UnlinkSocialProvider(ctx, f.users, u, name)
	if err != nil {
		return nil, err
	}
	f.sessions.LogSessionActivity(ctx, s, EventSocialUnlink, map[string]any{"provider": name})
	return u, nil
}

// LinkedProviders lists the providers linked to the session's user.
func (f *Flow) LinkedProviders(ctx context.Context, s *session.Session) ([]string, error) {
	u, err := f.currentUser(ctx, s)
	if err != nil {
		return nil, err
	}
	return auth.LinkedProviders(u), nil
}

// ProviderLink is one entry of the sign-in button list.
type ProviderLink struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// EnabledProviders lists the providers a user can sign in with, in
// registration order.
func (f *Flow) EnabledProviders() []ProviderLink {
	enabled := f.registry.EnabledProviders()
	out := make([]ProviderLink, 0, len(enabled))
	for _, name := range f.registry.AvailableProviders() {
		if p, ok := enabled[name]; ok {
			out = append(out, ProviderLink{Name: name, DisplayName: p.DisplayName()})
		}
	}
	return out
}

// Status returns the provider diagnostics.
func (f *Flow) Status() map[string]auth.ProviderStatus {
	return f.registry.ProviderStatus()
}
