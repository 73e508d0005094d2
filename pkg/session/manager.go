package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/clientip"
	"github.com/bizhub/socialauth/pkg/logger"
	"github.com/bizhub/socialauth/pkg/useragent"
)

// Manager owns the session lifecycle around authentication: binding a user,
// regenerating identifiers, invalidation, remember-me tokens, activity logs
// and revocation of every session of a user.
type Manager struct {
	store     Store
	epochs    EpochStore
	users     auth.UserDirectory
	transport Transport
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a Manager over store. users is consulted for remember tokens.
func New(store Store, users auth.UserDirectory, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		epochs: NewMemoryEpochStore(),
		users:  users,
		config: DefaultConfig(),
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("session"))
	return m
}

// Config returns the manager settings.
func (m *Manager) Config() Config { return m.config }

// Start creates and persists an anonymous session for r.
func (m *Manager) Start(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	csrf, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:             uuid.New(),
		Token:          token,
		CSRFToken:      csrf,
		Data:           make(map[string]any),
		ExpiresAt:      now.Add(m.config.AnonLifetime),
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if r != nil {
		s.IP = clientip.FromContext(ctx)
		if s.IP == "" {
			s.IP = clientip.GetIP(r)
		}
		s.UserAgent = r.UserAgent()
	}

	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Load fetches the session for token and runs Check on it.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.Check(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Check fails with ErrSessionExpired past the expiry and with
// ErrSessionRevoked when the user's sessions were force-logged-out after s
// was authenticated.
func (m *Manager) Check(ctx context.Context, s *Session) error {
	if s == nil || s.Token == "" {
		return ErrSessionNotFound
	}
	if s.IsExpired(m.now()) {
		return ErrSessionExpired
	}
	if !s.IsAuthenticated() {
		return nil
	}
	current, err := m.epochs.Current(ctx, *s.UserID)
	if err != nil {
		return err
	}
	if s.Epoch < current {
		return ErrSessionRevoked
	}
	return nil
}

// Ensure returns the request's live session, starting a new one and sending
// its token when there is none.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	if m.transport == nil {
		return nil, ErrNoTransport
	}

	if token, err := m.transport.GetToken(r); err == nil {
		s, err := m.Load(ctx, token)
		switch {
		case err == nil:
			return s, nil
		case errors.Is(err, ErrSessionRevoked):
			_ = m.store.Delete(ctx, token)
		case !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired):
			return nil, err
		}
	}

	s, err := m.Start(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := m.Commit(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Commit sends the current token of s, or clears it when s was invalidated.
func (m *Manager) Commit(w http.ResponseWriter, s *Session) error {
	if m.transport == nil {
		return ErrNoTransport
	}
	if s == nil || s.Token == "" {
		return m.transport.ClearToken(w)
	}
	return m.transport.SetToken(w, s.Token, s.ExpiresAt.Sub(m.now()))
}

// Save persists data changes made to s and slides its expiry forward by the
// lifetime matching its authentication state.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil || s.Token == "" {
		return ErrInvalidSession
	}
	now := m.now()
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(m.config.Lifetime(s.IsAuthenticated()))
	return m.store.Update(ctx, s)
}

// Authenticate binds userID to s, stamps the user's current epoch and extends
// the expiry to the authenticated lifetime.
func (m *Manager) Authenticate(ctx context.Context, s *Session, userID uuid.UUID) error {
	if s == nil || s.Token == "" {
		return ErrInvalidSession
	}
	epoch, err := m.epochs.Current(ctx, userID)
	if err != nil {
		return err
	}

	now := m.now()
	s.UserID = &userID
	s.Epoch = epoch
	s.ExpiresAt = now.Add(m.config.AuthLifetime)
	s.LastActivityAt = now

	err = m.store.Update(ctx, s)
	if errors.Is(err, ErrSessionNotFound) {
		err = m.store.Create(ctx, s)
	}
	if err != nil {
		return fmt.Errorf("authenticate session: %w", err)
	}
	return nil
}

// RegenerateSession gives s a fresh identifier, token and CSRF token and
// drops the record stored under the previous token. Data and the bound user
// carry over.
func (m *Manager) RegenerateSession(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrInvalidSession
	}
	token, err := generateToken()
	if err != nil {
		return err
	}
	csrf, err := generateToken()
	if err != nil {
		return err
	}

	previous := s.Token
	s.ID = uuid.New()
	s.Token = token
	s.CSRFToken = csrf
	s.LastActivityAt = m.now()

	if err := m.store.Create(ctx, s); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	if previous != "" {
		if err := m.store.Delete(ctx, previous); err != nil {
			return fmt.Errorf("regenerate session: %w", err)
		}
	}
	return nil
}

// InvalidateSession deletes the stored record and clears s in place: no
// user, no data, no identifier and no CSRF token remain.
func (m *Manager) InvalidateSession(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	token := s.Token
	*s = Session{IP: s.IP, UserAgent: s.UserAgent}
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// IsSessionValid reports whether s is live, authenticated and carries a CSRF
// token. The epoch is not consulted; Load and Check do that.
func (m *Manager) IsSessionValid(s *Session) bool {
	return s.IsAuthenticated() && s.CSRFToken != "" && !s.IsExpired(m.now())
}

// SetRememberToken issues a remember-me token for the session's user when
// remember is true. A token already on the user is kept. It returns the
// user's effective token, or "" when remember is false.
func (m *Manager) SetRememberToken(ctx context.Context, s *Session, remember bool) (string, error) {
	if !remember {
		return "", nil
	}
	if !s.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}

	u, err := m.users.FindByID(ctx, *s.UserID)
	if err != nil {
		return "", err
	}
	if u.RememberToken != "" {
		return u.RememberToken, nil
	}

	token, err := generateRememberToken(RememberTokenLength)
	if err != nil {
		return "", err
	}
	if _, err := m.users.Update(ctx, u.ID, auth.UserFields{RememberToken: &token}); err != nil {
		return "", fmt.Errorf("store remember token: %w", err)
	}
	return token, nil
}

// ClearRememberToken removes the remember-me token of the session's user.
// Anonymous sessions are a no-op.
func (m *Manager) ClearRememberToken(ctx context.Context, s *Session) error {
	if !s.IsAuthenticated() {
		return nil
	}
	empty := ""
	if _, err := m.users.Update(ctx, *s.UserID, auth.UserFields{RememberToken: &empty}); err != nil {
		return fmt.Errorf("clear remember token: %w", err)
	}
	return nil
}

// LogSessionActivity writes one structured record for event. It never fails
// and never panics into the caller.
func (m *Manager) LogSessionActivity(ctx context.Context, s *Session, event string, fields map[string]any) {
	defer func() { _ = recover() }()

	attrs := []slog.Attr{logger.Event(event)}
	if s != nil {
		info := useragent.Parse(s.UserAgent)
		attrs = append(attrs,
			logger.SessionID(s.ID.String()),
			logger.IP(s.IP),
			logger.UserAgent(s.UserAgent),
			slog.String("client", info.String()),
			slog.Bool("bot", info.IsBot()),
		)
		if s.UserID != nil {
			attrs = append(attrs, logger.UserID(s.UserID.String()))
		}
	}
	attrs = append(attrs, logger.Context(fields))

	m.logger.LogAttrs(ctx, slog.LevelInfo, "session activity", attrs...)
}

// ForceLogoutAllSessions revokes every session of userID. Revocation happens
// through the epoch bump; deleting the stored records is best effort.
func (m *Manager) ForceLogoutAllSessions(ctx context.Context, userID uuid.UUID) error {
	epoch, err := m.epochs.Bump(ctx, userID)
	if err != nil {
		return fmt.Errorf("force logout: %w", err)
	}
	n, err := m.store.DeleteByUserID(ctx, userID)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to delete revoked sessions",
			logger.UserID(userID.String()), logger.Error(err))
	}
	m.logger.InfoContext(ctx, "forced logout of all sessions",
		logger.UserID(userID.String()),
		slog.Int64("epoch", epoch),
		slog.Int("deleted", n),
	)
	return nil
}

// Info is a read-only snapshot of a session.
type Info struct {
	SessionID       string     `json:"session_id"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	IsAuthenticated bool       `json:"is_authenticated"`
	Lifetime        string     `json:"lifetime"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CSRFToken       string     `json:"csrf_token"`
	IPAddress       string     `json:"ip_address"`
	UserAgent       string     `json:"user_agent"`
	Client          string     `json:"client"`
}

// SessionInfo returns a snapshot of s.
func (m *Manager) SessionInfo(s *Session) Info {
	if s == nil {
		return Info{Lifetime: m.config.AnonLifetime.String()}
	}
	info := Info{
		SessionID:       s.ID.String(),
		IsAuthenticated: s.IsAuthenticated(),
		Lifetime:        m.config.Lifetime(s.IsAuthenticated()).String(),
		ExpiresAt:       s.ExpiresAt,
		CSRFToken:       s.CSRFToken,
		IPAddress:       s.IP,
		UserAgent:       s.UserAgent,
		Client:          useragent.Parse(s.UserAgent).String(),
	}
	if s.UserID != nil {
		id := *s.UserID
		info.UserID = &id
	}
	if s.ID == uuid.Nil {
		info.SessionID = ""
	}
	return info
}
