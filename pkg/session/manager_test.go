package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/session"
	"github.com/bizhub/socialauth/pkg/userstore"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

type fixture struct {
	manager *session.Manager
	store   *session.MemoryStore
	users   *userstore.Memory
	user    *auth.User
	clock   *time.Time
}

func setup(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()
	users := userstore.NewMemory()
	u, err := users.Create(context.Background(), auth.User{Email: "ana@bizhub.test", Name: "Ana"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	f := &fixture{store: session.NewMemoryStore(), users: users, user: u, clock: &now}
	opts = append([]session.Option{session.WithClock(func() time.Time { return *f.clock })}, opts...)
	f.manager = session.New(f.store, users, opts...)
	return f
}

func (f *fixture) start(t *testing.T) *session.Session {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", chromeUA)
	r.RemoteAddr = "203.0.113.7:52000"
	s, err := f.manager.Start(context.Background(), r)
	require.NoError(t, err)
	return s
}

func (f *fixture) login(t *testing.T) *session.Session {
	t.Helper()
	s := f.start(t)
	require.NoError(t, f.manager.Authenticate(context.Background(), s, f.user.ID))
	return s
}

func TestManager_Start(t *testing.T) {
	f := setup(t)
	s := f.start(t)

	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.NotEmpty(t, s.Token)
	assert.NotEmpty(t, s.CSRFToken)
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "203.0.113.7", s.IP)
	assert.Equal(t, chromeUA, s.UserAgent)
	assert.Equal(t, f.clock.Add(2*time.Hour), s.ExpiresAt)

	loaded, err := f.manager.Load(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
}

func TestManager_AuthenticateAndRegenerate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := f.start(t)
	s.Set("intended", "/dashboard")
	require.NoError(t, f.manager.Save(ctx, s))

	oldToken, oldID, oldCSRF := s.Token, s.ID, s.CSRFToken

	require.NoError(t, f.manager.Authenticate(ctx, s, f.user.ID))
	require.NoError(t, f.manager.RegenerateSession(ctx, s))

	assert.NotEqual(t, oldToken, s.Token)
	assert.NotEqual(t, oldID, s.ID)
	assert.NotEqual(t, oldCSRF, s.CSRFToken)
	assert.True(t, f.manager.IsSessionValid(s))

	_, err := f.manager.Load(ctx, oldToken)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	loaded, err := f.manager.Load(ctx, s.Token)
	require.NoError(t, err)
	require.NotNil(t, loaded.UserID)
	assert.Equal(t, f.user.ID, *loaded.UserID)
	v, ok := loaded.GetString("intended")
	assert.True(t, ok)
	assert.Equal(t, "/dashboard", v)
	assert.Equal(t, f.clock.Add(120*time.Minute), loaded.ExpiresAt)
}

func TestManager_InvalidateSession(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := f.login(t)
	s.Set("k", "v")
	token := s.Token

	require.NoError(t, f.manager.InvalidateSession(ctx, s))

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token)
	assert.Empty(t, s.CSRFToken)
	assert.Empty(t, s.Data)
	assert.Equal(t, uuid.Nil, s.ID)
	assert.False(t, f.manager.IsSessionValid(s))

	_, err := f.manager.Load(ctx, token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	assert.NoError(t, f.manager.InvalidateSession(ctx, s), "invalidating twice is harmless")
	assert.NoError(t, f.manager.InvalidateSession(ctx, nil))
}

func TestManager_IsSessionValid(t *testing.T) {
	f := setup(t)

	assert.False(t, f.manager.IsSessionValid(nil))
	assert.False(t, f.manager.IsSessionValid(f.start(t)))

	s := f.login(t)
	assert.True(t, f.manager.IsSessionValid(s))

	noCSRF := s.Clone()
	noCSRF.CSRFToken = ""
	assert.False(t, f.manager.IsSessionValid(noCSRF))

	*f.clock = f.clock.Add(3 * time.Hour)
	assert.False(t, f.manager.IsSessionValid(s))
}

func TestManager_Expiry(t *testing.T) {
	f := setup(t)
	s := f.start(t)

	*f.clock = f.clock.Add(2*time.Hour + time.Second)
	assert.ErrorIs(t, f.manager.Check(context.Background(), s), session.ErrSessionExpired)
}

func TestManager_SaveSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	anon := f.start(t)
	*f.clock = f.clock.Add(90 * time.Minute)
	require.NoError(t, f.manager.Save(ctx, anon))
	assert.Equal(t, f.clock.Add(2*time.Hour), anon.ExpiresAt)

	*f.clock = f.clock.Add(90 * time.Minute)
	loaded, err := f.manager.Load(ctx, anon.Token)
	require.NoError(t, err, "activity keeps the session alive")
	assert.Equal(t, anon.ExpiresAt, loaded.ExpiresAt)

	user := f.login(t)
	*f.clock = f.clock.Add(time.Hour)
	require.NoError(t, f.manager.Save(ctx, user))
	assert.Equal(t, f.clock.Add(120*time.Minute), user.ExpiresAt)

	assert.ErrorIs(t, f.manager.Save(ctx, &session.Session{}), session.ErrInvalidSession)
}

func TestManager_RememberToken(t *testing.T) {
	ctx := context.Background()
	alnum := regexp.MustCompile(`^[A-Za-z0-9]{60}$`)

	t.Run("not requested", func(t *testing.T) {
		f := setup(t)
		s := f.login(t)

		token, err := f.manager.SetRememberToken(ctx, s, false)
		require.NoError(t, err)
		assert.Empty(t, token)

		u, err := f.users.FindByID(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, u.RememberToken)
	})

	t.Run("issued once", func(t *testing.T) {
		f := setup(t)
		s := f.login(t)

		token, err := f.manager.SetRememberToken(ctx, s, true)
		require.NoError(t, err)
		assert.Regexp(t, alnum, token)

		again, err := f.manager.SetRememberToken(ctx, s, true)
		require.NoError(t, err)
		assert.Equal(t, token, again, "existing token is kept")

		u, err := f.users.FindByID(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, token, u.RememberToken)

		require.NoError(t, f.manager.ClearRememberToken(ctx, s))
		u, err = f.users.FindByID(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, u.RememberToken)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := setup(t)
		s := f.start(t)

		_, err := f.manager.SetRememberToken(ctx, s, true)
		assert.ErrorIs(t, err, session.ErrNotAuthenticated)
		assert.NoError(t, f.manager.ClearRememberToken(ctx, s))
	})
}

func TestManager_ForceLogoutAllSessions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	laptop := f.login(t)
	phone := f.login(t)
	anon := f.start(t)

	require.NoError(t, f.manager.ForceLogoutAllSessions(ctx, f.user.ID))

	assert.ErrorIs(t, f.manager.Check(ctx, laptop), session.ErrSessionRevoked)
	assert.ErrorIs(t, f.manager.Check(ctx, phone), session.ErrSessionRevoked)
	assert.NoError(t, f.manager.Check(ctx, anon))

	_, err := f.manager.Load(ctx, laptop.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	fresh := f.login(t)
	assert.NoError(t, f.manager.Check(ctx, fresh), "sessions authenticated after the bump stay valid")
}

func TestManager_LogSessionActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("structured record", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := setup(t, session.WithLogger(slog.New(slog.NewJSONHandler(buf, nil))))
		s := f.login(t)

		f.manager.LogSessionActivity(ctx, s, "social_login", map[string]any{"provider": "google"})

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "session activity", rec["msg"])
		assert.Equal(t, "session", rec["component"])
		assert.Equal(t, "social_login", rec["event"])
		assert.Equal(t, f.user.ID.String(), rec["user_id"])
		assert.Equal(t, "203.0.113.7", rec["ip"])
		assert.Equal(t, chromeUA, rec["user_agent"])
		assert.Contains(t, rec["client"], "Chrome")
		assert.Equal(t, map[string]any{"provider": "google"}, rec["context"])
	})

	t.Run("never fails", func(t *testing.T) {
		f := setup(t, session.WithLogger(slog.New(panicHandler{})))
		s := f.login(t)

		assert.NotPanics(t, func() {
			f.manager.LogSessionActivity(ctx, s, "logout", nil)
			f.manager.LogSessionActivity(ctx, nil, "logout", nil)
		})
	})
}

func TestManager_SessionInfo(t *testing.T) {
	f := setup(t)
	s := f.login(t)

	info := f.manager.SessionInfo(s)
	assert.Equal(t, s.ID.String(), info.SessionID)
	require.NotNil(t, info.UserID)
	assert.Equal(t, f.user.ID, *info.UserID)
	assert.True(t, info.IsAuthenticated)
	assert.Equal(t, "2h0m0s", info.Lifetime)
	assert.Equal(t, s.CSRFToken, info.CSRFToken)
	assert.Equal(t, "203.0.113.7", info.IPAddress)
	assert.Contains(t, info.Client, "Windows")

	anon := f.manager.SessionInfo(nil)
	assert.False(t, anon.IsAuthenticated)
	assert.Nil(t, anon.UserID)
}

type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("sink down") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h panicHandler) WithGroup(string) slog.Handler            { return h }
