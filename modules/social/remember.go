package social

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/session"
)

// EventRememberLogin is logged when a remember-me cookie restores a login.
const EventRememberLogin = "remember_login"

// rememberValue is the payload of the remember-me cookie.
func rememberValue(userID uuid.UUID, token string) string {
	return userID.String() + "|" + token
}

func parseRememberValue(v string) (uuid.UUID, string, error) {
	rawID, token, ok := strings.Cut(v, "|")
	if !ok || token == "" {
		return uuid.Nil, "", ErrMalformedRememberCookie
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", ErrMalformedRememberCookie
	}
	return id, token, nil
}

// Resume authenticates s from a remember-me token issued by Callback.
func (f *Flow) Resume(ctx context.Context, s *session.Session, userID uuid.UUID, token string) (*auth.User, error) {
	if s == nil {
		return nil, session.ErrInvalidSession
	}
	u, err := f.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.RememberToken == "" || subtle.ConstantTimeCompare([]byte(u.RememberToken), []byte(token)) != 1 {
		return nil, ErrInvalidRememberToken
	}
	if err := auth.CheckActive(u); err != nil {
		return nil, err
	}

	if err := f.sessions.Authenticate(ctx, s, u.ID); err != nil {
		return nil, err
	}
	if err := f.sessions.RegenerateSession(ctx, s); err != nil {
		_ = f.sessions.InvalidateSession(ctx, s)
		return nil, err
	}
	f.sessions.LogSessionActivity(ctx, s, EventRememberLogin, nil)
	return u, nil
}
