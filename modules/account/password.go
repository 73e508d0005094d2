package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/logger"
	"github.com/bizhub/socialauth/pkg/session"
)

// Activity events logged by PasswordService.
const (
	EventPasswordLogin = "password_login"
	EventPasswordSet   = "password_set"
)

// PasswordService signs users in with email and password and lets a signed-in
// user set a password, which turns a social-only account into one that may
// unlink all of its providers.
type PasswordService struct {
	users    auth.UserDirectory
	sessions *session.Manager
	logger   *slog.Logger
	now      func() time.Time
}

func NewPasswordService(users auth.UserDirectory, sessions *session.Manager, log *slog.Logger) *PasswordService {
	if log == nil {
		log = logger.Discard()
	}
	return &PasswordService{
		users:    users,
		sessions: sessions,
		logger:   log.With(logger.Component("account")),
		now:      time.Now,
	}
}

func (s *PasswordService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.sessions.Middleware)
	r.Post("/login", s.login)
	r.With(s.sessions.RequireAuth).Post("/", s.setPassword)
	return r
}

// LoginRequest is the form posted to /login.
type LoginRequest struct {
	Email    string
	Password string
}

func (s *PasswordService) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := session.FromContext(ctx)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form.")
		return
	}
	req := LoginRequest{Email: r.PostForm.Get("email"), Password: r.PostForm.Get("password")}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, auth.ErrUserNotFound) {
		err = auth.ErrInvalidCredentials
	}
	if err == nil {
		err = auth.CheckPassword(u, req.Password)
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "These credentials do not match our records.")
			return
		}
		s.logger.ErrorContext(ctx, "password login failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Sign-in failed. Please try again.")
		return
	}
	if err := auth.CheckActive(u); err != nil {
		writeError(w, http.StatusForbidden, "This account is not active.")
		return
	}

	if err := s.establish(r, sess, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to establish session", logger.UserID(u.ID), logger.Error(err))
		_ = s.sessions.InvalidateSession(ctx, sess)
		_ = s.sessions.Commit(w, sess)
		writeError(w, http.StatusInternalServerError, "Sign-in failed. Please try again.")
		return
	}
	if err := s.sessions.Commit(w, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to send session cookie", logger.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": u.ID.String()})
}

func (s *PasswordService) establish(r *http.Request, sess *session.Session, u *auth.User) error {
	ctx := r.Context()
	now := s.now().UTC()
	ip := sess.IP
	if _, err := s.users.Update(ctx, u.ID, auth.UserFields{LastLoginAt: &now, LastLoginIP: &ip}); err != nil {
		return err
	}
	if err := s.sessions.Authenticate(ctx, sess, u.ID); err != nil {
		return err
	}
	if err := s.sessions.RegenerateSession(ctx, sess); err != nil {
		return err
	}
	s.sessions.LogSessionActivity(ctx, sess, EventPasswordLogin, nil)
	return nil
}

func (s *PasswordService) setPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := session.FromContext(ctx)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form.")
		return
	}
	password := r.PostForm.Get("password")
	if password != r.PostForm.Get("password_confirm") {
		writeError(w, http.StatusUnprocessableEntity, "The password confirmation does not match.")
		return
	}

	hash, err := auth.HashPassword(password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusUnprocessableEntity, "The password is too short.")
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusUnprocessableEntity, "The password is too long.")
		return
	}
	userID := *sess.UserID
	if err == nil {
		_, err = s.users.Update(ctx, userID, auth.UserFields{PasswordHash: &hash})
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to set password", logger.UserID(userID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "The password could not be saved.")
		return
	}
	s.sessions.LogSessionActivity(ctx, sess, EventPasswordSet, nil)

	// Other devices lose their sessions; this one is re-issued.
	if err := s.revokeOthers(ctx, sess, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password change", logger.UserID(userID), logger.Error(err))
		_ = s.sessions.InvalidateSession(ctx, sess)
	}
	if err := s.sessions.Commit(w, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to send session cookie", logger.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *PasswordService) revokeOthers(ctx context.Context, sess *session.Session, userID uuid.UUID) error {
	if err := s.sessions.ForceLogoutAllSessions(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.Authenticate(ctx, sess, userID); err != nil {
		return err
	}
	return s.sessions.RegenerateSession(ctx, sess)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
