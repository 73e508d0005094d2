package social

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/cookie"
	"github.com/bizhub/socialauth/pkg/logger"
	"github.com/bizhub/socialauth/pkg/session"
)

// Session keys carried from redirect to callback.
const (
	rememberKey = "social.remember"
	stateKey    = "social.state"
)

// Handler exposes Flow over HTTP.
type Handler struct {
	flow     *Flow
	sessions *session.Manager
	cookies  *cookie.Manager
	cfg      Config
}

func NewHandler(flow *Flow, sessions *session.Manager, cookies *cookie.Manager, cfg Config) *Handler {
	return &Handler{flow: flow, sessions: sessions, cookies: cookies, cfg: cfg}
}

// Handle returns the router, meant to be mounted under /auth.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(h.flow.metrics.Middleware)
	r.Use(h.sessions.Middleware)
	r.Use(h.rememberMiddleware)

	r.Get("/providers", h.providers)
	r.Get("/status", h.status)
	r.Get("/session", h.sessionInfo)
	r.Post("/logout", h.logout)
	r.Get("/{provider}/redirect", h.redirect)
	r.Get("/{provider}/callback", h.callback)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.RequireAuth)
		r.Get("/linked", h.linked)
		r.Delete("/{provider}", h.unlink)
	})
	return r
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := session.FromContext(ctx)

	target, err := h.flow.Redirect(ctx, chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch r.URL.Query().Get("remember") {
	case "1", "true", "on", "yes":
		s.Set(rememberKey, true)
	default:
		s.Delete(rememberKey)
	}
	s.Set(stateKey, stateOf(target))
	if err := h.sessions.Save(ctx, s); err != nil {
		h.flow.logger.ErrorContext(ctx, "failed to save session before redirect", logger.Error(err))
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// stateOf returns the state parameter of an authorization URL.
func stateOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := session.FromContext(ctx)
	q := r.URL.Query()

	name := chi.URLParam(r, "provider")

	v, _ := s.Get(rememberKey)
	remember, _ := v.(bool)
	v, _ = s.Get(stateKey)
	expected, _ := v.(string)
	s.Delete(rememberKey)
	s.Delete(stateKey)
	if err := h.sessions.Save(ctx, s); err != nil {
		h.flow.logger.ErrorContext(ctx, "failed to save session", logger.Error(err))
	}

	var (
		login *Login
		err   error
	)
	state := q.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		if _, err = h.flow.enabledProvider(name); err == nil {
			err = auth.NewProviderCallbackError(name, auth.ErrStateMismatch)
		}
		h.flow.metrics.observeLogin(name, err)
	} else {
		login, err = h.flow.Callback(ctx, s, name, auth.CallbackParams{
			Code:             q.Get("code"),
			State:            state,
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		}, remember)
	}
	if cerr := h.sessions.Commit(w, s); cerr != nil {
		h.flow.logger.ErrorContext(ctx, "failed to send session cookie", logger.Error(cerr))
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if login.RememberToken != "" {
		h.cookies.SetSigned(w, h.cfg.RememberCookie, rememberValue(login.User.ID, login.RememberToken),
			cookie.WithMaxAge(int(h.cfg.RememberLifetime.Seconds())))
	}
	http.Redirect(w, r, h.cfg.SuccessURL, http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := session.FromContext(ctx)

	if err := h.flow.Logout(ctx, s); err != nil {
		h.flow.logger.ErrorContext(ctx, "logout incomplete", logger.Error(err))
	}
	if err := h.sessions.Commit(w, s); err != nil {
		h.flow.logger.ErrorContext(ctx, "failed to clear session cookie", logger.Error(err))
	}
	h.cookies.Delete(w, h.cfg.RememberCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) providers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.flow.EnabledProviders()})
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.flow.Status())
}

func (h *Handler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, h.sessions.SessionInfo(s))
}

func (h *Handler) linked(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	providers, err := h.flow.LinkedProviders(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

func (h *Handler) unlink(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	u, err := h.flow.Unlink(r.Context(), s, chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": auth.LinkedProviders(u)})
}

// rememberMiddleware restores a login from the remember-me cookie when the
// session is anonymous.
func (h *Handler) rememberMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s, ok := session.FromContext(ctx)
		if !ok || s.IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}
		raw, err := h.cookies.GetSigned(r, h.cfg.RememberCookie)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, token, err := parseRememberValue(raw)
		if err == nil {
			_, err = h.flow.Resume(ctx, s, userID, token)
		}
		if err != nil {
			h.flow.logger.InfoContext(ctx, "remember cookie rejected", logger.Error(err))
			h.cookies.Delete(w, h.cfg.RememberCookie)
		}
		if cerr := h.sessions.Commit(w, s); cerr != nil {
			h.flow.logger.ErrorContext(ctx, "failed to send session cookie", logger.Error(cerr))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.flow.logger.WarnContext(r.Context(), "social authentication failed", logger.Error(err))

	target, perr := url.Parse(h.cfg.FailureURL)
	if perr != nil {
		target = &url.URL{Path: "/"}
	}
	q := target.Query()
	q.Set("error", UserMessage(err))
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func statusFor(err error) int {
	var (
		unknown  *auth.UnknownProviderError
		inactive *auth.AccountInactiveError
	)
	switch {
	case errors.As(err, &unknown), errors.Is(err, auth.ErrProviderNotLinked):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &inactive):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrLastProvider):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
