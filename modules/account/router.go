package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount. Each one is optional.
type RouterOptions struct {
	Password Mountable
	Social   Mountable
	// Throttle, when set, wraps every mounted service.
	Throttle func(http.Handler) http.Handler
}

// Router mounts the authentication services under /auth.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", account.Router(account.RouterOptions{
//	    Password: account.NewPasswordService(users, sessions, log),
//	    Social:   social.NewHandler(flow, sessions, cookies, cfg),
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	wrap := func(h http.Handler) http.Handler {
		if opts.Throttle == nil {
			return h
		}
		return opts.Throttle(h)
	}

	if opts.Password != nil {
		r.Mount("/auth/password", wrap(opts.Password.Handle()))
	}
	if opts.Social != nil {
		r.Mount("/auth", wrap(opts.Social.Handle()))
	}
	return r
}
