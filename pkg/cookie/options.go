package cookie

import "net/http"

// Options are the cookie attributes.
type Options struct {
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// Option overrides one attribute.
type Option func(*Options)

func WithPath(path string) Option       { return func(o *Options) { o.Path = path } }
func WithDomain(domain string) Option   { return func(o *Options) { o.Domain = domain } }
func WithMaxAge(seconds int) Option     { return func(o *Options) { o.MaxAge = seconds } }
func WithSecure(secure bool) Option     { return func(o *Options) { o.Secure = secure } }
func WithHTTPOnly(httpOnly bool) Option { return func(o *Options) { o.HTTPOnly = httpOnly } }

func WithSameSite(s http.SameSite) Option {
	return func(o *Options) { o.SameSite = s }
}

func (o Options) apply(opts []Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
