package clientip

import "net/http"

// Middleware resolves the client address once per request and stores it in the
// request context.
func (e *Extractor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithIP(r.Context(), e.IP(r))))
	})
}

// Middleware is Extractor.Middleware with DefaultHeaders.
func Middleware(next http.Handler) http.Handler {
	return defaultExtractor.Middleware(next)
}
