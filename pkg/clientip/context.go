package clientip

import "context"

type contextKey struct{}

// WithIP stores the client address in ctx.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the address stored by WithIP or Middleware.
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// ContextKey exposes the context key so the logger can attach the address to
// every record written during a request.
func ContextKey() any {
	return contextKey{}
}
