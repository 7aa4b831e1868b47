package platform

import "context"

type contextKey struct{}

var userTokenKey contextKey

// WithUserToken returns a context carrying the caller's forwarded access
// token. Set by the HTTP middleware from the X-Forwarded-Access-Token
// header in deployed multi-tenant mode.
func WithUserToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, userTokenKey, token)
}

// UserTokenFromContext returns the forwarded token, or "" if none is set.
func UserTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(userTokenKey).(string)
	return token
}
