package goSession

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type identityContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. [Engine.LoginContext]
// uses it as the second half of the lockout key.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. It is stored on
// the session row and in the attempt log.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// ClientIPFromContext returns the IP set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// UserAgentFromContext returns the User-Agent set by [WithUserAgent], or "".
func UserAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

// IdentityFromContext returns the identity set by [WithIdentity].
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}

	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}

// LoginContext is [Engine.Login] with the client IP and User-Agent taken from
// ctx.
func (e *Engine) LoginContext(ctx context.Context, username, password string) (string, error) {
	return e.Login(ctx, username, password, ClientIPFromContext(ctx), UserAgentFromContext(ctx))
}
