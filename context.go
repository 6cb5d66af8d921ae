package goGuard

import "context"

type requestTokenContextKey struct{}
type principalContextKey struct{}

// WithAuthenticated attaches the result of Authenticate to ctx. The HTTP adapters call it
// before invoking the next handler.
func WithAuthenticated(ctx context.Context, a *Authenticated) context.Context {
	if a == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, requestTokenContextKey{}, a.Token)
	return context.WithValue(ctx, principalContextKey{}, a.Principal)
}

// RequestTokenFromContext returns the verified token stored by WithAuthenticated.
func RequestTokenFromContext(ctx context.Context) (*RequestToken, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(requestTokenContextKey{}).(*RequestToken)
	return t, ok && t != nil
}

// PrincipalFromContext returns the principal stored by WithAuthenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p != nil
}
