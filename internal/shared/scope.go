package shared

import (
	"context"
	"errors"
)

// Scope identifies the tenant and acting user for a request. The
// identity layer resolves both values before the core is invoked; the
// core trusts them and rejects any call without a client.
type Scope struct {
	ClientID int64
	ActorID  int64
}

// ErrClientScope indicates a call without a resolved client scope.
var ErrClientScope = errors.New("shared: client scope required")

// Validate ensures the scope carries a tenant.
func (s Scope) Validate() error {
	if s.ClientID == 0 {
		return ErrClientScope
	}
	return nil
}

type scopeContextKey struct{}

// ContextWithScope stores the request scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the request scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
