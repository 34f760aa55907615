package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kaizenhr/billing/pkg/billing"
)

// Principal is the authenticated caller as seen by the billing module.
// The platform's auth middleware is expected to resolve the session and
// place a Principal in the request context before the module runs.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// PrincipalResolver extracts the authenticated caller from a request.
// The default implementation reads the context value set by
// SetPrincipal; deployments with a different auth layer supply their
// own resolver.
type PrincipalResolver func(r *http.Request) (Principal, error)

// ErrNoPrincipal indicates the request carries no authenticated caller.
var ErrNoPrincipal = errors.New("billing module: no authenticated principal in request")

type principalCtxKey struct{}

// SetPrincipal returns a context carrying the authenticated caller.
func SetPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the caller stored by SetPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// ContextPrincipalResolver is the default PrincipalResolver.
func ContextPrincipalResolver(r *http.Request) (Principal, error) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.UserID == uuid.Nil {
		return Principal{}, ErrNoPrincipal
	}
	return p, nil
}

// withPrincipal resolves the caller and seeds the context the service
// layer expects, including the payment email.
func (m *Module) withPrincipal(r *http.Request) (context.Context, Principal, error) {
	p, err := m.principal(r)
	if err != nil {
		return nil, Principal{}, err
	}
	ctx := r.Context()
	if p.Email != "" {
		ctx = billing.SetEmailToContext(ctx, p.Email)
	}
	return ctx, p, nil
}
