package rest

import (
	"context"

	"github.com/dmitrijs2005/userservice/internal/server/models"
)

type ctxKey struct{}

var principalKey ctxKey

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the identity attached by the authentication
// middleware.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*models.Principal)
	return p, ok && p != nil
}
