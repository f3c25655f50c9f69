// Package tenant carries the authenticated tenant snapshot through a request's context.
package tenant

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

var ErrMissing = errors.New("tenant context is missing")

// Context is a read-only snapshot of the calling tenant.
type Context struct {
	ID   string
	Name string
}

type contextKey struct{}

func FromEntity(t *entity.Tenant) Context {
	return Context{ID: t.ID, Name: t.Name}
}

func WithTenant(ctx context.Context, t Context) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant placed by the authentication layer, or ErrMissing.
func FromContext(ctx context.Context) (Context, error) {
	t, ok := ctx.Value(contextKey{}).(Context)
	if !ok || t.ID == "" {
		return Context{}, ErrMissing
	}
	return t, nil
}
