package domain

import (
	"context"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
)

// AnonymousUser is the user id assigned when the client sends none.
const AnonymousUser = "anonymous"

type callerKey struct{}

// Caller identifies who a request is made on behalf of.
type Caller struct {
	UserID string
	Tier   tier.Tier
}

// ContextWithCaller stores the caller in the context.
func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller, or an anonymous free-tier caller if none is set.
func CallerFromContext(ctx context.Context) Caller {
	if c, ok := ctx.Value(callerKey{}).(Caller); ok {
		return c
	}
	return Caller{UserID: AnonymousUser, Tier: tier.Free}
}
