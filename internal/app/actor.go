package app

import (
	"context"
	"strings"
)

// WithActor attaches the id of the user performing a mutation. Activity entries written under
// ctx are attributed to that id instead of the configured default actor.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, strings.TrimSpace(actorID))
}

// ActorFromContext returns the actor id when one was attached.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorContextKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

type actorContextKey struct{}
