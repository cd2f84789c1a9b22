package app

import (
	"context"
	"testing"
)

// TestActorContextRoundTrip verifies normalization and retrieval from context.
func TestActorContextRoundTrip(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatal("ActorFromContext() expected no actor for empty context")
	}
	if _, ok := ActorFromContext(WithActor(context.Background(), "   ")); ok {
		t.Fatal("ActorFromContext() expected no actor for blank id")
	}
	id, ok := ActorFromContext(WithActor(context.Background(), " u2 "))
	if !ok || id != "u2" {
		t.Fatalf("ActorFromContext() = %q, %v, want u2", id, ok)
	}
}

// TestActivityUsesContextActor verifies per-request attribution overrides the default actor.
func TestActivityUsesContextActor(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	ctx := WithActor(context.Background(), "u2")
	if _, _, err := svc.SaveDepartment(ctx, "", "Ops"); err != nil {
		t.Fatalf("SaveDepartment() error = %v", err)
	}
	log := svc.ActivityLog(1)
	if len(log) != 1 || log[0].UserID != "u2" {
		t.Fatalf("expected entry attributed to u2, got %#v", log)
	}
}
