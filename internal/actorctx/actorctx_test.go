package actorctx

import (
	"context"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	if _, ok := EmailFrom(context.Background()); ok {
		t.Fatalf("empty context must not carry an email")
	}

	ctx := WithIdentity(context.Background(), "jane@example.com", "Jane")

	email, ok := EmailFrom(ctx)
	if !ok || email != "jane@example.com" {
		t.Fatalf("EmailFrom() = %q, %v", email, ok)
	}

	name, ok := NameFrom(ctx)
	if !ok || name != "Jane" {
		t.Fatalf("NameFrom() = %q, %v", name, ok)
	}

	if _, ok := EmailFrom(WithIdentity(context.Background(), "", "")); ok {
		t.Fatalf("blank email must report ok=false")
	}
}
