package authz

import (
	"errors"
	"testing"

	"shelfmark/pkg/domain"
)

func TestAuthorizeReadIsAlwaysAllowed(t *testing.T) {
	review := domain.Review{ID: "r1", UserID: "alice"}
	if err := Authorize(Anonymous, ActionRead, review); err != nil {
		t.Fatalf("anonymous read: %v", err)
	}
	if err := Authorize(Principal{UserID: "bob", Authenticated: true}, ActionRead, review); err != nil {
		t.Fatalf("authenticated read: %v", err)
	}
}

func TestAuthorizeCreateRequiresAuthentication(t *testing.T) {
	if err := Authorize(Anonymous, ActionCreate, domain.Book{}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := Authorize(Principal{UserID: "alice", Authenticated: true}, ActionCreate, domain.Book{}); err != nil {
		t.Fatalf("authenticated create: %v", err)
	}
}

func TestAuthorizeReviewOwnership(t *testing.T) {
	review := domain.Review{ID: "r1", UserID: "alice"}
	owner := Principal{UserID: "alice", Authenticated: true}
	stranger := Principal{UserID: "bob", Authenticated: true}

	cases := []struct {
		name      string
		principal Principal
		action    Action
		want      error
	}{
		{"anonymous update", Anonymous, ActionUpdate, domain.ErrNotAuthenticated},
		{"anonymous delete", Anonymous, ActionDelete, domain.ErrNotAuthenticated},
		{"non-owner update", stranger, ActionUpdate, domain.ErrForbidden},
		{"non-owner delete", stranger, ActionDelete, domain.ErrForbidden},
		{"owner update", owner, ActionUpdate, nil},
		{"owner delete", owner, ActionDelete, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.principal, tc.action, review)
			if !errors.Is(err, tc.want) && !(err == nil && tc.want == nil) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthorizeUnownedEntitiesNeedOnlyAuthentication(t *testing.T) {
	stranger := Principal{UserID: "bob", Authenticated: true}
	if err := Authorize(stranger, ActionUpdate, domain.Author{ID: "a1"}); err != nil {
		t.Fatalf("authenticated author update: %v", err)
	}
	if err := Authorize(Anonymous, ActionDelete, domain.Author{ID: "a1"}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
