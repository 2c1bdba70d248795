// Package authz decides, per principal and resource instance, whether an
// action may proceed. The policy is fixed: reads are public, creates require
// authentication, and review mutations additionally require ownership.
package authz

import "shelfmark/pkg/domain"

// Action is the kind of access being requested.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Principal is the acting identity; the zero value is anonymous.
type Principal struct {
	UserID        string
	Authenticated bool
}

// Anonymous is the unauthenticated principal.
var Anonymous = Principal{}

// ForUser builds an authenticated principal for a user.
func ForUser(u domain.User) Principal {
	return Principal{UserID: u.ID, Authenticated: true}
}

// Owned is implemented by resources whose write access is restricted to the
// principal that created them.
type Owned interface {
	OwnerID() string
}

// Authorize applies the access policy. It returns nil when allowed,
// domain.ErrNotAuthenticated when no principal is present where one is
// required, and domain.ErrForbidden when the principal is present but is not
// the owner of an owned resource. The two denials are distinct on purpose.
func Authorize(p Principal, action Action, resource any) error {
	if action == ActionRead {
		return nil
	}
	if !p.Authenticated {
		return domain.ErrNotAuthenticated
	}
	if action == ActionCreate {
		return nil
	}
	if owned, ok := resource.(Owned); ok {
		if owned.OwnerID() != p.UserID {
			return domain.ErrForbidden
		}
	}
	return nil
}
