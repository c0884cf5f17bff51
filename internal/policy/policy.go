// Package policy decides whether an actor may perform an action on a
// resource. The decision is a pure function of the actor's role, the
// action kind, the resource kind and (for owned resources) whether the
// actor is the owner, so every precedence rule is testable in
// isolation.
package policy

import "reviewhub/internal/models"

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Kind string

const (
	KindCategory Kind = "category"
	KindGenre    Kind = "genre"
	KindTitle    Kind = "title"
	KindReview   Kind = "review"
	KindComment  Kind = "comment"
	// KindProfile is the actor's own user record (/users/me).
	KindProfile Kind = "profile"
)

// Actor is the identity behind a request. The zero value is the
// anonymous actor.
type Actor struct {
	ID   string
	Role models.Role
}

// Anonymous reports whether the actor carries no authenticated identity.
func (a Actor) Anonymous() bool {
	return a.ID == ""
}

// Authorize evaluates the precedence rules in order:
//
//  1. admins may do anything;
//  2. the profile resource is accessible to an authenticated actor on
//     their own record only;
//  3. all other reads are open to everyone, anonymous included;
//  4. catalog resources (category, genre, title) are writable by
//     admins only; moderators are not elevated here;
//  5. reviews and comments are writable by their author or by a
//     moderator, never by anonymous actors.
//
// ownerID is the author of the resource being touched; for creates the
// caller passes the actor's own id.
func Authorize(actor Actor, action Action, kind Kind, ownerID string) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}

	if kind == KindProfile {
		return !actor.Anonymous() && actor.ID == ownerID
	}

	if action == ActionRead {
		return true
	}

	if actor.Anonymous() {
		return false
	}

	switch kind {
	case KindCategory, KindGenre, KindTitle:
		return false
	case KindReview, KindComment:
		return actor.Role == models.RoleModerator || actor.ID == ownerID
	}

	return false
}
