// Package authz implements the scoped role-based authorization decision:
// may user U do action P on object O? It is a pure read-side library; all
// state comes in through the source interfaces and nothing is mutated.
package authz

import (
	"context"

	"github.com/coursebook/scopedauth/models"
)

// AnonymousSource answers whether a permission is globally granted to every
// caller, including unauthenticated ones.
type AnonymousSource interface {
	HasAnonymousPermission(ctx context.Context, perm string) (bool, error)
}

// ScopeSource answers permission questions about a single scope instance.
type ScopeSource interface {
	// HasPublicPermission reports whether the scope grants perm to every
	// caller regardless of role.
	HasPublicPermission(ctx context.Context, ref models.ScopeRef, perm string) (bool, error)

	// HasRolePermission reports whether the user holds a currently valid
	// role assignment in the scope whose role bundles perm.
	HasRolePermission(ctx context.Context, ref models.ScopeRef, userID, perm string) (bool, error)

	// HasPriorityAtLeast reports whether the user holds a currently valid
	// role assignment in the scope whose role priority is >= priority.
	HasPriorityAtLeast(ctx context.Context, ref models.ScopeRef, userID string, priority int) (bool, error)
}

// ModelPermissionSource answers model-level (non-object) permission checks:
// permissions granted to the user directly or through group membership.
type ModelPermissionSource interface {
	HasModelPermission(ctx context.Context, userID, perm string) (bool, error)
}

// Scoped is implemented by any object whose permissions are governed by a
// scope. Plain scope hosts return their own reference; composite objects
// (e.g. a course material) return the parent scope's reference.
type Scoped interface {
	Scope() models.ScopeRef
}

// Owned is implemented by objects exposing an optional owner. The owner is
// always authorized. An empty owner id means "no owner".
type Owned interface {
	OwnerID() string
}

// Prioritized is implemented by role-bearing records (roles, assignments,
// enrollment methods, access requests). Non-view actions on them require the
// actor to hold a role of at least the returned priority in the same scope.
// ok is false when no priority can be resolved, which denies the action.
type Prioritized interface {
	RolePriority() (priority int, ok bool)
}

// SelfService is implemented by objects that grant their own subject user
// limited access regardless of scope permissions, e.g. access requests that
// can always be viewed and deleted by their requester.
type SelfService interface {
	SelfServicePermission(userID, perm string) bool
}
