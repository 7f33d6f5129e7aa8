package authz

import (
	"context"

	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/permission"
)

// Engine is the authorization decision function. It consumes the stored
// state through narrow source interfaces and never mutates anything, so a
// single instance is safe for concurrent use across requests.
type Engine struct {
	anonymous AnonymousSource
	scopes    ScopeSource
	modelPerm ModelPermissionSource
}

// NewEngine wires an engine from its three sources.
func NewEngine(anonymous AnonymousSource, scopes ScopeSource, modelPerm ModelPermissionSource) *Engine {
	return &Engine{anonymous: anonymous, scopes: scopes, modelPerm: modelPerm}
}

// HasPermission decides whether the user may perform perm on obj. A nil user
// is the anonymous caller; a nil obj makes this a model-level check only.
//
// Checks run in order, stopping at the first grant:
//
//  1. superusers can do anything
//  2. anonymous permissions apply to every caller
//  3. the user may act on their own identity record
//  4. the object's owner is always authorized
//  5. self-service overrides (e.g. own access requests)
//  6. public permissions of the object's scope, then role assignments,
//     guarded against privilege escalation for role-bearing objects
//  7. plain model-level permissions
//  8. failed "view" checks are retried as the corresponding "change"
//     permission
func (e *Engine) HasPermission(ctx context.Context, user *models.User, perm string, obj any) (bool, error) {
	// Deactivated users keep only what anonymous callers get. This runs
	// before the superuser shortcut, so deactivation truly locks out.
	if user != nil && !user.IsActive {
		user = nil
	}

	if user != nil && user.Superuser {
		return true, nil
	}

	ok, err := e.anonymous.HasAnonymousPermission(ctx, perm)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	granted := false

	if obj != nil {
		if other, isUser := obj.(*models.User); isUser && user.IsAuthenticated() && other != nil && other.ID == user.ID {
			granted = true
		}
		if !granted {
			if owned, isOwned := obj.(Owned); isOwned && user.IsAuthenticated() && owned.OwnerID() != "" && owned.OwnerID() == user.ID {
				granted = true
			} else if ss, isSS := obj.(SelfService); isSS && user.IsAuthenticated() && ss.SelfServicePermission(user.ID, perm) {
				granted = true
			} else if scoped, isScoped := obj.(Scoped); isScoped {
				granted, err = e.hasObjectPermission(ctx, user, perm, obj, scoped.Scope())
				if err != nil {
					return false, err
				}
			}
		}
	}

	if !granted && user.IsAuthenticated() {
		granted, err = e.modelPerm.HasModelPermission(ctx, user.ID, perm)
		if err != nil {
			return false, err
		}
	}

	// A user allowed to modify something is implicitly allowed to view it.
	// The rewritten permission is no longer a view permission, so this
	// recurses at most once.
	if !granted && permission.IsView(perm) {
		return e.HasPermission(ctx, user, permission.ChangeEquivalent(perm), obj)
	}

	return granted, nil
}

// hasObjectPermission checks the object's scope: public permissions first,
// then the user's role assignments. When that grants a non-view action on a
// role-bearing object, the escalation guard additionally requires the user
// to hold a role of at least the target's priority within the same scope.
// View actions bypass the guard once access is granted, so lower-priority
// administrators can still see higher-priority roles read-only.
func (e *Engine) hasObjectPermission(ctx context.Context, user *models.User, perm string, obj any, ref models.ScopeRef) (bool, error) {
	allowed, err := e.scopes.HasPublicPermission(ctx, ref, perm)
	if err != nil {
		return false, err
	}
	if !allowed && user.IsAuthenticated() {
		allowed, err = e.scopes.HasRolePermission(ctx, ref, user.ID, perm)
		if err != nil {
			return false, err
		}
	}
	if !allowed {
		return false, nil
	}

	if permission.IsView(perm) {
		return true, nil
	}

	target, isPrioritized := obj.(Prioritized)
	if !isPrioritized {
		// Plain scope hosts carry no priority; no escalation to guard.
		return true, nil
	}
	priority, ok := target.RolePriority()
	if !ok {
		return false, nil
	}
	if !user.IsAuthenticated() {
		return false, nil
	}
	return e.scopes.HasPriorityAtLeast(ctx, ref, user.ID, priority)
}
