package models

import (
	"encoding/json"
	"strings"
)

// Role is a named, prioritized permission bundle attached to a scope
// instance. Permissions is stored as a raw JSON array of permission strings
// to avoid ORM map parsing issues; use PermissionList/SetPermissions.
//
// Priority is a total order used for escalation prevention: a role may only
// be administered by a user holding a role of equal or higher priority within
// the same scope. Low values mean fewer privileges.
type Role struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`
	ScopeRef
	Slug        string          `gorm:"column:slug" json:"slug"`
	Name        string          `gorm:"column:name" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	Priority    int             `gorm:"column:priority" json:"priority"`
	Permissions json.RawMessage `gorm:"column:permissions" json:"permissions"`
	IsActive    bool            `gorm:"column:is_active" json:"is_active"`
	AuditFields
}

func (Role) TableName() string { return "roles" }

// PermissionList decodes the JSON permission column. A nil or empty column
// yields an empty list.
func (r *Role) PermissionList() []string {
	if len(r.Permissions) == 0 {
		return nil
	}
	var perms []string
	if err := json.Unmarshal(r.Permissions, &perms); err != nil {
		return nil
	}
	return perms
}

// SetPermissions encodes the permission list into the JSON column.
func (r *Role) SetPermissions(perms []string) error {
	if perms == nil {
		perms = []string{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	r.Permissions = raw
	return nil
}

// HasPermission reports whether the role's permission set contains perm.
func (r *Role) HasPermission(perm string) bool {
	for _, p := range r.PermissionList() {
		if p == perm {
			return true
		}
	}
	return false
}

// RolePriority exposes the role's own priority for the escalation guard.
func (r *Role) RolePriority() (int, bool) { return r.Priority, true }

// NormalizeSlug lowercases and trims the role slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// AllowedRolePermission whitelists a permission for roles (and public
// permission sets) of a given scope type. Roles may only bundle whitelisted
// permissions.
type AllowedRolePermission struct {
	ID         string `gorm:"column:id;primaryKey" json:"id"`
	ScopeType  string `gorm:"column:scope_type;index" json:"scope_type"`
	Permission string `gorm:"column:permission" json:"permission"`
}

func (AllowedRolePermission) TableName() string { return "allowed_role_permissions" }

// AnonymousPermission is a global permission granted to every caller,
// authenticated or not. Required because object-based permission checks by
// default fail for anonymous users.
type AnonymousPermission struct {
	ID         string `gorm:"column:id;primaryKey" json:"id"`
	Permission string `gorm:"column:permission;uniqueIndex" json:"permission"`
}

func (AnonymousPermission) TableName() string { return "anonymous_permissions" }

// PublicPermission attaches a permission directly to a scope instance,
// granting it to every caller regardless of role. Still constrained by the
// scope type's whitelist.
type PublicPermission struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`
	ScopeRef
	Permission string `gorm:"column:permission" json:"permission"`
}

func (PublicPermission) TableName() string { return "public_permissions" }
