// Package permission handles the permission string format used throughout
// the module: "{namespace}.{action}_{resource}", e.g. "courses.view_material"
// or "courses.change_material". The engine treats permissions as opaque
// except for the view/change naming convention.
package permission

import (
	"fmt"
	"strings"
)

// Well-known action prefixes following the "{action}_{resource}" codename
// convention.
const (
	ActionView   = "view"
	ActionChange = "change"
	ActionAdd    = "add"
	ActionDelete = "delete"
)

// Permission is a parsed permission string.
type Permission struct {
	Namespace string // part before the first dot
	Codename  string // "{action}_{resource}"
}

// String serializes back to "{namespace}.{codename}".
func (p Permission) String() string { return p.Namespace + "." + p.Codename }

// Action returns the codename's action prefix, or the whole codename when it
// carries no underscore.
func (p Permission) Action() string {
	if i := strings.Index(p.Codename, "_"); i >= 0 {
		return p.Codename[:i]
	}
	return p.Codename
}

// Resource returns the codename's resource suffix, or "" when the codename
// carries no underscore.
func (p Permission) Resource() string {
	if i := strings.Index(p.Codename, "_"); i >= 0 {
		return p.Codename[i+1:]
	}
	return ""
}

// Parse splits a permission string into namespace and codename.
func Parse(perm string) (Permission, error) {
	parts := strings.SplitN(perm, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, fmt.Errorf("invalid permission string: %q", perm)
	}
	return Permission{Namespace: parts[0], Codename: parts[1]}, nil
}

// IsView reports whether the permission string is a "view" permission.
func IsView(perm string) bool { return strings.Contains(perm, ".view_") }

// ChangeEquivalent rewrites a "view" permission into the corresponding
// "change" permission. A user allowed to modify something is implicitly
// allowed to view it, so failed view checks are retried with this.
func ChangeEquivalent(perm string) string {
	return strings.Replace(perm, ".view_", ".change_", 1)
}

// Format builds a permission string from its parts.
func Format(namespace, action, resource string) string {
	return fmt.Sprintf("%s.%s_%s", namespace, action, resource)
}
