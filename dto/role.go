package dto

import "encoding/json"

// UpsertRoleRequest is the payload for creating or updating a role.
type UpsertRoleRequest struct {
	ScopeType   string          `json:"scopeType"`
	ScopeUUID   string          `json:"scopeUuid"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Priority    int             `json:"priority"`
	Permissions json.RawMessage `json:"permissions"`
}

// WhitelistRequest adds or removes a whitelisted permission for a scope type.
type WhitelistRequest struct {
	ScopeType  string `json:"scopeType"`
	Permission string `json:"permission"`
}

// PublicPermissionsRequest replaces the public permission set of one scope
// instance.
type PublicPermissionsRequest struct {
	ScopeType   string   `json:"scopeType"`
	ScopeUUID   string   `json:"scopeUuid"`
	Permissions []string `json:"permissions"`
}

// AnonymousPermissionRequest grants or revokes a site-wide anonymous
// permission.
type AnonymousPermissionRequest struct {
	Permission string `json:"permission"`
}
