package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopeRef is a polymorphic pointer to the entity instance that hosts roles:
// a registered scope type plus the instance UUID. All role-related records
// (Role, RoleAssignment, EnrollmentMethod, AccessRequest, public permissions)
// embed this value instead of a typed foreign key, so any registered entity
// type can act as a scope.
type ScopeRef struct {
	ScopeType string `gorm:"column:scope_type;index" json:"scope_type"`
	ScopeUUID string `gorm:"column:scope_uuid;index" json:"scope_uuid"`
}

// NewScopeRef builds a scope reference. The scope type is normalized to
// lowercase; registry validation happens at the store boundary.
func NewScopeRef(scopeType, scopeUUID string) ScopeRef {
	return ScopeRef{
		ScopeType: strings.ToLower(strings.TrimSpace(scopeType)),
		ScopeUUID: strings.TrimSpace(scopeUUID),
	}
}

// Scope returns the reference itself. Embedding types thereby satisfy the
// authz.Scoped capability without further code.
func (r ScopeRef) Scope() ScopeRef { return r }

// IsZero reports whether the reference is unset.
func (r ScopeRef) IsZero() bool { return r.ScopeType == "" && r.ScopeUUID == "" }

// Equal reports whether two references point at the same scope instance.
func (r ScopeRef) Equal(other ScopeRef) bool {
	return r.ScopeType == other.ScopeType && r.ScopeUUID == other.ScopeUUID
}

// AuditFields records who created and last modified a row. Populated by the
// stores from the explicit actor parameter; empty actor means an anonymous or
// system write.
type AuditFields struct {
	CreatedBy  string    `gorm:"column:created_by" json:"created_by"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	ModifiedBy string    `gorm:"column:modified_by" json:"modified_by"`
	ModifiedAt time.Time `gorm:"column:modified_at" json:"modified_at"`
}

// Touch stamps the audit fields for a write by the given actor.
func (a *AuditFields) Touch(actor string, now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
		a.CreatedBy = actor
	}
	a.ModifiedAt = now
	a.ModifiedBy = actor
}

// NewID generates a hyphenated UUID string used as primary key for all
// entities in this module.
func NewID() string {
	return uuid.Must(uuid.NewRandom()).String()
}
