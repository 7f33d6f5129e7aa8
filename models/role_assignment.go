package models

import "time"

// AssignmentMethod tags how a role assignment came to be.
type AssignmentMethod string

const (
	AssignmentManual         AssignmentMethod = "manual"
	AssignmentSelfEnrollment AssignmentMethod = "self-enrollment"
	AssignmentAccessRequest  AssignmentMethod = "access-request"
)

// RoleAssignment grants a role to a user within a scope, optionally
// time-bounded. Unique on (scope_type, scope_uuid, role_id, user_id): a user
// cannot hold the same role twice in the same scope.
type RoleAssignment struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`
	ScopeRef
	RoleID             string           `gorm:"column:role_id;index" json:"role_id"`
	Role               *Role            `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	UserID             string           `gorm:"column:user_id;index" json:"user_id"`
	AssignmentMethod   AssignmentMethod `gorm:"column:assignment_method" json:"assignment_method"`
	StartDate          *time.Time       `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate            *time.Time       `gorm:"column:end_date" json:"end_date,omitempty"`
	IsActive           bool             `gorm:"column:is_active" json:"is_active"`
	EnrollmentMethodID *string          `gorm:"column:enrollment_method_id" json:"enrollment_method_id,omitempty"`
	AccessRequestID    *string          `gorm:"column:access_request_id;uniqueIndex" json:"access_request_id,omitempty"`
	AuditFields
}

func (RoleAssignment) TableName() string { return "role_assignments" }

// ValidAt reports whether the assignment is active and its validity window
// contains the given time. Expiry is evaluated, never actively purged.
func (a *RoleAssignment) ValidAt(t time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartDate != nil && t.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && t.After(*a.EndDate) {
		return false
	}
	return true
}

// RolePriority exposes the priority of the referenced role for the
// escalation guard. ok is false when the role association is not loaded.
func (a *RoleAssignment) RolePriority() (int, bool) {
	if a.Role == nil {
		return 0, false
	}
	return a.Role.Priority, true
}

// Enrollment is satisfied by *EnrollmentMethod and *AccessRequest. Both carry
// a scope, a role and optional validity information that translate into a
// role assignment through the shared enroll/withdraw routine.
type Enrollment interface {
	// Scope is the scope the resulting assignment belongs to.
	Scope() ScopeRef
	// EnrollmentRoleID is the role to assign.
	EnrollmentRoleID() string
	// Method tags the resulting assignment.
	Method() AssignmentMethod
	// SubjectUserID is the enrolled user, or empty when the caller must
	// supply one explicitly.
	SubjectUserID() string
	// EndDateOverride wins over any duration when set.
	EndDateOverride() *time.Time
	// EnrollmentDuration computes the end date relative to enrollment time;
	// nil means open-ended.
	EnrollmentDuration() *Duration
	// VerifyPassphrase returns ErrIncorrectPassphrase on mismatch. Sources
	// without a passphrase always succeed.
	VerifyPassphrase(supplied string) error
	// SourceIDs returns the originating enrollment method id and access
	// request id, either of which may be empty.
	SourceIDs() (enrollmentMethodID, accessRequestID string)
}
