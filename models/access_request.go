package models

import (
	"strings"
	"time"
)

// Decision is the state of an access request.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionDenied   Decision = "denied"
)

// IsValid returns true if d is one of the allowed constants.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionPending, DecisionAccepted, DecisionDenied:
		return true
	}
	return false
}

// AccessRequest is a user-initiated request for a role within a scope. New
// requests are always forced to pending; accepting creates the matching role
// assignment and denying removes it. Decided requests are final; a new
// request must be created to retry.
//
// Take care to exclude decision and decision_date from caller-writable
// payloads; the store enforces both on every save.
type AccessRequest struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`
	ScopeRef
	RoleID       string     `gorm:"column:role_id;index" json:"role_id"`
	Role         *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	UserID       string     `gorm:"column:user_id;index" json:"user_id"`
	Decision     Decision   `gorm:"column:decision" json:"decision"`
	DecisionDate *time.Time `gorm:"column:decision_date" json:"decision_date,omitempty"`
	EndDate      *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	Duration
	AuditFields
}

func (AccessRequest) TableName() string { return "access_requests" }

// EnrollmentRoleID implements Enrollment.
func (r *AccessRequest) EnrollmentRoleID() string { return r.RoleID }

// Method implements Enrollment.
func (r *AccessRequest) Method() AssignmentMethod { return AssignmentAccessRequest }

// SubjectUserID implements Enrollment. The request itself names the user.
func (r *AccessRequest) SubjectUserID() string { return r.UserID }

// EndDateOverride implements Enrollment.
func (r *AccessRequest) EndDateOverride() *time.Time { return r.EndDate }

// EnrollmentDuration implements Enrollment.
func (r *AccessRequest) EnrollmentDuration() *Duration {
	if r.Duration.IsZero() {
		return nil
	}
	d := r.Duration
	return &d
}

// VerifyPassphrase implements Enrollment. The granted request is itself the
// authorization artifact, so there is nothing to check.
func (r *AccessRequest) VerifyPassphrase(string) error { return nil }

// SourceIDs implements Enrollment.
func (r *AccessRequest) SourceIDs() (string, string) { return "", r.ID }

// RolePriority exposes the requested role's priority for the escalation
// guard. ok is false when the role association is not loaded.
func (r *AccessRequest) RolePriority() (int, bool) {
	if r.Role == nil {
		return 0, false
	}
	return r.Role.Priority, true
}

// SelfServicePermission grants users limited control over their own
// requests: viewing and deleting is always allowed, creating is allowed
// while the request is pending. Everything else falls back to the generic
// scope and priority checks.
func (r *AccessRequest) SelfServicePermission(userID, perm string) bool {
	if userID == "" || userID != r.UserID {
		return false
	}
	if strings.Contains(perm, ".view_") || strings.Contains(perm, ".delete_") {
		return true
	}
	if strings.Contains(perm, ".add_") && r.Decision == DecisionPending {
		return true
	}
	return false
}
