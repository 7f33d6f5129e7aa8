package dto

import "time"

// UpsertEnrollmentMethodRequest creates or updates a self-enrollment method.
// The scope may be omitted; it is then inherited from the role.
type UpsertEnrollmentMethodRequest struct {
	ScopeType      string     `json:"scopeType"`
	ScopeUUID      string     `json:"scopeUuid"`
	RoleID         string     `json:"roleId"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Passphrase     string     `json:"passphrase"`
	EndDate        *time.Time `json:"endDate"`
	DurationValue  float64    `json:"durationValue"`
	DurationPeriod string     `json:"durationPeriod"`
	IsActive       *bool      `json:"isActive"`
}

// EnrollRequest enrolls the calling user through an enrollment method.
type EnrollRequest struct {
	Passphrase string `json:"passphrase"`
}

// CreateAccessRequestRequest opens an access request for the calling user.
type CreateAccessRequestRequest struct {
	ScopeType      string  `json:"scopeType"`
	ScopeUUID      string  `json:"scopeUuid"`
	RoleID         string  `json:"roleId"`
	DurationValue  float64 `json:"durationValue"`
	DurationPeriod string  `json:"durationPeriod"`
}

// AssignRoleRequest creates a manual role assignment.
type AssignRoleRequest struct {
	RoleID    string     `json:"roleId"`
	UserID    string     `json:"userId"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}
