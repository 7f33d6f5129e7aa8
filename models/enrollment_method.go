package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// EnrollmentMethod is a self-service configuration that users invoke to
// obtain a role assignment. It can be protected with a passphrase and can
// limit the assignment's validity with a fixed end date or a duration.
//
// The passphrase column stores a bcrypt hash; take care to never expose it
// when methods are queried or listed.
type EnrollmentMethod struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`
	ScopeRef
	RoleID      string     `gorm:"column:role_id;index" json:"role_id"`
	Role        *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Name        string     `gorm:"column:name" json:"name"`
	Description string     `gorm:"column:description" json:"description"`
	Passphrase  string     `gorm:"column:passphrase" json:"-"`
	EndDate     *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	IsActive    bool       `gorm:"column:is_active" json:"is_active"`
	Duration
	AuditFields
}

func (EnrollmentMethod) TableName() string { return "enrollment_methods" }

// SetPassphrase hashes and stores the passphrase. An empty value clears the
// passphrase, making enrollment unprotected.
func (m *EnrollmentMethod) SetPassphrase(plain string) error {
	if plain == "" {
		m.Passphrase = ""
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.Passphrase = string(hash)
	return nil
}

// VerifyPassphrase checks the supplied passphrase against the stored hash.
// Methods without a passphrase accept anything.
func (m *EnrollmentMethod) VerifyPassphrase(supplied string) error {
	if m.Passphrase == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(m.Passphrase), []byte(supplied)) != nil {
		return ErrIncorrectPassphrase
	}
	return nil
}

// EnrollmentRoleID implements Enrollment.
func (m *EnrollmentMethod) EnrollmentRoleID() string { return m.RoleID }

// Method implements Enrollment.
func (m *EnrollmentMethod) Method() AssignmentMethod { return AssignmentSelfEnrollment }

// SubjectUserID implements Enrollment. Enrollment methods carry no user; the
// caller must supply one.
func (m *EnrollmentMethod) SubjectUserID() string { return "" }

// EndDateOverride implements Enrollment.
func (m *EnrollmentMethod) EndDateOverride() *time.Time { return m.EndDate }

// EnrollmentDuration implements Enrollment.
func (m *EnrollmentMethod) EnrollmentDuration() *Duration {
	if m.Duration.IsZero() {
		return nil
	}
	d := m.Duration
	return &d
}

// SourceIDs implements Enrollment.
func (m *EnrollmentMethod) SourceIDs() (string, string) { return m.ID, "" }

// RolePriority exposes the referenced role's priority for the escalation
// guard. ok is false when the role association is not loaded.
func (m *EnrollmentMethod) RolePriority() (int, bool) {
	if m.Role == nil {
		return 0, false
	}
	return m.Role.Priority, true
}
