package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/scope"
)

// EnrollmentMethodStore manages self-service enrollment configurations and
// executes enrollments against them.
type EnrollmentMethodStore struct {
	DB          *gorm.DB
	Registry    *scope.Registry
	Assignments *AssignmentStore
}

func NewEnrollmentMethodStore(db *gorm.DB, reg *scope.Registry, assignments *AssignmentStore) *EnrollmentMethodStore {
	return &EnrollmentMethodStore{DB: db, Registry: reg, Assignments: assignments}
}

// CreateMethod persists a new enrollment method. The method's scope must
// equal the role's scope; an unset scope is inherited from the role.
func (s *EnrollmentMethodStore) CreateMethod(ctx context.Context, actor string, method *models.EnrollmentMethod) error {
	if strings.TrimSpace(method.Name) == "" || method.RoleID == "" {
		return models.ErrInvalidData
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveScopeFromRole(tx, s.Registry, &method.ScopeRef, method.RoleID); err != nil {
			return err
		}
		if method.ID == "" {
			method.ID = models.NewID()
		}
		method.IsActive = true
		method.Touch(actor, time.Now().UTC())
		return tx.Create(method).Error
	})
}

// UpdateMethod rewrites an existing method's configuration.
func (s *EnrollmentMethodStore) UpdateMethod(ctx context.Context, actor string, method *models.EnrollmentMethod) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EnrollmentMethod
		if err := tx.Where("id = ?", method.ID).First(&existing).Error; err != nil {
			return notFound(err)
		}
		if err := resolveScopeFromRole(tx, s.Registry, &method.ScopeRef, method.RoleID); err != nil {
			return err
		}
		method.Touch(actor, time.Now().UTC())
		updates := map[string]interface{}{
			"name":            method.Name,
			"description":     method.Description,
			"passphrase":      method.Passphrase,
			"end_date":        method.EndDate,
			"duration_value":  method.DurationValue,
			"duration_period": method.DurationPeriod,
			"is_active":       method.IsActive,
			"modified_by":     method.ModifiedBy,
			"modified_at":     method.ModifiedAt,
		}
		return tx.Model(&models.EnrollmentMethod{}).Where("id = ?", existing.ID).Updates(updates).Error
	})
}

// GetMethod loads a method by id with its role.
func (s *EnrollmentMethodStore) GetMethod(ctx context.Context, id string) (*models.EnrollmentMethod, error) {
	var method models.EnrollmentMethod
	err := s.DB.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&method).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &method, nil
}

// ListMethods lists the enrollment methods of a scope.
func (s *EnrollmentMethodStore) ListMethods(ctx context.Context, ref models.ScopeRef) ([]models.EnrollmentMethod, error) {
	var methods []models.EnrollmentMethod
	err := s.DB.WithContext(ctx).Preload("Role").
		Where("scope_type = ? AND scope_uuid = ?", ref.ScopeType, ref.ScopeUUID).
		Order("name ASC").
		Find(&methods).Error
	return methods, err
}

// Enroll executes the method for a user: passphrase check, then idempotent
// assignment upsert. Permission checks are deliberately skipped on this
// path, since the assignment to evaluate against does not exist yet.
func (s *EnrollmentMethodStore) Enroll(ctx context.Context, actor string, methodID, userID, passphrase string) (*models.RoleAssignment, error) {
	method, err := s.GetMethod(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if !method.IsActive {
		return nil, fmt.Errorf("%w: enrollment method is inactive", models.ErrInvalidData)
	}
	return s.Assignments.Enroll(ctx, actor, method, userID, passphrase, true)
}

// Withdraw removes the assignment a user obtained through the method.
func (s *EnrollmentMethodStore) Withdraw(ctx context.Context, methodID, userID string) error {
	method, err := s.GetMethod(ctx, methodID)
	if err != nil {
		return err
	}
	return s.Assignments.Withdraw(ctx, method, userID)
}

// resolveScopeFromRole fills an unset scope reference from the role and
// rejects a set one that disagrees with the role's scope.
func resolveScopeFromRole(tx *gorm.DB, reg *scope.Registry, ref *models.ScopeRef, roleID string) error {
	var role models.Role
	if err := tx.Where("id = ?", roleID).First(&role).Error; err != nil {
		return notFound(err)
	}
	if ref.IsZero() {
		*ref = role.ScopeRef
	} else if !ref.Equal(role.ScopeRef) {
		return models.ErrScopeMismatch
	}
	return reg.ValidateRef(*ref)
}
