package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/scope"
)

// AssignmentStore manages role assignments: manual grants plus the shared
// enroll/withdraw routine used by enrollment methods and access requests.
type AssignmentStore struct {
	DB       *gorm.DB
	Registry *scope.Registry
}

func NewAssignmentStore(db *gorm.DB, reg *scope.Registry) *AssignmentStore {
	return &AssignmentStore{DB: db, Registry: reg}
}

// Assign manually grants a role to a user. The assignment's scope is taken
// from the role. Granting the same role twice yields the existing
// assignment unchanged.
func (s *AssignmentStore) Assign(ctx context.Context, actor string, roleID, userID string) (*models.RoleAssignment, error) {
	if userID == "" {
		return nil, models.ErrMissingUser
	}
	var result *models.RoleAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("id = ?", roleID).First(&role).Error; err != nil {
			return notFound(err)
		}
		if err := s.Registry.ValidateRef(role.ScopeRef); err != nil {
			return err
		}
		existing, err := getAssignment(tx, role.ScopeRef, roleID, userID)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		assignment := &models.RoleAssignment{
			ID:               models.NewID(),
			ScopeRef:         role.ScopeRef,
			RoleID:           roleID,
			UserID:           userID,
			AssignmentMethod: models.AssignmentManual,
			StartDate:        &now,
			IsActive:         true,
		}
		assignment.Touch(actor, now)
		if err := tx.Create(assignment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result, err = getAssignment(tx, role.ScopeRef, roleID, userID)
				return err
			}
			return err
		}
		result = assignment
		return nil
	})
	return result, err
}

// Enroll applies an enrollment method or access request to a user,
// effectively adding the role assignment. The subject user may be supplied
// explicitly or carried by the enrollment source (access requests); a
// missing user is a usage error.
//
// Enrollment is an idempotent upsert: a second enrollment with the same
// inputs updates the existing assignment's end date instead of duplicating
// it, and an insert race on the unique constraint is converted into the
// same update.
func (s *AssignmentStore) Enroll(ctx context.Context, actor string, enr models.Enrollment, userID, passphrase string, checkPassphrase bool) (*models.RoleAssignment, error) {
	if checkPassphrase {
		if err := enr.VerifyPassphrase(passphrase); err != nil {
			return nil, err
		}
	}
	if userID == "" {
		userID = enr.SubjectUserID()
	}
	if userID == "" {
		return nil, models.ErrMissingUser
	}

	var result *models.RoleAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.enrollTx(tx, actor, enr, userID)
		return err
	})
	return result, err
}

// enrollTx runs the enroll upsert inside an existing transaction so that
// access-request decisions commit atomically with the assignment change.
func (s *AssignmentStore) enrollTx(tx *gorm.DB, actor string, enr models.Enrollment, userID string) (*models.RoleAssignment, error) {
	ref := enr.Scope()
	roleID := enr.EnrollmentRoleID()
	now := time.Now().UTC()

	assignment, err := getAssignment(tx, ref, roleID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		assignment = &models.RoleAssignment{
			ID:               models.NewID(),
			ScopeRef:         ref,
			RoleID:           roleID,
			UserID:           userID,
			AssignmentMethod: enr.Method(),
			StartDate:        &now,
			IsActive:         true,
		}
		if emID, arID := enr.SourceIDs(); emID != "" {
			assignment.EnrollmentMethodID = &emID
		} else if arID != "" {
			assignment.AccessRequestID = &arID
		}
		applyEndDate(assignment, enr, now)
		assignment.Touch(actor, now)
		err = tx.Create(assignment).Error
		if err == nil {
			return assignment, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Lost the insert race: the user is already enrolled. Reload and
		// fall through to the update path.
		assignment, err = getAssignment(tx, ref, roleID, userID)
	}
	if err != nil {
		return nil, err
	}

	applyEndDate(assignment, enr, now)
	assignment.Touch(actor, now)
	if err := tx.Save(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

// Withdraw removes the role assignment matching the enrollment source and
// user. Removing a non-existent assignment is a no-op.
func (s *AssignmentStore) Withdraw(ctx context.Context, enr models.Enrollment, userID string) error {
	if userID == "" {
		userID = enr.SubjectUserID()
	}
	if userID == "" {
		return models.ErrMissingUser
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.withdrawTx(tx, enr, userID)
	})
}

func (s *AssignmentStore) withdrawTx(tx *gorm.DB, enr models.Enrollment, userID string) error {
	ref := enr.Scope()
	return tx.Where("scope_type = ? AND scope_uuid = ? AND role_id = ? AND user_id = ?",
		ref.ScopeType, ref.ScopeUUID, enr.EnrollmentRoleID(), userID).
		Delete(&models.RoleAssignment{}).Error
}

// Remove deletes an assignment by id.
func (s *AssignmentStore) Remove(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.RoleAssignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Get loads an assignment by id with its role.
func (s *AssignmentStore) Get(ctx context.Context, id string) (*models.RoleAssignment, error) {
	var assignment models.RoleAssignment
	err := s.DB.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&assignment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &assignment, nil
}

// ListForUser lists a user's assignments within a scope, roles preloaded.
func (s *AssignmentStore) ListForUser(ctx context.Context, ref models.ScopeRef, userID string) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := s.DB.WithContext(ctx).Preload("Role").
		Where("scope_type = ? AND scope_uuid = ? AND user_id = ?", ref.ScopeType, ref.ScopeUUID, userID).
		Find(&assignments).Error
	return assignments, err
}

// ListForScope lists every assignment within a scope, roles preloaded.
func (s *AssignmentStore) ListForScope(ctx context.Context, ref models.ScopeRef) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := s.DB.WithContext(ctx).Preload("Role").
		Where("scope_type = ? AND scope_uuid = ?", ref.ScopeType, ref.ScopeUUID).
		Find(&assignments).Error
	return assignments, err
}

func getAssignment(tx *gorm.DB, ref models.ScopeRef, roleID, userID string) (*models.RoleAssignment, error) {
	var assignment models.RoleAssignment
	err := tx.Where("scope_type = ? AND scope_uuid = ? AND role_id = ? AND user_id = ?",
		ref.ScopeType, ref.ScopeUUID, roleID, userID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// applyEndDate computes the assignment's end date from the enrollment
// source: an explicit end date wins, else a configured duration is added to
// the enrollment time, else the current end date is left untouched.
func applyEndDate(assignment *models.RoleAssignment, enr models.Enrollment, now time.Time) {
	if end := enr.EndDateOverride(); end != nil {
		e := *end
		assignment.EndDate = &e
	} else if d := enr.EnrollmentDuration(); d != nil {
		e := d.AddTo(now)
		assignment.EndDate = &e
	}
}
