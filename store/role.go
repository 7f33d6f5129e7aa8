package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/scope"
)

// RoleStore manages the role definitions of a scope. Every write validates
// the scope reference against the registry and the permission set against
// the scope type's whitelist; a rejected write leaves the role unchanged.
type RoleStore struct {
	DB        *gorm.DB
	Registry  *scope.Registry
	Whitelist *WhitelistStore
}

func NewRoleStore(db *gorm.DB, reg *scope.Registry, wl *WhitelistStore) *RoleStore {
	return &RoleStore{DB: db, Registry: reg, Whitelist: wl}
}

// CreateRole persists a new role. Slug must be unique within the scope.
func (s *RoleStore) CreateRole(ctx context.Context, actor string, role *models.Role) error {
	role.Slug = models.NormalizeSlug(role.Slug)
	if err := s.validate(ctx, role); err != nil {
		return err
	}
	if role.ID == "" {
		role.ID = models.NewID()
	}
	role.IsActive = true
	role.Touch(actor, time.Now().UTC())
	err := s.DB.WithContext(ctx).Create(role).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: slug %q already exists in scope", models.ErrInvalidData, role.Slug)
	}
	return err
}

// UpdateRole rewrites name, description, priority, permission set and active
// flag of an existing role. The permission set is revalidated.
func (s *RoleStore) UpdateRole(ctx context.Context, actor string, role *models.Role) error {
	role.Slug = models.NormalizeSlug(role.Slug)
	if err := s.validate(ctx, role); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Role
		if err := tx.Where("id = ?", role.ID).First(&existing).Error; err != nil {
			return notFound(err)
		}
		if !existing.ScopeRef.Equal(role.ScopeRef) {
			return models.ErrScopeMismatch
		}
		role.Touch(actor, time.Now().UTC())
		updates := map[string]interface{}{
			"slug":        role.Slug,
			"name":        role.Name,
			"description": role.Description,
			"priority":    role.Priority,
			"permissions": role.Permissions,
			"is_active":   role.IsActive,
			"modified_by": role.ModifiedBy,
			"modified_at": role.ModifiedAt,
		}
		return tx.Model(&models.Role{}).Where("id = ?", existing.ID).Updates(updates).Error
	})
}

// DeactivateRole suppresses new grants of the role. Existing assignments
// are not retracted.
func (s *RoleStore) DeactivateRole(ctx context.Context, actor string, id string) error {
	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "modified_by": actor, "modified_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetRole loads a role by id.
func (s *RoleStore) GetRole(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// GetRoleBySlug loads a role by scope and slug.
func (s *RoleStore) GetRoleBySlug(ctx context.Context, ref models.ScopeRef, slug string) (*models.Role, error) {
	var role models.Role
	err := s.DB.WithContext(ctx).
		Where("scope_type = ? AND scope_uuid = ? AND slug = ?", ref.ScopeType, ref.ScopeUUID, models.NormalizeSlug(slug)).
		First(&role).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// ListRoles lists all roles of a scope, ordered by priority then slug.
func (s *RoleStore) ListRoles(ctx context.Context, ref models.ScopeRef) ([]models.Role, error) {
	var roles []models.Role
	err := s.DB.WithContext(ctx).
		Where("scope_type = ? AND scope_uuid = ?", ref.ScopeType, ref.ScopeUUID).
		Order("priority DESC, slug ASC").
		Find(&roles).Error
	return roles, err
}

func (s *RoleStore) validate(ctx context.Context, role *models.Role) error {
	if role.Slug == "" || strings.TrimSpace(role.Name) == "" {
		return models.ErrInvalidData
	}
	if role.Priority < 0 {
		return fmt.Errorf("%w: negative priority", models.ErrInvalidData)
	}
	if err := s.Registry.ValidateRef(role.ScopeRef); err != nil {
		return err
	}
	return s.Whitelist.Validate(ctx, role.ScopeType, role.PermissionList())
}
