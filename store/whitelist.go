package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/scope"
)

// WhitelistStore manages the three permission sets that exist outside of
// roles: the per-scope-type whitelist of role permissions, the global
// anonymous permission set, and the per-scope-instance public permissions.
type WhitelistStore struct {
	DB       *gorm.DB
	Registry *scope.Registry
}

func NewWhitelistStore(db *gorm.DB, reg *scope.Registry) *WhitelistStore {
	return &WhitelistStore{DB: db, Registry: reg}
}

// Allow whitelists a permission for roles of the given scope type.
// Re-allowing an already whitelisted permission is a no-op.
func (s *WhitelistStore) Allow(ctx context.Context, scopeType, perm string) error {
	scopeType = strings.ToLower(strings.TrimSpace(scopeType))
	if scopeType == "" || strings.TrimSpace(perm) == "" {
		return models.ErrInvalidData
	}
	if !s.Registry.IsScope(scopeType) {
		return fmt.Errorf("%w: %q", models.ErrScopeTypeInvalid, scopeType)
	}
	row := models.AllowedRolePermission{ID: models.NewID(), ScopeType: scopeType, Permission: perm}
	err := s.DB.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// Disallow removes a permission from the scope type's whitelist. Existing
// roles keep the permission; only future writes are affected.
func (s *WhitelistStore) Disallow(ctx context.Context, scopeType, perm string) error {
	scopeType = strings.ToLower(strings.TrimSpace(scopeType))
	return s.DB.WithContext(ctx).
		Where("scope_type = ? AND permission = ?", scopeType, perm).
		Delete(&models.AllowedRolePermission{}).Error
}

// AllowedPermissions lists the whitelist for a scope type.
func (s *WhitelistStore) AllowedPermissions(ctx context.Context, scopeType string) ([]string, error) {
	scopeType = strings.ToLower(strings.TrimSpace(scopeType))
	var perms []string
	err := s.DB.WithContext(ctx).Model(&models.AllowedRolePermission{}).
		Where("scope_type = ?", scopeType).
		Order("permission ASC").
		Pluck("permission", &perms).Error
	return perms, err
}

// Validate checks that every permission appears in the scope type's
// whitelist. When either the scope type or the permission list is empty the
// check is a no-op; otherwise a single disallowed permission rejects the
// whole write.
func (s *WhitelistStore) Validate(ctx context.Context, scopeType string, perms []string) error {
	scopeType = strings.ToLower(strings.TrimSpace(scopeType))
	if scopeType == "" || len(perms) == 0 {
		return nil
	}
	allowed, err := s.AllowedPermissions(ctx, scopeType)
	if err != nil {
		return err
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, p := range allowed {
		allowedSet[p] = struct{}{}
	}
	for _, p := range perms {
		if _, ok := allowedSet[p]; !ok {
			return fmt.Errorf("%w: %s", models.ErrPermissionNotAllowed, p)
		}
	}
	return nil
}

// GrantAnonymous adds a permission to the global anonymous set. Idempotent.
func (s *WhitelistStore) GrantAnonymous(ctx context.Context, perm string) error {
	if strings.TrimSpace(perm) == "" {
		return models.ErrInvalidData
	}
	row := models.AnonymousPermission{ID: models.NewID(), Permission: perm}
	err := s.DB.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// RevokeAnonymous removes a permission from the global anonymous set.
func (s *WhitelistStore) RevokeAnonymous(ctx context.Context, perm string) error {
	return s.DB.WithContext(ctx).
		Where("permission = ?", perm).
		Delete(&models.AnonymousPermission{}).Error
}

// ListAnonymous returns the global anonymous permission set.
func (s *WhitelistStore) ListAnonymous(ctx context.Context) ([]string, error) {
	var perms []string
	err := s.DB.WithContext(ctx).Model(&models.AnonymousPermission{}).
		Order("permission ASC").
		Pluck("permission", &perms).Error
	return perms, err
}

// SetPublicPermissions replaces the public permission set of a scope
// instance. The set is validated against the scope type's whitelist and
// written atomically.
func (s *WhitelistStore) SetPublicPermissions(ctx context.Context, actor string, ref models.ScopeRef, perms []string) error {
	if err := s.Registry.ValidateRef(ref); err != nil {
		return err
	}
	if err := s.Validate(ctx, ref.ScopeType, perms); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope_type = ? AND scope_uuid = ?", ref.ScopeType, ref.ScopeUUID).
			Delete(&models.PublicPermission{}).Error; err != nil {
			return err
		}
		for _, p := range perms {
			row := models.PublicPermission{ID: models.NewID(), ScopeRef: ref, Permission: p}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PublicPermissions lists the public permission set of a scope instance.
func (s *WhitelistStore) PublicPermissions(ctx context.Context, ref models.ScopeRef) ([]string, error) {
	var perms []string
	err := s.DB.WithContext(ctx).Model(&models.PublicPermission{}).
		Where("scope_type = ? AND scope_uuid = ?", ref.ScopeType, ref.ScopeUUID).
		Order("permission ASC").
		Pluck("permission", &perms).Error
	return perms, err
}
