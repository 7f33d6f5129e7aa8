package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
)

// AuthzQueries is the read side consumed by the authorization engine. One
// instance satisfies authz.AnonymousSource, authz.ScopeSource and
// authz.ModelPermissionSource.
type AuthzQueries struct{ DB *gorm.DB }

func NewAuthzQueries(db *gorm.DB) *AuthzQueries { return &AuthzQueries{DB: db} }

// HasAnonymousPermission reports whether perm is globally granted to every
// caller.
func (q *AuthzQueries) HasAnonymousPermission(ctx context.Context, perm string) (bool, error) {
	var count int64
	err := q.DB.WithContext(ctx).Model(&models.AnonymousPermission{}).
		Where("permission = ?", perm).
		Count(&count).Error
	return count > 0, err
}

// HasPublicPermission reports whether the scope instance grants perm to
// every caller.
func (q *AuthzQueries) HasPublicPermission(ctx context.Context, ref models.ScopeRef, perm string) (bool, error) {
	var count int64
	err := q.DB.WithContext(ctx).Model(&models.PublicPermission{}).
		Where("scope_type = ? AND scope_uuid = ? AND permission = ?", ref.ScopeType, ref.ScopeUUID, perm).
		Count(&count).Error
	return count > 0, err
}

// HasRolePermission reports whether the user holds a currently valid
// assignment in the scope whose role bundles perm. Role deactivation does
// not retract existing assignments, so the role's active flag is not
// consulted here; the permission JSON is decoded in Go, matching how role
// permission sets are stored.
func (q *AuthzQueries) HasRolePermission(ctx context.Context, ref models.ScopeRef, userID, perm string) (bool, error) {
	roles, err := q.validRoles(ctx, ref, userID)
	if err != nil {
		return false, err
	}
	for i := range roles {
		if roles[i].HasPermission(perm) {
			return true, nil
		}
	}
	return false, nil
}

// HasPriorityAtLeast reports whether the user holds a currently valid
// assignment in the scope whose role priority is >= priority.
func (q *AuthzQueries) HasPriorityAtLeast(ctx context.Context, ref models.ScopeRef, userID string, priority int) (bool, error) {
	now := time.Now().UTC()
	var count int64
	err := q.DB.WithContext(ctx).Table("roles r").
		Joins("JOIN role_assignments ra ON ra.role_id = r.id").
		Where("ra.scope_type = ? AND ra.scope_uuid = ? AND ra.user_id = ?", ref.ScopeType, ref.ScopeUUID, userID).
		Where("ra.is_active").
		Where("ra.start_date IS NULL OR ra.start_date <= ?", now).
		Where("ra.end_date IS NULL OR ra.end_date >= ?", now).
		Where("r.priority >= ?", priority).
		Count(&count).Error
	return count > 0, err
}

// HasModelPermission reports whether an active user holds the model-level
// permission directly or through one of their groups.
func (q *AuthzQueries) HasModelPermission(ctx context.Context, userID, perm string) (bool, error) {
	var active int64
	err := q.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_active", userID).
		Count(&active).Error
	if err != nil || active == 0 {
		return false, err
	}

	var count int64
	err = q.DB.WithContext(ctx).Model(&models.UserPermission{}).
		Where("user_id = ? AND permission = ?", userID, perm).
		Count(&count).Error
	if err != nil || count > 0 {
		return count > 0, err
	}

	err = q.DB.WithContext(ctx).Table("group_permissions gp").
		Joins("JOIN user_groups ug ON ug.group_id = gp.group_id").
		Where("ug.user_id = ? AND gp.permission = ?", userID, perm).
		Count(&count).Error
	return count > 0, err
}

// validRoles loads the roles of the user's active, in-window assignments in
// the scope.
func (q *AuthzQueries) validRoles(ctx context.Context, ref models.ScopeRef, userID string) ([]models.Role, error) {
	now := time.Now().UTC()
	var roles []models.Role
	err := q.DB.WithContext(ctx).Table("roles r").Select("r.*").
		Joins("JOIN role_assignments ra ON ra.role_id = r.id").
		Where("ra.scope_type = ? AND ra.scope_uuid = ? AND ra.user_id = ?", ref.ScopeType, ref.ScopeUUID, userID).
		Where("ra.is_active").
		Where("ra.start_date IS NULL OR ra.start_date <= ?", now).
		Where("ra.end_date IS NULL OR ra.end_date >= ?", now).
		Scan(&roles).Error
	return roles, err
}
