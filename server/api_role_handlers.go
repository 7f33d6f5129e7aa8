package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursebook/scopedauth/dto"
	"github.com/coursebook/scopedauth/models"
)

// writeStoreError maps store errors onto HTTP responses in the common cases.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, models.ErrInvalidData),
		errors.Is(err, models.ErrPermissionNotAllowed),
		errors.Is(err, models.ErrScopeMismatch),
		errors.Is(err, models.ErrScopeTypeInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
	case errors.Is(err, models.ErrIncorrectPassphrase):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

// actorID names the calling user for audit fields; anonymous callers never
// reach the write paths, the permission checks stop them first.
func actorID(c *gin.Context) string {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return ""
}

func scopeRefFromPath(c *gin.Context) models.ScopeRef {
	return models.NewScopeRef(strings.TrimSpace(c.Param("type")), strings.TrimSpace(c.Param("uuid")))
}

// HandleCheckPermission answers whether the calling user holds a permission,
// optionally against a scope instance.
func (s *Server) HandleCheckPermission(c *gin.Context) {
	perm := strings.TrimSpace(c.Query("perm"))
	if perm == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "perm query parameter required"})
		return
	}

	var obj any
	if st, su := strings.TrimSpace(c.Query("scopeType")), strings.TrimSpace(c.Query("scopeUuid")); st != "" && su != "" {
		obj = models.NewScopeRef(st, su)
	}

	granted, err := s.Engine.HasPermission(c.Request.Context(), CurrentUser(c), perm, obj)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": granted})
}

// HandleUpsertRole creates a role, or updates it when the slug already exists
// in the scope. Updating keeps the persisted scope; a mismatched scope in the
// payload is rejected by the store.
func (s *Server) HandleUpsertRole(c *gin.Context) {
	var body dto.UpsertRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	ref := models.NewScopeRef(body.ScopeType, body.ScopeUUID)
	existing, err := s.Roles.GetRoleBySlug(c.Request.Context(), ref, models.NormalizeSlug(body.Slug))
	switch {
	case err == nil:
		if !s.requirePermission(c, "auth.change_role", existing) {
			return
		}
		existing.Name = body.Name
		existing.Description = body.Description
		existing.Priority = body.Priority
		existing.Permissions = body.Permissions
		if err := s.Roles.UpdateRole(c.Request.Context(), actorID(c), existing); err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, existing)
	case errors.Is(err, models.ErrNotFound):
		if !s.requirePermission(c, "auth.add_role", ref) {
			return
		}
		role := models.Role{
			ScopeRef:    ref,
			Slug:        body.Slug,
			Name:        body.Name,
			Description: body.Description,
			Priority:    body.Priority,
			Permissions: body.Permissions,
		}
		if err := s.Roles.CreateRole(c.Request.Context(), actorID(c), &role); err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusCreated, role)
	default:
		writeStoreError(c, err)
	}
}

func (s *Server) HandleListRoles(c *gin.Context) {
	ref := scopeRefFromPath(c)
	if !s.requirePermission(c, "auth.view_role", ref) {
		return
	}
	roles, err := s.Roles.ListRoles(c.Request.Context(), ref)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (s *Server) HandleGetRole(c *gin.Context) {
	role, err := s.Roles.GetRole(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !s.requirePermission(c, "auth.view_role", role) {
		return
	}
	c.JSON(http.StatusOK, role)
}

// HandleDeactivateRole retires a role. Assignments already granted stay
// valid; the role just stops being offered for new grants.
func (s *Server) HandleDeactivateRole(c *gin.Context) {
	role, err := s.Roles.GetRole(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !s.requirePermission(c, "auth.delete_role", role) {
		return
	}
	if err := s.Roles.DeactivateRole(c.Request.Context(), actorID(c), role.ID); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// Whitelist administration is model-level: the rows are keyed by scope type,
// not scope instance, so only holders of the model permission may touch them.

func (s *Server) HandleAllowPermission(c *gin.Context) {
	var body dto.WhitelistRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if !s.requirePermission(c, "auth.change_permissionwhitelist", nil) {
		return
	}
	if err := s.Whitelist.Allow(c.Request.Context(), body.ScopeType, body.Permission); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleDisallowPermission(c *gin.Context) {
	var body dto.WhitelistRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if !s.requirePermission(c, "auth.change_permissionwhitelist", nil) {
		return
	}
	if err := s.Whitelist.Disallow(c.Request.Context(), body.ScopeType, body.Permission); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleListWhitelist(c *gin.Context) {
	if !s.requirePermission(c, "auth.view_permissionwhitelist", nil) {
		return
	}
	perms, err := s.Whitelist.AllowedPermissions(c.Request.Context(), strings.TrimSpace(c.Param("type")))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

func (s *Server) HandleGrantAnonymous(c *gin.Context) {
	var body dto.AnonymousPermissionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if !s.requirePermission(c, "auth.change_permissionwhitelist", nil) {
		return
	}
	if err := s.Whitelist.GrantAnonymous(c.Request.Context(), body.Permission); err != nil {
		writeStoreError(c, err)
		return
	}
	s.invalidateAnonymous(c, body.Permission)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleRevokeAnonymous(c *gin.Context) {
	var body dto.AnonymousPermissionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if !s.requirePermission(c, "auth.change_permissionwhitelist", nil) {
		return
	}
	if err := s.Whitelist.RevokeAnonymous(c.Request.Context(), body.Permission); err != nil {
		writeStoreError(c, err)
		return
	}
	s.invalidateAnonymous(c, body.Permission)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) invalidateAnonymous(c *gin.Context, perm string) {
	if s.anonCache != nil {
		_ = s.anonCache.Invalidate(c.Request.Context(), perm)
	}
}

func (s *Server) HandleSetPublicPermissions(c *gin.Context) {
	var body dto.PublicPermissionsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	ref := models.NewScopeRef(body.ScopeType, body.ScopeUUID)
	if !s.requirePermission(c, "auth.change_permissionwhitelist", ref) {
		return
	}
	if err := s.Whitelist.SetPublicPermissions(c.Request.Context(), actorID(c), ref, body.Permissions); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
