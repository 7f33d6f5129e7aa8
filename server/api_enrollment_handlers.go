package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursebook/scopedauth/dto"
	"github.com/coursebook/scopedauth/models"
)

// HandleAssignRole creates a manual role assignment in the scope. The check
// runs against a prospective assignment carrying the role, so granting a role
// above the caller's own priority is blocked.
func (s *Server) HandleAssignRole(c *gin.Context) {
	ref := scopeRefFromPath(c)
	var body dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	role, err := s.Roles.GetRole(c.Request.Context(), body.RoleID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !ref.Equal(role.ScopeRef) {
		writeStoreError(c, models.ErrScopeMismatch)
		return
	}
	prospective := models.RoleAssignment{ScopeRef: ref, RoleID: role.ID, Role: role, UserID: body.UserID}
	if !s.requirePermission(c, "auth.add_roleassignment", &prospective) {
		return
	}

	assignment, err := s.Assignments.Assign(c.Request.Context(), actorID(c), body.RoleID, body.UserID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (s *Server) HandleListAssignments(c *gin.Context) {
	ref := scopeRefFromPath(c)
	if !s.requirePermission(c, "auth.view_roleassignment", ref) {
		return
	}
	assignments, err := s.Assignments.ListForScope(c.Request.Context(), ref)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

func (s *Server) HandleRemoveAssignment(c *gin.Context) {
	assignment, err := s.Assignments.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !s.requirePermission(c, "auth.delete_roleassignment", assignment) {
		return
	}
	if err := s.Assignments.Remove(c.Request.Context(), assignment.ID); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// HandleUpsertEnrollmentMethod creates or updates a self-enrollment method.
func (s *Server) HandleUpsertEnrollmentMethod(c *gin.Context) {
	var body dto.UpsertEnrollmentMethodRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	method := models.EnrollmentMethod{
		ScopeRef:    models.NewScopeRef(body.ScopeType, body.ScopeUUID),
		RoleID:      body.RoleID,
		Name:        body.Name,
		Description: body.Description,
		EndDate:     body.EndDate,
		Duration: models.Duration{
			DurationValue:  body.DurationValue,
			DurationPeriod: models.DurationPeriod(body.DurationPeriod),
		},
		IsActive: true,
	}
	if body.IsActive != nil {
		method.IsActive = *body.IsActive
	}
	if body.Passphrase != "" {
		if err := method.SetPassphrase(body.Passphrase); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
			return
		}
	}

	// The escalation guard resolves the target priority through the role,
	// so it must be loaded before the permission check.
	role, err := s.Roles.GetRole(c.Request.Context(), body.RoleID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	method.Role = role
	if method.ScopeRef.IsZero() {
		method.ScopeRef = role.ScopeRef
	}

	if !s.requirePermission(c, "auth.add_enrollmentmethod", &method) {
		return
	}
	method.Role = nil
	if err := s.Enrollments.CreateMethod(c.Request.Context(), actorID(c), &method); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, method)
}

func (s *Server) HandleListEnrollmentMethods(c *gin.Context) {
	ref := scopeRefFromPath(c)
	if !s.requirePermission(c, "auth.view_enrollmentmethod", ref) {
		return
	}
	methods, err := s.Enrollments.ListMethods(c.Request.Context(), ref)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollmentMethods": methods})
}

// HandleEnroll enrolls the calling user through an enrollment method. Any
// authenticated user may try; knowledge of the passphrase is the gate.
func (s *Server) HandleEnroll(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body dto.EnrollRequest
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	assignment, err := s.Enrollments.Enroll(c.Request.Context(), user.ID, strings.TrimSpace(c.Param("id")), user.ID, body.Passphrase)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// HandleWithdraw removes the calling user's assignment created through the
// enrollment method.
func (s *Server) HandleWithdraw(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := s.Enrollments.Withdraw(c.Request.Context(), strings.TrimSpace(c.Param("id")), user.ID); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
