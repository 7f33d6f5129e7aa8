package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursebook/scopedauth/dto"
	"github.com/coursebook/scopedauth/models"
)

// HandleCreateAccessRequest opens a pending request for the calling user.
// Creating one's own request rides on the self-service grant, so no separate
// role is needed to ask for access.
func (s *Server) HandleCreateAccessRequest(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body dto.CreateAccessRequestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	// Built as pending so the requester's own self-service grant applies
	// to the permission check; the store forces pending on create anyway.
	req := models.AccessRequest{
		ScopeRef: models.NewScopeRef(body.ScopeType, body.ScopeUUID),
		RoleID:   body.RoleID,
		UserID:   user.ID,
		Decision: models.DecisionPending,
		Duration: models.Duration{
			DurationValue:  body.DurationValue,
			DurationPeriod: models.DurationPeriod(body.DurationPeriod),
		},
	}
	if !s.requirePermission(c, "auth.add_accessrequest", &req) {
		return
	}
	if err := s.AccessRequests.Create(c.Request.Context(), user.ID, &req); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (s *Server) HandleListOwnAccessRequests(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	reqs, err := s.AccessRequests.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessRequests": reqs})
}

func (s *Server) HandleListScopeAccessRequests(c *gin.Context) {
	ref := scopeRefFromPath(c)
	if !s.requirePermission(c, "auth.change_accessrequest", ref) {
		return
	}
	reqs, err := s.AccessRequests.ListForScope(c.Request.Context(), ref)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessRequests": reqs})
}

func (s *Server) HandleAcceptAccessRequest(c *gin.Context) {
	s.decideAccessRequest(c, models.DecisionAccepted)
}

func (s *Server) HandleDenyAccessRequest(c *gin.Context) {
	s.decideAccessRequest(c, models.DecisionDenied)
}

// decideAccessRequest checks the decision permission against the request
// object, so the escalation guard compares the approver's priority with the
// requested role.
func (s *Server) decideAccessRequest(c *gin.Context, decision models.Decision) {
	req, err := s.AccessRequests.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !s.requirePermission(c, "auth.change_accessrequest", req) {
		return
	}

	switch decision {
	case models.DecisionAccepted:
		req, err = s.AccessRequests.Accept(c.Request.Context(), actorID(c), req.ID)
	case models.DecisionDenied:
		req, err = s.AccessRequests.Deny(c.Request.Context(), actorID(c), req.ID)
	}
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// HandleDeleteAccessRequest removes a request. Users can delete their own
// through the self-service grant; scope staff need the delete permission.
func (s *Server) HandleDeleteAccessRequest(c *gin.Context) {
	req, err := s.AccessRequests.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !s.requirePermission(c, "auth.delete_accessrequest", req) {
		return
	}
	if err := s.AccessRequests.Delete(c.Request.Context(), req.ID); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
