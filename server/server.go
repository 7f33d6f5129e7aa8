// Package server exposes the scoped authorization engine over HTTP.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/authz"
	"github.com/coursebook/scopedauth/scope"
	"github.com/coursebook/scopedauth/store"
)

// Server wires the stores and the authorization engine behind a gin router.
type Server struct {
	Cfg      *AppConfig
	DB       *gorm.DB
	Registry *scope.Registry

	Users          *store.UserStore
	Whitelist      *store.WhitelistStore
	Roles          *store.RoleStore
	Assignments    *store.AssignmentStore
	Enrollments    *store.EnrollmentMethodStore
	AccessRequests *store.AccessRequestStore
	Queries        *store.AuthzQueries
	Engine         *authz.Engine

	anonCache *store.ValkeyAnonymousCache
}

// NewServer builds a fully wired Server from the given database handle. The
// scope registry starts empty; callers register their scope types before
// serving.
func NewServer(cfg *AppConfig, db *gorm.DB, reg *scope.Registry) *Server {
	s := &Server{Cfg: cfg, DB: db, Registry: reg}
	s.Users = store.NewUserStore(db)
	s.Whitelist = store.NewWhitelistStore(db, reg)
	s.Roles = store.NewRoleStore(db, reg, s.Whitelist)
	s.Assignments = store.NewAssignmentStore(db, reg)
	s.Enrollments = store.NewEnrollmentMethodStore(db, reg, s.Assignments)
	s.AccessRequests = store.NewAccessRequestStore(db, reg, s.Assignments)
	s.Queries = store.NewAuthzQueries(db)

	var anon authz.AnonymousSource = s.Queries
	if cfg != nil && cfg.Valkey.Addr != "" {
		cache, err := store.NewValkeyAnonymousCache(cfg.Valkey.Addr, cfg.Valkey.Prefix, 30*time.Second, s.Queries)
		if err != nil {
			log.Printf("server: valkey unavailable, anonymous cache disabled: %v", err)
		} else {
			s.anonCache = cache
			anon = cache
		}
	}
	s.Engine = authz.NewEngine(anon, s.Queries, s.Queries)
	return s
}

// Close releases resources held by the server.
func (s *Server) Close() {
	if s.anonCache != nil {
		s.anonCache.Close()
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", s.TokenMiddleware())
	{
		api.GET("/check", s.HandleCheckPermission)

		api.POST("/roles", s.HandleUpsertRole)
		api.GET("/scopes/:type/:uuid/roles", s.HandleListRoles)
		api.GET("/roles/:id", s.HandleGetRole)
		api.DELETE("/roles/:id", s.HandleDeactivateRole)

		api.POST("/whitelist", s.HandleAllowPermission)
		api.DELETE("/whitelist", s.HandleDisallowPermission)
		api.GET("/whitelist/:type", s.HandleListWhitelist)
		api.POST("/anonymous-permissions", s.HandleGrantAnonymous)
		api.DELETE("/anonymous-permissions", s.HandleRevokeAnonymous)
		api.PUT("/public-permissions", s.HandleSetPublicPermissions)

		api.POST("/scopes/:type/:uuid/assignments", s.HandleAssignRole)
		api.GET("/scopes/:type/:uuid/assignments", s.HandleListAssignments)
		api.DELETE("/assignments/:id", s.HandleRemoveAssignment)

		api.POST("/enrollment-methods", s.HandleUpsertEnrollmentMethod)
		api.GET("/scopes/:type/:uuid/enrollment-methods", s.HandleListEnrollmentMethods)
		api.POST("/enrollment-methods/:id/enroll", s.HandleEnroll)
		api.POST("/enrollment-methods/:id/withdraw", s.HandleWithdraw)

		api.POST("/access-requests", s.HandleCreateAccessRequest)
		api.GET("/access-requests/mine", s.HandleListOwnAccessRequests)
		api.GET("/scopes/:type/:uuid/access-requests", s.HandleListScopeAccessRequests)
		api.POST("/access-requests/:id/accept", s.HandleAcceptAccessRequest)
		api.POST("/access-requests/:id/deny", s.HandleDenyAccessRequest)
		api.DELETE("/access-requests/:id", s.HandleDeleteAccessRequest)
	}
	return r
}
