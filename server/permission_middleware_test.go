package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"

	"github.com/coursebook/scopedauth/authz"
	"github.com/coursebook/scopedauth/models"
)

// fakeSources backs the engine without a database.
type fakeSources struct {
	anonymous map[string]bool
	public    map[string]bool
	roles     map[string]bool // userID+perm within the single test scope
	priority  map[string]int
	model     map[string]bool // userID+perm
}

func (f *fakeSources) HasAnonymousPermission(_ context.Context, perm string) (bool, error) {
	return f.anonymous[perm], nil
}

func (f *fakeSources) HasPublicPermission(_ context.Context, _ models.ScopeRef, perm string) (bool, error) {
	return f.public[perm], nil
}

func (f *fakeSources) HasRolePermission(_ context.Context, _ models.ScopeRef, userID, perm string) (bool, error) {
	return f.roles[userID+"|"+perm], nil
}

func (f *fakeSources) HasPriorityAtLeast(_ context.Context, _ models.ScopeRef, userID string, priority int) (bool, error) {
	return f.priority[userID] >= priority, nil
}

func (f *fakeSources) HasModelPermission(_ context.Context, userID, perm string) (bool, error) {
	return f.model[userID+"|"+perm], nil
}

// setUser is a stand-in for the token middleware in handler tests.
func setUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(currentUserKey, user)
		}
		c.Next()
	}
}

func newFakeServer(f *fakeSources) *Server {
	return &Server{Engine: authz.NewEngine(f, f, f)}
}

func TestRequireAuthorization(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeSources{
		anonymous: map[string]bool{},
		public:    map[string]bool{},
		roles:     map[string]bool{"u1|courses.change_course": true},
		priority:  map[string]int{},
		model:     map[string]bool{},
	}
	s := newFakeServer(f)
	ref := models.NewScopeRef("course", "c-1")
	resolve := func(*gin.Context) (any, error) { return ref, nil }

	newRouter := func(user *models.User) *gin.Engine {
		r := gin.New()
		r.POST("/edit", setUser(user), s.RequireAuthorization("courses.change_course", resolve), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		})
		return r
	}

	holder := &models.User{ID: "u1", IsActive: true}
	ts := httptest.NewServer(newRouter(holder))
	defer ts.Close()
	httpexpect.Default(t, ts.URL).POST("/edit").Expect().Status(http.StatusOK)

	stranger := &models.User{ID: "u2", IsActive: true}
	ts2 := httptest.NewServer(newRouter(stranger))
	defer ts2.Close()
	httpexpect.Default(t, ts2.URL).POST("/edit").Expect().Status(http.StatusForbidden)

	// Anonymous caller, no grant anywhere.
	ts3 := httptest.NewServer(newRouter(nil))
	defer ts3.Close()
	httpexpect.Default(t, ts3.URL).POST("/edit").Expect().Status(http.StatusForbidden)
}

func TestRequireAuthorizationSuperuser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeSources{
		anonymous: map[string]bool{},
		public:    map[string]bool{},
		roles:     map[string]bool{},
		priority:  map[string]int{},
		model:     map[string]bool{},
	}
	s := newFakeServer(f)

	root := &models.User{ID: "root", IsActive: true, Superuser: true}
	r := gin.New()
	r.DELETE("/nuke", setUser(root), s.RequireAuthorization("courses.delete_course", nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	httpexpect.Default(t, ts.URL).DELETE("/nuke").Expect().Status(http.StatusOK)
}

func TestHandleCheckPermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeSources{
		anonymous: map[string]bool{"courses.view_catalog": true},
		public:    map[string]bool{},
		roles:     map[string]bool{"u1|courses.view_course": true},
		priority:  map[string]int{},
		model:     map[string]bool{},
	}
	s := newFakeServer(f)

	user := &models.User{ID: "u1", IsActive: true}
	r := gin.New()
	r.GET("/check", setUser(user), s.HandleCheckPermission)
	ts := httptest.NewServer(r)
	defer ts.Close()
	e := httpexpect.Default(t, ts.URL)

	e.GET("/check").
		Expect().Status(http.StatusBadRequest)

	e.GET("/check").WithQuery("perm", "courses.view_catalog").
		Expect().Status(http.StatusOK).
		JSON().Object().ValueEqual("granted", true)

	e.GET("/check").
		WithQuery("perm", "courses.view_course").
		WithQuery("scopeType", "course").
		WithQuery("scopeUuid", "c-1").
		Expect().Status(http.StatusOK).
		JSON().Object().ValueEqual("granted", true)

	e.GET("/check").
		WithQuery("perm", "courses.change_course").
		WithQuery("scopeType", "course").
		WithQuery("scopeUuid", "c-1").
		Expect().Status(http.StatusOK).
		JSON().Object().ValueEqual("granted", false)
}
