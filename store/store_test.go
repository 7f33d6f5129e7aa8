package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/migrate"
	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/scope"
)

var migrateOnce sync.Once

// testDB opens the test database, running the schema migrations once. Tests
// are skipped when no DSN is configured, so the unit suites stay runnable
// without infrastructure.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("MIGRATE_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping database tests")
	}

	migrateOnce.Do(func() {
		if err := migrate.Run(migrate.Options{Driver: "postgres", DSN: dsn, Command: "up"}); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	})

	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

// testEnv bundles a database handle with fully wired stores. Each test works
// in a freshly generated scope instance, so suites do not interfere.
type testEnv struct {
	db          *gorm.DB
	reg         *scope.Registry
	users       *UserStore
	whitelist   *WhitelistStore
	roles       *RoleStore
	assignments *AssignmentStore
	enrollments *EnrollmentMethodStore
	requests    *AccessRequestStore
	queries     *AuthzQueries
	ref         models.ScopeRef
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testDB(t)
	reg := scope.NewRegistry()
	reg.Register("course")

	e := &testEnv{db: db, reg: reg}
	e.users = NewUserStore(db)
	e.whitelist = NewWhitelistStore(db, reg)
	e.roles = NewRoleStore(db, reg, e.whitelist)
	e.assignments = NewAssignmentStore(db, reg)
	e.enrollments = NewEnrollmentMethodStore(db, reg, e.assignments)
	e.requests = NewAccessRequestStore(db, reg, e.assignments)
	e.queries = NewAuthzQueries(db)
	e.ref = models.NewScopeRef("course", models.NewID())
	return e
}

// allow whitelists permissions for the course scope type, cleaning up after
// the test since the whitelist is keyed by type, not instance.
func (e *testEnv) allow(t *testing.T, perms ...string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range perms {
		if err := e.whitelist.Allow(ctx, "course", p); err != nil {
			t.Fatalf("allow %s: %v", p, err)
		}
	}
	t.Cleanup(func() {
		for _, p := range perms {
			_ = e.whitelist.Disallow(context.Background(), "course", p)
		}
	})
}

// mustRole creates a role in the test scope.
func (e *testEnv) mustRole(t *testing.T, slug string, priority int, perms ...string) *models.Role {
	t.Helper()
	role := &models.Role{ScopeRef: e.ref, Slug: slug, Name: slug, Priority: priority}
	if err := role.SetPermissions(perms); err != nil {
		t.Fatalf("set permissions: %v", err)
	}
	if err := e.roles.CreateRole(context.Background(), "test", role); err != nil {
		t.Fatalf("create role %s: %v", slug, err)
	}
	return role
}

// mustUser creates a user with a generated username.
func (e *testEnv) mustUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{ID: models.NewID()}
	user.Username = "user-" + user.ID
	if err := e.users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
