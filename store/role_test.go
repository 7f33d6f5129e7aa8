package store

import (
	"context"
	"errors"
	"testing"

	"github.com/coursebook/scopedauth/models"
)

func TestCreateRoleRejectsNonWhitelistedPermission(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.allow(t, "courses.view_course")

	role := &models.Role{ScopeRef: e.ref, Slug: "rogue", Name: "Rogue"}
	if err := role.SetPermissions([]string{"courses.view_course", "courses.drop_table"}); err != nil {
		t.Fatal(err)
	}
	err := e.roles.CreateRole(ctx, "test", role)
	if !errors.Is(err, models.ErrPermissionNotAllowed) {
		t.Fatalf("got %v, want ErrPermissionNotAllowed", err)
	}

	// The rejected role must not exist.
	if _, err := e.roles.GetRoleBySlug(ctx, e.ref, "rogue"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("rejected role persisted: %v", err)
	}
}

func TestUpdateRoleRejectionLeavesRoleUnchanged(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.allow(t, "courses.view_course")
	role := e.mustRole(t, "student", 0, "courses.view_course")

	updated := *role
	if err := updated.SetPermissions([]string{"courses.drop_table"}); err != nil {
		t.Fatal(err)
	}
	if err := e.roles.UpdateRole(ctx, "test", &updated); !errors.Is(err, models.ErrPermissionNotAllowed) {
		t.Fatalf("got %v, want ErrPermissionNotAllowed", err)
	}

	persisted, err := e.roles.GetRole(ctx, role.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !persisted.HasPermission("courses.view_course") || persisted.HasPermission("courses.drop_table") {
		t.Errorf("persisted permissions changed: %v", persisted.PermissionList())
	}
}

func TestCreateRoleDuplicateSlug(t *testing.T) {
	e := newTestEnv(t)
	e.mustRole(t, "student", 0)

	dup := &models.Role{ScopeRef: e.ref, Slug: "Student", Name: "Student again"}
	err := e.roles.CreateRole(context.Background(), "test", dup)
	if !errors.Is(err, models.ErrInvalidData) {
		t.Fatalf("got %v, want ErrInvalidData", err)
	}

	// Same slug in a different scope instance is fine.
	otherRef := models.NewScopeRef("course", models.NewID())
	other := &models.Role{ScopeRef: otherRef, Slug: "student", Name: "Student"}
	if err := e.roles.CreateRole(context.Background(), "test", other); err != nil {
		t.Fatalf("same slug, other scope: %v", err)
	}
}

func TestUpdateRoleScopeMismatch(t *testing.T) {
	e := newTestEnv(t)
	role := e.mustRole(t, "student", 0)

	moved := *role
	moved.ScopeRef = models.NewScopeRef("course", models.NewID())
	err := e.roles.UpdateRole(context.Background(), "test", &moved)
	if !errors.Is(err, models.ErrScopeMismatch) {
		t.Fatalf("got %v, want ErrScopeMismatch", err)
	}
}

func TestCreateRoleValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		role models.Role
	}{
		{"empty slug", models.Role{ScopeRef: e.ref, Name: "x"}},
		{"empty name", models.Role{ScopeRef: e.ref, Slug: "x"}},
		{"negative priority", models.Role{ScopeRef: e.ref, Slug: "x", Name: "x", Priority: -1}},
		{"unregistered scope", models.Role{ScopeRef: models.NewScopeRef("forum", models.NewID()), Slug: "x", Name: "x"}},
		{"empty scope uuid", models.Role{ScopeRef: models.ScopeRef{ScopeType: "course"}, Slug: "x", Name: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role := tc.role
			err := e.roles.CreateRole(ctx, "test", &role)
			if !errors.Is(err, models.ErrInvalidData) && !errors.Is(err, models.ErrScopeTypeInvalid) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestDeactivateRole(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	role := e.mustRole(t, "student", 0)

	if err := e.roles.DeactivateRole(ctx, "test", role.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	persisted, err := e.roles.GetRole(ctx, role.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if persisted.IsActive {
		t.Error("role still active")
	}

	if err := e.roles.DeactivateRole(ctx, "test", models.NewID()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestListRolesOrdering(t *testing.T) {
	e := newTestEnv(t)
	e.mustRole(t, "student", 0)
	e.mustRole(t, "assistant", 5)
	e.mustRole(t, "teacher", 10)

	roles, err := e.roles.ListRoles(context.Background(), e.ref)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var slugs []string
	for i := range roles {
		slugs = append(slugs, roles[i].Slug)
	}
	want := []string{"teacher", "assistant", "student"}
	if len(slugs) != len(want) {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Fatalf("slugs = %v, want %v", slugs, want)
		}
	}
}
