package authz

import (
	"context"
	"testing"

	"github.com/coursebook/scopedauth/models"
)

// fakeSources is an in-memory implementation of the three engine sources.
type fakeSources struct {
	anonymous map[string]bool
	public    map[string]bool            // key: ref.ScopeType+"/"+ref.ScopeUUID+"/"+perm
	rolePerms map[string]map[string]bool // key: userID -> scopeKey+"/"+perm
	priority  map[string]int             // key: userID+"/"+scopeKey, highest held priority
	model     map[string]map[string]bool // key: userID -> perm
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		anonymous: map[string]bool{},
		public:    map[string]bool{},
		rolePerms: map[string]map[string]bool{},
		priority:  map[string]int{},
		model:     map[string]map[string]bool{},
	}
}

func scopeKey(ref models.ScopeRef) string { return ref.ScopeType + "/" + ref.ScopeUUID }

func (f *fakeSources) grantRole(userID string, ref models.ScopeRef, priority int, perms ...string) {
	if f.rolePerms[userID] == nil {
		f.rolePerms[userID] = map[string]bool{}
	}
	for _, p := range perms {
		f.rolePerms[userID][scopeKey(ref)+"/"+p] = true
	}
	key := userID + "/" + scopeKey(ref)
	if cur, ok := f.priority[key]; !ok || priority > cur {
		f.priority[key] = priority
	}
}

func (f *fakeSources) HasAnonymousPermission(_ context.Context, perm string) (bool, error) {
	return f.anonymous[perm], nil
}

func (f *fakeSources) HasPublicPermission(_ context.Context, ref models.ScopeRef, perm string) (bool, error) {
	return f.public[scopeKey(ref)+"/"+perm], nil
}

func (f *fakeSources) HasRolePermission(_ context.Context, ref models.ScopeRef, userID, perm string) (bool, error) {
	return f.rolePerms[userID][scopeKey(ref)+"/"+perm], nil
}

func (f *fakeSources) HasPriorityAtLeast(_ context.Context, ref models.ScopeRef, userID string, priority int) (bool, error) {
	held, ok := f.priority[userID+"/"+scopeKey(ref)]
	return ok && held >= priority, nil
}

func (f *fakeSources) HasModelPermission(_ context.Context, userID, perm string) (bool, error) {
	return f.model[userID][perm], nil
}

func newTestEngine() (*Engine, *fakeSources) {
	f := newFakeSources()
	return NewEngine(f, f, f), f
}

func activeUser(id string) *models.User {
	return &models.User{ID: id, Username: id, IsActive: true}
}

var courseRef = models.NewScopeRef("course", "c-1")

// scopedObject is a plain scope-governed object without priority or owner.
type scopedObject struct{ ref models.ScopeRef }

func (o scopedObject) Scope() models.ScopeRef { return o.ref }

// ownedObject additionally exposes an owner.
type ownedObject struct {
	scopedObject
	owner string
}

func (o ownedObject) OwnerID() string { return o.owner }

func TestSuperuserBypassesEverything(t *testing.T) {
	e, _ := newTestEngine()
	su := activeUser("root")
	su.Superuser = true

	granted, err := e.HasPermission(context.Background(), su, "courses.delete_course", scopedObject{courseRef})
	if err != nil || !granted {
		t.Errorf("superuser: granted=%v err=%v", granted, err)
	}
}

func TestAnonymousPermissionAppliesToEveryone(t *testing.T) {
	e, f := newTestEngine()
	f.anonymous["courses.view_catalog"] = true

	for _, user := range []*models.User{nil, activeUser("u1")} {
		granted, err := e.HasPermission(context.Background(), user, "courses.view_catalog", nil)
		if err != nil || !granted {
			t.Errorf("user=%v: granted=%v err=%v", user, granted, err)
		}
	}

	granted, err := e.HasPermission(context.Background(), nil, "courses.view_course", nil)
	if err != nil || granted {
		t.Errorf("ungranted anonymous perm: granted=%v err=%v", granted, err)
	}
}

func TestSelfUserCheck(t *testing.T) {
	e, _ := newTestEngine()
	me := activeUser("u1")

	granted, err := e.HasPermission(context.Background(), me, "auth.change_user", me)
	if err != nil || !granted {
		t.Errorf("self: granted=%v err=%v", granted, err)
	}

	other := activeUser("u2")
	granted, err = e.HasPermission(context.Background(), me, "auth.change_user", other)
	if err != nil || granted {
		t.Errorf("other user: granted=%v err=%v", granted, err)
	}
}

func TestOwnerIsAlwaysAuthorized(t *testing.T) {
	e, _ := newTestEngine()
	obj := ownedObject{scopedObject{courseRef}, "u1"}

	granted, err := e.HasPermission(context.Background(), activeUser("u1"), "courses.delete_material", obj)
	if err != nil || !granted {
		t.Errorf("owner: granted=%v err=%v", granted, err)
	}

	granted, err = e.HasPermission(context.Background(), activeUser("u2"), "courses.delete_material", obj)
	if err != nil || granted {
		t.Errorf("non-owner: granted=%v err=%v", granted, err)
	}

	// An empty owner id means no owner; nobody rides the owner grant.
	unowned := ownedObject{scopedObject{courseRef}, ""}
	granted, err = e.HasPermission(context.Background(), activeUser("u1"), "courses.delete_material", unowned)
	if err != nil || granted {
		t.Errorf("unowned object: granted=%v err=%v", granted, err)
	}
}

func TestRolePermissionInScope(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("u1", courseRef, 0, "courses.add_submission")

	granted, err := e.HasPermission(context.Background(), activeUser("u1"), "courses.add_submission", scopedObject{courseRef})
	if err != nil || !granted {
		t.Errorf("role holder: granted=%v err=%v", granted, err)
	}

	otherRef := models.NewScopeRef("course", "c-2")
	granted, err = e.HasPermission(context.Background(), activeUser("u1"), "courses.add_submission", scopedObject{otherRef})
	if err != nil || granted {
		t.Errorf("wrong scope: granted=%v err=%v", granted, err)
	}

	granted, err = e.HasPermission(context.Background(), activeUser("u2"), "courses.add_submission", scopedObject{courseRef})
	if err != nil || granted {
		t.Errorf("no role: granted=%v err=%v", granted, err)
	}
}

func TestPublicPermissionNeedsNoRole(t *testing.T) {
	e, f := newTestEngine()
	f.public[scopeKey(courseRef)+"/courses.view_course"] = true

	for _, user := range []*models.User{nil, activeUser("stranger")} {
		granted, err := e.HasPermission(context.Background(), user, "courses.view_course", scopedObject{courseRef})
		if err != nil || !granted {
			t.Errorf("user=%v: granted=%v err=%v", user, granted, err)
		}
	}
}

func TestModelPermissionFallback(t *testing.T) {
	e, f := newTestEngine()
	f.model["u1"] = map[string]bool{"courses.add_course": true}

	granted, err := e.HasPermission(context.Background(), activeUser("u1"), "courses.add_course", nil)
	if err != nil || !granted {
		t.Errorf("model perm: granted=%v err=%v", granted, err)
	}

	// Model permissions also back object checks that found nothing scoped.
	granted, err = e.HasPermission(context.Background(), activeUser("u1"), "courses.add_course", scopedObject{courseRef})
	if err != nil || !granted {
		t.Errorf("model perm with object: granted=%v err=%v", granted, err)
	}
}

func TestViewFallsBackToChange(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("u1", courseRef, 0, "courses.change_material")

	granted, err := e.HasPermission(context.Background(), activeUser("u1"), "courses.view_material", scopedObject{courseRef})
	if err != nil || !granted {
		t.Errorf("change implies view: granted=%v err=%v", granted, err)
	}

	granted, err = e.HasPermission(context.Background(), activeUser("u2"), "courses.view_material", scopedObject{courseRef})
	if err != nil || granted {
		t.Errorf("no grant at all: granted=%v err=%v", granted, err)
	}
}

// prioritizedObject is a role-bearing object subject to the escalation guard.
type prioritizedObject struct {
	scopedObject
	priority int
	resolved bool
}

func (o prioritizedObject) RolePriority() (int, bool) { return o.priority, o.resolved }

func TestEscalationGuardBlocksLowerPriority(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("staff", courseRef, 5, "auth.change_roleassignment")

	// Acting on a priority 10 object with only priority 5 held is blocked
	// even though the permission itself is granted.
	target := prioritizedObject{scopedObject{courseRef}, 10, true}
	granted, err := e.HasPermission(context.Background(), activeUser("staff"), "auth.change_roleassignment", target)
	if err != nil || granted {
		t.Errorf("lower priority actor: granted=%v err=%v", granted, err)
	}

	// Equal priority passes.
	peer := prioritizedObject{scopedObject{courseRef}, 5, true}
	granted, err = e.HasPermission(context.Background(), activeUser("staff"), "auth.change_roleassignment", peer)
	if err != nil || !granted {
		t.Errorf("equal priority actor: granted=%v err=%v", granted, err)
	}

	// Lower-priority target passes too.
	junior := prioritizedObject{scopedObject{courseRef}, 0, true}
	granted, err = e.HasPermission(context.Background(), activeUser("staff"), "auth.change_roleassignment", junior)
	if err != nil || !granted {
		t.Errorf("lower priority target: granted=%v err=%v", granted, err)
	}
}

func TestEscalationGuardPriorityTie(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("staff", courseRef, 10, "auth.change_roleassignment")

	target := prioritizedObject{scopedObject{courseRef}, 10, true}
	granted, err := e.HasPermission(context.Background(), activeUser("staff"), "auth.change_roleassignment", target)
	if err != nil || !granted {
		t.Errorf("tie must pass: granted=%v err=%v", granted, err)
	}
}

func TestEscalationGuardViewExemption(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("staff", courseRef, 0, "auth.view_roleassignment")

	// View actions skip the guard once the permission is granted, so a
	// low-priority administrator can still inspect high-priority records.
	target := prioritizedObject{scopedObject{courseRef}, 10, true}
	granted, err := e.HasPermission(context.Background(), activeUser("staff"), "auth.view_roleassignment", target)
	if err != nil || !granted {
		t.Errorf("view exemption: granted=%v err=%v", granted, err)
	}
}

func TestEscalationGuardUnresolvedPriorityDenies(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("staff", courseRef, 10, "auth.change_roleassignment")

	target := prioritizedObject{scopedObject{courseRef}, 0, false}
	granted, err := e.HasPermission(context.Background(), activeUser("staff"), "auth.change_roleassignment", target)
	if err != nil || granted {
		t.Errorf("unresolved target priority must deny: granted=%v err=%v", granted, err)
	}
}

func TestEscalationGuardAnonymousDenied(t *testing.T) {
	e, f := newTestEngine()
	f.public[scopeKey(courseRef)+"/auth.change_roleassignment"] = true

	// Even a public grant of a non-view action on a role-bearing object
	// cannot be exercised anonymously; there is no priority to compare.
	target := prioritizedObject{scopedObject{courseRef}, 0, true}
	granted, err := e.HasPermission(context.Background(), nil, "auth.change_roleassignment", target)
	if err != nil || granted {
		t.Errorf("anonymous non-view on prioritized object: granted=%v err=%v", granted, err)
	}
}

func TestSelfServiceOverride(t *testing.T) {
	e, _ := newTestEngine()
	req := &models.AccessRequest{
		ID:       "ar-1",
		ScopeRef: courseRef,
		RoleID:   "r-1",
		UserID:   "u1",
		Decision: models.DecisionPending,
	}

	granted, err := e.HasPermission(context.Background(), activeUser("u1"), "auth.delete_accessrequest", req)
	if err != nil || !granted {
		t.Errorf("requester deleting own request: granted=%v err=%v", granted, err)
	}

	granted, err = e.HasPermission(context.Background(), activeUser("u2"), "auth.delete_accessrequest", req)
	if err != nil || granted {
		t.Errorf("stranger deleting request: granted=%v err=%v", granted, err)
	}

	// The override does not extend to deciding the request.
	granted, err = e.HasPermission(context.Background(), activeUser("u1"), "auth.change_accessrequest", req)
	if err != nil || granted {
		t.Errorf("requester deciding own request: granted=%v err=%v", granted, err)
	}
}

func TestInactiveUserIsAnonymous(t *testing.T) {
	e, f := newTestEngine()
	f.grantRole("u1", courseRef, 0, "courses.add_submission")

	ghost := &models.User{ID: "u1", IsActive: false}
	granted, err := e.HasPermission(context.Background(), ghost, "courses.add_submission", scopedObject{courseRef})
	if err != nil || granted {
		t.Errorf("inactive user: granted=%v err=%v", granted, err)
	}

	// Anonymous grants survive deactivation.
	f.anonymous["courses.view_catalog"] = true
	granted, err = e.HasPermission(context.Background(), ghost, "courses.view_catalog", nil)
	if err != nil || !granted {
		t.Errorf("inactive user, anonymous perm: granted=%v err=%v", granted, err)
	}

	// Deactivation locks out superusers too.
	exAdmin := &models.User{ID: "root", Superuser: true, IsActive: false}
	granted, err = e.HasPermission(context.Background(), exAdmin, "courses.delete_course", nil)
	if err != nil || granted {
		t.Errorf("inactive superuser: granted=%v err=%v", granted, err)
	}
}
