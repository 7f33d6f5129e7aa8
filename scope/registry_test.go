package scope

import (
	"errors"
	"reflect"
	"testing"

	"github.com/coursebook/scopedauth/models"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("Course")
	r.Register("  workgroup ")
	r.Register("course") // duplicate

	if !r.IsScope("course") || !r.IsScope("COURSE") {
		t.Error("lookup should be case-insensitive")
	}
	if !r.IsScope("workgroup") {
		t.Error("workgroup should be registered")
	}
	if r.IsScope("forum") {
		t.Error("unregistered type must not be a scope")
	}
	if r.IsScope("") {
		t.Error("empty type must not be a scope")
	}
}

func TestRegistryScopeTypesSortedAndCached(t *testing.T) {
	r := NewRegistry()
	r.Register("workgroup")
	r.Register("course")

	want := []string{"course", "workgroup"}
	if got := r.ScopeTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("ScopeTypes = %v, want %v", got, want)
	}

	// Registration invalidates the cached list.
	r.Register("forum")
	want = []string{"course", "forum", "workgroup"}
	if got := r.ScopeTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("ScopeTypes after register = %v, want %v", got, want)
	}

	// Mutating the returned slice must not corrupt the cache.
	got := r.ScopeTypes()
	got[0] = "tampered"
	if again := r.ScopeTypes(); !reflect.DeepEqual(again, want) {
		t.Errorf("ScopeTypes after tampering = %v, want %v", again, want)
	}

	r.Invalidate()
	if got := r.ScopeTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("ScopeTypes after Invalidate = %v, want %v", got, want)
	}
}

func TestRegistryValidateRef(t *testing.T) {
	r := NewRegistry()
	r.Register("course")

	ok := models.NewScopeRef("course", "123e4567-e89b-12d3-a456-426614174000")
	if err := r.ValidateRef(ok); err != nil {
		t.Errorf("ValidateRef(%v) = %v", ok, err)
	}

	if err := r.ValidateRef(models.NewScopeRef("forum", "123")); !errors.Is(err, models.ErrScopeTypeInvalid) {
		t.Errorf("unregistered type: got %v, want ErrScopeTypeInvalid", err)
	}
	if err := r.ValidateRef(models.NewScopeRef("course", " ")); !errors.Is(err, models.ErrInvalidData) {
		t.Errorf("empty uuid: got %v, want ErrInvalidData", err)
	}
}
