package models

import (
	"errors"
	"testing"
)

func TestEnrollmentMethodPassphrase(t *testing.T) {
	var m EnrollmentMethod

	if err := m.SetPassphrase("open sesame"); err != nil {
		t.Fatalf("SetPassphrase: %v", err)
	}
	if m.Passphrase == "open sesame" {
		t.Fatal("passphrase must not be stored in the clear")
	}

	if err := m.VerifyPassphrase("open sesame"); err != nil {
		t.Errorf("correct passphrase rejected: %v", err)
	}
	if err := m.VerifyPassphrase("wrong"); !errors.Is(err, ErrIncorrectPassphrase) {
		t.Errorf("wrong passphrase: got %v, want ErrIncorrectPassphrase", err)
	}
	if err := m.VerifyPassphrase(""); !errors.Is(err, ErrIncorrectPassphrase) {
		t.Errorf("empty supplied passphrase: got %v, want ErrIncorrectPassphrase", err)
	}
}

func TestEnrollmentMethodWithoutPassphraseAcceptsAnything(t *testing.T) {
	var m EnrollmentMethod
	for _, supplied := range []string{"", "anything"} {
		if err := m.VerifyPassphrase(supplied); err != nil {
			t.Errorf("VerifyPassphrase(%q) = %v, want nil", supplied, err)
		}
	}

	if err := m.SetPassphrase("secret"); err != nil {
		t.Fatalf("SetPassphrase: %v", err)
	}
	if err := m.SetPassphrase(""); err != nil {
		t.Fatalf("clearing passphrase: %v", err)
	}
	if err := m.VerifyPassphrase("whatever"); err != nil {
		t.Errorf("cleared passphrase should accept anything, got %v", err)
	}
}

func TestEnrollmentMethodRolePriority(t *testing.T) {
	m := EnrollmentMethod{RoleID: "r1"}
	if _, ok := m.RolePriority(); ok {
		t.Error("priority should be unresolvable without the role loaded")
	}
	m.Role = &Role{ID: "r1", Priority: 7}
	if p, ok := m.RolePriority(); !ok || p != 7 {
		t.Errorf("RolePriority = %d, %v; want 7, true", p, ok)
	}
}
