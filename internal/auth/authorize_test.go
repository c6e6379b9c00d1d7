package auth

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name     string
		required []Role
		role     Role
		want     error
	}{
		{"open route", nil, RoleNurse, nil},
		{"matching role", []Role{RoleClinician}, RoleClinician, nil},
		{"one of many", []Role{RoleFrontDesk, RoleNurse}, RoleNurse, nil},
		{"administrator implicit", []Role{RoleClinician}, RoleAdministrator, nil},
		{"missing role", []Role{RoleClinician}, RoleFrontDesk, ErrForbidden},
		{"nurse on admin route", []Role{RoleAdministrator}, RoleNurse, ErrForbidden},
	}
	for _, tc := range cases {
		err := Authorize(tc.required, Identity{ID: 1, Role: tc.role})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Front-Desk "); !ok || r != RoleFrontDesk {
		t.Fatalf("unexpected parse: %q %v", r, ok)
	}
	if _, ok := ParseRole("doctor"); ok {
		t.Fatalf("doctor is not a role")
	}
	if len(Roles()) != 4 {
		t.Fatalf("expected four roles")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatalf("hash must not equal plaintext")
	}
	if err := VerifyPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
	if _, err := HashPassword("", 4); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
