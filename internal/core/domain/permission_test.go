package domain

import (
	"errors"
	"testing"
)

func TestHasPermissions(t *testing.T) {
	admin := &User{Permissions: []Permission{PermissionAdmin, PermissionEditEvent}}
	member := &User{Permissions: []Permission{PermissionCreateEvent}}

	cases := []struct {
		name     string
		user     *User
		required []Permission
		want     bool
	}{
		{"empty requirement", member, nil, true},
		{"empty requirement nil user", nil, nil, true},
		{"nil user", nil, []Permission{PermissionAdmin}, false},
		{"single held", admin, []Permission{PermissionAdmin}, true},
		{"all held", admin, []Permission{PermissionAdmin, PermissionEditEvent}, true},
		{"one missing", admin, []Permission{PermissionAdmin, PermissionDeleteEvent}, false},
		{"none held", member, []Permission{PermissionAdmin}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasPermissions(tc.user, tc.required...); got != tc.want {
				t.Errorf("HasPermissions() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizePermissions_Dedupes(t *testing.T) {
	got, err := NormalizePermissions([]Permission{PermissionEditEvent, PermissionAdmin, PermissionEditEvent})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != PermissionEditEvent || got[1] != PermissionAdmin {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestNormalizePermissions_RejectsUnknown(t *testing.T) {
	_, err := NormalizePermissions([]Permission{"SUPERUSER"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got: %v", err)
	}
}

func TestNormalizeRoles(t *testing.T) {
	got, err := NormalizeRoles([]Role{RoleMember, RoleTreasurer, RoleMember})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 roles, got %v", got)
	}

	if _, err := NormalizeRoles([]Role{"janitor"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got: %v", err)
	}
}

func TestSamePermissions(t *testing.T) {
	a := []Permission{PermissionAdmin, PermissionEditEvent}
	b := []Permission{PermissionEditEvent, PermissionAdmin, PermissionAdmin}
	if !SamePermissions(a, b) {
		t.Error("expected sets to match regardless of order and duplicates")
	}
	if SamePermissions(a, []Permission{PermissionAdmin}) {
		t.Error("expected sets to differ")
	}
	if !SamePermissions(nil, []Permission{}) {
		t.Error("expected nil and empty to match")
	}
}

func TestValidateName(t *testing.T) {
	if got, err := ValidateName("  Ada  "); err != nil || got != "Ada" {
		t.Errorf("ValidateName trimmed = %q, %v", got, err)
	}
	if _, err := ValidateName("   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank name, got: %v", err)
	}
	long := make([]rune, MaxNameLength+1)
	for i := range long {
		long[i] = 'é'
	}
	if _, err := ValidateName(string(long)); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for long name, got: %v", err)
	}
	if _, err := ValidateName(string(long[:MaxNameLength])); err != nil {
		t.Errorf("expected %d runes to be accepted, got: %v", MaxNameLength, err)
	}
}

func TestUser_Redacted(t *testing.T) {
	u := &User{ID: "u1", Secret: "s3cr3t", Permissions: []Permission{PermissionAdmin}}
	r := u.Redacted()
	if r.Secret != "" {
		t.Error("expected secret to be cleared")
	}
	r.Permissions[0] = PermissionEditEvent
	if u.Permissions[0] != PermissionAdmin {
		t.Error("expected redacted copy not to share permissions slice")
	}
	if u.Secret != "s3cr3t" {
		t.Error("expected original to be untouched")
	}
}

func TestUser_Redacted_EmptySetsStayNonNil(t *testing.T) {
	r := (&User{ID: "u1"}).Redacted()
	if r.Permissions == nil || r.Roles == nil {
		t.Fatalf("expected empty non-nil sets, got permissions=%v roles=%v", r.Permissions, r.Roles)
	}
}
