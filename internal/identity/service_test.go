package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"clinicdesk.org/internal/audit"
	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/identity"
	"clinicdesk.org/internal/store/memory"
)

type fixture struct {
	store    *memory.InMemory
	issuer   *auth.Issuer
	recorder *audit.AsyncRecorder
	svc      *identity.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	issuer, err := auth.NewIssuer([]byte("identity-test"), auth.WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	rec := audit.NewRecorder(store)
	return &fixture{
		store:    store,
		issuer:   issuer,
		recorder: rec,
		svc:      identity.NewService(store, issuer, rec, identity.WithBcryptCost(4)),
	}
}

// entries drains pending audit writes and returns everything recorded.
func (f *fixture) entries(t *testing.T) []audit.Entry {
	t.Helper()
	if err := f.recorder.Close(context.Background()); err != nil {
		t.Fatalf("recorder.Close: %v", err)
	}
	out, err := f.store.ListAudit(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	return out
}

func asAdmin(id int64) context.Context {
	ctx := auth.ContextWithIdentity(context.Background(), auth.Identity{ID: id, Username: "admin", Role: auth.RoleAdministrator})
	return audit.WithOrigin(ctx, audit.Origin{IPAddress: "192.0.2.1", UserAgent: "test-agent"})
}

func register(t *testing.T, svc *identity.Service, username, email, role string) *identity.User {
	t.Helper()
	u, err := svc.Register(context.Background(), identity.RegisterInput{
		Username:  username,
		Password:  "pw123",
		Email:     email,
		Role:      role,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	return u
}

func TestRegisterLoginAuthorize(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Register(context.Background(), identity.RegisterInput{
		Username:  "drsmith",
		Password:  "pw123",
		Email:     "drsmith@example.com",
		Role:      "clinician",
		FirstName: "John",
		LastName:  "Smith",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "pw123" || u.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}

	session, err := f.svc.Login(context.Background(), "drsmith", "pw123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	gate := auth.NewGate(f.issuer, f.svc)
	id, err := gate.Authenticate(context.Background(), "Bearer "+session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.ID != u.ID || id.Role != auth.RoleClinician {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if err := auth.Authorize([]auth.Role{auth.RoleClinician}, id); err != nil {
		t.Fatalf("clinician should pass: %v", err)
	}
	if err := auth.Authorize([]auth.Role{auth.RoleAdministrator}, id); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	entries := f.entries(t)
	if len(entries) != 1 || entries[0].Action != audit.ActionCreate || entries[0].EntityID != u.ID {
		t.Fatalf("expected one create entry, got %+v", entries)
	}
	if entries[0].ActorID != nil {
		t.Fatalf("self-registration must have a system actor")
	}
	var snap map[string]any
	if err := json.Unmarshal(entries[0].Details, &snap); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if snap["username"] != "drsmith" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
	if _, ok := snap["password_hash"]; ok {
		t.Fatalf("snapshot leaked the password hash")
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	cases := []identity.RegisterInput{
		{Username: "", Password: "pw", Email: "a@x.com", Role: "nurse", FirstName: "A", LastName: "B"},
		{Username: "a", Password: "pw", Email: "not-an-email", Role: "nurse", FirstName: "A", LastName: "B"},
		{Username: "a", Password: "pw", Email: "a@x.com", Role: "doctor", FirstName: "A", LastName: "B"},
		{Username: "a", Password: "", Email: "a@x.com", Role: "nurse", FirstName: "A", LastName: "B"},
	}
	for i, in := range cases {
		if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, identity.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}

	register(t, f.svc, "nurse1", "nurse1@example.com", "nurse")
	_, err := f.svc.Register(context.Background(), identity.RegisterInput{
		Username: "nurse1", Password: "pw", Email: "other@example.com", Role: "nurse", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterValidationNamesFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), identity.RegisterInput{
		Username: "a", Password: "pw", Email: "not-an-email", Role: "Doctor", FirstName: "A",
	})
	if !errors.Is(err, identity.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	for _, field := range []string{"email", "role", "last_name"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %q in %q", field, err.Error())
		}
	}
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	f := newFixture(t)
	admin := register(t, f.svc, "admin", "admin@example.com", "administrator")
	u := register(t, f.svc, "nurse1", "a@x.com", "nurse")

	for i, in := range []identity.UpdateInput{{Email: "nope"}, {Role: "surgeon"}} {
		if _, err := f.svc.Update(asAdmin(admin.ID), u.ID, in); !errors.Is(err, identity.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
	got, err := f.svc.Get(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "a@x.com" || got.Role != auth.RoleNurse {
		t.Fatalf("rejected update was applied: %+v", got)
	}
	for _, e := range f.entries(t) {
		if e.Action == audit.ActionUpdate {
			t.Fatalf("rejected update was audited: %+v", e)
		}
	}
}

func TestServiceWithoutIssuerRegistersButCannotLogin(t *testing.T) {
	store := memory.New()
	svc := identity.NewService(store, nil, nil, identity.WithBcryptCost(4))

	u, err := svc.Register(context.Background(), identity.RegisterInput{
		Username: "root", Password: "pw123", Email: "root@example.com", Role: "administrator",
		FirstName: "Root", LastName: "Admin",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != auth.RoleAdministrator {
		t.Fatalf("unexpected role: %s", u.Role)
	}
	if _, err := svc.Login(context.Background(), "root", "pw123"); !errors.Is(err, identity.ErrNoIssuer) {
		t.Fatalf("expected ErrNoIssuer, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	register(t, f.svc, "front", "front@example.com", "front-desk")

	if _, err := f.svc.Login(context.Background(), "front", "wrong"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "ghost", "pw123"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestUpdateRecordsOnlyChangedFields(t *testing.T) {
	f := newFixture(t)
	admin := register(t, f.svc, "admin", "admin@example.com", "administrator")
	u := register(t, f.svc, "nurse1", "a@x.com", "nurse")

	updated, err := f.svc.Update(asAdmin(admin.ID), u.ID, identity.UpdateInput{Email: "b@x.com", FirstName: "Test"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "b@x.com" {
		t.Fatalf("email not updated: %s", updated.Email)
	}

	entries := f.entries(t)
	e := entries[0]
	if e.Action != audit.ActionUpdate || e.EntityType != audit.EntityUser || e.EntityID != u.ID {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ActorID == nil || *e.ActorID != admin.ID {
		t.Fatalf("expected actor %d, got %v", admin.ID, e.ActorID)
	}
	if e.IPAddress != "192.0.2.1" || e.UserAgent != "test-agent" {
		t.Fatalf("origin not recorded: %+v", e)
	}
	var payload map[string]audit.Change
	if err := json.Unmarshal(e.Details, &payload); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("expected only the email change, got %s", e.Details)
	}
	if payload["email"].From != "a@x.com" || payload["email"].To != "b@x.com" {
		t.Fatalf("unexpected email change: %+v", payload["email"])
	}
}

func TestUpdatePasswordIsRedacted(t *testing.T) {
	f := newFixture(t)
	admin := register(t, f.svc, "admin", "admin@example.com", "administrator")
	u := register(t, f.svc, "nurse1", "nurse1@example.com", "nurse")

	if _, err := f.svc.Update(asAdmin(admin.ID), u.ID, identity.UpdateInput{Password: "n3w-pass"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "nurse1", "n3w-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	e := f.entries(t)[0]
	var payload map[string]audit.Change
	if err := json.Unmarshal(e.Details, &payload); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	pw, ok := payload["password"]
	if !ok || pw.From != audit.Redacted || pw.To != audit.Redacted {
		t.Fatalf("expected redacted password change, got %s", e.Details)
	}
}

func TestNoOpUpdateIsNotAudited(t *testing.T) {
	f := newFixture(t)
	admin := register(t, f.svc, "admin", "admin@example.com", "administrator")
	u := register(t, f.svc, "nurse1", "nurse1@example.com", "nurse")

	if _, err := f.svc.Update(asAdmin(admin.ID), u.ID, identity.UpdateInput{Email: "nurse1@example.com", Password: "pw123"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for _, e := range f.entries(t) {
		if e.Action == audit.ActionUpdate {
			t.Fatalf("unexpected update entry: %+v", e)
		}
	}
}

func TestDeleteRecordsSnapshotAndRevokesAccess(t *testing.T) {
	f := newFixture(t)
	admin := register(t, f.svc, "admin", "admin@example.com", "administrator")
	victim := register(t, f.svc, "nurse1", "nurse1@example.com", "nurse")
	session, err := f.svc.Login(context.Background(), "nurse1", "pw123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.svc.Delete(asAdmin(admin.ID), victim.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), victim.ID); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	gate := auth.NewGate(f.issuer, f.svc)
	if _, err := gate.Authenticate(context.Background(), "Bearer "+session.Token); !errors.Is(err, auth.ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}

	e := f.entries(t)[0]
	if e.Action != audit.ActionDelete || e.EntityID != victim.ID {
		t.Fatalf("unexpected entry: %+v", e)
	}
	var snap map[string]any
	if err := json.Unmarshal(e.Details, &snap); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	for _, field := range []string{"id", "username", "email", "role", "first_name", "last_name", "created_at", "updated_at"} {
		if _, ok := snap[field]; !ok {
			t.Fatalf("snapshot missing %s: %v", field, snap)
		}
	}
	if snap["email"] != "nurse1@example.com" {
		t.Fatalf("unexpected snapshot email: %v", snap["email"])
	}
}

func TestLookupIdentity(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.LookupIdentity(context.Background(), 99); !errors.Is(err, auth.ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}
	u := register(t, f.svc, "clin", "clin@example.com", "clinician")
	id, err := f.svc.LookupIdentity(context.Background(), u.ID)
	if err != nil || id.Username != "clin" {
		t.Fatalf("unexpected lookup: %+v %v", id, err)
	}
}
