package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"clinicdesk.org/internal/auth"
)

type stubVerifier struct {
	claims *auth.Claims
	err    error
}

func (s stubVerifier) Verify(string) (*auth.Claims, error) { return s.claims, s.err }

type stubLookup struct {
	id  auth.Identity
	err error
}

func (s stubLookup) LookupIdentity(context.Context, int64) (auth.Identity, error) { return s.id, s.err }

func guardAPI(v auth.TokenVerifier, l auth.IdentityLookup) *API {
	return &API{gate: auth.NewGate(v, l), logger: discardLogger()}
}

func okHandler(seen *auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen, _ = auth.IdentityFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func claimsFor(sub string) *auth.Claims {
	c := &auth.Claims{}
	c.Subject = sub
	return c
}

func TestGuardAllowsMatchingRole(t *testing.T) {
	nurse := auth.Identity{ID: 3, Username: "nurse1", Role: auth.RoleNurse}
	a := guardAPI(stubVerifier{claims: claimsFor("3")}, stubLookup{id: nurse})

	var seen auth.Identity
	handler := a.guard(routePolicy{roles: []auth.Role{auth.RoleNurse}}, okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if seen != nurse {
		t.Fatalf("expected identity in context, got %+v", seen)
	}
}

func TestGuardAdministratorPassesEveryRoleCheck(t *testing.T) {
	admin := auth.Identity{ID: 1, Username: "admin", Role: auth.RoleAdministrator}
	a := guardAPI(stubVerifier{claims: claimsFor("1")}, stubLookup{id: admin})

	for _, p := range []routePolicy{clinician, frontDesk, adminOnly, authenticated} {
		req := httptest.NewRequest(http.MethodGet, "/internal", nil)
		req.Header.Set("Authorization", "Bearer token")
		rr := httptest.NewRecorder()
		a.guard(p, okHandler(nil)).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("policy %+v: expected 200, got %d", p, rr.Code)
		}
	}
}

func TestGuardRejectsMissingRole(t *testing.T) {
	a := guardAPI(stubVerifier{claims: claimsFor("3")}, stubLookup{id: auth.Identity{ID: 3, Role: auth.RoleNurse}})
	handler := a.guard(clinician, okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != "" {
		t.Fatalf("forbidden responses carry no challenge, got %q", got)
	}
}

func TestGuardRejectsMissingCredential(t *testing.T) {
	a := guardAPI(stubVerifier{}, stubLookup{})
	handler := a.guard(authenticated, okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestGuardLookupFailureIsInternal(t *testing.T) {
	a := guardAPI(stubVerifier{claims: claimsFor("3")}, stubLookup{err: errors.New("db down")})
	handler := a.guard(authenticated, okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if strings.Contains(body["message"].(string), "db down") {
		t.Fatal("internal error detail leaked to client")
	}
}

func TestGuardPublicRouteAttachesOptionalIdentity(t *testing.T) {
	admin := auth.Identity{ID: 1, Role: auth.RoleAdministrator}
	a := guardAPI(stubVerifier{claims: claimsFor("1")}, stubLookup{id: admin})

	var seen auth.Identity
	handler := a.guard(public, okHandler(&seen))

	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen != admin {
		t.Fatalf("expected optional identity, got %d %+v", rr.Code, seen)
	}

	bad := guardAPI(stubVerifier{err: auth.ErrInvalidToken}, stubLookup{})
	seen = auth.Identity{}
	rr = httptest.NewRecorder()
	bad.guard(public, okHandler(&seen)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen != (auth.Identity{}) {
		t.Fatalf("public route must ignore a bad token, got %d %+v", rr.Code, seen)
	}
}

func TestRejectionMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   int
		reason string
	}{
		{auth.ErrMissingCredential, http.StatusUnauthorized, "missing_credential"},
		{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
		{auth.ErrExpired, http.StatusUnauthorized, "expired"},
		{auth.ErrUnknownIdentity, http.StatusUnauthorized, "unknown_identity"},
		{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("boom"), http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		code, reason, _ := rejection(tc.err)
		if code != tc.code || reason != tc.reason {
			t.Fatalf("%v: got %d/%s, want %d/%s", tc.err, code, reason, tc.code, tc.reason)
		}
	}
}

func TestEveryRouteHasExactlyOnePolicy(t *testing.T) {
	env := newTestEnv(t, Options{})

	seen := map[string]bool{}
	err := chi.Walk(env.api.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		key := method + " " + route
		if _, ok := routePolicies[key]; !ok {
			t.Errorf("route %s has no policy", key)
		}
		seen[key] = true
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	for key := range routePolicies {
		if !seen[key] {
			t.Errorf("policy %s has no route", key)
		}
	}
}

func TestHandlePanicsWithoutPolicy(t *testing.T) {
	a := &API{router: chi.NewRouter(), logger: discardLogger()}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unregistered route")
		}
	}()
	a.handle(http.MethodPatch, "/api/patients/{id}", func(http.ResponseWriter, *http.Request) {})
}
