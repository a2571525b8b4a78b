package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/platecost/platecost/internal/shared"
)

func newMiddlewareFixture() (Middleware, *memoryStore) {
	store := newMemoryStore()
	store.seedRoleDefaults(RoleReadonly, RoleUser, RoleSupervisor, RolePropertyManager,
		RoleRegionalManager, RolePropertyAdmin, RolePropertyOwner, RoleSuperAdmin)
	resolver := NewResolver(store, NewMemoryCache(), nil, nil)
	return Middleware{Store: store, Resolver: resolver, Guard: NewGuard(resolver)}, store
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, h http.Handler, target string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != 0 {
		sess := &shared.Session{ID: "test-session"}
		sess.SetUser(userID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireRoleRejectsAnonymousAndWrongRole(t *testing.T) {
	mw, store := newMiddlewareFixture()
	store.addSubject(Subject{ID: 1, Role: RoleSupervisor, IsActive: true})
	store.addSubject(Subject{ID: 2, Role: RoleUser, IsActive: true})

	h := mw.RequireRole(RoleSupervisor, RolePropertyManager)(okHandler())

	require.Equal(t, http.StatusForbidden, doRequest(t, h, "/", 0).Code)
	require.Equal(t, http.StatusForbidden, doRequest(t, h, "/", 2).Code)
	require.Equal(t, http.StatusOK, doRequest(t, h, "/", 1).Code)
}

func TestRequireRoleRejectsInactiveAndUnknownSubjects(t *testing.T) {
	mw, store := newMiddlewareFixture()
	store.addSubject(Subject{ID: 1, Role: RoleSupervisor, IsActive: false})

	h := mw.RequireRole(RoleSupervisor)(okHandler())

	require.Equal(t, http.StatusForbidden, doRequest(t, h, "/", 1).Code)
	require.Equal(t, http.StatusForbidden, doRequest(t, h, "/", 404).Code)
}

func TestRequireAnyPermission(t *testing.T) {
	mw, store := newMiddlewareFixture()
	store.addSubject(Subject{ID: 1, Role: RoleRegionalManager, IsActive: true})
	store.addSubject(Subject{ID: 2, Role: RoleReadonly, IsActive: true})

	h := mw.RequireAnyPermission(PermReportsExport, PermDashboardsViewAll)(okHandler())

	require.Equal(t, http.StatusOK, doRequest(t, h, "/", 1).Code)
	require.Equal(t, http.StatusForbidden, doRequest(t, h, "/", 2).Code)

	open := mw.RequireAnyPermission()(okHandler())
	require.Equal(t, http.StatusOK, doRequest(t, open, "/", 0).Code)
}

func TestRequirePropertyAccess(t *testing.T) {
	mw, store := newMiddlewareFixture()
	store.addSubject(Subject{ID: 1, Role: RoleUser, IsActive: true})
	store.addProperty(Property{ID: 10, Name: "Harbor Grill", IsActive: true})
	store.access[pairKey{1, 10}] = PropertyAccess{
		UserID: 1, PropertyID: 10, AccessLevel: AccessDataEntry, GrantedBy: 99, GrantedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.With(mw.RequirePropertyAccess(AccessDataEntry)).Get("/properties/{propertyID}/entries", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.With(mw.RequirePropertyAccess(AccessManagement)).Get("/properties/{propertyID}/approvals", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, doRequest(t, r, "/properties/10/entries", 1).Code)
	require.Equal(t, http.StatusForbidden, doRequest(t, r, "/properties/10/approvals", 1).Code)
	require.Equal(t, http.StatusForbidden, doRequest(t, r, "/properties/11/entries", 1).Code)
	require.Equal(t, http.StatusBadRequest, doRequest(t, r, "/properties/not-a-number/entries", 1).Code)
}

func TestRequireRoute(t *testing.T) {
	mw, store := newMiddlewareFixture()
	store.addSubject(Subject{ID: 1, Role: RolePropertyManager, IsActive: true})
	store.addProperty(Property{ID: 10, Name: "Harbor Grill", IsActive: true})
	store.managers[pairKey{1, 10}] = true

	r := chi.NewRouter()
	r.With(mw.RequireRoute("financial.daily_summary.approval")).Get("/properties/{propertyID}/summaries/approve", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.With(mw.RequireRoute("reporting.close")).Get("/close", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, doRequest(t, r, "/properties/10/summaries/approve", 1).Code)
	require.Equal(t, http.StatusForbidden, doRequest(t, r, "/properties/11/summaries/approve", 1).Code)
	// Routes missing from the table always deny.
	require.Equal(t, http.StatusForbidden, doRequest(t, r, "/close", 1).Code)
}

func TestRequireRouteWithoutGuardFailsClosed(t *testing.T) {
	_, store := newMiddlewareFixture()
	store.addSubject(Subject{ID: 1, Role: RoleSuperAdmin, IsActive: true})

	// A mis-wired middleware without a guard must deny, not panic.
	mw := Middleware{Store: store}
	r := chi.NewRouter()
	r.With(mw.RequireRoute("admin.users")).Get("/users", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusForbidden, doRequest(t, r, "/users", 1).Code)
}

func TestCanAccessRouteOnNilGuardDenies(t *testing.T) {
	var g *Guard
	subject := Subject{ID: 1, Role: RoleSuperAdmin, IsActive: true}
	require.False(t, g.CanAccessRoute(context.Background(), subject, "dashboard", 10))
}
