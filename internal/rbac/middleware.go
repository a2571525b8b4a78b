package rbac

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/platecost/platecost/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers. Role-level
// checks gate rendering-style routes; anything property-scoped goes
// through the resolver so grants, overrides and expiry apply.
type Middleware struct {
	Store    Store
	Resolver *Resolver
	Guard    *Guard
	Logger   *slog.Logger
}

// RequireRole admits only subjects holding one of the listed roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := m.currentSubject(w, r)
			if !ok {
				return
			}
			if !HasAnyRole(subject, roles...) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission ensures the subject has at least one of the named
// permissions at role level. Not a substitute for property gating.
func (m Middleware) RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			subject, ok := m.currentSubject(w, r)
			if !ok {
				return
			}
			if !HasAnyPermission(subject, perms...) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePropertyAccess gates property-scoped routes on the resolved
// access level. The property id comes from the propertyID URL parameter.
func (m Middleware) RequirePropertyAccess(minLevel AccessLevel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := m.currentSubject(w, r)
			if !ok {
				return
			}
			propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			if !m.Resolver.CanAccessProperty(r.Context(), subject.ID, propertyID, minLevel) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoute delegates the decision to the static route table.
func (m Middleware) RequireRoute(routeKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := m.currentSubject(w, r)
			if !ok {
				return
			}
			var propertyID int64
			if raw := chi.URLParam(r, "propertyID"); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
					return
				}
				propertyID = id
			}
			if !m.Guard.CanAccessRoute(r.Context(), subject, routeKey, propertyID) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentSubject(w http.ResponseWriter, r *http.Request) (Subject, bool) {
	sess := shared.SessionFromContext(r.Context())
	userID := sess.UserID()
	if userID == 0 {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return Subject{}, false
	}
	subject, err := m.Store.FindSubject(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("load subject", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return Subject{}, false
	}
	if !subject.IsActive {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return Subject{}, false
	}
	return subject, true
}
