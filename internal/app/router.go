package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/platecost/platecost/internal/audit/http"
	"github.com/platecost/platecost/internal/auth"
	"github.com/platecost/platecost/internal/observability"
	"github.com/platecost/platecost/internal/properties"
	"github.com/platecost/platecost/internal/rbac"
	"github.com/platecost/platecost/internal/shared"
	"github.com/platecost/platecost/internal/users"
	"github.com/platecost/platecost/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	PropertiesHandler *properties.Handler
	RBACHandler       *rbac.Handler
	AuditHandler      *audithttp.Handler
	JobsHandler       *jobs.Handler
	RBACMiddleware    rbac.Middleware
}

// NewRouter constructs the chi.Router with PlateCost defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.PropertiesHandler != nil {
		r.Route("/properties", params.PropertiesHandler.MountRoutes)
	}
	if params.RBACHandler != nil {
		r.Route("/permissions", params.RBACHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		params.AuditHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireRole(rbac.RoleSuperAdmin))
			params.JobsHandler.MountRoutes(r)
		})
	}

	return r
}
