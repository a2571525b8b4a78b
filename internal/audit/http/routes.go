package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/platecost/platecost/internal/rbac"
	"github.com/platecost/platecost/internal/shared"
)

const exportRateLimit = 10
const exportRateWindow = time.Minute

// MountRoutes registers the audit timeline and CSV export endpoints. The
// export is rate limited per user since it walks the full filtered log.
func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(mw.RequireAnyPermission(rbac.PermAuditLogsRead))
		gr.Get("/audit", h.handleTimeline)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(mw.RequireAnyPermission(rbac.PermAuditLogsExport))
		gr.Use(limiter)
		gr.Get("/audit/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.UserID() != 0 {
		return "user:" + strconv.FormatInt(sess.UserID(), 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
