package properties

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/platecost/platecost/internal/platform/httpx"
	"github.com/platecost/platecost/internal/rbac"
	"github.com/platecost/platecost/internal/shared"
)

// Handler manages property directory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *rbac.Resolver
	mw       rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *rbac.Resolver, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, mw: mw}
}

// MountRoutes registers property routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAccessible)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePropertyAccess(rbac.AccessReadOnly))
		r.Get("/{propertyID}", h.getProperty)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireRole(rbac.RoleSuperAdmin, rbac.RolePropertyOwner))
		r.Put("/{propertyID}/active", h.setActive)
	})
}

type propertyView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location,omitempty"`
	IsActive   bool   `json:"is_active"`
	Manageable bool   `json:"manageable"`
}

// listAccessible returns only the properties the caller can reach, so the
// directory doubles as the property picker for every role.
func (h *Handler) listAccessible(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID := sess.UserID()
	if userID == 0 {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	accessible := h.resolver.AccessibleProperties(r.Context(), userID)
	manageable := make(map[int64]bool)
	for _, p := range h.resolver.ManageableProperties(r.Context(), userID) {
		manageable[p.ID] = true
	}
	views := make([]propertyView, 0, len(accessible))
	for _, p := range accessible {
		views = append(views, propertyView{
			ID:         p.ID,
			Name:       p.Name,
			IsActive:   p.IsActive,
			Manageable: manageable[p.ID],
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"properties": views})
}

func (h *Handler) getProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	property, err := h.service.GetProperty(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":         property.ID,
		"name":       property.Name,
		"location":   property.Location,
		"is_active":  property.IsActive,
		"created_at": property.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	var property Property
	var err error
	if req.Active {
		property, err = h.service.Activate(r.Context(), id)
	} else {
		property, err = h.service.Deactivate(r.Context(), id)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": property.ID, "is_active": property.IsActive})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid propertyID")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "property not found")
	default:
		h.logger.Error("property operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
