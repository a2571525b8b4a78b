package rbac

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/platecost/platecost/internal/platform/httpx"
	"github.com/platecost/platecost/internal/shared"
)

// Handler exposes the permission-management API consumed by the
// administrative dashboard.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	admin    *Admin
	mw       Middleware
	validate *validator.Validate
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, resolver *Resolver, admin *Admin, mw Middleware) *Handler {
	return &Handler{
		logger:   logger,
		resolver: resolver,
		admin:    admin,
		mw:       mw,
		validate: validator.New(),
	}
}

// MountRoutes registers the RBAC administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAnyPermission(PermPropertyAccessManage, PermUserAccountsRead))
		r.Get("/permissions", h.listCatalog)
		r.Get("/users/{userID}/properties", h.accessibleProperties)
		r.Get("/users/{userID}/properties/{propertyID}/permissions", h.propertyPermissions)
	})
	r.Route("/properties/{propertyID}/access", func(r chi.Router) {
		r.Use(h.mw.RequireRoute("admin.property_access"))
		r.Post("/", h.grantAccess)
		r.Delete("/{userID}", h.revokeAccess)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireRoute("admin.role_permissions"))
		r.Post("/roles/{role}/permissions/assign", h.bulkAssign)
		r.Post("/roles/{role}/permissions/remove", h.bulkRemove)
		r.Post("/roles/copy", h.copyPermissions)
	})
}

type permissionView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	perms := AllPermissions()
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, permissionView{
			ID:       p.ID,
			Name:     p.Name,
			Category: string(p.Category),
			Resource: p.Resource,
			Action:   string(p.Action),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": views})
}

func (h *Handler) accessibleProperties(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	properties := h.resolver.AccessibleProperties(r.Context(), userID)
	manageable := h.resolver.ManageableProperties(r.Context(), userID)
	manageableIDs := make(map[int64]bool, len(manageable))
	for _, p := range manageable {
		manageableIDs[p.ID] = true
	}
	type propertyView struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Manageable bool   `json:"manageable"`
	}
	views := make([]propertyView, 0, len(properties))
	for _, p := range properties {
		views = append(views, propertyView{ID: p.ID, Name: p.Name, Manageable: manageableIDs[p.ID]})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"properties": views})
}

func (h *Handler) propertyPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	propertyID, ok := h.pathID(w, r, "propertyID")
	if !ok {
		return
	}
	perms := h.resolver.UserPropertyPermissions(r.Context(), userID, propertyID)
	level, hasAccess := h.resolver.UserPropertyAccessLevel(r.Context(), userID, propertyID)
	payload := map[string]any{"permissions": perms}
	if hasAccess {
		payload["access_level"] = string(level)
	}
	httpx.JSON(w, http.StatusOK, payload)
}

type grantAccessRequest struct {
	UserID      int64      `json:"user_id" validate:"required,gt=0"`
	AccessLevel string     `json:"access_level" validate:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (h *Handler) grantAccess(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.pathID(w, r, "propertyID")
	if !ok {
		return
	}
	var req grantAccessRequest
	if !h.decode(w, r, &req) {
		return
	}
	level, err := ParseAccessLevel(req.AccessLevel)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown access level")
		return
	}
	actorID := shared.SessionFromContext(r.Context()).UserID()
	access, err := h.resolver.GrantPropertyAccess(r.Context(), req.UserID, propertyID, level, actorID, req.ExpiresAt)
	if err != nil {
		h.logger.Error("grant access", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "grant failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":      access.UserID,
		"property_id":  access.PropertyID,
		"access_level": string(access.AccessLevel),
		"granted_at":   access.GrantedAt,
		"expires_at":   access.ExpiresAt,
	})
}

func (h *Handler) revokeAccess(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.pathID(w, r, "propertyID")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	actorID := shared.SessionFromContext(r.Context()).UserID()
	removed, err := h.resolver.RevokePropertyAccess(r.Context(), userID, propertyID, actorID)
	if err != nil {
		h.logger.Error("revoke access", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "revoke failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": removed})
}

type bulkPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *Handler) bulkAssign(w http.ResponseWriter, r *http.Request) {
	role, ok := h.pathRole(w, r)
	if !ok {
		return
	}
	var req bulkPermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID := shared.SessionFromContext(r.Context()).UserID()
	result, err := h.admin.BulkAssign(r.Context(), actorID, role, req.PermissionIDs)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assigned": result.Assigned, "skipped": result.Skipped})
}

func (h *Handler) bulkRemove(w http.ResponseWriter, r *http.Request) {
	role, ok := h.pathRole(w, r)
	if !ok {
		return
	}
	var req bulkPermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID := shared.SessionFromContext(r.Context()).UserID()
	result, err := h.admin.BulkRemove(r.Context(), actorID, role, req.PermissionIDs)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": result.Removed, "not_found": result.NotFound})
}

type copyPermissionsRequest struct {
	SourceRole string `json:"source_role" validate:"required"`
	TargetRole string `json:"target_role" validate:"required"`
	Overwrite  bool   `json:"overwrite"`
}

func (h *Handler) copyPermissions(w http.ResponseWriter, r *http.Request) {
	var req copyPermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	source, err := ParseRole(req.SourceRole)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown source role")
		return
	}
	target, err := ParseRole(req.TargetRole)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown target role")
		return
	}
	actorID := shared.SessionFromContext(r.Context()).UserID()
	result, err := h.admin.CopyPermissions(r.Context(), actorID, source, target, req.Overwrite)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"copied": result.Copied, "skipped": result.Skipped})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+param)
		return 0, false
	}
	return id, true
}

func (h *Handler) pathRole(w http.ResponseWriter, r *http.Request) (Role, bool) {
	role, err := ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		return "", false
	}
	return role, true
}

func (h *Handler) respondAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidAccessLevel), errors.Is(err, ErrUnknownPermission):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("admin operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "operation failed")
	}
}
