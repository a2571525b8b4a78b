package rbac

import (
	"context"
	"sync"
)

// RouteRequirement declares what a route demands from the current user.
// Roles and Permissions use ANY-of semantics; MinAccessLevel applies only
// when PropertyScoped is set and a property id accompanies the check.
type RouteRequirement struct {
	Roles          []Role
	Permissions    []string
	PropertyScoped bool
	MinAccessLevel AccessLevel
}

// Guard gates application routes on the static requirement table. Routes
// absent from the table are denied: every route must be registered
// explicitly.
type Guard struct {
	resolver *Resolver

	mu     sync.RWMutex
	routes map[string]RouteRequirement
}

// NewGuard builds a guard preloaded with the application route table.
func NewGuard(resolver *Resolver) *Guard {
	g := &Guard{resolver: resolver, routes: make(map[string]RouteRequirement)}
	for key, req := range defaultRoutes {
		g.routes[key] = req
	}
	return g
}

// Register adds or replaces a route requirement.
func (g *Guard) Register(routeKey string, req RouteRequirement) {
	g.mu.Lock()
	g.routes[routeKey] = req
	g.mu.Unlock()
}

// Requirement looks up the table entry for a route. A nil guard has no
// table, so every lookup misses.
func (g *Guard) Requirement(routeKey string) (RouteRequirement, bool) {
	if g == nil {
		return RouteRequirement{}, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	req, ok := g.routes[routeKey]
	return req, ok
}

// CanAccessRoute decides allow/deny for a subject on a route. Role
// requirements are evaluated first, then permissions (ANY-of), then the
// property gate when the route is property-scoped and a property id is
// supplied. A nil or partially wired guard denies.
func (g *Guard) CanAccessRoute(ctx context.Context, subject Subject, routeKey string, propertyID int64) bool {
	req, ok := g.Requirement(routeKey)
	if !ok {
		return false
	}
	if len(req.Roles) > 0 && !HasAnyRole(subject, req.Roles...) {
		return false
	}
	if len(req.Permissions) > 0 && !HasAnyPermission(subject, req.Permissions...) {
		return false
	}
	if req.PropertyScoped && propertyID != 0 {
		if g.resolver == nil {
			return false
		}
		minLevel := req.MinAccessLevel
		if minLevel == "" {
			minLevel = AccessReadOnly
		}
		return g.resolver.CanAccessProperty(ctx, subject.ID, propertyID, minLevel)
	}
	return true
}

// defaultRoutes is the application route table. Keys are stable route
// names used by the web layer, not URL paths.
var defaultRoutes = map[string]RouteRequirement{
	"dashboard": {
		Permissions:    []string{PermDashboardsViewOwn, PermDashboardsViewAll},
		PropertyScoped: true,
		MinAccessLevel: AccessReadOnly,
	},
	"financial.food_costs": {
		Permissions:    []string{PermFoodCostsRead},
		PropertyScoped: true,
		MinAccessLevel: AccessReadOnly,
	},
	"financial.food_costs.entry": {
		Permissions:    []string{PermFoodCostsCreate, PermFoodCostsUpdate},
		PropertyScoped: true,
		MinAccessLevel: AccessDataEntry,
	},
	"financial.beverage_costs": {
		Permissions:    []string{PermBeverageCostsRead},
		PropertyScoped: true,
		MinAccessLevel: AccessReadOnly,
	},
	"financial.beverage_costs.entry": {
		Permissions:    []string{PermBeverageCostsCreate, PermBeverageCostsUpdate},
		PropertyScoped: true,
		MinAccessLevel: AccessDataEntry,
	},
	"financial.daily_summary": {
		Permissions:    []string{PermDailySummaryRead},
		PropertyScoped: true,
		MinAccessLevel: AccessReadOnly,
	},
	"financial.daily_summary.entry": {
		Permissions:    []string{PermDailySummaryCreate},
		PropertyScoped: true,
		MinAccessLevel: AccessDataEntry,
	},
	"financial.daily_summary.approval": {
		Permissions:    []string{PermDailySummaryApprove},
		PropertyScoped: true,
		MinAccessLevel: AccessManagement,
	},
	"inventory.items": {
		Permissions:    []string{PermInventoryItemsRead},
		PropertyScoped: true,
		MinAccessLevel: AccessReadOnly,
	},
	"inventory.counts": {
		Permissions:    []string{PermInventoryCountsRead, PermInventoryCountsCreate},
		PropertyScoped: true,
		MinAccessLevel: AccessDataEntry,
	},
	"inventory.counts.import": {
		Permissions:    []string{PermInventoryCountsImport},
		PropertyScoped: true,
		MinAccessLevel: AccessManagement,
	},
	"budget.targets": {
		Permissions:    []string{PermBudgetTargetsRead},
		PropertyScoped: true,
		MinAccessLevel: AccessReadOnly,
	},
	"budget.targets.edit": {
		Permissions:    []string{PermBudgetTargetsUpdate, PermBudgetTargetsManage},
		PropertyScoped: true,
		MinAccessLevel: AccessManagement,
	},
	"reporting.exports": {
		Permissions:    []string{PermReportsExport},
		PropertyScoped: true,
		MinAccessLevel: AccessManagement,
	},
	"admin.users": {
		Roles:       []Role{RoleSuperAdmin, RolePropertyAdmin, RolePropertyOwner},
		Permissions: []string{PermUserAccountsManage},
	},
	"admin.properties": {
		Roles:       []Role{RoleSuperAdmin, RolePropertyOwner},
		Permissions: []string{PermPropertyRecordsManage, PermPropertyRecordsUpdate},
	},
	"admin.property_access": {
		Permissions:    []string{PermPropertyAccessManage},
		PropertyScoped: true,
		MinAccessLevel: AccessFullControl,
	},
	"admin.role_permissions": {
		Roles: []Role{RoleSuperAdmin},
	},
	"admin.settings": {
		Roles:       []Role{RoleSuperAdmin},
		Permissions: []string{PermSystemSettingsManage},
	},
	"audit.timeline": {
		Permissions: []string{PermAuditLogsRead},
	},
	"audit.export": {
		Permissions: []string{PermAuditLogsExport},
	},
}
