package rbac

// Permission names. The dotted form is category-qualified
// resource.action and is what handlers and route requirements refer to.
const (
	PermFoodCostsCreate = "financial.food_costs.create"
	PermFoodCostsRead   = "financial.food_costs.read"
	PermFoodCostsUpdate = "financial.food_costs.update"
	PermFoodCostsDelete = "financial.food_costs.delete"

	PermBeverageCostsCreate = "financial.beverage_costs.create"
	PermBeverageCostsRead   = "financial.beverage_costs.read"
	PermBeverageCostsUpdate = "financial.beverage_costs.update"
	PermBeverageCostsDelete = "financial.beverage_costs.delete"

	PermDailySummaryCreate  = "financial.daily_summary.create"
	PermDailySummaryRead    = "financial.daily_summary.read"
	PermDailySummaryApprove = "financial.daily_summary.approve"

	PermInventoryItemsCreate  = "inventory.items.create"
	PermInventoryItemsRead    = "inventory.items.read"
	PermInventoryItemsUpdate  = "inventory.items.update"
	PermInventoryItemsDelete  = "inventory.items.delete"
	PermInventoryCountsCreate = "inventory.counts.create"
	PermInventoryCountsRead   = "inventory.counts.read"
	PermInventoryCountsImport = "inventory.counts.import"

	PermBudgetTargetsRead   = "budget.targets.read"
	PermBudgetTargetsUpdate = "budget.targets.update"
	PermBudgetTargetsManage = "budget.targets.manage"
	PermBudgetForecastsRead = "budget.forecasts.read"

	PermDashboardsViewAll = "reporting.dashboards.view_all"
	PermDashboardsViewOwn = "reporting.dashboards.view_own"
	PermReportsExport     = "reporting.reports.export"

	PermUserAccountsCreate = "users.accounts.create"
	PermUserAccountsRead   = "users.accounts.read"
	PermUserAccountsUpdate = "users.accounts.update"
	PermUserAccountsDelete = "users.accounts.delete"
	PermUserAccountsManage = "users.accounts.manage"

	PermPropertyRecordsCreate  = "properties.records.create"
	PermPropertyRecordsRead    = "properties.records.read"
	PermPropertyRecordsUpdate  = "properties.records.update"
	PermPropertyRecordsManage  = "properties.records.manage"
	PermPropertyAccessManage   = "properties.access.manage"
	PermPropertySettingsUpdate = "settings.property.update"
	PermSystemSettingsManage   = "settings.system.manage"

	PermAuditLogsRead   = "audit.logs.read"
	PermAuditLogsExport = "audit.logs.export"
)

// catalog is the seeded permission set. IDs are stable surrogates used by
// the role_permissions and user_permissions relations.
var catalog = []Permission{
	{ID: 1, Name: PermFoodCostsCreate, Category: CategoryFinancial, Resource: "food_costs", Action: ActionCreate},
	{ID: 2, Name: PermFoodCostsRead, Category: CategoryFinancial, Resource: "food_costs", Action: ActionRead},
	{ID: 3, Name: PermFoodCostsUpdate, Category: CategoryFinancial, Resource: "food_costs", Action: ActionUpdate},
	{ID: 4, Name: PermFoodCostsDelete, Category: CategoryFinancial, Resource: "food_costs", Action: ActionDelete},
	{ID: 5, Name: PermBeverageCostsCreate, Category: CategoryFinancial, Resource: "beverage_costs", Action: ActionCreate},
	{ID: 6, Name: PermBeverageCostsRead, Category: CategoryFinancial, Resource: "beverage_costs", Action: ActionRead},
	{ID: 7, Name: PermBeverageCostsUpdate, Category: CategoryFinancial, Resource: "beverage_costs", Action: ActionUpdate},
	{ID: 8, Name: PermBeverageCostsDelete, Category: CategoryFinancial, Resource: "beverage_costs", Action: ActionDelete},
	{ID: 9, Name: PermDailySummaryCreate, Category: CategoryFinancial, Resource: "daily_summary", Action: ActionCreate},
	{ID: 10, Name: PermDailySummaryRead, Category: CategoryFinancial, Resource: "daily_summary", Action: ActionRead},
	{ID: 11, Name: PermDailySummaryApprove, Category: CategoryFinancial, Resource: "daily_summary", Action: ActionApprove},
	{ID: 12, Name: PermInventoryItemsCreate, Category: CategoryInventory, Resource: "items", Action: ActionCreate},
	{ID: 13, Name: PermInventoryItemsRead, Category: CategoryInventory, Resource: "items", Action: ActionRead},
	{ID: 14, Name: PermInventoryItemsUpdate, Category: CategoryInventory, Resource: "items", Action: ActionUpdate},
	{ID: 15, Name: PermInventoryItemsDelete, Category: CategoryInventory, Resource: "items", Action: ActionDelete},
	{ID: 16, Name: PermInventoryCountsCreate, Category: CategoryInventory, Resource: "counts", Action: ActionCreate},
	{ID: 17, Name: PermInventoryCountsRead, Category: CategoryInventory, Resource: "counts", Action: ActionRead},
	{ID: 18, Name: PermInventoryCountsImport, Category: CategoryInventory, Resource: "counts", Action: ActionImport},
	{ID: 19, Name: PermBudgetTargetsRead, Category: CategoryBudget, Resource: "targets", Action: ActionRead},
	{ID: 20, Name: PermBudgetTargetsUpdate, Category: CategoryBudget, Resource: "targets", Action: ActionUpdate},
	{ID: 21, Name: PermBudgetTargetsManage, Category: CategoryBudget, Resource: "targets", Action: ActionManage},
	{ID: 22, Name: PermBudgetForecastsRead, Category: CategoryBudget, Resource: "forecasts", Action: ActionRead},
	{ID: 23, Name: PermDashboardsViewAll, Category: CategoryReporting, Resource: "dashboards", Action: ActionViewAll},
	{ID: 24, Name: PermDashboardsViewOwn, Category: CategoryReporting, Resource: "dashboards", Action: ActionViewOwn},
	{ID: 25, Name: PermReportsExport, Category: CategoryReporting, Resource: "reports", Action: ActionExport},
	{ID: 26, Name: PermUserAccountsCreate, Category: CategoryUsers, Resource: "accounts", Action: ActionCreate},
	{ID: 27, Name: PermUserAccountsRead, Category: CategoryUsers, Resource: "accounts", Action: ActionRead},
	{ID: 28, Name: PermUserAccountsUpdate, Category: CategoryUsers, Resource: "accounts", Action: ActionUpdate},
	{ID: 29, Name: PermUserAccountsDelete, Category: CategoryUsers, Resource: "accounts", Action: ActionDelete},
	{ID: 30, Name: PermUserAccountsManage, Category: CategoryUsers, Resource: "accounts", Action: ActionManage},
	{ID: 31, Name: PermPropertyRecordsCreate, Category: CategoryProperties, Resource: "records", Action: ActionCreate},
	{ID: 32, Name: PermPropertyRecordsRead, Category: CategoryProperties, Resource: "records", Action: ActionRead},
	{ID: 33, Name: PermPropertyRecordsUpdate, Category: CategoryProperties, Resource: "records", Action: ActionUpdate},
	{ID: 34, Name: PermPropertyRecordsManage, Category: CategoryProperties, Resource: "records", Action: ActionManage},
	{ID: 35, Name: PermPropertyAccessManage, Category: CategoryProperties, Resource: "access", Action: ActionManage},
	{ID: 36, Name: PermPropertySettingsUpdate, Category: CategorySettings, Resource: "property", Action: ActionUpdate},
	{ID: 37, Name: PermSystemSettingsManage, Category: CategorySettings, Resource: "system", Action: ActionManage},
	{ID: 38, Name: PermAuditLogsRead, Category: CategoryAudit, Resource: "logs", Action: ActionRead},
	{ID: 39, Name: PermAuditLogsExport, Category: CategoryAudit, Resource: "logs", Action: ActionExport},
}

var (
	permissionsByName = func() map[string]Permission {
		m := make(map[string]Permission, len(catalog))
		for _, p := range catalog {
			m[p.Name] = p
		}
		return m
	}()
	permissionsByID = func() map[int64]Permission {
		m := make(map[int64]Permission, len(catalog))
		for _, p := range catalog {
			m[p.ID] = p
		}
		return m
	}()
)

// defaultRolePermissions is the seeded mapping from each role to its
// default permission names, independent of any property. Administrative
// bulk operations mutate the persisted role_permissions edges that start
// from this seed.
var defaultRolePermissions = map[Role][]string{
	RoleReadonly: {
		PermFoodCostsRead,
		PermBeverageCostsRead,
		PermDailySummaryRead,
		PermInventoryItemsRead,
		PermDashboardsViewOwn,
	},
	RoleUser: {
		PermFoodCostsRead,
		PermBeverageCostsRead,
		PermDailySummaryRead,
		PermInventoryItemsRead,
		PermInventoryCountsRead,
		PermBudgetTargetsRead,
		PermDashboardsViewOwn,
	},
	RoleSupervisor: {
		PermFoodCostsCreate,
		PermFoodCostsRead,
		PermFoodCostsUpdate,
		PermBeverageCostsCreate,
		PermBeverageCostsRead,
		PermBeverageCostsUpdate,
		PermDailySummaryCreate,
		PermDailySummaryRead,
		PermInventoryItemsRead,
		PermInventoryCountsCreate,
		PermInventoryCountsRead,
		PermBudgetTargetsRead,
		PermDashboardsViewOwn,
	},
	RolePropertyManager: {
		PermFoodCostsCreate,
		PermFoodCostsRead,
		PermFoodCostsUpdate,
		PermFoodCostsDelete,
		PermBeverageCostsCreate,
		PermBeverageCostsRead,
		PermBeverageCostsUpdate,
		PermBeverageCostsDelete,
		PermDailySummaryCreate,
		PermDailySummaryRead,
		PermDailySummaryApprove,
		PermInventoryItemsCreate,
		PermInventoryItemsRead,
		PermInventoryItemsUpdate,
		PermInventoryCountsCreate,
		PermInventoryCountsRead,
		PermInventoryCountsImport,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermBudgetForecastsRead,
		PermDashboardsViewAll,
		PermReportsExport,
	},
	RoleRegionalManager: {
		PermFoodCostsRead,
		PermBeverageCostsRead,
		PermDailySummaryRead,
		PermDailySummaryApprove,
		PermInventoryItemsRead,
		PermInventoryCountsRead,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermBudgetForecastsRead,
		PermDashboardsViewAll,
		PermReportsExport,
		PermUserAccountsRead,
		PermPropertyRecordsRead,
	},
	RolePropertyAdmin: {
		PermFoodCostsCreate,
		PermFoodCostsRead,
		PermFoodCostsUpdate,
		PermFoodCostsDelete,
		PermBeverageCostsCreate,
		PermBeverageCostsRead,
		PermBeverageCostsUpdate,
		PermBeverageCostsDelete,
		PermDailySummaryCreate,
		PermDailySummaryRead,
		PermDailySummaryApprove,
		PermInventoryItemsCreate,
		PermInventoryItemsRead,
		PermInventoryItemsUpdate,
		PermInventoryItemsDelete,
		PermInventoryCountsCreate,
		PermInventoryCountsRead,
		PermInventoryCountsImport,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermBudgetTargetsManage,
		PermBudgetForecastsRead,
		PermDashboardsViewAll,
		PermReportsExport,
		PermUserAccountsCreate,
		PermUserAccountsRead,
		PermUserAccountsUpdate,
		PermUserAccountsManage,
		PermPropertyRecordsRead,
		PermPropertyRecordsUpdate,
		PermPropertyAccessManage,
		PermAuditLogsRead,
	},
	RolePropertyOwner: {
		PermFoodCostsCreate,
		PermFoodCostsRead,
		PermFoodCostsUpdate,
		PermFoodCostsDelete,
		PermBeverageCostsCreate,
		PermBeverageCostsRead,
		PermBeverageCostsUpdate,
		PermBeverageCostsDelete,
		PermDailySummaryCreate,
		PermDailySummaryRead,
		PermDailySummaryApprove,
		PermInventoryItemsCreate,
		PermInventoryItemsRead,
		PermInventoryItemsUpdate,
		PermInventoryItemsDelete,
		PermInventoryCountsCreate,
		PermInventoryCountsRead,
		PermInventoryCountsImport,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermBudgetTargetsManage,
		PermBudgetForecastsRead,
		PermDashboardsViewAll,
		PermReportsExport,
		PermUserAccountsCreate,
		PermUserAccountsRead,
		PermUserAccountsUpdate,
		PermUserAccountsDelete,
		PermUserAccountsManage,
		PermPropertyRecordsCreate,
		PermPropertyRecordsRead,
		PermPropertyRecordsUpdate,
		PermPropertyRecordsManage,
		PermPropertyAccessManage,
		PermPropertySettingsUpdate,
		PermAuditLogsRead,
		PermAuditLogsExport,
	},
}

func init() {
	// super_admin holds the full catalog.
	all := make([]string, 0, len(catalog))
	for _, p := range catalog {
		all = append(all, p.Name)
	}
	defaultRolePermissions[RoleSuperAdmin] = all
}

// AllPermissions returns the full seeded catalog.
func AllPermissions() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// AllPermissionNames returns every catalog permission name.
func AllPermissionNames() []string {
	out := make([]string, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p.Name)
	}
	return out
}

// PermissionByName looks up a catalog entry by its dotted name.
func PermissionByName(name string) (Permission, bool) {
	p, ok := permissionsByName[name]
	return p, ok
}

// PermissionByID looks up a catalog entry by surrogate id.
func PermissionByID(id int64) (Permission, bool) {
	p, ok := permissionsByID[id]
	return p, ok
}

// RolePermissions returns the default permission names for a role, not
// expanded with access-level or user overrides. Unknown roles yield an
// empty set; this never errors.
func RolePermissions(role Role) []string {
	perms := defaultRolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
