package rbac

// AccessLevel is a property-scoped grant tier layered on top of a role.
type AccessLevel string

const (
	AccessReadOnly    AccessLevel = "read_only"
	AccessDataEntry   AccessLevel = "data_entry"
	AccessManagement  AccessLevel = "management"
	AccessFullControl AccessLevel = "full_control"
	AccessOwner       AccessLevel = "owner"
)

// accessRanks is the single source of truth for access sufficiency checks.
// Every comparison in the system goes through CompareAccessLevels.
var accessRanks = map[AccessLevel]int{
	AccessReadOnly:    0,
	AccessDataEntry:   1,
	AccessManagement:  2,
	AccessFullControl: 3,
	AccessOwner:       4,
}

// Valid reports whether the level is one of the known values.
func (l AccessLevel) Valid() bool {
	_, ok := accessRanks[l]
	return ok
}

// ParseAccessLevel validates a raw access level string.
func ParseAccessLevel(raw string) (AccessLevel, error) {
	level := AccessLevel(raw)
	if !level.Valid() {
		return "", ErrInvalidAccessLevel
	}
	return level, nil
}

// CompareAccessLevels returns -1, 0 or 1 following the fixed total order
// read_only < data_entry < management < full_control < owner. Unknown
// levels rank below read_only.
func CompareAccessLevels(a, b AccessLevel) int {
	ra, oka := accessRanks[a]
	rb, okb := accessRanks[b]
	if !oka {
		ra = -1
	}
	if !okb {
		rb = -1
	}
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// HasRequiredAccessLevel reports whether userLevel satisfies requiredLevel.
func HasRequiredAccessLevel(userLevel, requiredLevel AccessLevel) bool {
	return CompareAccessLevels(userLevel, requiredLevel) >= 0
}

// accessLevelPermissions maps each access level to the additional
// permissions it contributes to the resolved set. Levels are additive on
// top of role defaults, not cumulative among themselves; the resolver
// unions the single applicable level.
var accessLevelPermissions = map[AccessLevel][]string{
	AccessReadOnly: {
		PermFoodCostsRead,
		PermBeverageCostsRead,
		PermDailySummaryRead,
		PermDashboardsViewOwn,
	},
	AccessDataEntry: {
		PermFoodCostsRead,
		PermFoodCostsCreate,
		PermFoodCostsUpdate,
		PermBeverageCostsRead,
		PermBeverageCostsCreate,
		PermBeverageCostsUpdate,
		PermDailySummaryRead,
		PermDailySummaryCreate,
		PermInventoryCountsCreate,
		PermDashboardsViewOwn,
	},
	AccessManagement: {
		PermFoodCostsRead,
		PermFoodCostsCreate,
		PermFoodCostsUpdate,
		PermFoodCostsDelete,
		PermBeverageCostsRead,
		PermBeverageCostsCreate,
		PermBeverageCostsUpdate,
		PermBeverageCostsDelete,
		PermDailySummaryRead,
		PermDailySummaryCreate,
		PermDailySummaryApprove,
		PermInventoryCountsCreate,
		PermInventoryCountsImport,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermDashboardsViewAll,
		PermReportsExport,
	},
	AccessFullControl: {
		PermFoodCostsRead,
		PermFoodCostsCreate,
		PermFoodCostsUpdate,
		PermFoodCostsDelete,
		PermBeverageCostsRead,
		PermBeverageCostsCreate,
		PermBeverageCostsUpdate,
		PermBeverageCostsDelete,
		PermDailySummaryRead,
		PermDailySummaryCreate,
		PermDailySummaryApprove,
		PermInventoryCountsCreate,
		PermInventoryCountsImport,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermBudgetTargetsManage,
		PermDashboardsViewAll,
		PermReportsExport,
		PermPropertyAccessManage,
		PermAuditLogsRead,
	},
	AccessOwner: {
		PermFoodCostsRead,
		PermFoodCostsCreate,
		PermFoodCostsUpdate,
		PermFoodCostsDelete,
		PermBeverageCostsRead,
		PermBeverageCostsCreate,
		PermBeverageCostsUpdate,
		PermBeverageCostsDelete,
		PermDailySummaryRead,
		PermDailySummaryCreate,
		PermDailySummaryApprove,
		PermInventoryCountsCreate,
		PermInventoryCountsImport,
		PermBudgetTargetsRead,
		PermBudgetTargetsUpdate,
		PermBudgetTargetsManage,
		PermDashboardsViewAll,
		PermReportsExport,
		PermPropertyAccessManage,
		PermPropertySettingsUpdate,
		PermPropertyRecordsManage,
		PermAuditLogsRead,
		PermAuditLogsExport,
	},
}

// AccessLevelPermissions returns the permission names contributed by the
// given access level. Unknown levels yield an empty set.
func AccessLevelPermissions(level AccessLevel) []string {
	perms := accessLevelPermissions[level]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
