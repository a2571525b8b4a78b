package rbac

import (
	"errors"
	"time"
)

// Role is the coarse, property-independent permission tier of a user.
// Exactly one role per user; changed only by an administrator.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RolePropertyOwner   Role = "property_owner"
	RolePropertyAdmin   Role = "property_admin"
	RoleRegionalManager Role = "regional_manager"
	RolePropertyManager Role = "property_manager"
	RoleSupervisor      Role = "supervisor"
	RoleUser            Role = "user"
	RoleReadonly        Role = "readonly"
)

// roleRanks orders roles from lowest to highest authority.
var roleRanks = map[Role]int{
	RoleReadonly:        0,
	RoleUser:            1,
	RoleSupervisor:      2,
	RolePropertyManager: 3,
	RoleRegionalManager: 4,
	RolePropertyAdmin:   5,
	RolePropertyOwner:   6,
	RoleSuperAdmin:      7,
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Category groups permissions by application area.
type Category string

const (
	CategoryFinancial  Category = "financial"
	CategoryInventory  Category = "inventory"
	CategoryBudget     Category = "budget"
	CategoryReporting  Category = "reporting"
	CategoryUsers      Category = "users"
	CategoryProperties Category = "properties"
	CategorySettings   Category = "settings"
	CategoryAudit      Category = "audit"
)

// Action is the verb half of a permission.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionRead    Action = "READ"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionManage  Action = "MANAGE"
	ActionApprove Action = "APPROVE"
	ActionExport  Action = "EXPORT"
	ActionImport  Action = "IMPORT"
	ActionViewAll Action = "VIEW_ALL"
	ActionViewOwn Action = "VIEW_OWN"
)

// Permission is an immutable catalog entry. Application logic identifies
// permissions by Name; storage relations use the surrogate ID.
type Permission struct {
	ID       int64
	Name     string
	Category Category
	Resource string
	Action   Action
}

// Subject is the user record the engine evaluates. Permissions carries
// grants already attached at login (session-cached), consumed only by the
// role-level checks.
type Subject struct {
	ID          int64
	Role        Role
	IsActive    bool
	Permissions []string
}

// Property is a tenant-scoped restaurant location.
type Property struct {
	ID       int64
	Name     string
	IsActive bool
}

// PropertyAccess grants a user a property-scoped access level. A row whose
// ExpiresAt lies in the past is treated as absent by every read path.
type PropertyAccess struct {
	UserID      int64
	PropertyID  int64
	AccessLevel AccessLevel
	GrantedBy   int64
	GrantedAt   time.Time
	ExpiresAt   *time.Time
}

// Expired reports whether the grant has lapsed at the given instant.
func (a PropertyAccess) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// UserPermission is a per-user override beyond role and access-level
// defaults. Only granted, non-expired rows contribute to the resolved set;
// granted=false rows are recorded but do not subtract from the union.
type UserPermission struct {
	UserID       int64
	PermissionID int64
	Granted      bool
	ExpiresAt    *time.Time
}

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("rbac: invalid role")
	// ErrInvalidAccessLevel indicates an unknown access level value.
	ErrInvalidAccessLevel = errors.New("rbac: invalid access level")
	// ErrUnknownPermission indicates a permission id outside the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
)
