package rbac

import (
	"context"
	"time"
)

// Store is the persistence collaborator for the resolver and the
// administrative operations. Tests substitute an in-memory fake; the
// production implementation lives in repo.sql.go.
type Store interface {
	// FindSubject returns the user record with role and active flag.
	FindSubject(ctx context.Context, userID int64) (Subject, error)
	// FindProperty returns the property record with its active flag.
	FindProperty(ctx context.Context, propertyID int64) (Property, error)

	// IsPropertyOwner reports membership in the property's owner relation.
	IsPropertyOwner(ctx context.Context, userID, propertyID int64) (bool, error)
	// IsPropertyManager reports membership in the manager relation.
	IsPropertyManager(ctx context.Context, userID, propertyID int64) (bool, error)

	// ActivePropertyAccess returns the non-expired grant for the pair, or
	// nil when none exists.
	ActivePropertyAccess(ctx context.Context, userID, propertyID int64) (*PropertyAccess, error)
	// UpsertPropertyAccess creates or overwrites the grant keyed by
	// (userID, propertyID).
	UpsertPropertyAccess(ctx context.Context, access PropertyAccess) (PropertyAccess, error)
	// DeletePropertyAccess removes the grant; false when none existed.
	DeletePropertyAccess(ctx context.Context, userID, propertyID int64) (bool, error)
	// ListActivePropertyAccess returns every non-expired grant for a user.
	ListActivePropertyAccess(ctx context.Context, userID int64) ([]PropertyAccess, error)

	// OwnedProperties / ManagedProperties return the property relations
	// for a user, active and inactive alike; callers filter.
	OwnedProperties(ctx context.Context, userID int64) ([]Property, error)
	ManagedProperties(ctx context.Context, userID int64) ([]Property, error)
	// ListActiveProperties returns every active property.
	ListActiveProperties(ctx context.Context) ([]Property, error)

	// RolePermissionNames returns the persisted permission names for a
	// role (seeded from the catalog, mutated by administrative ops).
	RolePermissionNames(ctx context.Context, role Role) ([]string, error)
	// RolePermissionIDs returns the persisted permission ids for a role.
	RolePermissionIDs(ctx context.Context, role Role) ([]int64, error)
	// AttachRolePermission creates the edge; false when already present.
	AttachRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error)
	// DetachRolePermission deletes the edge; false when absent.
	DetachRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error)
	// DeleteRolePermissions removes every edge for a role.
	DeleteRolePermissions(ctx context.Context, role Role) error

	// ActiveUserPermissionNames returns the names of granted, non-expired
	// per-user overrides.
	ActiveUserPermissionNames(ctx context.Context, userID int64) ([]string, error)

	// DeleteExpiredGrants removes property-access and user-permission rows
	// whose expiry has passed, returning the number of rows dropped.
	DeleteExpiredGrants(ctx context.Context, now time.Time) (int64, error)

	// WithTx runs fn against a transactional view of the store.
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}
