package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/platecost/platecost/internal/platform/db"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// store methods serve pooled and transactional access.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SQLStore provides PostgreSQL backed persistence for the engine.
type SQLStore struct {
	db   querier
	pool *pgxpool.Pool
}

// NewSQLStore constructs a store over the pool.
func NewSQLStore(pool *pgxpool.Pool) *SQLStore {
	return &SQLStore{db: pool, pool: pool}
}

// FindSubject returns the user record with role and active flag.
func (s *SQLStore) FindSubject(ctx context.Context, userID int64) (Subject, error) {
	var subject Subject
	var role string
	err := s.db.QueryRow(ctx,
		`SELECT id, role, is_active FROM users WHERE id = $1`, userID).
		Scan(&subject.ID, &role, &subject.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, fmt.Errorf("rbac: find subject: %w", err)
	}
	subject.Role = Role(role)
	return subject, nil
}

// FindProperty returns a property record.
func (s *SQLStore) FindProperty(ctx context.Context, propertyID int64) (Property, error) {
	var property Property
	err := s.db.QueryRow(ctx,
		`SELECT id, name, is_active FROM properties WHERE id = $1`, propertyID).
		Scan(&property.ID, &property.Name, &property.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("rbac: find property: %w", err)
	}
	return property, nil
}

// IsPropertyOwner reports membership in the property's owner relation.
func (s *SQLStore) IsPropertyOwner(ctx context.Context, userID, propertyID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM property_owners WHERE user_id = $1 AND property_id = $2)`,
		userID, propertyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("rbac: owner relation: %w", err)
	}
	return exists, nil
}

// IsPropertyManager reports membership in the property's manager relation.
func (s *SQLStore) IsPropertyManager(ctx context.Context, userID, propertyID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM property_managers WHERE user_id = $1 AND property_id = $2)`,
		userID, propertyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("rbac: manager relation: %w", err)
	}
	return exists, nil
}

// ActivePropertyAccess returns the non-expired grant for the pair, or nil.
func (s *SQLStore) ActivePropertyAccess(ctx context.Context, userID, propertyID int64) (*PropertyAccess, error) {
	var access PropertyAccess
	var level string
	err := s.db.QueryRow(ctx,
		`SELECT user_id, property_id, access_level, granted_by, granted_at, expires_at
		 FROM property_access
		 WHERE user_id = $1 AND property_id = $2 AND (expires_at IS NULL OR expires_at > NOW())`,
		userID, propertyID).
		Scan(&access.UserID, &access.PropertyID, &level, &access.GrantedBy, &access.GrantedAt, &access.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("rbac: active property access: %w", err)
	}
	access.AccessLevel = AccessLevel(level)
	return &access, nil
}

// UpsertPropertyAccess creates or overwrites the grant for the pair.
func (s *SQLStore) UpsertPropertyAccess(ctx context.Context, access PropertyAccess) (PropertyAccess, error) {
	var stored PropertyAccess
	var level string
	err := s.db.QueryRow(ctx,
		`INSERT INTO property_access (user_id, property_id, access_level, granted_by, granted_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, property_id) DO UPDATE
		 SET access_level = EXCLUDED.access_level,
		     granted_by = EXCLUDED.granted_by,
		     granted_at = EXCLUDED.granted_at,
		     expires_at = EXCLUDED.expires_at
		 RETURNING user_id, property_id, access_level, granted_by, granted_at, expires_at`,
		access.UserID, access.PropertyID, string(access.AccessLevel), access.GrantedBy, access.GrantedAt, access.ExpiresAt).
		Scan(&stored.UserID, &stored.PropertyID, &level, &stored.GrantedBy, &stored.GrantedAt, &stored.ExpiresAt)
	if err != nil {
		return PropertyAccess{}, fmt.Errorf("rbac: upsert property access: %w", err)
	}
	stored.AccessLevel = AccessLevel(level)
	return stored, nil
}

// DeletePropertyAccess removes the grant; false when none existed.
func (s *SQLStore) DeletePropertyAccess(ctx context.Context, userID, propertyID int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM property_access WHERE user_id = $1 AND property_id = $2`, userID, propertyID)
	if err != nil {
		return false, fmt.Errorf("rbac: delete property access: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListActivePropertyAccess returns every non-expired grant for a user.
func (s *SQLStore) ListActivePropertyAccess(ctx context.Context, userID int64) ([]PropertyAccess, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, property_id, access_level, granted_by, granted_at, expires_at
		 FROM property_access
		 WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
		 ORDER BY property_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: list property access: %w", err)
	}
	defer rows.Close()
	var grants []PropertyAccess
	for rows.Next() {
		var access PropertyAccess
		var level string
		if err := rows.Scan(&access.UserID, &access.PropertyID, &level, &access.GrantedBy, &access.GrantedAt, &access.ExpiresAt); err != nil {
			return nil, err
		}
		access.AccessLevel = AccessLevel(level)
		grants = append(grants, access)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// OwnedProperties returns the properties in the user's owner relation.
func (s *SQLStore) OwnedProperties(ctx context.Context, userID int64) ([]Property, error) {
	return s.queryProperties(ctx,
		`SELECT p.id, p.name, p.is_active FROM properties p
		 JOIN property_owners o ON o.property_id = p.id
		 WHERE o.user_id = $1 ORDER BY p.id`, userID)
}

// ManagedProperties returns the properties in the user's manager relation.
func (s *SQLStore) ManagedProperties(ctx context.Context, userID int64) ([]Property, error) {
	return s.queryProperties(ctx,
		`SELECT p.id, p.name, p.is_active FROM properties p
		 JOIN property_managers m ON m.property_id = p.id
		 WHERE m.user_id = $1 ORDER BY p.id`, userID)
}

// ListActiveProperties returns every active property.
func (s *SQLStore) ListActiveProperties(ctx context.Context) ([]Property, error) {
	return s.queryProperties(ctx,
		`SELECT id, name, is_active FROM properties WHERE is_active ORDER BY id`)
}

func (s *SQLStore) queryProperties(ctx context.Context, query string, args ...any) ([]Property, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: query properties: %w", err)
	}
	defer rows.Close()
	var properties []Property
	for rows.Next() {
		var property Property
		if err := rows.Scan(&property.ID, &property.Name, &property.IsActive); err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return properties, nil
}

// RolePermissionNames returns the persisted permission names for a role.
func (s *SQLStore) RolePermissionNames(ctx context.Context, role Role) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.name FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role = $1 ORDER BY p.name`, string(role))
	if err != nil {
		return nil, fmt.Errorf("rbac: role permission names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// RolePermissionIDs returns the persisted permission ids for a role.
func (s *SQLStore) RolePermissionIDs(ctx context.Context, role Role) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT permission_id FROM role_permissions WHERE role = $1 ORDER BY permission_id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("rbac: role permission ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// AttachRolePermission creates the edge; false when already present.
func (s *SQLStore) AttachRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO role_permissions (role, permission_id) VALUES ($1, $2)
		 ON CONFLICT (role, permission_id) DO NOTHING`, string(role), permissionID)
	if err != nil {
		return false, fmt.Errorf("rbac: attach role permission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DetachRolePermission deletes the edge; false when absent.
func (s *SQLStore) DetachRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM role_permissions WHERE role = $1 AND permission_id = $2`, string(role), permissionID)
	if err != nil {
		return false, fmt.Errorf("rbac: detach role permission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteRolePermissions removes every edge for a role.
func (s *SQLStore) DeleteRolePermissions(ctx context.Context, role Role) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM role_permissions WHERE role = $1`, string(role)); err != nil {
		return fmt.Errorf("rbac: delete role permissions: %w", err)
	}
	return nil
}

// ActiveUserPermissionNames returns the names of granted, non-expired
// per-user overrides.
func (s *SQLStore) ActiveUserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.name FROM permissions p
		 JOIN user_permissions up ON up.permission_id = p.id
		 WHERE up.user_id = $1 AND up.granted AND (up.expires_at IS NULL OR up.expires_at > NOW())
		 ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: user permission names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteExpiredGrants drops lapsed property-access and user-permission
// rows.
func (s *SQLStore) DeleteExpiredGrants(ctx context.Context, now time.Time) (int64, error) {
	accessTag, err := s.db.Exec(ctx,
		`DELETE FROM property_access WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("rbac: sweep property access: %w", err)
	}
	permTag, err := s.db.Exec(ctx,
		`DELETE FROM user_permissions WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return accessTag.RowsAffected(), fmt.Errorf("rbac: sweep user permissions: %w", err)
	}
	return accessTag.RowsAffected() + permTag.RowsAffected(), nil
}

// WithTx runs fn against a transactional store view. Calls on an already
// transactional store reuse the open transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &SQLStore{db: tx})
	})
}
