package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/platecost/platecost/internal/audit"
)

// AuditRecorder is the append-only audit collaborator.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Resolver computes effective property access and permission sets. Read
// paths fail closed: a persistence error degrades to "no access" or an
// empty set, never to an allow.
type Resolver struct {
	store  Store
	cache  Cache
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver wires the resolver with its collaborators.
func NewResolver(store Store, cache Cache, auditor AuditRecorder, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: cache, audit: auditor, logger: logger, now: time.Now}
}

// UserPropertyAccessLevel resolves the applicable access level for the
// pair. Precedence, highest wins: super_admin role, owner relation,
// manager relation, then an active explicit grant. The second return is
// false when the user has no access.
func (r *Resolver) UserPropertyAccessLevel(ctx context.Context, userID, propertyID int64) (AccessLevel, bool) {
	subject, err := r.store.FindSubject(ctx, userID)
	if err != nil {
		r.logger.Warn("resolve access level: find subject", slog.Int64("user_id", userID), slog.Any("error", err))
		return "", false
	}
	return r.accessLevelFor(ctx, subject, propertyID)
}

func (r *Resolver) accessLevelFor(ctx context.Context, subject Subject, propertyID int64) (AccessLevel, bool) {
	if subject.Role == RoleSuperAdmin {
		return AccessOwner, true
	}
	owner, err := r.store.IsPropertyOwner(ctx, subject.ID, propertyID)
	if err != nil {
		r.logger.Warn("resolve access level: owner relation", slog.Any("error", err))
		return "", false
	}
	if owner {
		return AccessOwner, true
	}
	manager, err := r.store.IsPropertyManager(ctx, subject.ID, propertyID)
	if err != nil {
		r.logger.Warn("resolve access level: manager relation", slog.Any("error", err))
		return "", false
	}
	if manager {
		return AccessFullControl, true
	}
	access, err := r.store.ActivePropertyAccess(ctx, subject.ID, propertyID)
	if err != nil {
		r.logger.Warn("resolve access level: property access", slog.Any("error", err))
		return "", false
	}
	// Expired rows are absent on every read path, even if the store
	// returns them.
	if access == nil || access.Expired(r.now()) {
		return "", false
	}
	return access.AccessLevel, true
}

// CanAccessProperty reports whether the user may act on the property with
// at least requiredLevel. Inactive users and inactive properties are
// denied regardless of grants.
func (r *Resolver) CanAccessProperty(ctx context.Context, userID, propertyID int64, requiredLevel AccessLevel) bool {
	if requiredLevel == "" {
		requiredLevel = AccessReadOnly
	}
	subject, err := r.store.FindSubject(ctx, userID)
	if err != nil {
		r.logger.Warn("can access property: find subject", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	if !subject.IsActive {
		return false
	}
	property, err := r.store.FindProperty(ctx, propertyID)
	if err != nil {
		r.logger.Warn("can access property: find property", slog.Int64("property_id", propertyID), slog.Any("error", err))
		return false
	}
	if !property.IsActive {
		return false
	}
	level, ok := r.accessLevelFor(ctx, subject, propertyID)
	if !ok {
		return false
	}
	return HasRequiredAccessLevel(level, requiredLevel)
}

// UserPropertyPermissions returns the resolved permission set for the
// pair: role permissions, access-level permissions and active per-user
// grants, deduplicated. The cache is consulted first.
func (r *Resolver) UserPropertyPermissions(ctx context.Context, userID, propertyID int64) []string {
	if perms, ok := r.cache.Get(ctx, userID, propertyID); ok {
		return perms
	}
	subject, err := r.store.FindSubject(ctx, userID)
	if err != nil {
		r.logger.Warn("resolve permissions: find subject", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
	if subject.Role == RoleSuperAdmin {
		perms := AllPermissionNames()
		sort.Strings(perms)
		r.cache.Set(ctx, userID, propertyID, perms)
		return perms
	}
	rolePerms, err := r.store.RolePermissionNames(ctx, subject.Role)
	if err != nil {
		r.logger.Warn("resolve permissions: role permissions", slog.Any("error", err))
		return nil
	}
	set := make(map[string]struct{}, len(rolePerms))
	for _, name := range rolePerms {
		set[name] = struct{}{}
	}
	if level, ok := r.accessLevelFor(ctx, subject, propertyID); ok {
		for _, name := range AccessLevelPermissions(level) {
			set[name] = struct{}{}
		}
	}
	overrides, err := r.store.ActiveUserPermissionNames(ctx, userID)
	if err != nil {
		r.logger.Warn("resolve permissions: user overrides", slog.Any("error", err))
		return nil
	}
	for _, name := range overrides {
		set[name] = struct{}{}
	}
	perms := make([]string, 0, len(set))
	for name := range set {
		perms = append(perms, name)
	}
	sort.Strings(perms)
	r.cache.Set(ctx, userID, propertyID, perms)
	return perms
}

// HasPropertyPermission reports whether the resolved set contains the
// named permission.
func (r *Resolver) HasPropertyPermission(ctx context.Context, userID, propertyID int64, name string) bool {
	for _, p := range r.UserPropertyPermissions(ctx, userID, propertyID) {
		if p == name {
			return true
		}
	}
	return false
}

// HasAnyPropertyPermission reports whether the resolved set intersects the
// requested list.
func (r *Resolver) HasAnyPropertyPermission(ctx context.Context, userID, propertyID int64, names ...string) bool {
	resolved := r.UserPropertyPermissions(ctx, userID, propertyID)
	set := make(map[string]struct{}, len(resolved))
	for _, p := range resolved {
		set[p] = struct{}{}
	}
	for _, name := range names {
		if _, ok := set[name]; ok {
			return true
		}
	}
	return false
}

// HasAllPropertyPermissions reports whether the resolved set is a superset
// of the requested list.
func (r *Resolver) HasAllPropertyPermissions(ctx context.Context, userID, propertyID int64, names ...string) bool {
	resolved := r.UserPropertyPermissions(ctx, userID, propertyID)
	set := make(map[string]struct{}, len(resolved))
	for _, p := range resolved {
		set[p] = struct{}{}
	}
	for _, name := range names {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

// GrantPropertyAccess upserts the grant keyed by (userID, propertyID); a
// second grant for the same pair overwrites level, grantor and expiry.
// The cache invalidation completes before this returns.
func (r *Resolver) GrantPropertyAccess(ctx context.Context, userID, propertyID int64, level AccessLevel, grantedBy int64, expiresAt *time.Time) (PropertyAccess, error) {
	if !level.Valid() {
		return PropertyAccess{}, ErrInvalidAccessLevel
	}
	access := PropertyAccess{
		UserID:      userID,
		PropertyID:  propertyID,
		AccessLevel: level,
		GrantedBy:   grantedBy,
		GrantedAt:   r.now().UTC(),
		ExpiresAt:   expiresAt,
	}
	stored, err := r.store.UpsertPropertyAccess(ctx, access)
	if err != nil {
		r.logger.Error("grant property access", slog.Int64("user_id", userID), slog.Int64("property_id", propertyID), slog.Any("error", err))
		return PropertyAccess{}, fmt.Errorf("rbac: grant property access: %w", err)
	}
	r.recordAudit(ctx, audit.Entry{
		ActorID:    grantedBy,
		PropertyID: &propertyID,
		Action:     audit.ActionGrantPropertyAccess,
		Resource:   "property_access",
		ResourceID: fmt.Sprintf("%d:%d", userID, propertyID),
		Meta:       map[string]any{"user_id": userID, "access_level": string(level)},
	})
	if err := r.cache.Invalidate(ctx, InvalidationEvent{UserID: userID, PropertyID: propertyID, Reason: ReasonAccessGranted}); err != nil {
		r.logger.Warn("grant property access: invalidate cache", slog.Any("error", err))
	}
	return stored, nil
}

// RevokePropertyAccess deletes the grant. Revoking a non-existent grant is
// not an error; the boolean reports whether a grant was removed.
func (r *Resolver) RevokePropertyAccess(ctx context.Context, userID, propertyID, revokedBy int64) (bool, error) {
	removed, err := r.store.DeletePropertyAccess(ctx, userID, propertyID)
	if err != nil {
		r.logger.Error("revoke property access", slog.Int64("user_id", userID), slog.Int64("property_id", propertyID), slog.Any("error", err))
		return false, fmt.Errorf("rbac: revoke property access: %w", err)
	}
	if removed {
		r.recordAudit(ctx, audit.Entry{
			ActorID:    revokedBy,
			PropertyID: &propertyID,
			Action:     audit.ActionRevokePropertyAccess,
			Resource:   "property_access",
			ResourceID: fmt.Sprintf("%d:%d", userID, propertyID),
			Meta:       map[string]any{"user_id": userID},
		})
	}
	if err := r.cache.Invalidate(ctx, InvalidationEvent{UserID: userID, PropertyID: propertyID, Reason: ReasonAccessRevoked}); err != nil {
		r.logger.Warn("revoke property access: invalidate cache", slog.Any("error", err))
	}
	return removed, nil
}

// AccessibleProperties returns the active properties the user can reach:
// owned, managed and explicitly granted, deduplicated. super_admin sees
// every active property.
func (r *Resolver) AccessibleProperties(ctx context.Context, userID int64) []Property {
	return r.collectProperties(ctx, userID, AccessReadOnly)
}

// ManageableProperties restricts AccessibleProperties to access level
// management and above.
func (r *Resolver) ManageableProperties(ctx context.Context, userID int64) []Property {
	return r.collectProperties(ctx, userID, AccessManagement)
}

func (r *Resolver) collectProperties(ctx context.Context, userID int64, minLevel AccessLevel) []Property {
	subject, err := r.store.FindSubject(ctx, userID)
	if err != nil {
		r.logger.Warn("collect properties: find subject", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
	if subject.Role == RoleSuperAdmin {
		all, err := r.store.ListActiveProperties(ctx)
		if err != nil {
			r.logger.Warn("collect properties: list active", slog.Any("error", err))
			return nil
		}
		return all
	}
	seen := make(map[int64]struct{})
	var out []Property
	appendActive := func(props []Property) {
		for _, p := range props {
			if !p.IsActive {
				continue
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	owned, err := r.store.OwnedProperties(ctx, userID)
	if err != nil {
		r.logger.Warn("collect properties: owned", slog.Any("error", err))
		return nil
	}
	appendActive(owned)
	managed, err := r.store.ManagedProperties(ctx, userID)
	if err != nil {
		r.logger.Warn("collect properties: managed", slog.Any("error", err))
		return nil
	}
	appendActive(managed)
	grants, err := r.store.ListActivePropertyAccess(ctx, userID)
	if err != nil {
		r.logger.Warn("collect properties: grants", slog.Any("error", err))
		return nil
	}
	now := r.now()
	for _, grant := range grants {
		if grant.Expired(now) || !HasRequiredAccessLevel(grant.AccessLevel, minLevel) {
			continue
		}
		if _, ok := seen[grant.PropertyID]; ok {
			continue
		}
		property, err := r.store.FindProperty(ctx, grant.PropertyID)
		if err != nil {
			r.logger.Warn("collect properties: find property", slog.Int64("property_id", grant.PropertyID), slog.Any("error", err))
			continue
		}
		appendActive([]Property{property})
	}
	return out
}

func (r *Resolver) recordAudit(ctx context.Context, entry audit.Entry) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Record(ctx, entry); err != nil {
		r.logger.Warn("record audit entry", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
