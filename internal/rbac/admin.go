package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/platecost/platecost/internal/audit"
)

// Admin performs bulk role-permission mutations. A role change affects
// every user of that role on every property, so each mutation drops the
// whole cache before returning.
type Admin struct {
	store  Store
	cache  Cache
	audit  AuditRecorder
	logger *slog.Logger
}

// NewAdmin wires the administrative operations.
func NewAdmin(store Store, cache Cache, auditor AuditRecorder, logger *slog.Logger) *Admin {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{store: store, cache: cache, audit: auditor, logger: logger}
}

// BulkResult summarises a bulk assign or remove.
type BulkResult struct {
	Assigned int `json:"assigned,omitempty"`
	Skipped  int `json:"skipped,omitempty"`
	Removed  int `json:"removed,omitempty"`
	NotFound int `json:"not_found,omitempty"`
}

// CopyResult summarises a copy-permissions run.
type CopyResult struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
}

// BulkAssign creates the role-permission edge for each id, skipping edges
// already present. Already-assigned ids are reported, not errors.
func (a *Admin) BulkAssign(ctx context.Context, actorID int64, role Role, permissionIDs []int64) (BulkResult, error) {
	if !role.Valid() {
		return BulkResult{}, ErrInvalidRole
	}
	if err := validatePermissionIDs(permissionIDs); err != nil {
		return BulkResult{}, err
	}
	var result BulkResult
	for _, id := range permissionIDs {
		created, err := a.store.AttachRolePermission(ctx, role, id)
		if err != nil {
			return result, fmt.Errorf("rbac: bulk assign %s: %w", role, err)
		}
		if created {
			result.Assigned++
		} else {
			result.Skipped++
		}
	}
	a.recordAudit(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionBulkAssignPerms,
		Resource:   "role_permissions",
		ResourceID: string(role),
		Meta:       map[string]any{"permission_ids": permissionIDs, "assigned": result.Assigned, "skipped": result.Skipped},
	})
	a.flushCache(ctx, ReasonRolePermissions)
	return result, nil
}

// BulkRemove deletes matching edges; absent edges are reported, not
// errors.
func (a *Admin) BulkRemove(ctx context.Context, actorID int64, role Role, permissionIDs []int64) (BulkResult, error) {
	if !role.Valid() {
		return BulkResult{}, ErrInvalidRole
	}
	if err := validatePermissionIDs(permissionIDs); err != nil {
		return BulkResult{}, err
	}
	var result BulkResult
	for _, id := range permissionIDs {
		removed, err := a.store.DetachRolePermission(ctx, role, id)
		if err != nil {
			return result, fmt.Errorf("rbac: bulk remove %s: %w", role, err)
		}
		if removed {
			result.Removed++
		} else {
			result.NotFound++
		}
	}
	a.recordAudit(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionBulkRemovePerms,
		Resource:   "role_permissions",
		ResourceID: string(role),
		Meta:       map[string]any{"permission_ids": permissionIDs, "removed": result.Removed, "not_found": result.NotFound},
	})
	a.flushCache(ctx, ReasonRolePermissions)
	return result, nil
}

// CopyPermissions copies every edge from sourceRole onto targetRole. With
// overwrite, targetRole's edges are dropped first so the target set ends
// up exactly equal to the source set. The write runs in one transaction.
func (a *Admin) CopyPermissions(ctx context.Context, actorID int64, sourceRole, targetRole Role, overwrite bool) (CopyResult, error) {
	if !sourceRole.Valid() || !targetRole.Valid() {
		return CopyResult{}, ErrInvalidRole
	}
	if sourceRole == targetRole {
		return CopyResult{}, fmt.Errorf("rbac: copy permissions: source and target are the same role")
	}
	var result CopyResult
	err := a.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		sourceIDs, err := tx.RolePermissionIDs(ctx, sourceRole)
		if err != nil {
			return err
		}
		if overwrite {
			if err := tx.DeleteRolePermissions(ctx, targetRole); err != nil {
				return err
			}
		}
		for _, id := range sourceIDs {
			created, err := tx.AttachRolePermission(ctx, targetRole, id)
			if err != nil {
				return err
			}
			if created {
				result.Copied++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return CopyResult{}, fmt.Errorf("rbac: copy permissions %s -> %s: %w", sourceRole, targetRole, err)
	}
	a.recordAudit(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionCopyRolePerms,
		Resource:   "role_permissions",
		ResourceID: string(targetRole),
		Meta:       map[string]any{"source_role": string(sourceRole), "overwrite": overwrite, "copied": result.Copied, "skipped": result.Skipped},
	})
	a.flushCache(ctx, ReasonRolePermissions)
	return result, nil
}

func validatePermissionIDs(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no permission ids supplied", ErrUnknownPermission)
	}
	for _, id := range ids {
		if _, ok := PermissionByID(id); !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownPermission, id)
		}
	}
	return nil
}

func (a *Admin) flushCache(ctx context.Context, reason string) {
	if err := a.cache.Invalidate(ctx, InvalidationEvent{Reason: reason}); err != nil {
		a.logger.Warn("flush permission cache", slog.String("reason", reason), slog.Any("error", err))
	}
}

func (a *Admin) recordAudit(ctx context.Context, entry audit.Entry) {
	if a.audit == nil {
		return
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		a.logger.Warn("record audit entry", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
