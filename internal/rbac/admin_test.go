package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platecost/platecost/internal/audit"
)

func newAdminFixture() (*Admin, *memoryStore, *MemoryCache, *recordingAudit) {
	store := newMemoryStore()
	cache := NewMemoryCache()
	auditRec := &recordingAudit{}
	return NewAdmin(store, cache, auditRec, nil), store, cache, auditRec
}

func TestBulkAssignCountsNewAndExisting(t *testing.T) {
	admin, store, _, auditRec := newAdminFixture()
	ctx := context.Background()

	existing, ok := PermissionByName(PermReportsExport)
	require.True(t, ok)
	fresh, ok := PermissionByName(PermAuditLogsRead)
	require.True(t, ok)
	store.rolePerms[RoleSupervisor] = map[int64]bool{existing.ID: true}

	result, err := admin.BulkAssign(ctx, 1, RoleSupervisor, []int64{existing.ID, fresh.ID})
	require.NoError(t, err)
	require.Equal(t, BulkResult{Assigned: 1, Skipped: 1}, result)
	require.True(t, store.rolePerms[RoleSupervisor][fresh.ID])

	require.Len(t, auditRec.entries, 1)
	require.Equal(t, audit.ActionBulkAssignPerms, auditRec.entries[0].Action)
	require.Equal(t, string(RoleSupervisor), auditRec.entries[0].ResourceID)
}

func TestBulkRemoveCountsRemovedAndMissing(t *testing.T) {
	admin, store, _, _ := newAdminFixture()
	ctx := context.Background()

	present, ok := PermissionByName(PermFoodCostsRead)
	require.True(t, ok)
	absent, ok := PermissionByName(PermUserAccountsDelete)
	require.True(t, ok)
	store.rolePerms[RoleUser] = map[int64]bool{present.ID: true}

	result, err := admin.BulkRemove(ctx, 1, RoleUser, []int64{present.ID, absent.ID})
	require.NoError(t, err)
	require.Equal(t, BulkResult{Removed: 1, NotFound: 1}, result)
	require.False(t, store.rolePerms[RoleUser][present.ID])
}

func TestBulkMutationsValidateInput(t *testing.T) {
	admin, _, _, _ := newAdminFixture()
	ctx := context.Background()

	_, err := admin.BulkAssign(ctx, 1, Role("janitor"), []int64{1})
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = admin.BulkAssign(ctx, 1, RoleUser, nil)
	require.ErrorIs(t, err, ErrUnknownPermission)

	_, err = admin.BulkAssign(ctx, 1, RoleUser, []int64{1, 9999})
	require.ErrorIs(t, err, ErrUnknownPermission)

	_, err = admin.BulkRemove(ctx, 1, RoleUser, []int64{-3})
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestCopyPermissionsOverwriteYieldsExactSourceSet(t *testing.T) {
	admin, store, _, auditRec := newAdminFixture()
	ctx := context.Background()

	store.seedRoleDefaults(RolePropertyManager)
	stray, ok := PermissionByName(PermPropertySettingsUpdate)
	require.True(t, ok)
	store.rolePerms[RoleSupervisor] = map[int64]bool{stray.ID: true}

	result, err := admin.CopyPermissions(ctx, 1, RolePropertyManager, RoleSupervisor, true)
	require.NoError(t, err)
	require.Equal(t, len(store.rolePerms[RolePropertyManager]), result.Copied)
	require.Zero(t, result.Skipped)

	require.Equal(t, store.rolePerms[RolePropertyManager], store.rolePerms[RoleSupervisor])
	require.False(t, store.rolePerms[RoleSupervisor][stray.ID])

	require.Len(t, auditRec.entries, 1)
	require.Equal(t, audit.ActionCopyRolePerms, auditRec.entries[0].Action)
}

func TestCopyPermissionsMergeSkipsExisting(t *testing.T) {
	admin, store, _, _ := newAdminFixture()
	ctx := context.Background()

	store.seedRoleDefaults(RoleReadonly)
	shared, ok := PermissionByName(PermFoodCostsRead)
	require.True(t, ok)
	stray, ok := PermissionByName(PermPropertySettingsUpdate)
	require.True(t, ok)
	store.rolePerms[RoleUser] = map[int64]bool{shared.ID: true, stray.ID: true}

	result, err := admin.CopyPermissions(ctx, 1, RoleReadonly, RoleUser, false)
	require.NoError(t, err)
	require.Equal(t, len(store.rolePerms[RoleReadonly])-1, result.Copied)
	require.Equal(t, 1, result.Skipped)
	// Merge keeps edges the source does not have.
	require.True(t, store.rolePerms[RoleUser][stray.ID])
}

func TestCopyPermissionsRejectsSameRole(t *testing.T) {
	admin, _, _, _ := newAdminFixture()
	_, err := admin.CopyPermissions(context.Background(), 1, RoleUser, RoleUser, true)
	require.Error(t, err)
}

func TestRoleMutationsFlushWholeCache(t *testing.T) {
	admin, store, cache, _ := newAdminFixture()
	ctx := context.Background()

	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	cache.Set(ctx, 2, 20, []string{PermFoodCostsRead})
	require.Equal(t, 2, cache.Len())

	perm, ok := PermissionByName(PermAuditLogsRead)
	require.True(t, ok)
	_, err := admin.BulkAssign(ctx, 1, RoleUser, []int64{perm.ID})
	require.NoError(t, err)
	require.Zero(t, cache.Len())

	cache.Set(ctx, 1, 10, []string{PermFoodCostsRead})
	store.rolePerms[RoleSupervisor] = map[int64]bool{perm.ID: true}
	_, err = admin.CopyPermissions(ctx, 1, RoleSupervisor, RoleReadonly, true)
	require.NoError(t, err)
	require.Zero(t, cache.Len())
}

func TestBulkMutationsSurfaceStoreErrors(t *testing.T) {
	admin, store, _, auditRec := newAdminFixture()
	ctx := context.Background()
	store.err = errors.New("serialization failure")

	perm, ok := PermissionByName(PermFoodCostsRead)
	require.True(t, ok)
	_, err := admin.BulkAssign(ctx, 1, RoleUser, []int64{perm.ID})
	require.Error(t, err)
	_, err = admin.CopyPermissions(ctx, 1, RoleUser, RoleReadonly, true)
	require.Error(t, err)
	require.Empty(t, auditRec.entries, "failed mutations are not audited")
}
