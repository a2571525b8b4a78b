package rbac

import (
	"context"
	"sort"
	"time"

	"github.com/platecost/platecost/internal/audit"
)

type pairKey struct {
	userID     int64
	propertyID int64
}

// memoryStore is the in-memory Store fake shared by the package tests.
type memoryStore struct {
	subjects   map[int64]Subject
	properties map[int64]Property
	owners     map[pairKey]bool
	managers   map[pairKey]bool
	access     map[pairKey]PropertyAccess
	rolePerms  map[Role]map[int64]bool
	userPerms  map[int64][]UserPermission

	// err, when set, is returned by every read and write.
	err error
	now func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		subjects:   make(map[int64]Subject),
		properties: make(map[int64]Property),
		owners:     make(map[pairKey]bool),
		managers:   make(map[pairKey]bool),
		access:     make(map[pairKey]PropertyAccess),
		rolePerms:  make(map[Role]map[int64]bool),
		userPerms:  make(map[int64][]UserPermission),
		now:        time.Now,
	}
}

// seedRoleDefaults copies the catalog's default permission sets into the
// persisted role_permissions edges, the way the seeding script does.
func (s *memoryStore) seedRoleDefaults(roles ...Role) {
	for _, role := range roles {
		edges := make(map[int64]bool)
		for _, name := range RolePermissions(role) {
			perm, ok := PermissionByName(name)
			if ok {
				edges[perm.ID] = true
			}
		}
		s.rolePerms[role] = edges
	}
}

func (s *memoryStore) addSubject(sub Subject) {
	s.subjects[sub.ID] = sub
}

func (s *memoryStore) addProperty(p Property) {
	s.properties[p.ID] = p
}

func (s *memoryStore) FindSubject(_ context.Context, userID int64) (Subject, error) {
	if s.err != nil {
		return Subject{}, s.err
	}
	sub, ok := s.subjects[userID]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return sub, nil
}

func (s *memoryStore) FindProperty(_ context.Context, propertyID int64) (Property, error) {
	if s.err != nil {
		return Property{}, s.err
	}
	p, ok := s.properties[propertyID]
	if !ok {
		return Property{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) IsPropertyOwner(_ context.Context, userID, propertyID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.owners[pairKey{userID, propertyID}], nil
}

func (s *memoryStore) IsPropertyManager(_ context.Context, userID, propertyID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.managers[pairKey{userID, propertyID}], nil
}

func (s *memoryStore) ActivePropertyAccess(_ context.Context, userID, propertyID int64) (*PropertyAccess, error) {
	if s.err != nil {
		return nil, s.err
	}
	access, ok := s.access[pairKey{userID, propertyID}]
	if !ok || access.Expired(s.now()) {
		return nil, nil
	}
	out := access
	return &out, nil
}

func (s *memoryStore) UpsertPropertyAccess(_ context.Context, access PropertyAccess) (PropertyAccess, error) {
	if s.err != nil {
		return PropertyAccess{}, s.err
	}
	s.access[pairKey{access.UserID, access.PropertyID}] = access
	return access, nil
}

func (s *memoryStore) DeletePropertyAccess(_ context.Context, userID, propertyID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	key := pairKey{userID, propertyID}
	_, ok := s.access[key]
	delete(s.access, key)
	return ok, nil
}

func (s *memoryStore) ListActivePropertyAccess(_ context.Context, userID int64) ([]PropertyAccess, error) {
	if s.err != nil {
		return nil, s.err
	}
	now := s.now()
	var grants []PropertyAccess
	for key, access := range s.access {
		if key.userID != userID || access.Expired(now) {
			continue
		}
		grants = append(grants, access)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].PropertyID < grants[j].PropertyID })
	return grants, nil
}

func (s *memoryStore) OwnedProperties(_ context.Context, userID int64) ([]Property, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.relatedProperties(s.owners, userID), nil
}

func (s *memoryStore) ManagedProperties(_ context.Context, userID int64) ([]Property, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.relatedProperties(s.managers, userID), nil
}

func (s *memoryStore) relatedProperties(relation map[pairKey]bool, userID int64) []Property {
	var out []Property
	for key, ok := range relation {
		if !ok || key.userID != userID {
			continue
		}
		if p, found := s.properties[key.propertyID]; found {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) ListActiveProperties(_ context.Context) ([]Property, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Property
	for _, p := range s.properties {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) RolePermissionNames(_ context.Context, role Role) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var names []string
	for id := range s.rolePerms[role] {
		if perm, ok := PermissionByID(id); ok {
			names = append(names, perm.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *memoryStore) RolePermissionIDs(_ context.Context, role Role) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []int64
	for id := range s.rolePerms[role] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memoryStore) AttachRolePermission(_ context.Context, role Role, permissionID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	edges, ok := s.rolePerms[role]
	if !ok {
		edges = make(map[int64]bool)
		s.rolePerms[role] = edges
	}
	if edges[permissionID] {
		return false, nil
	}
	edges[permissionID] = true
	return true, nil
}

func (s *memoryStore) DetachRolePermission(_ context.Context, role Role, permissionID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	edges := s.rolePerms[role]
	if !edges[permissionID] {
		return false, nil
	}
	delete(edges, permissionID)
	return true, nil
}

func (s *memoryStore) DeleteRolePermissions(_ context.Context, role Role) error {
	if s.err != nil {
		return s.err
	}
	s.rolePerms[role] = make(map[int64]bool)
	return nil
}

func (s *memoryStore) ActiveUserPermissionNames(_ context.Context, userID int64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	now := s.now()
	var names []string
	for _, up := range s.userPerms[userID] {
		if !up.Granted {
			continue
		}
		if up.ExpiresAt != nil && up.ExpiresAt.Before(now) {
			continue
		}
		if perm, ok := PermissionByID(up.PermissionID); ok {
			names = append(names, perm.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *memoryStore) DeleteExpiredGrants(_ context.Context, now time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var dropped int64
	for key, access := range s.access {
		if access.ExpiresAt != nil && !access.ExpiresAt.After(now) {
			delete(s.access, key)
			dropped++
		}
	}
	for userID, perms := range s.userPerms {
		kept := perms[:0]
		for _, up := range perms {
			if up.ExpiresAt != nil && !up.ExpiresAt.After(now) {
				dropped++
				continue
			}
			kept = append(kept, up)
		}
		s.userPerms[userID] = kept
	}
	return dropped, nil
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(ctx, s)
}

var _ Store = (*memoryStore)(nil)

// recordingAudit captures audit entries for assertions.
type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}
