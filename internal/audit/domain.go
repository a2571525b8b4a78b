package audit

import (
	"time"

	"github.com/google/uuid"
)

// Audited actions. The log is append-only; entries are never updated or
// deleted.
const (
	ActionGrantPropertyAccess  = "GRANT_PROPERTY_ACCESS"
	ActionRevokePropertyAccess = "REVOKE_PROPERTY_ACCESS"
	ActionBulkAssignPerms      = "BULK_ASSIGN_PERMISSIONS"
	ActionBulkRemovePerms      = "BULK_REMOVE_PERMISSIONS"
	ActionCopyRolePerms        = "COPY_ROLE_PERMISSIONS"
	ActionLoginSuccess         = "LOGIN_SUCCESS"
	ActionLoginFailed          = "LOGIN_FAILED"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         uuid.UUID
	ActorID    int64
	PropertyID *int64
	Action     string
	Resource   string
	ResourceID string
	Meta       map[string]any
	At         time.Time
}

// TimelineFilters narrows the audit timeline query.
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	ActorID    int64
	PropertyID int64
	Action     string
	Page       int
	PageSize   int
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
