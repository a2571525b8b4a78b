package properties

import "time"

// Property is a restaurant location, the tenancy unit for access grants.
type Property struct {
	ID        int64
	Name      string
	Location  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
