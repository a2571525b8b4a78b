package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSweepExpiredGrants removes lapsed property-access and
	// user-permission rows and flushes the permission cache.
	TaskSweepExpiredGrants = "rbac:sweep_expired_grants"
)

// SweepExpiredGrantsPayload parameterises one sweep run.
type SweepExpiredGrantsPayload struct {
	// AsOf is the cutoff instant; zero means "now" at execution time.
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewSweepExpiredGrantsTask constructs an Asynq task for the sweep.
func NewSweepExpiredGrantsTask(payload SweepExpiredGrantsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSweepExpiredGrants, data), nil
}
