package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/platecost/platecost/internal/rbac"
)

// SweepExpiredGrantsJob deletes expired grants and flushes the permission
// cache. Expired rows are already invisible to every read path; the sweep
// is storage hygiene, not a correctness requirement.
type SweepExpiredGrantsJob struct {
	store  rbac.Store
	cache  rbac.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewSweepExpiredGrantsJob wires the sweep against the store and cache.
func NewSweepExpiredGrantsJob(store rbac.Store, cache rbac.Cache, logger *slog.Logger) *SweepExpiredGrantsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepExpiredGrantsJob{store: store, cache: cache, logger: logger, now: time.Now}
}

// Handle processes TaskSweepExpiredGrants tasks.
func (j *SweepExpiredGrantsJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SweepExpiredGrantsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now().UTC()
	}
	dropped, err := j.store.DeleteExpiredGrants(ctx, asOf)
	if err != nil {
		j.logger.Error("sweep expired grants", slog.Any("error", err))
		return err
	}
	if dropped == 0 {
		j.logger.Info("sweep expired grants: nothing to do")
		return nil
	}
	if j.cache != nil {
		if err := j.cache.Invalidate(ctx, rbac.InvalidationEvent{Reason: rbac.ReasonExpiredSweep}); err != nil {
			j.logger.Warn("sweep expired grants: invalidate cache", slog.Any("error", err))
		}
	}
	j.logger.Info("sweep expired grants",
		slog.Int64("rows_dropped", dropped),
		slog.Time("as_of", asOf))
	return nil
}
