package users

import (
	"context"
	"log/slog"

	"github.com/platecost/platecost/internal/rbac"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// Service handles user business logic. Role and active-flag mutations
// drop the user's cached permission sets so stale elevated sets cannot
// outlive the change.
type Service struct {
	repo   RepositoryPort
	cache  rbac.Cache
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache rbac.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ChangeRole assigns a new role to a user. The actor must outrank the
// target's current and new roles; callers enforce that via the guard.
func (s *Service) ChangeRole(ctx context.Context, id int64, role rbac.Role) (User, error) {
	if !role.Valid() {
		return User{}, rbac.ErrInvalidRole
	}
	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return User{}, err
	}
	s.dropCachedPermissions(ctx, id)
	return user, nil
}

// Deactivate soft-disables a user account.
func (s *Service) Deactivate(ctx context.Context, id int64) (User, error) {
	return s.setActive(ctx, id, false)
}

// Activate re-enables a user account.
func (s *Service) Activate(ctx context.Context, id int64) (User, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) (User, error) {
	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	s.dropCachedPermissions(ctx, id)
	return user, nil
}

func (s *Service) dropCachedPermissions(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	ev := rbac.InvalidationEvent{UserID: userID, Reason: rbac.ReasonSubjectChanged}
	if err := s.cache.Invalidate(ctx, ev); err != nil {
		s.logger.Warn("invalidate permission cache", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
