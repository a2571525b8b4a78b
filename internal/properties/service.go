package properties

import (
	"context"
)

// RepositoryPort defines data access methods for properties.
type RepositoryPort interface {
	ListProperties(ctx context.Context) ([]Property, error)
	GetProperty(ctx context.Context, id int64) (Property, error)
	SetActive(ctx context.Context, id int64, active bool) (Property, error)
}

// Service handles property business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListProperties returns all properties.
func (s *Service) ListProperties(ctx context.Context) ([]Property, error) {
	return s.repo.ListProperties(ctx)
}

// GetProperty fetches one property by id.
func (s *Service) GetProperty(ctx context.Context, id int64) (Property, error) {
	return s.repo.GetProperty(ctx, id)
}

// Deactivate soft-disables a property; access checks deny inactive
// properties regardless of grants.
func (s *Service) Deactivate(ctx context.Context, id int64) (Property, error) {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a property.
func (s *Service) Activate(ctx context.Context, id int64) (Property, error) {
	return s.repo.SetActive(ctx, id, true)
}
