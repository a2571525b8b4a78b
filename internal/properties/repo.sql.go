package properties

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/platecost/platecost/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const propertyColumns = "id, name, location, is_active, created_at, updated_at"

// ListProperties returns all properties.
func (r *Repository) ListProperties(ctx context.Context) ([]Property, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM properties ORDER BY id", propertyColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var properties []Property
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return properties, nil
}

// GetProperty fetches one property by id.
func (r *Repository) GetProperty(ctx context.Context, id int64) (Property, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM properties WHERE id = $1", propertyColumns), id)
	property, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, shared.ErrNotFound
		}
		return Property{}, err
	}
	return property, nil
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (Property, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("UPDATE properties SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING %s", propertyColumns),
		id, active)
	property, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, shared.ErrNotFound
		}
		return Property{}, err
	}
	return property, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var property Property
	if err := row.Scan(&property.ID, &property.Name, &property.Location, &property.IsActive, &property.CreatedAt, &property.UpdatedAt); err != nil {
		return Property{}, err
	}
	return property, nil
}
