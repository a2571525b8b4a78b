package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLRepository provides PostgreSQL backed timeline queries.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewSQLRepository constructs a repository.
func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

const timelineColumns = "id, actor_id, property_id, action, resource, resource_id, meta, occurred_at"

// TimelineWindow returns one page of audit entries, newest first.
func (r *SQLRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	where, args := timelineWhere(filters)
	query := fmt.Sprintf(
		"SELECT %s FROM audit_logs %s ORDER BY occurred_at DESC OFFSET $%d LIMIT $%d",
		timelineColumns, where, len(args)+1, len(args)+2)
	args = append(args, offset, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline window: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// TimelineAll returns the full filtered timeline for export.
func (r *SQLRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	where, args := timelineWhere(filters)
	query := fmt.Sprintf("SELECT %s FROM audit_logs %s ORDER BY occurred_at DESC", timelineColumns, where)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline all: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func timelineWhere(filters TimelineFilters) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}
	if filters.ActorID != 0 {
		add("actor_id = $%d", filters.ActorID)
	}
	if filters.PropertyID != 0 {
		add("property_id = $%d", filters.PropertyID)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("action = $%d", action)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metaJSON []byte
		var occurredAt time.Time
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.PropertyID, &entry.Action,
			&entry.Resource, &entry.ResourceID, &metaJSON, &occurredAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Meta); err != nil {
				return nil, err
			}
		}
		entry.At = occurredAt
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
