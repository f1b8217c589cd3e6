package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dashboard groups cards. A dashboard with a GroupID aggregates every
// member's connections; without one it is personal to its owner.
type Dashboard struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   int        `json:"owner_id"`
	Name      string     `json:"name"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateDashboard inserts a dashboard and returns its id.
func (db *DB) CreateDashboard(ctx context.Context, d Dashboard) (uuid.UUID, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO dashboards (id, owner_id, name, group_id) VALUES ($1, $2, $3, $4)
	`, d.ID, d.OwnerID, d.Name, d.GroupID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting dashboard: %w", err)
	}
	return d.ID, nil
}

// GetDashboard returns a dashboard by id.
func (db *DB) GetDashboard(ctx context.Context, id uuid.UUID) (*Dashboard, error) {
	var d Dashboard
	err := db.Pool.QueryRow(ctx,
		`SELECT id, owner_id, name, group_id, created_at FROM dashboards WHERE id = $1`, id,
	).Scan(&d.ID, &d.OwnerID, &d.Name, &d.GroupID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying dashboard %s: %w", id, err)
	}
	return &d, nil
}

// ListDashboards returns the dashboards visible to a user: their own plus
// those attached to groups they belong to.
func (db *DB) ListDashboards(ctx context.Context, userID int) ([]Dashboard, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, owner_id, name, group_id, created_at FROM dashboards
		WHERE owner_id = $1
		   OR group_id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying dashboards: %w", err)
	}
	defer rows.Close()

	var out []Dashboard
	for rows.Next() {
		var d Dashboard
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.GroupID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dashboard: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RenameDashboard updates a dashboard's name. Scoped to the owner.
func (db *DB) RenameDashboard(ctx context.Context, id uuid.UUID, ownerID int, name string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE dashboards SET name = $3 WHERE id = $1 AND owner_id = $2`, id, ownerID, name)
	if err != nil {
		return fmt.Errorf("renaming dashboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dashboard %s not found", id)
	}
	return nil
}

// DeleteDashboard removes a dashboard and, via cascade, its cards. Scoped to
// the owner.
func (db *DB) DeleteDashboard(ctx context.Context, id uuid.UUID, ownerID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM dashboards WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting dashboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dashboard %s not found", id)
	}
	return nil
}
