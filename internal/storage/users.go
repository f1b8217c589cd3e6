package storage

import (
	"context"
	"fmt"
	"time"
)

// User is a dashboard owner, identified by Tailscale login name.
type User struct {
	ID          int       `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetOrCreateUser finds or creates a user by login name. Returns the user
// ID. Updates last_seen and display_name on each call.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	return id, err
}

// GetUser returns a user by ID.
func (db *DB) GetUser(ctx context.Context, id int) (*User, error) {
	var u User
	err := db.Pool.QueryRow(ctx,
		`SELECT id, login, display_name, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Login, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying user %d: %w", id, err)
	}
	return &u, nil
}
