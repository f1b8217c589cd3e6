package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Connection is one linked provider account. RefreshToken is the long-lived
// credential; AccessToken/TokenExpiry cache the most recent short-lived one.
type Connection struct {
	ID           uuid.UUID  `json:"id"`
	UserID       int        `json:"user_id"`
	Provider     string     `json:"provider"`
	AthleteID    string     `json:"athlete_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

const connectionColumns = `id, user_id, provider, athlete_id, access_token, refresh_token, token_expiry, created_at`

// InsertConnection links a provider account to a user. Re-linking the same
// athlete replaces the stored tokens.
func (db *DB) InsertConnection(ctx context.Context, c Connection) (uuid.UUID, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO connections (id, user_id, provider, athlete_id, access_token, refresh_token, token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider, athlete_id) DO UPDATE
			SET access_token = $5, refresh_token = $6, token_expiry = $7
		RETURNING id
	`, c.ID, c.UserID, c.Provider, c.AthleteID, c.AccessToken, c.RefreshToken, c.TokenExpiry).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting connection: %w", err)
	}
	return id, nil
}

// UpdateConnectionTokens stores a refreshed token pair.
func (db *DB) UpdateConnectionTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE connections SET access_token = $2, refresh_token = $3, token_expiry = $4 WHERE id = $1
	`, id, accessToken, refreshToken, expiry)
	if err != nil {
		return fmt.Errorf("updating connection tokens: %w", err)
	}
	return nil
}

// ListConnectionsByUser returns a user's linked accounts.
func (db *DB) ListConnectionsByUser(ctx context.Context, userID int) ([]Connection, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()
	return scanConnections(rows)
}

// ListConnections returns every linked account across all users. Used by
// the sync CLI to warm the local activity cache.
func (db *DB) ListConnections(ctx context.Context) ([]Connection, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()
	return scanConnections(rows)
}

// ListConnectionsForDashboard returns every connection feeding a dashboard:
// the owner's for a personal dashboard, all members' for a group dashboard.
func (db *DB) ListConnectionsForDashboard(ctx context.Context, dashboardID uuid.UUID) ([]Connection, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+connectionColumns+` FROM connections
		WHERE user_id IN (
			SELECT d.owner_id FROM dashboards d WHERE d.id = $1 AND d.group_id IS NULL
			UNION
			SELECT gm.user_id FROM dashboards d
				JOIN group_members gm ON gm.group_id = d.group_id
				WHERE d.id = $1
		)
		ORDER BY created_at
	`, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("querying dashboard connections: %w", err)
	}
	defer rows.Close()
	return scanConnections(rows)
}

// DeleteConnection unlinks a provider account. Scoped to the owning user.
func (db *DB) DeleteConnection(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM connections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connection %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanConnections(rows rowScanner) ([]Connection, error) {
	var out []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Provider, &c.AthleteID, &c.AccessToken, &c.RefreshToken, &c.TokenExpiry, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
