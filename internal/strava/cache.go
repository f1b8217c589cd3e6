package strava

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claude/paceboard/internal/engine"
)

// Cache is a local SQLite store of normalized activities per connection,
// keyed by provider activity id. The sync CLI fills it incrementally; the
// server can read it as a fallback pool when the provider is unreachable.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the activity cache at dir/activities.db.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "activities.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening activity cache: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			connection_id    TEXT NOT NULL,
			activity_id      TEXT NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			sport            TEXT NOT NULL,
			distance_m       REAL NOT NULL DEFAULT 0,
			moving_time_sec  INTEGER NOT NULL DEFAULT 0,
			elapsed_time_sec INTEGER NOT NULL DEFAULT 0,
			elevation_gain_m REAL NOT NULL DEFAULT 0,
			started_at       INTEGER NOT NULL,
			PRIMARY KEY (connection_id, activity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_started
			ON activities (connection_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			connection_id TEXT PRIMARY KEY,
			last_synced   INTEGER NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating cache schema: %w", err)
		}
	}

	return &Cache{db: db}, nil
}

// Store upserts a batch of activities for a connection.
func (c *Cache) Store(connectionID string, activities []engine.Activity) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning cache tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO activities
		(connection_id, activity_id, name, sport, distance_m, moving_time_sec, elapsed_time_sec, elevation_gain_m, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing cache insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range activities {
		_, err := stmt.Exec(connectionID, a.ID, a.Name, string(a.Sport),
			a.DistanceMeters, a.MovingTimeSec, a.ElapsedTimeSec, a.ElevationGainM,
			a.StartedAt.Unix())
		if err != nil {
			return fmt.Errorf("caching activity %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// Activities returns cached activities for a connection started inside the
// inclusive [start, end] interval, newest first.
func (c *Cache) Activities(connectionID string, start, end time.Time) ([]engine.Activity, error) {
	rows, err := c.db.Query(`SELECT activity_id, name, sport, distance_m, moving_time_sec, elapsed_time_sec, elevation_gain_m, started_at
		FROM activities
		WHERE connection_id = ? AND started_at >= ? AND started_at <= ?
		ORDER BY started_at DESC`,
		connectionID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying cached activities: %w", err)
	}
	defer rows.Close()

	var out []engine.Activity
	for rows.Next() {
		var a engine.Activity
		var sport string
		var startedAt int64
		if err := rows.Scan(&a.ID, &a.Name, &sport, &a.DistanceMeters, &a.MovingTimeSec, &a.ElapsedTimeSec, &a.ElevationGainM, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning cached activity: %w", err)
		}
		a.Sport = engine.Sport(sport)
		a.SourceID = connectionID
		a.StartedAt = time.Unix(startedAt, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastSynced returns the watermark for a connection, or the zero time if it
// has never been synced.
func (c *Cache) LastSynced(connectionID string) (time.Time, error) {
	var ts int64
	err := c.db.QueryRow(
		`SELECT last_synced FROM sync_state WHERE connection_id = ?`, connectionID,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0).UTC(), nil
}

// SetLastSynced records the sync watermark for a connection.
func (c *Cache) SetLastSynced(connectionID string, t time.Time) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO sync_state (connection_id, last_synced) VALUES (?, ?)`,
		connectionID, t.Unix(),
	)
	return err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
