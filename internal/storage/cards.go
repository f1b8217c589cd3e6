package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/paceboard/internal/engine"
	"github.com/claude/paceboard/internal/timeframe"
)

// Card is one dashboard tile: a time frame, a set of accepted sports, and a
// sparse goal. Goal columns are nullable — an unset target excludes that
// metric from progress output.
type Card struct {
	ID          uuid.UUID  `json:"id"`
	DashboardID uuid.UUID  `json:"dashboard_id"`
	Title       string     `json:"title"`
	Period      string     `json:"period"`
	CustomStart *time.Time `json:"custom_start,omitempty"`
	CustomEnd   *time.Time `json:"custom_end,omitempty"`
	Sports      []string   `json:"sports"`
	GoalDistM   *float64   `json:"goal_distance_m,omitempty"`
	GoalCount   *int       `json:"goal_count,omitempty"`
	GoalElevM   *float64   `json:"goal_elevation_m,omitempty"`
	GoalTimeSec *int64     `json:"goal_time_sec,omitempty"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Frame converts the stored period columns into an engine time frame.
func (c Card) Frame() (timeframe.Frame, error) {
	if timeframe.Period(c.Period) == timeframe.PeriodCustom {
		if c.CustomStart == nil || c.CustomEnd == nil {
			return timeframe.Frame{}, fmt.Errorf("card %s: custom period without range", c.ID)
		}
		return timeframe.Custom(*c.CustomStart, *c.CustomEnd), nil
	}
	return timeframe.Parse(c.Period)
}

// Goal converts the stored goal columns into an engine goal.
func (c Card) Goal() engine.Goal {
	return engine.Goal{
		DistanceMeters: c.GoalDistM,
		Count:          c.GoalCount,
		ElevationM:     c.GoalElevM,
		TimeSec:        c.GoalTimeSec,
	}
}

// SportSet converts the stored sport names into engine sports. A card with
// no stored selection accepts every category.
func (c Card) SportSet() []engine.Sport {
	if len(c.Sports) == 0 {
		return engine.AllSports
	}
	out := make([]engine.Sport, len(c.Sports))
	for i, s := range c.Sports {
		out[i] = engine.Sport(s)
	}
	return out
}

const cardColumns = `id, dashboard_id, title, period, custom_start, custom_end, sports,
	goal_distance_m, goal_count, goal_elevation_m, goal_time_sec, position, created_at`

// InsertCard adds a card to a dashboard.
func (db *DB) InsertCard(ctx context.Context, c Card) (uuid.UUID, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Sports == nil {
		c.Sports = []string{}
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO cards (id, dashboard_id, title, period, custom_start, custom_end, sports,
			goal_distance_m, goal_count, goal_elevation_m, goal_time_sec, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.DashboardID, c.Title, c.Period, c.CustomStart, c.CustomEnd, c.Sports,
		c.GoalDistM, c.GoalCount, c.GoalElevM, c.GoalTimeSec, c.Position)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting card: %w", err)
	}
	return c.ID, nil
}

// GetCard returns a card by id.
func (db *DB) GetCard(ctx context.Context, id uuid.UUID) (*Card, error) {
	var c Card
	err := db.Pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id,
	).Scan(&c.ID, &c.DashboardID, &c.Title, &c.Period, &c.CustomStart, &c.CustomEnd, &c.Sports,
		&c.GoalDistM, &c.GoalCount, &c.GoalElevM, &c.GoalTimeSec, &c.Position, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying card %s: %w", id, err)
	}
	return &c, nil
}

// ListCards returns a dashboard's cards in display order.
func (db *DB) ListCards(ctx context.Context, dashboardID uuid.UUID) ([]Card, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE dashboard_id = $1 ORDER BY position, created_at`,
		dashboardID)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.DashboardID, &c.Title, &c.Period, &c.CustomStart, &c.CustomEnd, &c.Sports,
			&c.GoalDistM, &c.GoalCount, &c.GoalElevM, &c.GoalTimeSec, &c.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCard replaces a card's configuration.
func (db *DB) UpdateCard(ctx context.Context, c Card) error {
	if c.Sports == nil {
		c.Sports = []string{}
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE cards SET title = $2, period = $3, custom_start = $4, custom_end = $5, sports = $6,
			goal_distance_m = $7, goal_count = $8, goal_elevation_m = $9, goal_time_sec = $10, position = $11
		WHERE id = $1
	`, c.ID, c.Title, c.Period, c.CustomStart, c.CustomEnd, c.Sports,
		c.GoalDistM, c.GoalCount, c.GoalElevM, c.GoalTimeSec, c.Position)
	if err != nil {
		return fmt.Errorf("updating card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card %s not found", c.ID)
	}
	return nil
}

// DeleteCard removes a card.
func (db *DB) DeleteCard(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card %s not found", id)
	}
	return nil
}
