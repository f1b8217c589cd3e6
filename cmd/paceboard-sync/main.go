package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/paceboard/internal/config"
	"github.com/claude/paceboard/internal/storage"
	"github.com/claude/paceboard/internal/strava"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// stats accumulates one sync run's outcome for the summary printout.
type stats struct {
	Connections int
	Synced      int
	Skipped     int
	Errored     int
	Activities  int
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	backfillDays := flag.Int("backfill-days", 0, "re-pull this many days even when a watermark exists")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("paceboard-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Strava.CacheDir == "" {
		log.Error("strava.cache_dir must be set for sync")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := strava.OpenCache(cfg.Strava.CacheDir)
	if err != nil {
		log.Error("failed to open activity cache", "dir", cfg.Strava.CacheDir, "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	client := strava.NewClient(cfg.Strava.ClientID, cfg.Strava.ClientSecret)

	connections, err := db.ListConnections(ctx)
	if err != nil {
		log.Error("failed to list connections", "error", err)
		os.Exit(1)
	}

	st := run(ctx, connections, client, db, cache, *backfillDays, log)
	printStats(st)

	if st.Errored > 0 {
		os.Exit(1)
	}
	log.Info("sync complete")
}

// run pulls each connection's activities since its cache watermark (or the
// backfill window) into the local cache. One broken connection never stops
// the rest.
func run(ctx context.Context, connections []storage.Connection, client *strava.Client, db *storage.DB, cache *strava.Cache, backfillDays int, log *slog.Logger) stats {
	st := stats{Connections: len(connections)}
	now := time.Now()

	for _, conn := range connections {
		connID := conn.ID.String()

		since, err := cache.LastSynced(connID)
		if err != nil {
			log.Warn("reading watermark failed", "connection", connID, "error", err)
		}
		if backfillDays > 0 {
			since = now.AddDate(0, 0, -backfillDays)
		}
		if since.IsZero() {
			// First sync: pull everything. The provider launched in 2009.
			since = time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC)
		}

		tok, err := client.RefreshAccessToken(ctx, conn.RefreshToken)
		if err != nil {
			log.Error("token refresh failed", "connection", connID, "error", err)
			st.Errored++
			continue
		}
		refreshToken := tok.RefreshToken
		if refreshToken == "" {
			refreshToken = conn.RefreshToken
		}
		if err := db.UpdateConnectionTokens(ctx, conn.ID, tok.AccessToken, refreshToken, tok.Expiry); err != nil {
			log.Warn("persisting refreshed tokens failed", "connection", connID, "error", err)
		}

		activities, err := client.ListActivities(ctx, tok.AccessToken, since, now)
		if err != nil {
			log.Error("activity fetch failed", "connection", connID, "error", err)
			st.Errored++
			continue
		}
		if len(activities) == 0 {
			log.Info("connection up to date", "connection", connID)
			st.Skipped++
			continue
		}

		for i := range activities {
			activities[i].SourceID = connID
		}
		if err := cache.Store(connID, activities); err != nil {
			log.Error("cache store failed", "connection", connID, "error", err)
			st.Errored++
			continue
		}
		if err := cache.SetLastSynced(connID, now); err != nil {
			log.Warn("writing watermark failed", "connection", connID, "error", err)
		}

		log.Info("connection synced", "connection", connID, "activities", len(activities), "since", since.Format("2006-01-02"))
		st.Synced++
		st.Activities += len(activities)
	}

	return st
}

func printStats(st stats) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Connections:  %d\n", st.Connections)
	fmt.Printf("  Synced:       %d\n", st.Synced)
	fmt.Printf("  Up to date:   %d\n", st.Skipped)
	fmt.Printf("  Errored:      %d\n", st.Errored)
	fmt.Printf("  Activities:   %d\n", st.Activities)
	fmt.Println()
}
