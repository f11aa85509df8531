// Command replay rebuilds the map of a recorded planning session and prints
// it as GeoJSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/lakehopper/mapclient/internal/config"
	"github.com/lakehopper/mapclient/internal/db"
	"github.com/lakehopper/mapclient/internal/export"
	"github.com/lakehopper/mapclient/internal/journal"
	"github.com/lakehopper/mapclient/internal/logging"
	"github.com/lakehopper/mapclient/internal/replay"
)

func main() {
	list := flag.Bool("list", false, "list recorded sessions")
	sessionFlag := flag.String("session", "", "session ID to replay")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text")
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout carries only the export.
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := replay.NewService(journal.NewStore(pool), cfg.InitialLocation(), cfg.NotificationTTL)

	if *list {
		sessions, err := svc.Sessions(ctx)
		if err != nil {
			slog.Error("list sessions", "error", err)
			os.Exit(1)
		}
		for _, s := range sessions {
			fmt.Printf("%s\t%d\t%s\n", s.SessionID, s.Messages, s.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}

	sessionID, err := uuid.Parse(*sessionFlag)
	if err != nil {
		slog.Error("invalid -session", "error", err)
		os.Exit(2)
	}

	eng, err := svc.Rebuild(ctx, sessionID)
	if err != nil {
		slog.Error("replay session", "error", err, "session", sessionID)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export.FeatureCollection(eng.Snapshot())); err != nil {
		slog.Error("write export", "error", err)
		os.Exit(1)
	}
}
