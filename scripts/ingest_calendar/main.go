package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"mt5-bridge/internal/calendar"
	"mt5-bridge/internal/logging"
	"mt5-bridge/pkg/config"
)

// Reads JSONL economic calendar events from stdin and inserts them into
// the hosted datastore's calendar_events table.
//
//	cat events.jsonl | SUPABASE_DB_URL=postgres://... go run ./scripts/ingest_calendar
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger("ingest-calendar", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: SUPABASE_DB_URL (or DATABASE_URL) is required")
		fmt.Fprintln(os.Stderr, "Usage: cat events.jsonl | SUPABASE_DB_URL=... ingest_calendar")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := calendar.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("datastore connection failed", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	ingestor := &calendar.Ingestor{Store: store, Log: logger}
	sum, err := ingestor.Run(ctx, os.Stdin)
	if err != nil {
		logger.Error("ingest aborted", zap.Error(err))
	}

	logger.Info("ingest summary",
		zap.Int("processed", sum.Processed),
		zap.Int("inserted", sum.Inserted),
		zap.Int("errors", sum.Errors))
	fmt.Printf("Processed: %d\nInserted: %d\nErrors: %d\n", sum.Processed, sum.Inserted, sum.Errors)

	// Only a zero-insert run is fatal.
	if sum.Inserted == 0 {
		fmt.Fprintln(os.Stderr, "No events were inserted")
		os.Exit(1)
	}
}
