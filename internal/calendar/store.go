package calendar

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists calendar events one row at a time.
type Store interface {
	InsertEvent(ctx context.Context, ev *Event) error
	Close()
}

// PostgresStore writes events into the hosted datastore's
// calendar_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the datastore at dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect datastore: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping datastore: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, ev *Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_events (
			event_name, event_date, currency, impact,
			forecast, previous, actual, source, description, affected_pairs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ev.Name, ev.Date, ev.Currency, ev.Impact,
		ev.Forecast, ev.Previous, ev.Actual, ev.Source, ev.Description, ev.AffectedPairs)
	if err != nil {
		return fmt.Errorf("insert %q: %w", ev.Name, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
