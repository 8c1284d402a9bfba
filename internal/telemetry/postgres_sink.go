package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSink stores send events in a message_events table. It serves
// deployments that already run Postgres and want the event log queryable
// with SQL; the contract is identical to RedisSink.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) RecordEvent(ctx context.Context, senderID, content string, ts time.Time) error {
	query := "INSERT INTO message_events (sender, content, created_at) VALUES ($1, $2, $3)"
	if _, err := s.db.ExecContext(ctx, query, senderID, content, ts.UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresSink) QueryEvents(ctx context.Context, senderID string, start, end time.Time, limit int) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT sender, content, created_at
		FROM message_events
		WHERE sender = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := s.db.QueryContext(ctx, query, senderID, start.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			ts time.Time
		)
		if err := rows.Scan(&ev.SenderID, &ev.Content, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		ev.Timestamp = ts.UTC().Format(EventTimeLayout)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return events, nil
}
