// Package telemetry records message-sent events to an external event log
// and aggregates them into a weekday/hour activity heatmap.
package telemetry

import (
	"context"
	"errors"
	"time"
)

// EventTimeLayout is how sinks store event timestamps.
const EventTimeLayout = time.RFC3339Nano

// ErrUnavailable wraps any transport failure or timeout talking to the
// event log. Recording paths log it and move on; query paths surface it.
var ErrUnavailable = errors.New("telemetry unavailable")

// Event is one raw record read back from a sink. Timestamp is kept in
// its stored string form; parsing is the aggregator's job, and it
// tolerates entries it cannot parse.
type Event struct {
	SenderID  string
	Content   string
	Timestamp string
}

// Sink is the external event log the relay writes send events to.
//
// RecordEvent is called fire-and-forget from the dispatcher: it may fail
// and the failure is only logged. QueryEvents returns records for one
// sender within [start, end], newest first, at most limit entries; it
// must return an explicit error rather than block past its budget.
type Sink interface {
	RecordEvent(ctx context.Context, senderID, content string, ts time.Time) error
	QueryEvents(ctx context.Context, senderID string, start, end time.Time, limit int) ([]Event, error)
}
