package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// heatmapWindow is the trailing window a heatmap covers.
const heatmapWindow = 14 * 24 * time.Hour

// legacyTimeLayout matches timestamps written by the previous log
// pipeline; entries in this form are still accepted when read back.
const legacyTimeLayout = "2006-01-02 15:04:05.000"

var weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// referenceZone is the fixed zone heatmap buckets are computed in.
var referenceZone = loadReferenceZone()

func loadReferenceZone() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Heatmap counts events per weekday and hour in the reference zone. All
// 7x24 buckets are always present, zero-filled when empty.
type Heatmap map[string][]int

func newHeatmap() Heatmap {
	h := make(Heatmap, len(weekdays))
	for _, day := range weekdays {
		h[day] = make([]int, 24)
	}
	return h
}

// Aggregate buckets raw events into a heatmap. Events whose timestamp
// cannot be parsed are skipped with a warning rather than failing the
// whole aggregation; the result is deterministic for a given event set
// regardless of input order.
func Aggregate(events []Event, log zerolog.Logger) Heatmap {
	h := newHeatmap()
	for _, ev := range events {
		ts, err := parseEventTime(ev.Timestamp)
		if err != nil {
			log.Warn().Str("sender", ev.SenderID).Str("timestamp", ev.Timestamp).
				Msg("skipping event with unparseable timestamp")
			continue
		}
		local := ts.In(referenceZone)
		h[local.Format("Mon")][local.Hour()]++
	}
	return h
}

func parseEventTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(EventTimeLayout, raw); err == nil {
		return ts, nil
	}
	return time.Parse(legacyTimeLayout, raw)
}

// CollectHeatmap queries the trailing two weeks of events for one sender
// and aggregates them. A sink failure surfaces as ErrUnavailable.
func CollectHeatmap(ctx context.Context, sink Sink, log zerolog.Logger, senderID string, limit int) (Heatmap, error) {
	end := time.Now()
	events, err := sink.QueryEvents(ctx, senderID, end.Add(-heatmapWindow), end, limit)
	if err != nil {
		return nil, err
	}
	return Aggregate(events, log), nil
}
