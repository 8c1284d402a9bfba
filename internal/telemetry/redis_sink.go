package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	streamKey = "message-logs"

	// recordRetries bounds the append retry loop; the counter is a local,
	// never shared between concurrent appends.
	recordRetries = 3

	// queryTimeout caps how long a heatmap query may wait on Redis.
	queryTimeout = 3 * time.Second
)

// RedisSink is the default event log: one Redis stream holding every
// send event, keyed by server-side time so XRANGE gives time-windowed
// reads for free.
type RedisSink struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisSink(client *redis.Client, log zerolog.Logger) *RedisSink {
	return &RedisSink{client: client, log: log}
}

// RecordEvent appends one send event to the stream, retrying transient
// failures up to recordRetries times.
func (s *RedisSink) RecordEvent(ctx context.Context, senderID, content string, ts time.Time) error {
	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"sender":    senderID,
			"message":   content,
			"timestamp": ts.UTC().Format(EventTimeLayout),
		},
	}

	var err error
	for attempt := 1; attempt <= recordRetries; attempt++ {
		if err = s.client.XAdd(ctx, args).Err(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		s.log.Debug().Err(err).Int("attempt", attempt).Msg("telemetry append retry")
	}
	return fmt.Errorf("%w: append failed after %d attempts: %v", ErrUnavailable, recordRetries, err)
}

// QueryEvents reads events for one sender within [start, end], newest
// first, at most limit entries. The stream holds events for every
// sender, so filtering happens here. The call is bounded by
// queryTimeout regardless of the caller's context.
func (s *RedisSink) QueryEvents(ctx context.Context, senderID string, start, end time.Time, limit int) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	lo := strconv.FormatInt(start.UnixMilli(), 10) + "-0"
	hi := strconv.FormatInt(end.UnixMilli(), 10)
	msgs, err := s.client.XRevRange(ctx, streamKey, hi, lo).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	events := make([]Event, 0, limit)
	for _, m := range msgs {
		if len(events) >= limit {
			break
		}
		sender, _ := m.Values["sender"].(string)
		if sender != senderID {
			continue
		}
		content, _ := m.Values["message"].(string)
		ts, _ := m.Values["timestamp"].(string)
		events = append(events, Event{SenderID: sender, Content: content, Timestamp: ts})
	}
	return events, nil
}
