package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-relay/internal/logger"
)

// bucketFor computes the expected weekday/hour for a UTC instant the
// same way the aggregator does, so the tests don't bake in a DST guess.
func bucketFor(t *testing.T, ts time.Time) (string, int) {
	t.Helper()
	local := ts.In(referenceZone)
	return local.Format("Mon"), local.Hour()
}

func TestAggregateEmpty(t *testing.T) {
	h := Aggregate(nil, logger.NewTestLogger())

	require.Len(t, h, 7)
	for _, day := range weekdays {
		require.Len(t, h[day], 24, "day %s", day)
		for hour, count := range h[day] {
			assert.Zero(t, count, "%s hour %d", day, hour)
		}
	}
}

func TestAggregateBuckets(t *testing.T) {
	ts := time.Date(2026, 1, 7, 2, 30, 0, 0, time.UTC)
	events := []Event{
		{SenderID: "AA:AA", Timestamp: ts.Format(EventTimeLayout)},
		{SenderID: "AA:AA", Timestamp: ts.Format(EventTimeLayout)},
		{SenderID: "AA:AA", Timestamp: ts.Add(time.Hour).Format(EventTimeLayout)},
	}

	h := Aggregate(events, logger.NewTestLogger())

	day, hour := bucketFor(t, ts)
	assert.Equal(t, 2, h[day][hour])
	day2, hour2 := bucketFor(t, ts.Add(time.Hour))
	assert.Equal(t, 1, h[day2][hour2])

	total := 0
	for _, counts := range h {
		for _, c := range counts {
			total += c
		}
	}
	assert.Equal(t, 3, total)
}

func TestAggregateLegacyLayout(t *testing.T) {
	// The previous pipeline stored "2006-01-02 15:04:05.000" in UTC.
	events := []Event{{SenderID: "AA:AA", Timestamp: "2026-01-07 02:30:00.000"}}

	h := Aggregate(events, logger.NewTestLogger())

	day, hour := bucketFor(t, time.Date(2026, 1, 7, 2, 30, 0, 0, time.UTC))
	assert.Equal(t, 1, h[day][hour])
}

func TestAggregateSkipsMalformed(t *testing.T) {
	ts := time.Date(2026, 6, 14, 20, 0, 0, 0, time.UTC)
	events := []Event{
		{SenderID: "AA:AA", Timestamp: "not a timestamp"},
		{SenderID: "AA:AA", Timestamp: ts.Format(EventTimeLayout)},
		{SenderID: "AA:AA", Timestamp: ""},
	}

	h := Aggregate(events, logger.NewTestLogger())

	total := 0
	for _, counts := range h {
		for _, c := range counts {
			total += c
		}
	}
	assert.Equal(t, 1, total, "malformed entries are skipped, not fatal")
}

func TestAggregateDeterministic(t *testing.T) {
	var events []Event
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		events = append(events, Event{
			SenderID:  "AA:AA",
			Timestamp: base.Add(time.Duration(i) * 97 * time.Minute).Format(EventTimeLayout),
		})
	}

	forward := Aggregate(events, logger.NewTestLogger())

	reversed := make([]Event, len(events))
	for i, ev := range events {
		reversed[len(events)-1-i] = ev
	}
	backward := Aggregate(reversed, logger.NewTestLogger())

	assert.Equal(t, forward, backward)
}

type stubSink struct {
	events []Event
	err    error

	gotSender string
	gotStart  time.Time
	gotEnd    time.Time
	gotLimit  int
}

func (s *stubSink) RecordEvent(context.Context, string, string, time.Time) error {
	return nil
}

func (s *stubSink) QueryEvents(_ context.Context, senderID string, start, end time.Time, limit int) ([]Event, error) {
	s.gotSender = senderID
	s.gotStart = start
	s.gotEnd = end
	s.gotLimit = limit
	return s.events, s.err
}

func TestCollectHeatmapWindow(t *testing.T) {
	sink := &stubSink{}

	_, err := CollectHeatmap(context.Background(), sink, logger.NewTestLogger(), "AA:AA", 1000)
	require.NoError(t, err)

	assert.Equal(t, "AA:AA", sink.gotSender)
	assert.Equal(t, 1000, sink.gotLimit)
	// Trailing two weeks, give or take scheduling slop.
	window := sink.gotEnd.Sub(sink.gotStart)
	assert.Equal(t, heatmapWindow, window)
	assert.WithinDuration(t, time.Now(), sink.gotEnd, time.Minute)
}

func TestCollectHeatmapSinkFailure(t *testing.T) {
	sink := &stubSink{err: fmt.Errorf("%w: connection refused", ErrUnavailable)}

	_, err := CollectHeatmap(context.Background(), sink, logger.NewTestLogger(), "AA:AA", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCollectHeatmapZeroEvents(t *testing.T) {
	sink := &stubSink{}

	h, err := CollectHeatmap(context.Background(), sink, logger.NewTestLogger(), "AA:AA", 10)
	require.NoError(t, err)

	buckets := 0
	for _, counts := range h {
		for _, c := range counts {
			assert.Zero(t, c)
			buckets++
		}
	}
	assert.Equal(t, 168, buckets)
}
