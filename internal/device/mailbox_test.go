package device

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(i int) Message {
	return Message{
		SenderID:  "AA:AA",
		Content:   fmt.Sprintf("msg-%d", i),
		Timestamp: time.Date(2026, 8, 1, 12, 0, i, 0, time.UTC),
	}
}

func filledMailbox(t *testing.T, n int) *Mailbox {
	t.Helper()
	m := newMailbox()
	for i := 0; i < n; i++ {
		require.NoError(t, m.Append(testMessage(i)))
	}
	return m
}

func TestMailboxDrainFIFO(t *testing.T) {
	m := filledMailbox(t, 5)

	got, err := m.Drain(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
	assert.Equal(t, 2, m.Count())

	// The remainder keeps its relative order.
	rest, err := m.Drain(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "msg-3", rest[0].Content)
	assert.Equal(t, "msg-4", rest[1].Content)
	assert.Equal(t, 0, m.Count())
}

func TestMailboxDrainMoreThanPresent(t *testing.T) {
	m := filledMailbox(t, 2)

	got, err := m.Drain(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 0, m.Count())

	// Draining an empty mailbox is not an error.
	got, err = m.Drain(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMailboxDrainZeroLimit(t *testing.T) {
	m := filledMailbox(t, 3)

	got, err := m.Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 3, m.Count())
}

func TestMailboxDrainNegativeLimit(t *testing.T) {
	m := filledMailbox(t, 1)

	_, err := m.Drain(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, m.Count())
}

func TestMailboxDrainCancelled(t *testing.T) {
	m := filledMailbox(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Drain(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
	// A cancelled drain must not have partially removed messages.
	assert.Equal(t, 4, m.Count())
}

func TestMailboxAppendAfterClose(t *testing.T) {
	m := filledMailbox(t, 2)
	m.close()

	assert.ErrorIs(t, m.Append(testMessage(9)), ErrMailboxClosed)
	assert.Equal(t, 0, m.Count())
}

func TestMailboxConcurrentDrainExactlyOnce(t *testing.T) {
	const total = 1000
	m := filledMailbox(t, total)

	var (
		mu      sync.Mutex
		drained []Message
		wg      sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, err := m.Drain(context.Background(), 7)
				if err != nil {
					t.Error(err)
					return
				}
				if len(got) == 0 {
					return
				}
				mu.Lock()
				drained = append(drained, got...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every message drained exactly once, no duplicates, no losses.
	require.Len(t, drained, total)
	seen := make(map[string]bool, total)
	for _, msg := range drained {
		assert.False(t, seen[msg.Content], "message %s drained twice", msg.Content)
		seen[msg.Content] = true
	}
}

func TestMailboxConcurrentAppendDrain(t *testing.T) {
	m := newMailbox()
	const total = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			if err := m.Append(testMessage(i)); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	got := 0
	for got < total {
		msgs, err := m.Drain(context.Background(), 13)
		require.NoError(t, err)
		got += len(msgs)
	}
	wg.Wait()

	assert.Equal(t, total, got)
	assert.Equal(t, 0, m.Count())
}
