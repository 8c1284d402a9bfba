package device

import (
	"context"
	"fmt"
	"sync"
)

// Mailbox is a per-device FIFO queue of undelivered messages. Every
// mailbox is created with its device and closed when the device
// unregisters; it is never shared between devices.
//
// All methods are safe for concurrent use. Append, Drain and Count are
// serialized on a single mutex, so concurrent drains never observe the
// same message twice and never tear an in-flight append.
type Mailbox struct {
	mu      sync.Mutex
	pending []Message
	closed  bool
}

func newMailbox() *Mailbox { return &Mailbox{} }

// Append adds a message to the back of the queue. Growth is unbounded;
// there is no backpressure toward senders.
func (m *Mailbox) Append(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMailboxClosed
	}
	m.pending = append(m.pending, msg)
	return nil
}

// Drain removes and returns up to limit of the oldest pending messages
// in append order. Asking for more than is present returns everything
// without error. Removal happens atomically under the mailbox lock:
// a drain cancelled via ctx removes nothing.
func (m *Mailbox) Drain(ctx context.Context, limit int) ([]Message, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: drain limit %d is negative", ErrInvalidArgument, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := limit
	if n > len(m.pending) {
		n = len(m.pending)
	}
	out := make([]Message, n)
	copy(out, m.pending[:n])

	// Shift the suffix down instead of reslicing so drained messages
	// don't stay reachable through the backing array.
	rest := copy(m.pending, m.pending[n:])
	for i := rest; i < len(m.pending); i++ {
		m.pending[i] = Message{}
	}
	m.pending = m.pending[:rest]

	return out, nil
}

// Count reports the number of pending messages without removing any.
func (m *Mailbox) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// views serializes the current contents non-destructively, oldest first.
func (m *Mailbox) views() []MessageView {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageView, len(m.pending))
	for i, msg := range m.pending {
		out[i] = msg.View()
	}
	return out
}

// close discards pending messages and rejects further appends. Called by
// the registry on unregister.
func (m *Mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.pending = nil
	m.mu.Unlock()
}
