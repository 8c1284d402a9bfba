// Package notify pushes broadcasts to websocket-connected devices so
// they see new messages without polling. Delivery here is best-effort:
// polling the mailbox stays the source of truth, and hub delivery never
// drains it.
package notify

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"device-relay/internal/device"
)

// envelope pairs a recipient MAC with a serialized message.
type envelope struct {
	recipient string
	payload   []byte
}

// Hub routes broadcast copies to connected clients. The clients map is
// touched only by the Run goroutine, so it needs no lock.
type Hub struct {
	// clients groups connections by device MAC; one device may hold
	// several connections.
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan envelope
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan envelope, 256),
		log:        log,
	}
}

// Run manages hub state. It runs in its own goroutine for the life of
// the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			conns := h.clients[client.deviceID]
			if conns == nil {
				conns = make(map[*Client]bool)
				h.clients[client.deviceID] = conns
			}
			conns[client] = true

		case client := <-h.unregister:
			if conns, ok := h.clients[client.deviceID]; ok && conns[client] {
				delete(conns, client)
				close(client.send)
				if len(conns) == 0 {
					delete(h.clients, client.deviceID)
				}
			}

		case env := <-h.deliver:
			for client := range h.clients[env.recipient] {
				select {
				case client.send <- env.payload:
				default:
					// Slow client: drop the connection, not the hub.
					close(client.send)
					delete(h.clients[env.recipient], client)
				}
			}
		}
	}
}

// Notify implements relay.Notifier. It never blocks the dispatcher: if
// the hub's queue is full the push is dropped and the message waits in
// the mailbox for the next poll.
func (h *Hub) Notify(recipientID string, view device.MessageView) {
	payload, err := json.Marshal(view)
	if err != nil {
		h.log.Error().Err(err).Msg("notify payload marshal failed")
		return
	}
	select {
	case h.deliver <- envelope{recipient: recipientID, payload: payload}:
	default:
		h.log.Debug().Str("recipient", recipientID).Msg("notify queue full, push dropped")
	}
}
