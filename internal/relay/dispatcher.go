// Package relay fans submitted messages out to every registered device
// except the sender.
package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"device-relay/internal/device"
	"device-relay/internal/telemetry"
)

// recordTimeout bounds the fire-and-forget telemetry write so a slow
// sink cannot pile up goroutines forever.
const recordTimeout = 5 * time.Second

// Notifier receives a best-effort copy of each delivered message for
// push transports. Implementations must not block.
type Notifier interface {
	Notify(recipientID string, view device.MessageView)
}

// Dispatcher broadcasts messages and records send events.
type Dispatcher struct {
	registry *device.Registry
	sink     telemetry.Sink
	notifier Notifier // optional
	log      zerolog.Logger
}

// Report describes one fan-out: how many mailboxes accepted the message
// and which recipients, if any, did not.
type Report struct {
	Delivered int
	Failed    []string
}

func NewDispatcher(registry *device.Registry, sink telemetry.Sink, notifier Notifier, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, sink: sink, notifier: notifier, log: log}
}

// Submit appends an independent copy of the message, stamped once with
// the current time, to every registered mailbox except the sender's.
// An unregistered sender fails with device.ErrNotFound before any
// mailbox is touched. A recipient whose mailbox rejects the append
// (unregistered mid-broadcast) is reported in Report.Failed; fan-out
// continues past it. The telemetry record is dispatched on its own
// goroutine and never affects the result.
//
// Devices registered while the fan-out is running may or may not
// receive the message; the snapshot taken at entry decides.
func (d *Dispatcher) Submit(ctx context.Context, senderID, content string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if _, err := d.registry.Get(senderID); err != nil {
		return Report{}, err
	}

	now := time.Now()
	var report Report
	d.registry.ForEach(func(dev *device.Device) {
		if dev.ID() == senderID {
			return
		}
		msg := device.Message{SenderID: senderID, Content: content, Timestamp: now}
		if err := dev.Mailbox().Append(msg); err != nil {
			d.log.Warn().Err(err).Str("recipient", dev.ID()).Msg("broadcast append failed")
			report.Failed = append(report.Failed, dev.ID())
			return
		}
		report.Delivered++
		if d.notifier != nil {
			d.notifier.Notify(dev.ID(), msg.View())
		}
	})

	go d.record(senderID, content, now)

	return report, nil
}

// record writes the send event to the sink. Failures are logged and
// dropped: telemetry must never fail a delivery.
func (d *Dispatcher) record(senderID, content string, ts time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := d.sink.RecordEvent(ctx, senderID, content, ts); err != nil {
		d.log.Warn().Err(err).Str("sender", senderID).Msg("telemetry record dropped")
	}
}
