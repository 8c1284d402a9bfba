package device

import (
	"sync"
	"time"
)

// wireTimeLayout is the timestamp format the microcontroller clients parse.
const wireTimeLayout = "2006-01-02 03:04:05 PM"

// Message is one pending item in a mailbox. A broadcast creates an
// independent copy per recipient, so a Message is never shared between
// mailboxes and is immutable once appended.
type Message struct {
	SenderID  string
	Content   string
	Timestamp time.Time
}

// MessageView is the wire form of a Message.
type MessageView struct {
	MacAddress string `json:"macAddress"`
	Content    string `json:"content"`
	Time       string `json:"time"`
}

// View serializes the message for clients.
func (m Message) View() MessageView {
	return MessageView{
		MacAddress: m.SenderID,
		Content:    m.Content,
		Time:       m.Timestamp.Format(wireTimeLayout),
	}
}

// DeviceView is the read-only export of a device used by the diagnostics
// listing. Building one does not drain the mailbox.
type DeviceView struct {
	MacAddress     string        `json:"macAddress"`
	Username       string        `json:"username"`
	UnreadMessages []MessageView `json:"unreadMessages"`
}

// Device is one registered endpoint. The id is immutable after
// registration; the username is a mutable label; the mailbox is owned
// exclusively by this device.
type Device struct {
	id      string
	mailbox *Mailbox

	mu       sync.RWMutex // guards username
	username string
}

func newDevice(id, username string) *Device {
	if username == "" {
		username = id
	}
	return &Device{id: id, username: username, mailbox: newMailbox()}
}

// ID returns the MAC address of the device.
func (d *Device) ID() string { return d.id }

// Username returns the display name of the device.
func (d *Device) Username() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.username
}

// SetUsername replaces the display name of the device.
func (d *Device) SetUsername(username string) {
	d.mu.Lock()
	d.username = username
	d.mu.Unlock()
}

// Mailbox returns the device's pending-message queue.
func (d *Device) Mailbox() *Mailbox { return d.mailbox }

// View serializes the device and its full unread list.
func (d *Device) View() DeviceView {
	return DeviceView{
		MacAddress:     d.id,
		Username:       d.Username(),
		UnreadMessages: d.mailbox.views(),
	}
}
