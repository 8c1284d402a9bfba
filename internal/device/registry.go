package device

import (
	"fmt"
	"sync"
)

// Registry maps MAC addresses to registered devices. A MAC is present
// exactly when it has been registered and not since unregistered.
//
// All methods are safe for concurrent use. The map is guarded by a
// single lock so existence checks stay consistent with the key set;
// each mailbox then serializes its own operations independently.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds a device if the MAC is not already present. Registering
// an existing MAC is a no-op: the username is not updated and the
// mailbox keeps its contents. An empty username defaults to the MAC.
func (r *Registry) Register(id, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[id]; ok {
		return
	}
	r.devices[id] = newDevice(id, username)
}

// Unregister removes the device and discards its mailbox. The mailbox is
// closed so a broadcast racing the removal fails its append cleanly
// instead of writing into an orphaned queue. Unknown MACs are a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	dev, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
	}
	r.mu.Unlock()

	if ok {
		dev.mailbox.close()
	}
}

// Exists reports whether a device with the given MAC is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Get returns the device for the given MAC, or ErrNotFound. Lookups of
// unregistered MACs are an expected error path, not a failure.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return dev, nil
}

// Len reports the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ForEach applies fn to every registered device. Iteration uses a
// snapshot taken under the read lock: fn runs without holding it, so fn
// may register or unregister devices, but devices added or removed
// during the walk are not guaranteed to be visited or skipped.
func (r *Registry) ForEach(fn func(*Device)) {
	r.mu.RLock()
	snapshot := make([]*Device, 0, len(r.devices))
	for _, dev := range r.devices {
		snapshot = append(snapshot, dev)
	}
	r.mu.RUnlock()

	for _, dev := range snapshot {
		fn(dev)
	}
}

// Snapshot exports every device and its unread list for diagnostics.
// Mailboxes are not drained.
func (r *Registry) Snapshot() map[string]DeviceView {
	out := make(map[string]DeviceView)
	r.ForEach(func(dev *Device) {
		out[dev.ID()] = dev.View()
	})
	return out
}
