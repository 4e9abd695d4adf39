package membership

import (
	"sync"

	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// Notifier receives the events of a successful mutation.
type Notifier interface {
	Notify(events []interfaces.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(events []interfaces.Event)

func (f NotifierFunc) Notify(events []interfaces.Event) { f(events) }

// Recorder is a Notifier that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []interfaces.Event
}

// Notify appends events to the record.
func (r *Recorder) Notify(events []interfaces.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []interfaces.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.Event(nil), r.events...)
}

var _ interfaces.MembershipRegistry = (*Notifying)(nil)

// Notifying exposes a Registry as interfaces.MembershipRegistry, reporting
// events to a Notifier. Failed mutations notify nothing.
type Notifying struct {
	*Registry
	notifier Notifier
}

// NewNotifying wraps inner, reporting the events of its mutations to n.
func NewNotifying(inner *Registry, n Notifier) *Notifying {
	return &Notifying{Registry: inner, notifier: n}
}

// UpdateAdmin transfers the admin role and notifies the admin_changed event.
func (n *Notifying) UpdateAdmin(caller, newAdmin interfaces.Address) error {
	events, err := n.Registry.UpdateAdmin(caller, newAdmin)
	if err != nil {
		return err
	}
	n.notifier.Notify(events)
	return nil
}

// UpdateMembers applies a batch update and notifies its events in order.
func (n *Notifying) UpdateMembers(caller interfaces.Address, upserts []interfaces.Member, removals []interfaces.Address) error {
	events, err := n.Registry.UpdateMembers(caller, upserts, removals)
	if err != nil {
		return err
	}
	n.notifier.Notify(events)
	return nil
}
