// Package invalidation implements the publish/subscribe bus described in
// spec.md §4.10: cross-node invalidation events, with the payload shape
// and 100-event history ring resolved from the original Python
// implementation's core/invalidation.py.
package invalidation

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/internal/shared/cachedtime"
)

// EventType mirrors the original InvalidationEvent enum.
type EventType string

const (
	EventKey       EventType = "key"
	EventPattern   EventType = "pattern"
	EventNamespace EventType = "namespace"
	EventAll       EventType = "all"
)

const maxEventHistory = 100

// Event is one invalidation message. Key/Pattern/Namespace are populated
// according to Type; Reason is optional operator context.
type Event struct {
	Type      EventType
	Key       string
	Pattern   string
	Namespace string
	Timestamp time.Time
	NodeID    string
	Reason    string
}

// Handler is invoked for every event received from a node other than
// nodeID. It's the engine's hook for deleting the key from faster local
// tiers, per spec.md §4.10.
type Handler func(Event)

// Bus is an in-process pub/sub channel plus a bounded ring of recent
// events for introspection. It is deliberately backend-agnostic: the
// engine wires it to whatever shared tier's transport is configured
// (spec.md's design explicitly avoids assuming Redis specifically).
type Bus struct {
	nodeID string

	mu       sync.Mutex
	handlers []Handler
	history  []Event
}

func NewBus(nodeID string) *Bus {
	return &Bus{nodeID: nodeID}
}

// Subscribe registers a handler invoked on every received event whose
// origin isn't this node.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish stamps evt with this node's ID and the current time and records
// it in the history ring. It never invokes locally-registered handlers:
// those exist to react to events received from other nodes (Receive), and
// calling them here would make every local Set/Delete/Clear immediately
// undo itself through its own subscription. Delivery to other nodes is the
// shared tier transport's job; this bus only tracks what was published.
func (b *Bus) Publish(evt Event) {
	evt.NodeID = b.nodeID
	evt.Timestamp = cachedtime.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, evt)
	if len(b.history) > maxEventHistory {
		b.history = b.history[len(b.history)-maxEventHistory:]
	}
}

// Receive is called by the shared-tier transport when a message arrives
// from another node. Events originating from this node are ignored, per
// the original implementation's self-message suppression.
func (b *Bus) Receive(evt Event) {
	if evt.NodeID == b.nodeID {
		return
	}

	b.mu.Lock()
	b.history = append(b.history, evt)
	if len(b.history) > maxEventHistory {
		b.history = b.history[len(b.history)-maxEventHistory:]
	}
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

// History returns a copy of the last (up to 100) events observed.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.history...)
}
