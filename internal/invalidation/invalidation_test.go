package invalidation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishDoesNotInvokeLocalHandlers(t *testing.T) {
	b := NewBus("node-a")
	var received []Event
	b.Subscribe(func(e Event) { received = append(received, e) })

	b.Publish(Event{Type: EventKey, Key: "foo"})

	require.Empty(t, received, "Publish must not replay the event back through this node's own handlers")
	require.Len(t, b.History(), 1)
	require.Equal(t, "node-a", b.History()[0].NodeID)
}

func TestBus_ReceiveIgnoresOwnMessages(t *testing.T) {
	b := NewBus("node-a")
	var received []Event
	b.Subscribe(func(e Event) { received = append(received, e) })

	b.Receive(Event{Type: EventKey, Key: "foo", NodeID: "node-a"})
	require.Empty(t, received)

	b.Receive(Event{Type: EventKey, Key: "foo", NodeID: "node-b"})
	require.Len(t, received, 1)
}

func TestBus_HistoryBoundedTo100(t *testing.T) {
	b := NewBus("node-a")
	for i := 0; i < 150; i++ {
		b.Publish(Event{Type: EventKey, Key: "foo"})
	}
	require.Len(t, b.History(), 100)
}
