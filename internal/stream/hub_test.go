package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-bridge/internal/terminal"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe(4)
	b, unsubB := h.Subscribe(4)
	defer unsubA()
	defer unsubB()

	require.Equal(t, 2, h.Len())

	h.Publish(terminal.Tick{Symbol: "EURUSD", Bid: 1.08, Ask: 1.0801})

	tk := <-a
	assert.Equal(t, "EURUSD", tk.Symbol)
	tk = <-b
	assert.Equal(t, 1.08, tk.Bid)
}

func TestHubSlowSubscriberDropsTicks(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe(1)
	defer unsub()

	// second publish must not block even though the buffer is full
	h.Publish(terminal.Tick{Symbol: "EURUSD"})
	h.Publish(terminal.Tick{Symbol: "GBPUSD"})

	tk := <-ch
	assert.Equal(t, "EURUSD", tk.Symbol)
	select {
	case tk, ok := <-ch:
		if ok {
			t.Fatalf("unexpected buffered tick %q", tk.Symbol)
		}
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe(1)
	unsub()
	unsub() // idempotent

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	// publishing with no subscribers is a no-op
	h.Publish(terminal.Tick{Symbol: "EURUSD"})
}
