package messaging

import (
	"testing"
	"time"
)

func TestBroker(t *testing.T) {
	t.Run("test fan out", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(func() {
			broker.Reset()
		})
		subs := map[string]chan Event{
			"stats":   make(chan Event, 1),
			"console": make(chan Event, 1),
		}
		for id, ch := range subs {
			if err := broker.Subscribe(id, ch); err != nil {
				t.Fatalf("Failed to subscribe %s: %v", id, err)
			}
		}

		ev := Event{Type: EventStep, RunID: "run-1", Step: 3, EnvIndex: -1, Values: []float64{1, 2}}
		if err := broker.Publish(ev); err != nil {
			t.Fatalf("Failed to publish event: %v", err)
		}

		for id, ch := range subs {
			select {
			case received := <-ch:
				if received.Type != EventStep || received.Step != 3 || len(received.Values) != 2 {
					t.Errorf("Unexpected event received by %s: %+v", id, received)
				}
				if received.Timestamp.IsZero() {
					t.Errorf("Publish should stamp events without a timestamp")
				}
			case <-time.After(time.Second):
				t.Errorf("Timeout waiting for event on %s", id)
			}
		}
	})

	t.Run("test unsubscribed channels get nothing", func(t *testing.T) {
		broker := NewBroker()
		ch := make(chan Event, 1)
		if err := broker.Subscribe("stats", ch); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := broker.Unsubscribe("stats"); err != nil {
			t.Fatalf("Failed to unsubscribe: %v", err)
		}
		if err := broker.Publish(Event{Type: EventRunStarted}); err != nil {
			t.Fatalf("Failed to publish: %v", err)
		}
		select {
		case ev := <-ch:
			t.Errorf("Unsubscribed channel received %+v", ev)
		case <-time.After(100 * time.Millisecond):
			// This is expected
		}
	})

	t.Run("test subscription management", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(func() {
			broker.Reset()
		})
		ch := make(chan Event, 1)

		if err := broker.Subscribe("stats", ch); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := broker.Subscribe("stats", ch); err == nil {
			t.Error("Expected error for duplicate subscription, got nil")
		}
		if err := broker.Unsubscribe("stats"); err != nil {
			t.Fatalf("Failed to unsubscribe: %v", err)
		}
		if err := broker.Unsubscribe("stats"); err == nil {
			t.Error("Expected error for unsubscribing twice, got nil")
		}
	})

	t.Run("test channel full behavior", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(func() {
			broker.Reset()
		})
		full := make(chan Event, 1)
		roomy := make(chan Event, 2)
		if err := broker.Subscribe("full", full); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := broker.Subscribe("roomy", roomy); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}

		if err := broker.Publish(Event{Type: EventStep, Step: 1}); err != nil {
			t.Fatalf("Failed to publish first event: %v", err)
		}
		if err := broker.Publish(Event{Type: EventStep, Step: 2}); err == nil {
			t.Error("Expected error when publishing to full channel, got nil")
		}
		if len(roomy) != 2 {
			t.Errorf("Other subscribers should still get the event, roomy has %d", len(roomy))
		}
	})
}
