package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	go b.Run()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.PublishJSON("pipeline_status", map[string]string{"status": "running"})

	select {
	case msg := <-sub:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("invalid event payload: %v", err)
		}
		if ev.Event != "pipeline_status" {
			t.Errorf("expected pipeline_status event, got %q", ev.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestBrokerSkipsSlowSubscriber(t *testing.T) {
	b := NewBroker()
	go b.Run()

	slow := b.Subscribe()
	fast := b.Subscribe()
	defer b.Unsubscribe(slow)
	defer b.Unsubscribe(fast)

	// Overflow the slow subscriber's buffer without reading from it. The
	// fast subscriber must keep receiving.
	for i := 0; i < 40; i++ {
		b.PublishJSON("pipeline_status", map[string]int{"seq": i})
	}

	received := 0
	deadline := time.After(2 * time.Second)
	for received < 16 {
		select {
		case <-fast:
			received++
		case <-deadline:
			t.Fatalf("fast subscriber stalled after %d events", received)
		}
	}
}
