package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	jobID := "j1"
	ch := b.Subscribe(jobID)

	evt := SSEEvent{Type: "job.progress", Data: map[string]any{"product": 2}}
	b.Publish(jobID, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["product"].(int) != 2 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(jobID, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerPublishWithoutSubscribers(t *testing.T) {
	b := NewBroker()
	// must not block or panic
	b.Publish("nobody", SSEEvent{Type: "job.done"})
}

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	if _, err := NewRedisBroker("://nope"); err == nil {
		t.Fatal("want error for malformed URL")
	}
}
