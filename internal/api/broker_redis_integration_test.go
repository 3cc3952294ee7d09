//go:build redis_integration

package api

import (
	"os"
	"testing"
	"time"
)

func TestRedisBrokerLifecycle(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set; skipping integration test")
	}
	b, err := NewRedisBroker(url)
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}

	ch := b.Subscribe("j-redis")
	b.Publish("j-redis", SSEEvent{Type: "job.done", Data: map[string]any{"jobId": "j-redis"}})

	select {
	case got := <-ch:
		if got.Type != "job.done" {
			t.Fatalf("got type %s, want job.done", got.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe("j-redis", ch)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // closed by the reader after the PubSub shut down
			}
		case <-deadline:
			t.Fatal("channel not closed after unsubscribe")
		}
	}
}
