package webhooks

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mpvrpcc/internal/config"
)

func TestSignVerifyHMAC(t *testing.T) {
	body := []byte(`{"jobId":"j1","status":"done"}`)
	sig := SignHMAC("s3cret", body)
	if !VerifyHMAC("s3cret", body, sig) {
		t.Fatal("signature should verify with the same secret")
	}
	if VerifyHMAC("wrong", body, sig) {
		t.Fatal("signature should not verify with a different secret")
	}
	if VerifyHMAC("s3cret", body, "not-hex") {
		t.Fatal("malformed signature should not verify")
	}
}

func TestNotifierDeliversSignedEvent(t *testing.T) {
	got := make(chan *http.Request, 1)
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		got <- r
		w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	n := NewNotifier([]config.WebhookEndpoint{{URL: srv.URL, Secret: "s3cret"}})
	n.Start()
	defer n.Stop()

	n.Notify("job.done", map[string]string{"jobId": "j1"})

	select {
	case r := <-got:
		if r.Header.Get("X-Event-Type") != "job.done" {
			t.Fatalf("event type header = %q", r.Header.Get("X-Event-Type"))
		}
		if !VerifyHMAC("s3cret", gotBody, r.Header.Get("X-Signature")) {
			t.Fatal("delivered signature does not verify")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for delivery")
	}
}

func TestNotifierNoEndpoints(t *testing.T) {
	n := NewNotifier(nil)
	n.Start()
	// must not block or panic
	n.Notify("job.done", map[string]string{"jobId": "j1"})
}
