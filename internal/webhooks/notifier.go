// Package webhooks delivers job lifecycle notifications to configured
// endpoints, signing each payload with the endpoint's shared secret.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"mpvrpcc/internal/config"
)

type delivery struct {
	endpoint  config.WebhookEndpoint
	eventType string
	payload   []byte
	attempts  int
}

// Notifier fans job events out to every configured endpoint. Deliveries are
// queued and retried with exponential backoff; after MaxAttempts a delivery
// is dropped and logged.
type Notifier struct {
	Endpoints   []config.WebhookEndpoint
	HTTP        *http.Client
	MaxAttempts int

	queue chan delivery
	stop  chan struct{}
}

func NewNotifier(endpoints []config.WebhookEndpoint) *Notifier {
	return &Notifier{
		Endpoints:   endpoints,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: 10,
		queue:       make(chan delivery, 256),
		stop:        make(chan struct{}),
	}
}

// Start launches the delivery loop. No-op when no endpoints are configured.
func (n *Notifier) Start() {
	if len(n.Endpoints) == 0 {
		return
	}
	go n.run()
}

func (n *Notifier) Stop() { close(n.stop) }

// Notify enqueues one event for every endpoint. It never blocks; when the
// queue is full the event is dropped and logged.
func (n *Notifier) Notify(eventType string, body any) {
	if len(n.Endpoints) == 0 {
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("webhooks: marshal %s: %v", eventType, err)
		return
	}
	for _, ep := range n.Endpoints {
		select {
		case n.queue <- delivery{endpoint: ep, eventType: eventType, payload: payload}:
		default:
			log.Printf("webhooks: queue full, dropping %s for %s", eventType, ep.URL)
		}
	}
}

func (n *Notifier) run() {
	for {
		select {
		case <-n.stop:
			return
		case d := <-n.queue:
			if n.deliver(d) {
				continue
			}
			d.attempts++
			if d.attempts >= n.MaxAttempts {
				log.Printf("webhooks: giving up on %s to %s after %d attempts", d.eventType, d.endpoint.URL, d.attempts)
				continue
			}
			go n.requeueAfter(d, nextBackoff(d.attempts))
		}
	}
}

func (n *Notifier) requeueAfter(d delivery, wait time.Duration) {
	select {
	case <-n.stop:
	case <-time.After(wait):
		select {
		case n.queue <- d:
		default:
			log.Printf("webhooks: queue full, dropping retry of %s for %s", d.eventType, d.endpoint.URL)
		}
	}
}

func (n *Notifier) deliver(d delivery) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint.URL, bytes.NewReader(d.payload))
	if err != nil {
		log.Printf("webhooks: build request for %s: %v", d.endpoint.URL, err)
		return true // unrecoverable, do not retry
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.eventType)
	if d.endpoint.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(d.endpoint.Secret, d.payload))
	}
	resp, err := n.HTTP.Do(req)
	if err != nil {
		return false
	}
	// Drain the body so the client connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func nextBackoff(attempts int) time.Duration {
	d := time.Second << uint(attempts)
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}
