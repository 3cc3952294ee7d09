// Package main runs a demo WebSocket client for job events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	JobID   string          `json:"jobId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a tiny instance
	instBody := []byte(`{
		"name": "ws-demo",
		"garages": [{"id": 1, "x": 0, "y": 0}],
		"depots": [{"id": 1, "x": 10, "y": 0, "stock": {"0": 100}}],
		"stations": [{"id": 1, "x": 20, "y": 0, "demand": {"0": 40}}],
		"trucks": [{"id": 1, "capacity": 50, "garage_id": 1, "initial_product": 0}],
		"changeover_costs": {}
	}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/instances", bytes.NewReader(instBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Instance ID: %s", created.ID)

	// Connect WS before starting the job so no events are missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/jobs"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}

	// Start a solve job
	solveBody, _ := json.Marshal(map[string]any{"instanceId": created.ID, "timeBudgetMs": 2000})
	req, _ = http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(solveBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var job struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Job ID: %s", job.ID)

	// Subscribe to its events
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", JobID: job.ID}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "complete" {
				return
			}
		}
	}()

	select {
	case <-time.After(10 * time.Second):
	case <-done:
	}
}
