// Package main runs a demo WebSocket client for quote events.
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
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so we catch the event for the quote we create below.
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/quotes/ws"}
	hdr := http.Header{}
	hdr.Set("X-Carrier-Id", "c_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// connection_init
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to quote events
	pl, _ := json.Marshal(map[string]any{"eventTypes": []string{"quote.created"}})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
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
		}
	}()

	// Trigger a quote event
	time.Sleep(500 * time.Millisecond)
	body := []byte(`{"route":{"originState":"GA","destinationState":"FL","totalMiles":350,"deadheadMiles":40},"load":{"weightLbs":18000}}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/quotes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Carrier-Id", "c_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var quote struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		log.Fatal(err)
	}
	log.Printf("Quote ID: %s", quote.ID)

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
