// Package main runs a demo WebSocket client for schedule run events.
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

type wsFrame struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId"`
	Data  map[string]any `json:"data,omitempty"`
}

func postJSON(base, path, body string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, base+path, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Fill the demo plan's coverage grid so the run has demand to schedule.
	covBody := `{"workload":{"volume":100,"intervalMinutes":30,"ahtSeconds":240},"constraints":{"targetSLPercent":80,"thresholdSeconds":20,"maxOccupancy":85},"behavior":{"shrinkagePercent":10}}`
	resp, err := postJSON(base, "/v1/plans/plan-demo/coverage", covBody)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("coverage generation returned %d", resp.StatusCode)
	}

	// Queue a run; the serve worker picks it up.
	resp, err = postJSON(base, "/v1/runs", `{"planId":"plan-demo","methodId":"method-greedy"}`)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var run struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s (%s)", run.ID, run.Status)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws", RawQuery: "runId=" + run.ID}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	deadline := time.After(30 * time.Second)
	frames := make(chan wsFrame)
	go func() {
		defer close(frames)
		for {
			var f wsFrame
			if err := c.ReadJSON(&f); err != nil {
				log.Printf("read: %v", err)
				return
			}
			frames <- f
		}
	}()

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			data, _ := json.Marshal(f.Data)
			log.Printf("WS <- %s: %s", f.Type, data)
			if f.Type == "run.completed" || f.Type == "run.failed" {
				return
			}
		case <-deadline:
			log.Fatal("timed out waiting for run to finish")
		}
	}
}
