package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ccollicutt/chatwrap/pkg/analyzer"
	"github.com/ccollicutt/chatwrap/pkg/config"
	"github.com/ccollicutt/chatwrap/pkg/output"
	"github.com/ccollicutt/chatwrap/pkg/parser"
)

func newTestReport() *output.Report {
	first := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	stats := &analyzer.Stats{
		TotalMessages: 3,
		Authors:       []analyzer.AuthorCount{{Name: "Alice", Count: 2}, {Name: "Bob", Count: 1}},
		TopEmojis:     []analyzer.EmojiCount{{Emoji: "🎉", Count: 2}},
		FirstDate:     first,
		LastDate:      first.Add(26 * time.Hour),
		DurationDays:  1,
		CalendarDays:  1,
	}
	stats.Hours[9] = 2
	stats.Hours[11] = 1

	return output.NewReport(stats, &parser.Result{Lines: 3}, nil, output.Metadata{
		RunID:      "3f1c7f0e-8f5a-4e0b-9a59-1c2d3e4f5a6b",
		Source:     "chat.txt",
		Digest:     "00000000deadbeef",
		Timezone:   "UTC",
		AnalyzedAt: time.Now(),
		Duration:   time.Second,
	})
}

func TestClient_Send_Success(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	var receivedAuth string
	var receivedRun string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedRun = r.Header.Get("X-Chatwrap-Run")
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %s", receivedAuth)
	}

	// Verify payload is valid JSON containing expected fields
	var payload map[string]interface{}
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Errorf("failed to parse received payload: %v", err)
	}

	if _, ok := payload["summary"]; !ok {
		t.Error("payload missing summary field")
	}
	if _, ok := payload["stats"]; !ok {
		t.Error("payload missing stats field")
	}

	if receivedRun != report.Metadata.RunID {
		t.Errorf("expected run header %s, got %s", report.Metadata.RunID, receivedRun)
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if resp.Success() {
		t.Error("expected failure, got success")
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure due to timeout")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: "://invalid-url",
	})

	if resp.Success() {
		t.Error("expected failure for invalid URL")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     "http://127.0.0.1:59999", // Unlikely to be listening
		Timeout: 100 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure for connection refused")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"201 Created", Response{StatusCode: 201}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestShouldFire(t *testing.T) {
	tests := []struct {
		trigger  config.WebhookTrigger
		hasStats bool
		want     bool
	}{
		{config.WebhookTriggerAlways, true, true},
		{config.WebhookTriggerAlways, false, true},
		{config.WebhookTriggerNever, true, false},
		{config.WebhookTriggerNever, false, false},
		{config.WebhookTriggerOnSuccess, true, true},
		{config.WebhookTriggerOnSuccess, false, false},
		{"", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := ShouldFire(tt.trigger, tt.hasStats); got != tt.want {
			t.Errorf("ShouldFire(%q, %v) = %v, want %v", tt.trigger, tt.hasStats, got, tt.want)
		}
	}
}

func TestClient_Dispatch(t *testing.T) {
	var hits []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hooks := []config.WebhookConfig{
		{Name: "broken", URL: server.URL + "/broken", Trigger: config.WebhookTriggerAlways},
		{URL: server.URL + "/success", Trigger: config.WebhookTriggerOnSuccess},
		{Name: "off", URL: server.URL + "/never", Trigger: config.WebhookTriggerNever},
	}

	t.Run("with stats", func(t *testing.T) {
		hits = nil
		deliveries := NewClient().Dispatch(context.Background(), hooks, newTestReport())

		if len(deliveries) != 2 {
			t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
		}
		if deliveries[0].Name != "broken" || deliveries[0].Response.Success() {
			t.Errorf("first delivery = %+v, want failed broken hook", deliveries[0])
		}
		if deliveries[1].Name != server.URL+"/success" || !deliveries[1].Response.Success() {
			t.Errorf("second delivery = %+v, want successful hook named by URL", deliveries[1])
		}
		if len(hits) != 2 {
			t.Errorf("expected 2 requests, got %v", hits)
		}
	})

	t.Run("without stats", func(t *testing.T) {
		hits = nil
		failed := output.NewReport(nil, nil, analyzer.ErrNoTimestamps, output.Metadata{Source: "chat.txt"})
		deliveries := NewClient().Dispatch(context.Background(), hooks, failed)

		if len(deliveries) != 1 || deliveries[0].Name != "broken" {
			t.Errorf("expected only the always hook to fire, got %+v", deliveries)
		}
	})
}
