package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"

	"github.com/ccollicutt/chatwrap/pkg/config"
	"github.com/ccollicutt/chatwrap/pkg/output"
)

const chatExport = "12/24/23, 9:05 PM - Alice: Hello 😂\n" +
	"12/24/23, 9:06 PM - Bob: Hi\n" +
	"second line\n" +
	"12/26/23, 10:00 AM - Alice: 😂 again\n"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return New(cfg, zerolog.Nop())
}

func post(t *testing.T, srv *Server, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body["error"]
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	w := post(t, srv, "/api/v1/analyze", "text/plain", []byte(chatExport))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var report output.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Stats == nil || report.Stats.TotalMessages != 3 {
		t.Fatalf("Stats = %+v, want 3 messages", report.Stats)
	}
	if report.Stats.TopEmojis[0].Emoji != "😂" || report.Stats.TopEmojis[0].Count != 2 {
		t.Errorf("TopEmojis = %+v", report.Stats.TopEmojis)
	}
	if report.Stats.Hours[21] != 2 {
		t.Errorf("Hours[21] = %d, want 2", report.Stats.Hours[21])
	}
	if report.Metadata.RunID == "" || report.Metadata.Digest != output.Digest(chatExport) {
		t.Errorf("Metadata = %+v", report.Metadata)
	}
	if report.Metadata.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", report.Metadata.Timezone)
	}
}

func TestAnalyzeEndpoint_Zip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("WhatsApp Chat with Alice.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(chatExport)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(t, nil)
	w := post(t, srv, "/api/v1/analyze", "application/zip", buf.Bytes())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnalyzeEndpoint_TextFormat(t *testing.T) {
	srv := newTestServer(t, nil)

	w := post(t, srv, "/api/v1/analyze?format=text&quiet=true", "", []byte(chatExport))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "3 messages from 2 authors") {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		ctype     string
		body      string
		wantCode  int
		wantError string
	}{
		{
			name:      "system notices only",
			target:    "/api/v1/analyze",
			body:      "12/24/23, 9:00 AM - Messages are end-to-end encrypted.\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "no valid messages found",
		},
		{
			name:      "empty body",
			target:    "/api/v1/analyze",
			body:      "",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "no valid messages found",
		},
		{
			name:      "no valid timestamps",
			target:    "/api/v1/analyze",
			body:      "13/13/2023, 10:00 - Dave: hi\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "no messages with a valid timestamp",
		},
		{
			name:     "corrupt zip",
			target:   "/api/v1/analyze",
			ctype:    "application/zip",
			body:     "not a zip",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown format",
			target:   "/api/v1/analyze?format=xml",
			body:     chatExport,
			wantCode: http.StatusBadRequest,
		},
	}

	srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, srv, tt.target, tt.ctype, []byte(tt.body))
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			msg := decodeError(t, w)
			if tt.wantError != "" && msg != tt.wantError {
				t.Errorf("error = %q, want %q", msg, tt.wantError)
			}
			if msg == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestAnalyzeEndpoint_TooLarge(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Server.MaxUploadBytes = 16
	})

	w := post(t, srv, "/api/v1/analyze", "", []byte(chatExport))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestAnalyzeEndpoint_Webhooks(t *testing.T) {
	var mu sync.Mutex
	var payloads [][]byte
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		payloads = append(payloads, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	srv := newTestServer(t, func(c *config.Config) {
		c.Webhooks = []config.WebhookConfig{{Name: "test", URL: hook.URL}}
	})

	post(t, srv, "/api/v1/analyze", "", []byte(chatExport))
	post(t, srv, "/api/v1/analyze", "", []byte("no headers here\n"))
	srv.pending.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("expected 1 webhook delivery for the successful run, got %d", len(payloads))
	}
	var report output.Report
	if err := json.Unmarshal(payloads[0], &report); err != nil {
		t.Fatalf("webhook payload is not a report: %v", err)
	}
	if report.Summary.TotalMessages != 3 {
		t.Errorf("webhook summary = %+v", report.Summary)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUploadName(t *testing.T) {
	tests := []struct {
		target string
		ctype  string
		want   string
	}{
		{"/api/v1/analyze", "", "upload.txt"},
		{"/api/v1/analyze", "text/plain; charset=utf-8", "upload.txt"},
		{"/api/v1/analyze", "application/zip", "upload.zip"},
		{"/api/v1/analyze", "application/gzip", "upload.txt.gz"},
		{"/api/v1/analyze?name=family.zip", "text/plain", "family.zip"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.target, nil)
		req.Header.Set("Content-Type", tt.ctype)
		if got := uploadName(req); got != tt.want {
			t.Errorf("uploadName(%s, %q) = %q, want %q", tt.target, tt.ctype, got, tt.want)
		}
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Server.Addr = "127.0.0.1:0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("ListenAndServe() did not return after cancel")
	}
}
