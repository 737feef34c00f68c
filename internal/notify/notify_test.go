package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleAlert() domain.Alert {
	return domain.Alert{
		Symbol:    "AAPL",
		Timeframe: domain.TF1Day,
		Strategy:  "sma-cross",
		Direction: domain.DirectionLong,
		Price:     187.42,
		WinRate:   61.5,
		CreatedAt: time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC),
	}
}

func TestWebhookSend(t *testing.T) {
	var (
		mu          sync.Mutex
		got         domain.Alert
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 3, testLogger())
	if err := n.Send(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.HasPrefix(contentType, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if got.Symbol != "AAPL" || got.Strategy != "sma-cross" {
		t.Errorf("payload = %+v", got)
	}
	if got.Direction != domain.DirectionLong {
		t.Errorf("direction = %q, want %q", got.Direction, domain.DirectionLong)
	}
	if got.Price != 187.42 {
		t.Errorf("price = %v, want 187.42", got.Price)
	}
}

func TestWebhookRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 3, testLogger())
	n.baseDelay = time.Millisecond

	if err := n.Send(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestWebhookExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream on fire", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 2, testLogger())
	n.baseDelay = time.Millisecond

	err := n.Send(context.Background(), sampleAlert())
	if err == nil {
		t.Fatal("Send succeeded, want error")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if !strings.Contains(err.Error(), "status 503") {
		t.Errorf("error = %v, want status 503 mentioned", err)
	}
	if !strings.Contains(err.Error(), "upstream on fire") {
		t.Errorf("error = %v, want response body included", err)
	}
}

func TestWebhookContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 5, testLogger())
	n.baseDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The first attempt may fail on its own, but the retry wait must bail
	// out on the dead context instead of sleeping a minute.
	done := make(chan error, 1)
	go func() { done <- n.Send(ctx, sampleAlert()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Send succeeded, want error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send did not return after context cancellation")
	}
}

func TestNewPicksNoop(t *testing.T) {
	n := New(config.NotifyConfig{WebhookURL: "", MaxAttempts: 3}, testLogger())
	if _, ok := n.(NoopNotifier); !ok {
		t.Fatalf("New with empty URL = %T, want NoopNotifier", n)
	}
	if err := n.Send(context.Background(), sampleAlert()); err != nil {
		t.Errorf("NoopNotifier.Send: %v", err)
	}
}

func TestNewPicksWebhook(t *testing.T) {
	n := New(config.NotifyConfig{WebhookURL: "http://localhost:1/hook", MaxAttempts: 3}, testLogger())
	if _, ok := n.(*WebhookNotifier); !ok {
		t.Fatalf("New with URL = %T, want *WebhookNotifier", n)
	}
}
