package chartmonitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","symbols":2}`))
	})
	mux.HandleFunc("GET /api/results", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":2,"results":[
			{"symbol":"AAPL","name":"Apple Inc","overallWinRate":61.5,
			 "timeframes":{"1d":{"strategy":"sma-cross","trades":10,"wins":7,"losses":3,"winRate":70,"avgDuration":3.2,"avgRR":1.8}},
			 "retested":"yes"},
			{"symbol":"MSFT","name":"Microsoft","overallWinRate":52.0,"timeframes":{},"retested":"no"}
		]}`))
	})
	mux.HandleFunc("GET /api/results/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("symbol") != "AAPL" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"no result"}`))
			return
		}
		w.Write([]byte(`{"symbol":"AAPL","name":"Apple Inc","overallWinRate":61.5,"timeframes":{},"retested":"yes"}`))
	})
	mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "1" {
			w.Write([]byte(`{"count":1,"alerts":[{"symbol":"TSLA","timeframe":"1h","strategy":"breakout","direction":"long","price":250.5,"winRate":58}]}`))
			return
		}
		w.Write([]byte(`{"count":0,"alerts":[]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientHealth(t *testing.T) {
	srv := newAPIStub(t)
	c := NewClient(srv.URL + "/")

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.Symbols != 2 {
		t.Errorf("health = %+v", h)
	}
}

func TestClientResults(t *testing.T) {
	srv := newAPIStub(t)
	c := NewClient(srv.URL)

	results, err := c.Results(context.Background())
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	aapl := results[0]
	if aapl.Symbol != "AAPL" || aapl.OverallWinRate != 61.5 {
		t.Errorf("results[0] = %+v", aapl)
	}
	day, ok := aapl.Timeframes["1d"]
	if !ok || day.Strategy != "sma-cross" || day.WinRate != 70 {
		t.Errorf("1d stats = %+v", day)
	}
}

func TestClientResultNotFound(t *testing.T) {
	srv := newAPIStub(t)
	c := NewClient(srv.URL)

	if _, err := c.Result(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Result(nope) error = %v, want ErrNotFound", err)
	}

	res, err := c.Result(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Result(aapl): %v", err)
	}
	if res.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", res.Symbol)
	}
}

func TestClientAlerts(t *testing.T) {
	srv := newAPIStub(t)
	c := NewClient(srv.URL)

	alerts, err := c.Alerts(context.Background(), 1)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Symbol != "TSLA" || alerts[0].Direction != "long" {
		t.Errorf("alerts = %+v", alerts)
	}

	alerts, err = c.Alerts(context.Background(), 0)
	if err != nil {
		t.Fatalf("Alerts(0): %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(alerts))
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("Health succeeded, want error")
	}
}
