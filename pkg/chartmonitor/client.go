// Package chartmonitor provides a Go client for the ChartMonitor HTTP API.
package chartmonitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the API has no record for the requested symbol.
var ErrNotFound = errors.New("not found")

// TimeframeStats is the winning strategy's record for one timeframe.
type TimeframeStats struct {
	Strategy    string  `json:"strategy"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
	AvgDuration float64 `json:"avgDuration"`
	AvgRR       float64 `json:"avgRR"`
}

// SymbolResult is one symbol's persisted backtest outcome.
type SymbolResult struct {
	Symbol         string                    `json:"symbol"`
	Name           string                    `json:"name"`
	OverallWinRate float64                   `json:"overallWinRate"`
	Timeframes     map[string]TimeframeStats `json:"timeframes"`
	Retested       string                    `json:"retested"`
}

// Alert is one journaled live-monitoring event.
type Alert struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Strategy  string    `json:"strategy"`
	Direction string    `json:"direction"`
	Price     float64   `json:"price"`
	WinRate   float64   `json:"winRate"`
	CreatedAt time.Time `json:"createdAt"`
}

// Health is the API liveness report.
type Health struct {
	Status  string `json:"status"`
	Symbols int    `json:"symbols"`
}

type resultsResponse struct {
	Count   int            `json:"count"`
	Results []SymbolResult `json:"results"`
}

type alertsResponse struct {
	Count  int     `json:"count"`
	Alerts []Alert `json:"alerts"`
}

// Client talks to a running ChartMonitor server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health reports API liveness and the size of the results collection.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.getJSON(ctx, "/api/health", &h)
	return h, err
}

// Results retrieves the full persisted results collection.
func (c *Client) Results(ctx context.Context) ([]SymbolResult, error) {
	var resp resultsResponse
	if err := c.getJSON(ctx, "/api/results", &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Result retrieves one symbol's result. Returns ErrNotFound when the symbol
// has no persisted record.
func (c *Client) Result(ctx context.Context, symbol string) (SymbolResult, error) {
	var res SymbolResult
	err := c.getJSON(ctx, "/api/results/"+strings.ToUpper(symbol), &res)
	return res, err
}

// Alerts retrieves the most recent journaled alerts, newest first. A limit
// below 1 uses the server default.
func (c *Client) Alerts(ctx context.Context, limit int) ([]Alert, error) {
	path := "/api/alerts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp alertsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
