package httpapi

import (
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
)

// HealthResponse reports liveness and the size of the results collection.
type HealthResponse struct {
	Status  string `json:"status"`
	Symbols int    `json:"symbols"`
}

// ResultsResponse wraps the full persisted results collection.
type ResultsResponse struct {
	Count   int                    `json:"count"`
	Results []results.SymbolResult `json:"results"`
}

// AlertsResponse wraps a page of journaled alerts, newest first.
type AlertsResponse struct {
	Count  int            `json:"count"`
	Alerts []domain.Alert `json:"alerts"`
}
