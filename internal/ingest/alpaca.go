// Package ingest pulls OHLCV candle series from the Alpaca market-data API
// into the candle store, batching symbols per request and rate limiting the
// calls.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"github.com/nicholaslpollard/ChartMonitor/internal/config"
	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/store"
)

// barsFetcher is the slice of the Alpaca client the ingestor consumes.
type barsFetcher interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

var _ barsFetcher = (*marketdata.Client)(nil)

// Options tunes one ingestion run.
type Options struct {
	// Days is the trailing history window to request.
	Days int

	// BatchSize is the number of symbols per API call.
	BatchSize int

	// MaxWorkers bounds concurrent API calls.
	MaxWorkers int

	// RateLimitPerMin caps API calls per minute across all workers.
	RateLimitPerMin int

	// Timeframes to ingest, in processing order.
	Timeframes []domain.Timeframe
}

// Ingestor fetches candles and merges them into the series store.
type Ingestor struct {
	client  barsFetcher
	store   store.SeriesStore
	opts    Options
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewIngestor builds an ingestor from Alpaca credentials. An empty DataURL
// keeps the client's default endpoint.
func NewIngestor(cfg config.Alpaca, s store.SeriesStore, opts Options, log *slog.Logger) *Ingestor {
	clientOpts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		clientOpts.BaseURL = cfg.DataURL
	}
	return newIngestor(marketdata.NewClient(clientOpts), s, opts, log)
}

func newIngestor(client barsFetcher, s store.SeriesStore, opts Options, log *slog.Logger) *Ingestor {
	if opts.Days <= 0 {
		opts.Days = 365
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 200
	}
	if len(opts.Timeframes) == 0 {
		opts.Timeframes = domain.Timeframes()
	}
	return &Ingestor{
		client:  client,
		store:   s,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RateLimitPerMin)/60.0), 1),
		log:     log.With("component", "ingest"),
	}
}

// Run fetches the trailing history for every symbol and timeframe and merges
// it into the store. Failed batches are logged and skipped; the run only
// errors when nothing at all could be fetched or the context is cancelled.
func (ing *Ingestor) Run(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		ing.log.Info("no symbols to ingest")
		return nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -ing.opts.Days)
	runStart := time.Now()

	var totalBars, failedBatches, totalBatches atomic.Int64

	for _, tf := range ing.opts.Timeframes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingest interrupted: %w", err)
		}

		batches := batchSymbols(symbols, ing.opts.BatchSize)
		totalBatches.Add(int64(len(batches)))

		ing.log.Info("ingesting timeframe",
			"timeframe", tf,
			"symbols", len(symbols),
			"batches", len(batches),
			"start", start.Format("2006-01-02"),
			"end", end.Format("2006-01-02"),
		)

		batchCh := make(chan []string, len(batches))
		for _, b := range batches {
			batchCh <- b
		}
		close(batchCh)

		var wg sync.WaitGroup
		workers := min(ing.opts.MaxWorkers, len(batches))
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for batch := range batchCh {
					if ctx.Err() != nil {
						return
					}
					n, err := ing.fetchBatch(ctx, batch, tf, start, end)
					if err != nil {
						failedBatches.Add(1)
						ing.log.Error("batch fetch failed",
							"timeframe", tf,
							"symbols", len(batch),
							"error", err,
						)
						continue
					}
					totalBars.Add(int64(n))
				}
			}()
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ingest interrupted: %w", err)
	}
	if totalBars.Load() == 0 && failedBatches.Load() > 0 {
		return fmt.Errorf("ingest failed: all %d fetched batches errored", failedBatches.Load())
	}

	ing.log.Info("ingest complete",
		"bars", totalBars.Load(),
		"failedBatches", failedBatches.Load(),
		"batches", totalBatches.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchBatch pulls one multi-symbol request and writes each symbol's series.
// Returns the number of bars written.
func (ing *Ingestor) fetchBatch(ctx context.Context, batch []string, tf domain.Timeframe, start, end time.Time) (int, error) {
	if err := ing.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	multiBars, err := ing.client.GetMultiBars(batch, marketdata.GetBarsRequest{
		TimeFrame: alpacaTimeframe(tf),
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return 0, fmt.Errorf("GetMultiBars: %w", err)
	}

	var written int
	for symbol, bars := range multiBars {
		if len(bars) == 0 {
			continue
		}
		candles := make([]domain.Candle, len(bars))
		for i, b := range bars {
			candles[i] = domain.Candle{
				Timestamp: b.Timestamp,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    float64(b.Volume),
			}
		}
		if err := ing.store.WriteSeries(ctx, strings.ToUpper(symbol), tf, candles); err != nil {
			return written, fmt.Errorf("writing %s series for %s: %w", tf, symbol, err)
		}
		written += len(candles)
	}
	return written, nil
}

// alpacaTimeframe maps a domain timeframe onto the API's bar duration.
func alpacaTimeframe(tf domain.Timeframe) marketdata.TimeFrame {
	switch tf {
	case domain.TF15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min)
	case domain.TF1Hour:
		return marketdata.NewTimeFrame(1, marketdata.Hour)
	case domain.TF1Week:
		return marketdata.NewTimeFrame(1, marketdata.Week)
	default:
		return marketdata.OneDay
	}
}

// batchSymbols splits symbols into chunks of at most size.
func batchSymbols(symbols []string, size int) [][]string {
	size = max(size, 1)
	var batches [][]string
	for i := 0; i < len(symbols); i += size {
		batches = append(batches, symbols[i:min(i+size, len(symbols))])
	}
	return batches
}
