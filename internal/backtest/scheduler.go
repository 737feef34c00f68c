package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
	"github.com/nicholaslpollard/ChartMonitor/internal/results"
)

// SchedulerOptions tunes how the batch run is paced.
type SchedulerOptions struct {
	// Concurrency is the worker pool width. Minimum 1.
	Concurrency int

	// RoundDelay is the pause between scheduling rounds, a safeguard
	// against hammering the underlying storage.
	RoundDelay time.Duration

	// RequeueFailures grants each failed symbol one retry through the
	// FIFO retry queue. Off by default: a symbol failing mid-pipeline is
	// dropped for the run.
	RequeueFailures bool
}

// Scheduler drives the symbol universe through the aggregator with a bounded
// worker pool, persisting each completed result as it lands. Symbols already
// flagged retested are skipped, so an interrupted pass resumes where it
// stopped.
type Scheduler struct {
	agg     *Aggregator
	results *results.Store
	opts    SchedulerOptions
	log     *slog.Logger
}

// outcome is what one symbol's processing reports back to the round loop.
// err is a task-level failure (symbol dropped or retried); fatal is a store
// write failure, which aborts the whole run.
type outcome struct {
	inst  domain.Instrument
	err   error
	fatal error
}

// NewScheduler creates a Scheduler writing results to store.
func NewScheduler(agg *Aggregator, store *results.Store, opts SchedulerOptions, log *slog.Logger) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scheduler{
		agg:     agg,
		results: store,
		opts:    opts,
		log:     log.With("component", "scheduler"),
	}
}

// Run processes every instrument not already retested in the current cycle.
// Each round dispatches up to Concurrency symbols, retry-queue items first,
// then waits RoundDelay before the next round. It returns early only on
// context cancellation or a result-store write failure.
func (s *Scheduler) Run(ctx context.Context, universe []domain.Instrument) error {
	skip := s.results.RetestedSymbols()
	backlog := make([]domain.Instrument, 0, len(universe))
	for _, inst := range universe {
		if _, ok := skip[inst.Symbol]; ok {
			continue
		}
		backlog = append(backlog, inst)
	}

	total := len(backlog)
	s.log.Info("starting run",
		"universe", len(universe),
		"skipped", len(universe)-total,
		"pending", total,
		"concurrency", s.opts.Concurrency,
	)

	var retryQueue []domain.Instrument
	retried := make(map[string]bool)
	processed := 0
	start := time.Now()

	for len(backlog) > 0 || len(retryQueue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Fill the round, preferring retries over fresh backlog.
		batch := make([]domain.Instrument, 0, s.opts.Concurrency)
		for len(batch) < s.opts.Concurrency && len(retryQueue) > 0 {
			batch = append(batch, retryQueue[0])
			retryQueue = retryQueue[1:]
		}
		for len(batch) < s.opts.Concurrency && len(backlog) > 0 {
			batch = append(batch, backlog[0])
			backlog = backlog[1:]
		}

		outcomes := make([]outcome, len(batch))
		var wg sync.WaitGroup
		for k, inst := range batch {
			wg.Add(1)
			go func(k int, inst domain.Instrument) {
				defer wg.Done()
				outcomes[k] = s.process(ctx, inst)
			}(k, inst)
		}
		wg.Wait()

		for _, oc := range outcomes {
			if oc.fatal != nil {
				return fmt.Errorf("persisting result for %s: %w", oc.inst.Symbol, oc.fatal)
			}
			if oc.err != nil {
				if s.opts.RequeueFailures && !retried[oc.inst.Symbol] {
					retried[oc.inst.Symbol] = true
					retryQueue = append(retryQueue, oc.inst)
					s.log.Warn("symbol failed, queued for retry", "symbol", oc.inst.Symbol, "error", oc.err)
				} else {
					s.log.Warn("symbol failed, dropped for this run", "symbol", oc.inst.Symbol, "error", oc.err)
				}
				continue
			}

			processed++
			remaining := total - processed
			mean := time.Since(start) / time.Duration(processed)
			s.log.Info("progress",
				"processed", processed,
				"total", total,
				"eta", (mean * time.Duration(remaining)).Round(time.Second),
			)
		}

		if len(backlog) > 0 || len(retryQueue) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.RoundDelay):
			}
		}
	}

	s.log.Info("run complete",
		"processed", processed,
		"total", total,
		"elapsed", time.Since(start).Round(time.Second),
	)
	return s.results.SortAndFlush()
}

// process backtests one symbol end to end and upserts its result. Panics
// anywhere in the symbol's pipeline surface as a task-level error so one bad
// symbol cannot take down the batch.
func (s *Scheduler) process(ctx context.Context, inst domain.Instrument) (oc outcome) {
	oc.inst = inst
	defer func() {
		if r := recover(); r != nil {
			oc.err = fmt.Errorf("symbol pipeline panic: %v", r)
		}
	}()

	res := s.agg.SelectBest(ctx, inst.Symbol, inst.Name)
	status, err := s.results.Upsert(res)
	if err != nil {
		oc.fatal = err
		return oc
	}

	s.log.Info("symbol complete",
		"symbol", inst.Symbol,
		"overallWinRate", fmt.Sprintf("%.1f", res.OverallWinRate),
		"retested", status,
	)
	return oc
}
