package monitor

import (
	"context"
	"errors"
	"sort"
	"time"

	"forex-signal-go/internal/metrics"
	"forex-signal-go/internal/models"
	"forex-signal-go/internal/quotes"
	"forex-signal-go/internal/twelvedata"

	"go.uber.org/zap"
)

// SignalStore is the slice of the repository the worker needs.
type SignalStore interface {
	ListActive() ([]models.SignalRecord, error)
	MarkOpened(id uint, openPrice float64) error
	MarkClosed(id uint, status string, closePrice, pnl float64) error
}

// Worker drives the signal lifecycle state machine: on a fixed period it
// fetches quotes for every symbol referenced by an active signal and applies
// the evaluator, persisting the resulting transitions.
type Worker struct {
	logger   *zap.Logger
	store    SignalStore
	source   quotes.SourceInterface
	recorder *metrics.Recorder
	interval time.Duration
}

// NewWorker creates a polling worker.
func NewWorker(logger *zap.Logger, store SignalStore, source quotes.SourceInterface, recorder *metrics.Recorder, interval time.Duration) *Worker {
	return &Worker{
		logger:   logger,
		store:    store,
		source:   source,
		recorder: recorder,
		interval: interval,
	}
}

// Run executes cycles until ctx is cancelled. The next cycle is scheduled
// only after the current one fully completes, so cycles never overlap even
// when the upstream call outlives the interval.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Starting signal worker", zap.Duration("interval", w.interval))

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping signal worker...")
			return
		case <-timer.C:
			w.RunCycle(ctx)
			timer.Reset(w.interval)
		}
	}
}

// RunCycle performs a single monitoring pass. It never returns an error:
// all failures are logged and the cycle either proceeds with best-effort
// partial progress or is abandoned cleanly for this tick.
func (w *Worker) RunCycle(ctx context.Context) {
	active, err := w.store.ListActive()
	if err != nil {
		w.logger.Error("Failed to load active signals, skipping cycle", zap.Error(err))
		w.recorder.CycleSkipped("store_error")
		return
	}
	if len(active) == 0 {
		w.recorder.CycleCompleted()
		return
	}

	prices, err := w.source.GetQuotes(ctx, distinctSymbols(active))
	if err != nil {
		if errors.Is(err, twelvedata.ErrRateLimited) {
			// Transient by definition; the next cycle retries automatically.
			w.logger.Warn("Quote provider rate limit hit, auto-retrying next cycle", zap.Error(err))
			w.recorder.UpstreamError("rate_limit")
		} else {
			w.logger.Error("Failed to fetch quotes, skipping cycle", zap.Error(err))
			w.recorder.UpstreamError("fetch")
		}
		w.recorder.CycleSkipped("quotes_unavailable")
		return
	}

	for symbol, p := range prices {
		if p != nil {
			w.recorder.LastPrice(symbol, *p)
		}
	}

	for i := range active {
		sig := &active[i]
		// One signal's failure must not block evaluation of the others.
		if err := w.apply(sig, Evaluate(sig, prices[sig.Symbol])); err != nil {
			w.logger.Error("Failed to persist signal transition",
				zap.Uint("signal_id", sig.ID),
				zap.String("symbol", sig.Symbol),
				zap.Error(err),
			)
		}
	}

	w.recorder.CycleCompleted()
}

// apply persists the transition the evaluator decided on, if any.
func (w *Worker) apply(sig *models.SignalRecord, tr Transition) error {
	switch tr.Kind {
	case Entered:
		if err := w.store.MarkOpened(sig.ID, tr.Price); err != nil {
			return err
		}
		w.recorder.Transition("opened")
		w.logger.Info("Signal entered its zone and opened",
			zap.Uint("signal_id", sig.ID),
			zap.String("symbol", sig.Symbol),
			zap.Float64("open_price", tr.Price),
		)
	case Closed:
		if err := w.store.MarkClosed(sig.ID, tr.Status, tr.Price, tr.Pnl); err != nil {
			return err
		}
		w.recorder.Transition(tr.Status)
		w.logger.Info("Signal closed",
			zap.Uint("signal_id", sig.ID),
			zap.String("symbol", sig.Symbol),
			zap.String("status", tr.Status),
			zap.Float64("close_price", tr.Price),
			zap.Float64("pnl", tr.Pnl),
		)
	}
	return nil
}

// distinctSymbols collects the unique symbols of the active set in a stable order.
func distinctSymbols(signals []models.SignalRecord) []string {
	seen := make(map[string]struct{}, len(signals))
	symbols := make([]string, 0, len(signals))
	for _, s := range signals {
		if _, ok := seen[s.Symbol]; ok {
			continue
		}
		seen[s.Symbol] = struct{}{}
		symbols = append(symbols, s.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}
