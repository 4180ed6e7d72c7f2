// Package runner drives parallel wrapper detection over the units of a
// compilation database.
//
// Each unit is parsed and classified independently on a worker pool with no
// shared mutable state; results land in per-unit slots and are reduced on
// one goroutine after the pool drains. Cancelling the context stops new
// units from being launched but lets in-flight parses finish.
package runner

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/wraphound/internal/cast"
	"github.com/Sumatoshi-tech/wraphound/internal/detector"
	"github.com/Sumatoshi-tech/wraphound/internal/observability"
)

// UnitFailure records one translation unit that could not be parsed.
type UnitFailure struct {
	Source string `json:"source"`
	Err    string `json:"error"`
}

// Result aggregates a whole detection run. Skipped counts units never
// dispatched because the run was cancelled; a complete run has Skipped 0.
type Result struct {
	Candidates []detector.Candidate
	Failures   []UnitFailure
	Units      int
	Skipped    int
	Duration   time.Duration
}

// Runner holds the collaborators of a detection run. Metrics and Log may be
// nil.
type Runner struct {
	Provider cast.Provider
	Options  detector.Options
	Workers  int
	Metrics  *observability.ScanMetrics
	Log      *slog.Logger
}

type unitOutcome struct {
	candidates []detector.Candidate
	err        error
}

// Detect parses every unit, classifies its functions, and returns the
// merged run result. Parse failures are isolated per unit: the failed unit
// is logged and recorded, the rest of the run continues.
func (r *Runner) Detect(ctx context.Context, units []cast.Unit) *Result {
	start := time.Now()

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if workers > len(units) {
		workers = len(units)
	}

	type indexedUnit struct {
		index int
		unit  cast.Unit
	}

	outcomes := make([]unitOutcome, len(units))
	unitCh := make(chan indexedUnit, workers)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for item := range unitCh {
				outcomes[item.index] = r.processUnit(ctx, item.unit)
			}
		}()
	}

	dispatched := 0

	for i, unit := range units {
		if ctx.Err() != nil {
			break
		}

		unitCh <- indexedUnit{index: i, unit: unit}
		dispatched++
	}

	close(unitCh)
	wg.Wait()

	// Single-threaded reduction over the per-unit slots keeps output order
	// a pure function of the input order. Units are dispatched in order, so
	// the slots past dispatched are exactly the never-started ones.
	result := &Result{Units: len(units), Skipped: len(units) - dispatched}

	if result.Skipped > 0 && r.Log != nil {
		r.Log.Warn("run cancelled", "skipped_units", result.Skipped)
	}

	for i, outcome := range outcomes[:dispatched] {
		if outcome.err != nil {
			result.Failures = append(result.Failures, UnitFailure{
				Source: units[i].Source,
				Err:    outcome.err.Error(),
			})

			continue
		}

		result.Candidates = append(result.Candidates, outcome.candidates...)
	}

	result.Duration = time.Since(start)
	r.Metrics.RecordScan(ctx, result.Duration)

	return result
}

func (r *Runner) processUnit(ctx context.Context, unit cast.Unit) unitOutcome {
	parseStart := time.Now()

	parsed, err := r.Provider.Parse(ctx, unit)
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("unit parse failed", "source", unit.Source, "error", err)
		}

		r.Metrics.RecordFailure(ctx, unit.Language)

		return unitOutcome{err: err}
	}

	candidates := detector.Detect(parsed, r.Options)
	r.Metrics.RecordUnit(ctx, unit.Language, len(candidates), time.Since(parseStart))

	if r.Log != nil {
		r.Log.Debug("unit scanned",
			"source", unit.Source,
			"functions", len(parsed.Functions),
			"candidates", len(candidates))
	}

	return unitOutcome{candidates: candidates}
}
