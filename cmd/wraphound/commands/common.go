// Package commands implements CLI command handlers for wraphound.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Sumatoshi-tech/wraphound/internal/cast"
	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
	"github.com/Sumatoshi-tech/wraphound/internal/compiledb"
	"github.com/Sumatoshi-tech/wraphound/internal/config"
	"github.com/Sumatoshi-tech/wraphound/internal/detector"
	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
	"github.com/Sumatoshi-tech/wraphound/internal/observability"
	"github.com/Sumatoshi-tech/wraphound/internal/runner"
)

// ErrNoCatalog is returned when matching is requested without a catalog path.
var ErrNoCatalog = errors.New("no catalog given. Use --catalog or set match.catalog in .wraphound.yaml")

const metricsReadHeaderTimeout = 5 * time.Second

// newLogger builds the CLI logger. Debug level when verbose, text output on
// stderr so report output on stdout stays machine-readable.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newRunner assembles a detection runner from config plus flag overrides.
func newRunner(cfg *config.Config, cat *catalog.Catalog, metrics *observability.ScanMetrics, log *slog.Logger) *runner.Runner {
	opts := detector.Options{
		Mode:               detector.Mode(cfg.Detect.Mode),
		StatementTolerance: cfg.Detect.StatementTolerance,
	}

	if cat != nil && !cat.Helpers.Empty() {
		opts.IsHelper = cat.Helpers.Match
	}

	return &runner.Runner{
		Provider: cast.NewSitterProvider(),
		Options:  opts,
		Workers:  cfg.Detect.Workers,
		Metrics:  metrics,
		Log:      log,
	}
}

// loadUnits reads a compilation database and applies configured path maps.
func loadUnits(compdbPath string, cfg *config.Config) ([]cast.Unit, error) {
	entries, err := compiledb.Load(compdbPath)
	if err != nil {
		return nil, err
	}

	maps, err := compiledb.ParsePathMaps(cfg.Detect.PathMaps)
	if err != nil {
		return nil, err
	}

	return compiledb.Units(entries, maps), nil
}

// matchOptions builds matcher options from config.
func matchOptions(cfg *config.Config) matcher.Options {
	opts := matcher.Options{
		Threshold:     cfg.Match.Threshold,
		ShowUnmatched: cfg.Match.ShowUnmatched,
	}

	if len(cfg.Match.StripPrefixes) > 0 || len(cfg.Match.StripSuffixes) > 0 {
		affixes := matcher.DefaultAffixes()

		if len(cfg.Match.StripPrefixes) > 0 {
			affixes.Prefixes = cfg.Match.StripPrefixes
		}

		if len(cfg.Match.StripSuffixes) > 0 {
			affixes.Suffixes = cfg.Match.StripSuffixes
		}

		opts.Affixes = &affixes
	}

	return opts
}

// startMetrics exposes the Prometheus scrape endpoint when an address is
// configured. Returns the meter to create instruments from, or nil when
// metrics are disabled.
func startMetrics(ctx context.Context, addr string, log *slog.Logger) (*observability.ScanMetrics, error) {
	if addr == "" {
		return nil, nil
	}

	handler, meter, err := observability.PrometheusHandler()
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewScanMetrics(meter)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Warn("metrics server failed", "addr", addr, "error", serveErr)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsReadHeaderTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)

	return metrics, nil
}

// countMatched splits ranked rows into matched and below-threshold totals.
func countMatched(rows []matcher.Match) (matched, unmatched int) {
	for _, row := range rows {
		if row.Matched {
			matched++
		} else {
			unmatched++
		}
	}

	return matched, unmatched
}
