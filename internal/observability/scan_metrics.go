// Package observability holds the OTel metric instruments for a scan run
// and the Prometheus scrape endpoint they are exported through.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricUnitsTotal      = "wraphound.scan.units.total"
	metricUnitFailures    = "wraphound.scan.unit.failures.total"
	metricCandidatesTotal = "wraphound.scan.candidates.total"
	metricMatchesTotal    = "wraphound.match.rows.total"
	metricParseDuration   = "wraphound.scan.parse.duration.seconds"
	metricScanDuration    = "wraphound.scan.duration.seconds"

	attrLanguage = "language"
	attrMatched  = "matched"
)

// Histogram bucket boundaries for per-unit parse latency. Parses are fast;
// the long tail comes from generated files.
var durationBucketBoundaries = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10,
}

// ScanMetrics holds OTel instruments for detection and matching runs.
type ScanMetrics struct {
	unitsTotal      metric.Int64Counter
	unitFailures    metric.Int64Counter
	candidatesTotal metric.Int64Counter
	matchesTotal    metric.Int64Counter
	parseDuration   metric.Float64Histogram
	scanDuration    metric.Float64Histogram
}

// NewScanMetrics creates scan metric instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		unitsTotal:      b.counter(metricUnitsTotal, "Translation units processed", "{unit}"),
		unitFailures:    b.counter(metricUnitFailures, "Translation units that failed to parse", "{unit}"),
		candidatesTotal: b.counter(metricCandidatesTotal, "Wrapper candidates detected", "{candidate}"),
		matchesTotal:    b.counter(metricMatchesTotal, "Ranked match rows produced", "{row}"),
		parseDuration:   b.histogram(metricParseDuration, "Per-unit parse duration in seconds", "s", durationBucketBoundaries...),
		scanDuration:    b.histogram(metricScanDuration, "Whole-scan wall time in seconds", "s"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordUnit records one parsed unit. Safe on a nil receiver (no-op).
func (sm *ScanMetrics) RecordUnit(ctx context.Context, language string, candidates int, elapsed time.Duration) {
	if sm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrLanguage, language))

	sm.unitsTotal.Add(ctx, 1, attrs)
	sm.candidatesTotal.Add(ctx, int64(candidates), attrs)
	sm.parseDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFailure records one unit that failed to parse.
func (sm *ScanMetrics) RecordFailure(ctx context.Context, language string) {
	if sm == nil {
		return
	}

	sm.unitFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrLanguage, language)))
}

// RecordScan records the wall time of a whole detection run.
func (sm *ScanMetrics) RecordScan(ctx context.Context, elapsed time.Duration) {
	if sm == nil {
		return
	}

	sm.scanDuration.Record(ctx, elapsed.Seconds())
}

// RecordMatches records the ranked rows of one matching run, split by
// whether they cleared the threshold.
func (sm *ScanMetrics) RecordMatches(ctx context.Context, matched, unmatched int) {
	if sm == nil {
		return
	}

	sm.matchesTotal.Add(ctx, int64(matched), metric.WithAttributes(attribute.Bool(attrMatched, true)))
	sm.matchesTotal.Add(ctx, int64(unmatched), metric.WithAttributes(attribute.Bool(attrMatched, false)))
}
