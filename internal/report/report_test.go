package report_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/wraphound/internal/detector"
	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
	"github.com/Sumatoshi-tech/wraphound/internal/report"
	"github.com/Sumatoshi-tech/wraphound/internal/runner"
)

func sampleCandidates() []detector.Candidate {
	return []detector.Candidate{
		{
			Wrapper:    "my_open",
			File:       "/src/a.c",
			Line:       10,
			Target:     "open",
			Mapping:    detector.Mapping{FullProxy: true, Passed: 2},
			Confidence: 1.0,
		},
		{
			Wrapper:    "safe_close",
			File:       "/src/b.c",
			Line:       20,
			Target:     "close",
			Mapping:    detector.Mapping{Passed: 1},
			Confidence: 0.65,
		},
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path       string
		format     string
		compressed bool
		wantErr    bool
	}{
		{path: "cands.json", format: report.FormatJSON},
		{path: "cands.jsonl", format: report.FormatJSONL},
		{path: "cands.ndjson", format: report.FormatJSONL},
		{path: "cands.csv", format: report.FormatCSV},
		{path: "cands.json.lz4", format: report.FormatJSON, compressed: true},
		{path: "cands.csv.LZ4", format: report.FormatCSV, compressed: true},
		{path: "cands.txt", wantErr: true},
		{path: "cands.lz4", wantErr: true},
	}

	for _, tt := range tests {
		format, compressed, err := report.FormatOf(tt.path)
		if tt.wantErr {
			require.ErrorIs(t, err, report.ErrUnknownFormat, "path %s", tt.path)

			continue
		}

		require.NoError(t, err, "path %s", tt.path)
		assert.Equal(t, tt.format, format, "path %s", tt.path)
		assert.Equal(t, tt.compressed, compressed, "path %s", tt.path)
	}
}

func TestCandidateRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"c.json", "c.jsonl", "c.json.lz4", "c.jsonl.lz4"} {
		path := filepath.Join(t.TempDir(), name)
		want := sampleCandidates()

		require.NoError(t, report.WriteCandidates(path, want))

		got, skipped, err := report.ReadCandidates(path, nil)
		require.NoError(t, err, "file %s", name)
		assert.Zero(t, skipped)
		assert.Equal(t, want, got, "file %s", name)
	}
}

func TestCandidateCSVRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.csv")
	require.NoError(t, report.WriteCandidates(path, sampleCandidates()))

	got, skipped, err := report.ReadCandidates(path, nil)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, got, 2)

	// CSV drops the structured mapping; names and scores survive.
	assert.Equal(t, "my_open", got[0].Wrapper)
	assert.Equal(t, "open", got[0].Target)
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)
	assert.Equal(t, 20, got[1].Line)
}

func TestReadCandidatesSkipsMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "c.jsonl")
	content := `{"wrapper":"w1","file":"a.c","target":"open","mapping":{},"confidence":0.9}
{"wrapper":"","file":"a.c","target":"open","mapping":{},"confidence":0.9}
{"wrapper":"w2","file":"a.c","target":"close","mapping":{},"confidence":2.0}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	var logBuf bytes.Buffer

	log := slog.New(slog.NewTextHandler(&logBuf, nil))

	got, skipped, err := report.ReadCandidates(path, log)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, got, 1)
	assert.Equal(t, "w1", got[0].Wrapper)
	assert.Contains(t, logBuf.String(), "malformed candidate")
}

func sampleMatches() []matcher.Match {
	return []matcher.Match{
		{
			Wrapper: "my_open", File: "/src/a.c", Target: "open",
			Entry: "open", Category: "file-io",
			Confidence: 1.0, Similarity: 1.0, Score: 1.0,
			Mapping: detector.Mapping{FullProxy: true, Passed: 2},
			Matched: true,
		},
		{
			Wrapper: "do_stuff", File: "/src/b.c", Target: "frobnicate",
			Confidence: 0.9, Similarity: 0.2,
			Matched: false,
		},
	}
}

func TestWriteMatchesCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.WriteMatchesCSV(&buf, sampleMatches()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "wrapper")
	assert.Contains(t, lines[1], "my_open")
	assert.Contains(t, lines[1], "full-proxy")
	assert.Contains(t, lines[2], "false")
}

func TestWriteMatchesJSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.WriteMatchesJSONL(&buf, sampleMatches()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"wrapper":"my_open"`)
}

func TestReadMatchesSniffsFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "matches.json")
	jsonlPath := filepath.Join(dir, "matches.jsonl")

	var buf bytes.Buffer
	require.NoError(t, report.WriteMatchesJSON(&buf, sampleMatches()))
	require.NoError(t, os.WriteFile(jsonPath, buf.Bytes(), 0o600))

	buf.Reset()
	require.NoError(t, report.WriteMatchesJSONL(&buf, sampleMatches()))
	require.NoError(t, os.WriteFile(jsonlPath, buf.Bytes(), 0o600))

	for _, path := range []string{jsonPath, jsonlPath} {
		rows, err := report.ReadMatches(path)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "my_open", rows[0].Wrapper)
		assert.Equal(t, sampleMatches()[0].Score, rows[0].Score)
	}
}

func TestReadMatchesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := report.ReadMatches(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestRenderMatchesTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.RenderMatches(&buf, sampleMatches(), false)

	out := buf.String()
	assert.Contains(t, out, "my_open")
	assert.Contains(t, out, "file-io")
	assert.Contains(t, out, "unmatched")
}

func TestRenderMatchesEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.RenderMatches(&buf, nil, false)
	assert.Contains(t, buf.String(), "No wrapper matches")
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	result := &runner.Result{
		Units:    1500,
		Duration: 2 * time.Second,
		Failures: []runner.UnitFailure{{Source: "bad.c", Err: "boom"}},
	}

	report.RenderSummary(&buf, result, 12, 3)

	out := buf.String()
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "1 failed to parse")
	assert.Contains(t, out, "12 candidates matched")
	assert.NotContains(t, out, "skipped")
}

func TestRenderSummaryCancelledRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	result := &runner.Result{
		Units:    100,
		Skipped:  40,
		Duration: time.Second,
	}

	report.RenderSummary(&buf, result, 5, 0)

	assert.Contains(t, buf.String(), "40 skipped after cancellation")
}

func TestWritePlot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.html")
	require.NoError(t, report.WritePlot(path, sampleMatches()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Composite Score Distribution")
}
