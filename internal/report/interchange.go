// Package report serializes detection and matching results: candidate
// interchange files for staged runs, ranked-match tables and delimited
// output for consumption, and score-distribution plots.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/wraphound/internal/detector"
	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
)

// Interchange formats for candidate files.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

const lz4Ext = ".lz4"

// ErrUnknownFormat reports a candidate file whose extension maps to no
// supported format.
var ErrUnknownFormat = errors.New("report: unknown candidate file format")

var candidateHeader = []string{"wrapper", "file", "line", "target", "mapping", "confidence"}

// FormatOf derives the interchange format from a file name, looking
// through a trailing .lz4 extension.
func FormatOf(path string) (format string, compressed bool, err error) {
	if strings.EqualFold(filepath.Ext(path), lz4Ext) {
		compressed = true
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, compressed, nil
	case ".csv":
		return FormatCSV, compressed, nil
	}

	return "", false, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// WriteCandidates writes candidates to path in the format its extension
// names, compressing with LZ4 when the name ends in .lz4.
func WriteCandidates(path string, cands []detector.Candidate) (err error) {
	format, compressed, err := FormatOf(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("report: close %s: %w", path, cerr)
		}
	}()

	var w io.Writer = f

	if compressed {
		zw := lz4.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("report: close lz4 stream: %w", cerr)
			}
		}()

		w = zw
	}

	return encodeCandidates(w, format, cands)
}

func encodeCandidates(w io.Writer, format string, cands []detector.Candidate) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(cands); err != nil {
			return fmt.Errorf("report: encode candidates: %w", err)
		}
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, cand := range cands {
			if err := enc.Encode(cand); err != nil {
				return fmt.Errorf("report: encode candidate: %w", err)
			}
		}
	case FormatCSV:
		cw := csv.NewWriter(w)

		if err := cw.Write(candidateHeader); err != nil {
			return fmt.Errorf("report: write csv header: %w", err)
		}

		for _, cand := range cands {
			record := []string{
				cand.Wrapper,
				cand.File,
				strconv.Itoa(cand.Line),
				cand.Target,
				cand.Mapping.String(),
				strconv.FormatFloat(cand.Confidence, 'f', 4, 64),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("report: write csv record: %w", err)
			}
		}

		cw.Flush()

		if err := cw.Error(); err != nil {
			return fmt.Errorf("report: flush csv: %w", err)
		}
	}

	return nil
}

// ReadCandidates loads a candidate interchange file. Records missing
// required fields are skipped with a warning rather than failing the run;
// the returned count says how many were dropped.
func ReadCandidates(path string, log *slog.Logger) ([]detector.Candidate, int, error) {
	format, compressed, err := FormatOf(path)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("report: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		r = lz4.NewReader(f)
	}

	raw, err := decodeCandidates(r, format)
	if err != nil {
		return nil, 0, err
	}

	cands := make([]detector.Candidate, 0, len(raw))
	skipped := 0

	for i, cand := range raw {
		if verr := matcher.Validate(cand); verr != nil {
			skipped++

			if log != nil {
				log.Warn("skipping malformed candidate", "file", path, "record", i+1, "error", verr)
			}

			continue
		}

		cands = append(cands, cand)
	}

	return cands, skipped, nil
}

func decodeCandidates(r io.Reader, format string) ([]detector.Candidate, error) {
	switch format {
	case FormatJSON:
		var cands []detector.Candidate
		if err := json.NewDecoder(r).Decode(&cands); err != nil {
			return nil, fmt.Errorf("report: decode candidates: %w", err)
		}

		return cands, nil
	case FormatJSONL:
		var cands []detector.Candidate

		dec := json.NewDecoder(r)

		for {
			var cand detector.Candidate

			err := dec.Decode(&cand)
			if errors.Is(err, io.EOF) {
				return cands, nil
			}

			if err != nil {
				return nil, fmt.Errorf("report: decode candidate line: %w", err)
			}

			cands = append(cands, cand)
		}
	case FormatCSV:
		return decodeCandidatesCSV(r)
	}

	return nil, ErrUnknownFormat
}

func decodeCandidatesCSV(r io.Reader) ([]detector.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(candidateHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: read csv: %w", err)
	}

	var cands []detector.Candidate

	for i, record := range records {
		if i == 0 && record[0] == candidateHeader[0] {
			continue
		}

		line, _ := strconv.Atoi(record[2])

		confidence, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			confidence = -1 // fails validation downstream
		}

		cands = append(cands, detector.Candidate{
			Wrapper:    record[0],
			File:       record[1],
			Line:       line,
			Target:     record[3],
			Confidence: confidence,
		})
	}

	return cands, nil
}
