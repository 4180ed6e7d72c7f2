package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Sumatoshi-tech/wraphound/internal/matcher"
)

var matchHeader = []string{
	"wrapper", "file", "target", "entry", "category",
	"score", "confidence", "similarity", "mapping", "matched",
}

// WriteMatchesJSON writes the ranked rows as one indented JSON array.
func WriteMatchesJSON(w io.Writer, rows []matcher.Match) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("report: encode matches: %w", err)
	}

	return nil
}

// WriteMatchesJSONL writes one JSON object per line, for streaming
// consumers.
func WriteMatchesJSONL(w io.Writer, rows []matcher.Match) error {
	enc := json.NewEncoder(w)

	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("report: encode match: %w", err)
		}
	}

	return nil
}

// ReadMatches loads ranked rows written by WriteMatchesJSON or
// WriteMatchesJSONL. The format is sniffed from the first non-space byte,
// so consumers do not need to remember which writer produced the file.
func ReadMatches(path string) ([]matcher.Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)

	first, err := firstNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}

	if first == '[' {
		var rows []matcher.Match
		if err := json.NewDecoder(br).Decode(&rows); err != nil {
			return nil, fmt.Errorf("report: decode matches %s: %w", path, err)
		}

		return rows, nil
	}

	var rows []matcher.Match

	dec := json.NewDecoder(br)

	for {
		var row matcher.Match

		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("report: decode matches %s: %w", path, err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}

		if bytes.ContainsAny(b, " \t\r\n") {
			if _, err := br.ReadByte(); err != nil {
				return 0, err
			}

			continue
		}

		return b[0], nil
	}
}

// WriteMatchesCSV writes the ranked rows as delimited text with a header.
func WriteMatchesCSV(w io.Writer, rows []matcher.Match) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(matchHeader); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Wrapper,
			row.File,
			row.Target,
			row.Entry,
			row.Category,
			strconv.FormatFloat(row.Score, 'f', 4, 64),
			strconv.FormatFloat(row.Confidence, 'f', 4, 64),
			strconv.FormatFloat(row.Similarity, 'f', 4, 64),
			row.Mapping.String(),
			strconv.FormatBool(row.Matched),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: write csv record: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}

	return nil
}
