// Package matcher ranks wrapper candidates against a primitive catalog.
//
// Matching is a pure function over its inputs: the catalog is injected
// read-only state, candidate merging happens before any scoring, and the
// output order is fully determined by the composite score and the wrapper
// and target names. Two runs over the same inputs produce byte-identical
// rankings.
package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
	"github.com/Sumatoshi-tech/wraphound/internal/detector"
)

// Composite score weights. Name similarity dominates because the catalog
// is the ground truth for what counts as a primitive; structure only says
// how clean the forwarding is.
const (
	weightStructural = 0.4
	weightSimilarity = 0.6
)

// ErrInvalidThreshold reports a similarity threshold outside [0,1].
var ErrInvalidThreshold = errors.New("matcher: threshold outside [0,1]")

// Options controls ranking behavior.
type Options struct {
	// Threshold is the minimum best-entry similarity for a candidate to
	// appear in the ranked output. Must lie in [0,1].
	Threshold float64

	// ShowUnmatched keeps below-threshold candidates in the output with
	// Matched set to false instead of dropping them.
	ShowUnmatched bool

	// Affixes override the default name decorations stripped before
	// scoring. Zero value means DefaultAffixes.
	Affixes *Affixes
}

// Match is one ranked output row.
type Match struct {
	Wrapper    string           `json:"wrapper"`
	File       string           `json:"file"`
	Target     string           `json:"target"`
	Entry      string           `json:"entry,omitempty"`
	Category   string           `json:"category,omitempty"`
	Confidence float64          `json:"confidence"`
	Similarity float64          `json:"similarity"`
	Score      float64          `json:"score"`
	Mapping    detector.Mapping `json:"mapping"`
	Matched    bool             `json:"matched"`
}

// Rank merges the candidates, scores each merged candidate against every
// catalog entry, and returns the rows sorted by composite score descending
// with ties broken by wrapper then target name ascending. An empty catalog
// or an out-of-range threshold aborts before any row is produced.
func Rank(cands []detector.Candidate, cat *catalog.Catalog, opts Options) ([]Match, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, opts.Threshold)
	}

	if cat == nil || cat.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}

	affixes := DefaultAffixes()
	if opts.Affixes != nil {
		affixes = *opts.Affixes
	}

	scorer := NewScorer(affixes)
	merged := merge(cands)

	rows := make([]Match, 0, len(merged))

	for _, cand := range merged {
		if _, alias := cat.ThinAliases[cand.Wrapper]; alias {
			continue
		}

		entry, sim := bestEntry(scorer, cand.Target, cat)

		row := Match{
			Wrapper:    cand.Wrapper,
			File:       cand.File,
			Target:     cand.Target,
			Confidence: cand.Confidence,
			Similarity: sim,
			Mapping:    cand.Mapping,
		}

		if sim >= opts.Threshold {
			row.Matched = true
			row.Entry = entry.Name
			row.Category = entry.Category
			row.Score = weightStructural*cand.Confidence + weightSimilarity*sim
		} else if !opts.ShowUnmatched {
			continue
		}

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}

		if rows[i].Wrapper != rows[j].Wrapper {
			return rows[i].Wrapper < rows[j].Wrapper
		}

		return rows[i].Target < rows[j].Target
	})

	return rows, nil
}

// bestEntry scans the catalog in source order and returns the entry with
// the maximum similarity to target. Source order breaks ties, so the first
// entry at the maximum wins.
func bestEntry(scorer *Scorer, target string, cat *catalog.Catalog) (catalog.Entry, float64) {
	var (
		best    catalog.Entry
		bestSim = -1.0
	)

	for _, entry := range cat.Entries {
		sim := scorer.Similarity(target, entry.Name)
		if sim > bestSim {
			best = entry
			bestSim = sim
		}
	}

	return best, bestSim
}

// merge collapses repeated observations of the same (wrapper, target) pair
// into one candidate carrying the maximum structural confidence seen. The
// file recorded is the one from the winning observation.
func merge(cands []detector.Candidate) []detector.Candidate {
	byKey := make(map[string]detector.Candidate, len(cands))

	for _, cand := range cands {
		key := cand.Wrapper + "\x00" + cand.Target

		prev, seen := byKey[key]
		if !seen || cand.Confidence > prev.Confidence {
			byKey[key] = cand
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]detector.Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}

	return out
}

// Validate reports whether a candidate read from an external interchange
// file carries the fields matching requires. Used by matching-only mode to
// skip malformed records instead of failing the run.
func Validate(cand detector.Candidate) error {
	var missing []string

	if cand.Wrapper == "" {
		missing = append(missing, "wrapper")
	}

	if cand.Target == "" {
		missing = append(missing, "target")
	}

	if cand.Confidence < 0 || cand.Confidence > 1 {
		missing = append(missing, "confidence")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMalformedCandidate, strings.Join(missing, ", "))
	}

	return nil
}

// ErrMalformedCandidate reports an interchange record missing required
// fields or carrying an out-of-range confidence.
var ErrMalformedCandidate = errors.New("matcher: malformed candidate")
