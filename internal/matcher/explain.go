package matcher

import (
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/wraphound/internal/catalog"
)

// Alternative is one near-miss catalog entry for a target name, with a
// character-level diff showing how the names differ.
type Alternative struct {
	Name       string                `json:"name"`
	Category   string                `json:"category"`
	Similarity float64               `json:"similarity"`
	Diffs      []diffmatchpatch.Diff `json:"-"`
}

// Alternatives returns the top k catalog entries by similarity to target,
// catalog order breaking ties. Used by the explain flag to show why a
// candidate matched (or almost matched) a given primitive.
func Alternatives(scorer *Scorer, target string, cat *catalog.Catalog, k int) []Alternative {
	if cat == nil || k <= 0 {
		return nil
	}

	dmp := diffmatchpatch.New()

	alts := make([]Alternative, 0, cat.Len())

	for _, entry := range cat.Entries {
		alts = append(alts, Alternative{
			Name:       entry.Name,
			Category:   entry.Category,
			Similarity: scorer.Similarity(target, entry.Name),
		})
	}

	sort.SliceStable(alts, func(i, j int) bool {
		return alts[i].Similarity > alts[j].Similarity
	})

	if len(alts) > k {
		alts = alts[:k]
	}

	for i := range alts {
		diffs := dmp.DiffMain(target, alts[i].Name, false)
		alts[i].Diffs = dmp.DiffCleanupSemantic(diffs)
	}

	return alts
}

// RenderDiff formats a diff as text with insertions and deletions marked.
func RenderDiff(diffs []diffmatchpatch.Diff) string {
	dmp := diffmatchpatch.New()

	return dmp.DiffPrettyText(diffs)
}
