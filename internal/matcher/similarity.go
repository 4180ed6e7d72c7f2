package matcher

import (
	"github.com/Sumatoshi-tech/wraphound/pkg/levenshtein"
)

// minSubstring is the shortest shared substring that counts as evidence two
// names are related. Anything shorter matches by accident ("re" is in half
// of libc).
const minSubstring = 3

// Scorer computes name similarity in [0,1]. It carries a levenshtein
// scratch buffer, so a Scorer must not be shared between goroutines.
type Scorer struct {
	affixes Affixes
	lctx    levenshtein.Context
}

// NewScorer returns a Scorer that normalizes with the given affixes.
func NewScorer(affixes Affixes) *Scorer {
	return &Scorer{affixes: affixes}
}

// Similarity scores two names. Identical names after normalization score
// exactly 1.0. Otherwise the score is the better of a normalized edit
// distance and a longest-common-substring ratio, so both single-character
// typos and affix-decorated forms of the same root rank high. The metric
// is symmetric and deterministic.
func (s *Scorer) Similarity(a, b string) float64 {
	na := Normalize(a, s.affixes)
	nb := Normalize(b, s.affixes)

	if na == nb {
		return 1.0
	}

	if na == "" || nb == "" {
		return 0.0
	}

	edit := s.editRatio(na, nb)
	sub := substringRatio(na, nb)

	return max(edit, sub)
}

func (s *Scorer) editRatio(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	dist := s.lctx.Distance(a, b)

	return 1.0 - float64(dist)/float64(longest)
}

// substringRatio is 2*L/(|a|+|b|) where L is the length of the longest
// common substring, zero when L is below minSubstring.
func substringRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)

	longest := 0

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > longest {
					longest = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}

		prev, cur = cur, prev
	}

	if longest < minSubstring {
		return 0.0
	}

	return 2.0 * float64(longest) / float64(len(ra)+len(rb))
}
