// Package levenshtein calculates the Levenshtein edit distance between strings.
package levenshtein

// Context carries the scratch buffer for Distance so repeated calls on one
// goroutine allocate nothing. A Context must not be shared between goroutines.
type Context struct {
	row []int
}

func (ctx *Context) getRow(length int) []int {
	if cap(ctx.row) < length {
		ctx.row = make([]int, length)
	}

	return ctx.row[:length]
}

// Distance returns the minimum number of single-character insertions,
// deletions, and substitutions needed to transform s1 into s2.
//
// Uses the classic two-row dynamic program collapsed to a single row,
// O(min(m,n)) space.
func (ctx *Context) Distance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	// Keep the row sized by the shorter string.
	if len(r1) > len(r2) {
		r1, r2 = r2, r1
	}

	if len(r1) == 0 {
		return len(r2)
	}

	row := ctx.getRow(len(r1) + 1)
	for i := range row {
		row[i] = i
	}

	for j := 1; j <= len(r2); j++ {
		prev := row[0]
		row[0] = j

		for i := 1; i <= len(r1); i++ {
			cur := row[i]

			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}

			row[i] = min(row[i]+1, row[i-1]+1, prev+cost)
			prev = cur
		}
	}

	return row[len(r1)]
}
