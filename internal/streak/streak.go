// Package streak computes diet streak statistics over an in-memory sequence
// of meals.
//
// The SQLite store computes the same numbers with window functions (see
// repository/sqlite.(*DB).Summary). This package is the reference the store
// is checked against, and it backs in-memory repositories in tests.
package streak

// Longest returns the length of the longest run of consecutive true values.
// Runs are broken only by false values; an empty or all-false input yields 0.
// When several runs share the maximum length the result is the same either
// way, so ties need no rule.
func Longest(diet []bool) int {
	best, cur := 0, 0
	for _, on := range diet {
		if !on {
			cur = 0
			continue
		}
		cur++
		if cur > best {
			best = cur
		}
	}
	return best
}

// Runs returns the length of every maximal run of true values, in order.
func Runs(diet []bool) []int {
	var runs []int
	cur := 0
	for _, on := range diet {
		if on {
			cur++
			continue
		}
		if cur > 0 {
			runs = append(runs, cur)
			cur = 0
		}
	}
	if cur > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// Stats is the aggregate of a diet sequence.
type Stats struct {
	BestSequence int
	Total        int
	InDiet       int
	OutDiet      int
}

// Compute returns the full aggregate for diet, given in insertion order.
func Compute(diet []bool) Stats {
	s := Stats{Total: len(diet), BestSequence: Longest(diet)}
	for _, on := range diet {
		if on {
			s.InDiet++
		} else {
			s.OutDiet++
		}
	}
	return s
}
