// Package scorefunc compiles score-function expressions such as
// "max4 -> sum" or "pad20with0 then average" into executable pipelines of
// numeric-list transforms. A compiled pipeline reduces a participant's
// ordered round scores to the single value their leaderboard rank is built
// on, so compilation must be deterministic and pipelines immutable.
package scorefunc

import "sort"

// StageKind identifies a pipeline stage. The set is closed: stages are
// dispatched through an exhaustive switch, never by name lookup.
type StageKind int

// The recognized stage kinds.
const (
	// StageMax keeps the N largest values, ascending.
	StageMax StageKind = iota
	// StageMin keeps the N smallest values, ascending.
	StageMin
	// StagePad left-pads the sequence with value V until it has length N.
	StagePad
	// StageSum replaces the sequence with its arithmetic sum.
	StageSum
	// StageAverage replaces the sequence with the floored mean.
	StageAverage
	// StageNewest keeps the N most recent values in round order.
	StageNewest
	// StageOldest keeps the N earliest values in round order.
	StageOldest
)

// String returns the stage kind's expression-syntax name.
func (k StageKind) String() string {
	switch k {
	case StageMax:
		return "max"
	case StageMin:
		return "min"
	case StagePad:
		return "pad"
	case StageSum:
		return "sum"
	case StageAverage:
		return "average"
	case StageNewest:
		return "newest"
	case StageOldest:
		return "oldest"
	default:
		return "unknown"
	}
}

// Stage is one transform of a compiled pipeline: a kind plus its integer
// parameters. N is the count for max/min/newest/oldest and the target
// length for pad; V is the pad fill value and unused otherwise.
type Stage struct {
	Kind StageKind
	N    int
	V    int
}

// apply runs a single stage over the values, which are ordered by round
// ascending on entry to the pipeline. The input slice is never mutated.
func (s Stage) apply(values []int) []int {
	switch s.Kind {
	case StageMax:
		return keepSorted(values, s.N, true)
	case StageMin:
		return keepSorted(values, s.N, false)
	case StagePad:
		if len(values) >= s.N {
			return values
		}
		padded := make([]int, s.N)
		for i := 0; i < s.N-len(values); i++ {
			padded[i] = s.V
		}
		copy(padded[s.N-len(values):], values)
		return padded
	case StageSum:
		return []int{sum(values)}
	case StageAverage:
		if len(values) == 0 {
			return values
		}
		return []int{floorDiv(sum(values), len(values))}
	case StageNewest:
		if len(values) <= s.N {
			return values
		}
		return values[len(values)-s.N:]
	case StageOldest:
		if len(values) <= s.N {
			return values
		}
		return values[:s.N]
	default:
		// The parser only emits the kinds above.
		return values
	}
}

// keepSorted returns the n largest (largest=true) or smallest values,
// sorted ascending so tie order is stable regardless of input order.
func keepSorted(values []int, n int, largest bool) []int {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	if n >= len(sorted) {
		return sorted
	}
	if largest {
		return sorted[len(sorted)-n:]
	}
	return sorted[:n]
}

func sum(values []int) int {
	var total int
	for _, v := range values {
		total += v
	}
	return total
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
