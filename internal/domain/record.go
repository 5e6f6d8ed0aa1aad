// Package domain contains pure, dependency-free domain models for the
// streak-series leaderboard: per-participant score records, the cross-post
// leaderboard, and tie-aware ranking.
package domain

import "sort"

// Aggregator reduces an ordered list of per-round scores to a single
// comparable value. The canonical implementation is a compiled score
// function pipeline; implementations must be pure functions of their input.
type Aggregator interface {
	// Reduce combines the given values, ordered by round ascending, into
	// one scalar. An empty input reduces to zero.
	Reduce(values []int) int
}

// CumulativePoint is one step of a participant's running score total,
// used to plot score history across rounds.
type CumulativePoint struct {
	// Round is the 1-based round index.
	Round int
	// Total is the cumulative raw sum through this round. Rounds without a
	// recorded score carry the previous total forward.
	Total int
}

// Record stores one participant's raw per-round scores and derives every
// aggregate (count, average, reduced total) on read. Aggregates are never
// cached, so the record can never disagree with its raw inputs.
type Record struct {
	// Participant is the identity the scores belong to.
	Participant string

	agg    Aggregator
	scores map[int]int
}

// NewRecord creates an empty record for the given participant.
// The aggregator is applied by Reduce and must not be nil.
func NewRecord(participant string, agg Aggregator) *Record {
	return &Record{
		Participant: participant,
		agg:         agg,
		scores:      make(map[int]int),
	}
}

// Add records the participant's score for a round, overwriting any value
// already present for that round. Overwriting keeps reprocessing of the
// same post idempotent.
func (r *Record) Add(round, score int) {
	r.scores[round] = score
}

// ParticipationCount returns the number of rounds with a recorded score.
func (r *Record) ParticipationCount() int { return len(r.scores) }

// Rounds returns the recorded round indices in ascending order.
func (r *Record) Rounds() []int {
	rounds := make([]int, 0, len(r.scores))
	for round := range r.scores {
		rounds = append(rounds, round)
	}
	sort.Ints(rounds)
	return rounds
}

// Values returns the raw scores ordered by round ascending.
func (r *Record) Values() []int {
	rounds := r.Rounds()
	values := make([]int, len(rounds))
	for i, round := range rounds {
		values[i] = r.scores[round]
	}
	return values
}

// Sum returns the plain sum of all raw scores.
func (r *Record) Sum() int {
	var total int
	for _, score := range r.scores {
		total += score
	}
	return total
}

// Reduce applies the record's aggregator to the round-ordered values and
// returns the scalar used for ranking.
func (r *Record) Reduce() int {
	return r.agg.Reduce(r.Values())
}

// Average returns the floored mean of the raw scores. It returns
// ErrEmptyRecord when no rounds are recorded; callers must not request an
// average from an empty record.
func (r *Record) Average() (int, error) {
	if len(r.scores) == 0 {
		return 0, ErrEmptyRecord
	}
	return floorDiv(r.Sum(), len(r.scores)), nil
}

// Last returns the score of the highest recorded round.
// The second return value is false when the record is empty.
func (r *Record) Last() (int, bool) {
	if len(r.scores) == 0 {
		return 0, false
	}
	var maxRound int
	for round := range r.scores {
		if round > maxRound {
			maxRound = round
		}
	}
	return r.scores[maxRound], true
}

// CumulativeSeries returns one point per round from 1 through the highest
// recorded round, carrying the running total forward through rounds with no
// score. An empty record yields no points.
func (r *Record) CumulativeSeries() []CumulativePoint {
	var maxRound int
	for round := range r.scores {
		if round > maxRound {
			maxRound = round
		}
	}
	points := make([]CumulativePoint, 0, maxRound)
	var total int
	for round := 1; round <= maxRound; round++ {
		if score, ok := r.scores[round]; ok {
			total += score
		}
		points = append(points, CumulativePoint{Round: round, Total: total})
	}
	return points
}

// floorDiv divides a by b rounding toward negative infinity, matching the
// floor-division semantics the score tables were built on.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
