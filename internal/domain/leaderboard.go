package domain

import (
	"fmt"
	"time"
)

// Cadence is a calendar bucket size for leaderboard resets. A series with a
// reset cadence starts a fresh competitive period whenever consecutive
// posts fall in different buckets.
type Cadence string

// Supported reset cadences.
const (
	// CadenceNone disables resets; the leaderboard accumulates for the
	// lifetime of the series.
	CadenceNone Cadence = ""
	// CadenceDay resets on calendar-day boundaries (UTC).
	CadenceDay Cadence = "day"
	// CadenceWeek resets on ISO-week boundaries.
	CadenceWeek Cadence = "week"
	// CadenceMonth resets on calendar-month boundaries.
	CadenceMonth Cadence = "month"
)

// RoundScore is one participant's extracted score for a single round,
// in the order the qualifying replies appeared under the post. Carrying the
// order through the merge keeps ranking ties deterministic.
type RoundScore struct {
	Participant string
	Score       int
}

// Leaderboard holds the cross-post score records for one series. It is
// rebuilt from round one on every pass and never persisted, so it can never
// go stale relative to the platform's comment history.
type Leaderboard struct {
	agg     Aggregator
	records map[string]*Record
	// order remembers first-seen participant order so that ranking ties
	// resolve the same way on every rebuild.
	order []string
}

// NewLeaderboard creates an empty leaderboard whose records reduce through
// the given aggregator.
func NewLeaderboard(agg Aggregator) *Leaderboard {
	return &Leaderboard{
		agg:     agg,
		records: make(map[string]*Record),
	}
}

// MergeRound folds one round's extracted scores into the leaderboard,
// creating records for first-time participants. Re-merging the same round
// overwrites rather than accumulates.
func (l *Leaderboard) MergeRound(round int, scores []RoundScore) {
	for _, rs := range scores {
		record, ok := l.records[rs.Participant]
		if !ok {
			record = NewRecord(rs.Participant, l.agg)
			l.records[rs.Participant] = record
			l.order = append(l.order, rs.Participant)
		}
		record.Add(round, rs.Score)
	}
}

// Reset discards every record, starting a fresh competitive period.
func (l *Leaderboard) Reset() {
	l.records = make(map[string]*Record)
	l.order = nil
}

// MaybeReset clears the leaderboard when the previous and current post
// timestamps fall in different calendar buckets for the given cadence.
// It reports whether a reset happened. Out-of-order timestamps return
// ErrResetOrder: posts are merged oldest to newest, so a backwards step
// means the caller's input is corrupt.
func (l *Leaderboard) MaybeReset(prev, curr time.Time, cadence Cadence) (bool, error) {
	if cadence == CadenceNone {
		return false, nil
	}
	if curr.Before(prev) {
		return false, fmt.Errorf("%w: prev=%s curr=%s", ErrResetOrder,
			prev.UTC().Format(time.RFC3339), curr.UTC().Format(time.RFC3339))
	}
	same, err := sameBucket(prev.UTC(), curr.UTC(), cadence)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}
	l.Reset()
	return true, nil
}

// Record returns the record for a participant, if present.
func (l *Leaderboard) Record(participant string) (*Record, bool) {
	record, ok := l.records[participant]
	return record, ok
}

// Len returns the number of tracked participants.
func (l *Leaderboard) Len() int { return len(l.records) }

func sameBucket(a, b time.Time, cadence Cadence) (bool, error) {
	switch cadence {
	case CadenceDay:
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd, nil
	case CadenceWeek:
		ay, aw := a.ISOWeek()
		by, bw := b.ISOWeek()
		return ay == by && aw == bw, nil
	case CadenceMonth:
		ay, am, _ := a.Date()
		by, bm, _ := b.Date()
		return ay == by && am == bm, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownCadence, cadence)
	}
}
