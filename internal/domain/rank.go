package domain

import "sort"

// Standing is one ranked leaderboard entry. Score is the record's reduced
// aggregate at ranking time; Rank is the displayed position with ties
// collapsed, so two participants tied behind one leader both hold rank 2
// and the next distinct score continues at its actual position index.
type Standing struct {
	Participant string
	Record      *Record
	Score       int
	Rank        int
}

// Rank returns the leaderboard's standings sorted descending by reduced
// score. The sort is stable over first-seen participant order and no
// secondary numeric tiebreak is applied, so equal scores keep their
// insertion order and share a rank number.
func (l *Leaderboard) Rank() []Standing {
	standings := make([]Standing, 0, len(l.order))
	for _, participant := range l.order {
		record := l.records[participant]
		standings = append(standings, Standing{
			Participant: participant,
			Record:      record,
			Score:       record.Reduce(),
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})

	for i := range standings {
		if i > 0 && standings[i].Score == standings[i-1].Score {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
	return standings
}
