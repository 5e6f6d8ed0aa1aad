// Package extract pulls numeric scores out of free-form reply text. A
// reply contributes at most one value per round; a zero score is a real
// value and is reported distinctly from "nothing extracted".
package extract

import (
	"regexp"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/rangetable"

	"github.com/liquidfun/stackr/internal/config"
	"github.com/liquidfun/stackr/internal/domain"
	"github.com/liquidfun/stackr/internal/ports"
)

// zeroWidth removes the invisible characters that platforms and mobile
// keyboards smuggle into comment text, which would otherwise split a score
// in the middle of its digits.
var zeroWidth = runes.Remove(runes.In(rangetable.New(
	'\u200b', // zero width space
	'\u200c', // zero width non-joiner
	'\u200d', // zero width joiner
	'\u2060', // word joiner
	'\ufeff', // zero width no-break space / BOM
)))

// Extractor extracts a round score from reply text per one series' rules:
// pattern, optional bounds, and goal selection.
type Extractor struct {
	pattern  *regexp.Regexp
	min, max *int
	lowest   bool
}

// New builds an extractor from a series config. It fails only when the
// configured pattern does not compile, which Config.Validate already
// rules out for loaded configurations.
func New(series *config.Series) (*Extractor, error) {
	re, err := series.CompiledRegex()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		pattern: re,
		min:     series.Min,
		max:     series.Max,
		lowest:  series.Goal == config.GoalLowest,
	}, nil
}

// Extract returns the text's score contribution. The second return value
// is false when no candidate survives pattern matching and bounds
// filtering; callers must never conflate that with an extracted zero.
func (e *Extractor) Extract(text string) (int, bool) {
	text, _, _ = transform.String(zeroWidth, text)

	var best int
	var found bool
	for _, match := range e.pattern.FindAllString(text, -1) {
		value, ok := digitsToInt(match)
		if !ok {
			continue
		}
		if e.min != nil && value < *e.min {
			continue
		}
		if e.max != nil && value > *e.max {
			continue
		}
		if !found {
			best, found = value, true
			continue
		}
		best = e.Combine(best, value)
	}
	return best, found
}

// Combine merges two extracted values with the series goal: the higher
// for "highest", the lower for "lowest". It is used both across a reply's
// candidates and across multiple replies by the same author.
func (e *Extractor) Combine(a, b int) int {
	if e.lowest {
		if b < a {
			return b
		}
		return a
	}
	if b > a {
		return b
	}
	return a
}

// digitsToInt strips non-digit characters from a match (separators such as
// "1,000") and converts the remainder. It reports false when no digits
// remain or the value overflows int.
func digitsToInt(s string) (int, bool) {
	var value int
	var any bool
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		d := int(r - '0')
		if value > (int(^uint(0)>>1)-d)/10 {
			return 0, false
		}
		value = value*10 + d
		any = true
	}
	return value, any
}

// RoundScores walks one post's comments in order and returns each eligible
// participant's score for the round, in first-appearance order. Ignored
// and anonymous authors never enter the result. When one author has
// several qualifying replies, their extractions are combined with the
// series goal rather than overwritten by comment order.
func RoundScores(e *Extractor, comments []ports.Comment, ignore map[string]struct{}) []domain.RoundScore {
	index := make(map[string]int)
	var scores []domain.RoundScore
	for _, comment := range comments {
		if comment.Author == "" {
			continue
		}
		if _, skip := ignore[comment.Author]; skip {
			continue
		}
		value, ok := e.Extract(comment.Body)
		if !ok {
			continue
		}
		if i, seen := index[comment.Author]; seen {
			scores[i].Score = e.Combine(scores[i].Score, value)
			continue
		}
		index[comment.Author] = len(scores)
		scores = append(scores, domain.RoundScore{Participant: comment.Author, Score: value})
	}
	return scores
}
