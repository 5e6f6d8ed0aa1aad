// Package render turns ranked standings into the strings the bot
// publishes: the markdown leaderboard table, the CSV block sent by direct
// message, and the full comment body. Rendering is pure formatting; any
// change here rewrites live leaderboard comments, so output must stay
// bit-exact across runs.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/liquidfun/stackr/internal/domain"
)

// Marker identifies the bot's own leaderboard comment under a post.
const Marker = "Stacked Scores"

// csvIndent makes the CSV block render as a code block in messages.
const csvIndent = "    "

// Ordinal formats a rank with its English ordinal suffix: 1st, 2nd, 3rd,
// 4th, with the 11th-13th exception.
func Ordinal(n int) string {
	for _, e := range []struct {
		digit  int
		suffix string
	}{{1, "st"}, {2, "nd"}, {3, "rd"}} {
		if n%10 == e.digit && n%100 != 10+e.digit {
			return strconv.Itoa(n) + e.suffix
		}
	}
	return strconv.Itoa(n) + "th"
}

// Table renders the markdown leaderboard table. Participants in hide are
// skipped without renumbering, and at most limit rows are emitted (zero
// means no limit). Tied participants display the shared rank ordinal of
// the first entry in their tie block.
func Table(standings []domain.Standing, limit int, hide map[string]struct{}) string {
	var b strings.Builder
	b.WriteString("| # | Username | Times Played | Average | **Sum** |\n")
	b.WriteString("|:-|:-|-:|-:|-:|\n")

	rows := 0
	for _, s := range standings {
		if limit > 0 && rows >= limit {
			break
		}
		if _, hidden := hide[s.Participant]; hidden {
			continue
		}
		avg, err := s.Record.Average()
		if err != nil {
			// Ranked records always have at least one round.
			continue
		}
		fmt.Fprintf(&b, "| %s | /u/%s | %d | %d | %d |\n",
			Ordinal(s.Rank), s.Participant, s.Record.ParticipationCount(), avg, s.Score)
		rows++
	}
	return b.String()
}

// CSV renders the indented comma-separated block sent to the series
// author, omitting participants in exclude.
func CSV(standings []domain.Standing, exclude map[string]struct{}) string {
	var b strings.Builder
	b.WriteString(csvIndent + "Username, Times Played, Average, Sum\n")
	for _, s := range standings {
		if _, skip := exclude[s.Participant]; skip {
			continue
		}
		avg, err := s.Record.Average()
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s%s, %d, %d, %d\n",
			csvIndent, s.Participant, s.Record.ParticipationCount(), avg, s.Score)
	}
	return b.String()
}

// BodyOptions controls comment body assembly.
type BodyOptions struct {
	// ChartURL links the score-history image; empty omits the line.
	ChartURL string
	// PlotCount is the number of participants the linked chart shows.
	PlotCount int
	// Limit caps the table rows.
	Limit int
	// Hide omits participants from the table.
	Hide map[string]struct{}
	// UpdatedAt timestamps the body; rendered in UTC.
	UpdatedAt time.Time
	// Maintainer and SourceURL fill the info footer.
	Maintainer string
	SourceURL  string
}

// Body assembles the full leaderboard comment.
func Body(standings []domain.Standing, opts BodyOptions) string {
	var b strings.Builder
	if opts.ChartURL != "" {
		fmt.Fprintf(&b, "[Score history of top %d participants](%s)\n\n", opts.PlotCount, opts.ChartURL)
	}
	b.WriteString(Marker + " (including current post):\n\n")
	b.WriteString(Table(standings, opts.Limit, opts.Hide))
	fmt.Fprintf(&b, "\nUpdated: %s UTC\n", opts.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString(infoLine(opts.Maintainer, opts.SourceURL))
	return b.String()
}

func infoLine(maintainer, sourceURL string) string {
	var b strings.Builder
	b.WriteString("\n---\n\n^(I'm a [bot][1]!")
	if maintainer != "" {
		fmt.Fprintf(&b, " | Maintainer: [%s][2]", maintainer)
	}
	if sourceURL != "" {
		b.WriteString(" | [Source code][3]")
	}
	b.WriteString(")\n\n[1]: https://xkcd.com/1646/\n")
	if maintainer != "" {
		fmt.Fprintf(&b, "[2]: https://www.reddit.com/message/compose/?to=%s\n", maintainer)
	}
	if sourceURL != "" {
		fmt.Fprintf(&b, "[3]: %s\n", sourceURL)
	}
	return b.String()
}

// trailingScore matches the sum cell at the end of a rendered table row.
var trailingScore = regexp.MustCompile(`(?m)(\d+) \|$`)

// chartLink matches a previously embedded score-history image URL.
var chartLink = regexp.MustCompile(`https://i\.imgur\.com/\S+\.png`)

// NeedsChartUpdate reports whether the chart behind an existing comment is
// stale: it compares the first topN trailing sum cells of the old body
// with the new reduced scores, pairwise up to the shorter side.
func NeedsChartUpdate(oldBody string, standings []domain.Standing, topN int) bool {
	matches := trailingScore.FindAllStringSubmatch(oldBody, -1)
	if len(matches) > topN {
		matches = matches[:topN]
	}
	n := len(matches)
	if len(standings) < n {
		n = len(standings)
	}
	for i := 0; i < n; i++ {
		old, err := strconv.Atoi(matches[i][1])
		if err != nil {
			return true
		}
		if old != standings[i].Score {
			return true
		}
	}
	return false
}

// ExistingChartURL extracts the embedded chart URL from an existing
// comment body, if any.
func ExistingChartURL(body string) string {
	return chartLink.FindString(body)
}
