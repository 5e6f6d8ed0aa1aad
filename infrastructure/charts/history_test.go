package charts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfun/stackr/internal/domain"
)

type sumAgg struct{}

func (sumAgg) Reduce(values []int) int {
	var total int
	for _, v := range values {
		total += v
	}
	return total
}

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func TestRenderHistory(t *testing.T) {
	board := domain.NewLeaderboard(sumAgg{})
	board.MergeRound(1, []domain.RoundScore{
		{Participant: "alice", Score: 100},
		{Participant: "bob", Score: 200},
	})
	board.MergeRound(2, []domain.RoundScore{{Participant: "alice", Score: 150}})
	board.MergeRound(3, []domain.RoundScore{{Participant: "bob", Score: 50}})

	png, err := NewRenderer().RenderHistory(board.Rank(), 3)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngHeader), "output should be a PNG")
}

func TestRenderHistory_SkipsSinglePointRecords(t *testing.T) {
	board := domain.NewLeaderboard(sumAgg{})
	board.MergeRound(1, []domain.RoundScore{
		{Participant: "alice", Score: 100},
		{Participant: "quitter", Score: 900},
	})
	board.MergeRound(2, []domain.RoundScore{{Participant: "alice", Score: 150}})

	// The quitter only played round one, so their history is a single point
	// and cannot draw a line; alice's can, so rendering still succeeds.
	quitter, ok := board.Record("quitter")
	require.True(t, ok)
	require.Len(t, quitter.CumulativeSeries(), 1)

	png, err := NewRenderer().RenderHistory(board.Rank(), 2)

	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestRenderHistory_NoDrawableSeries(t *testing.T) {
	board := domain.NewLeaderboard(sumAgg{})
	board.MergeRound(1, []domain.RoundScore{{Participant: "alice", Score: 100}})

	_, err := NewRenderer().RenderHistory(board.Rank(), 1)

	assert.Error(t, err)
}

func TestRenderHistory_Empty(t *testing.T) {
	_, err := NewRenderer().RenderHistory(nil, 0)
	assert.Error(t, err)
}
