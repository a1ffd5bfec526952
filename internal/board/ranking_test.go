package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_DescendingStable(t *testing.T) {
	in := []Entity{
		{ID: "a", Score: 5},
		{ID: "b", Score: -3},
		{ID: "c", Score: 100},
		{ID: "d", Score: 0},
	}
	rows := Rank(in)

	var scores []int64
	for _, r := range rows {
		scores = append(scores, r.Entity.Score)
	}
	assert.Equal(t, []int64{100, 5, 0, -3}, scores)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 4, rows[3].Rank)
	assert.Equal(t, "a", in[0].ID, "input is not reordered")
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	rows := Rank([]Entity{{ID: "x", Score: 1}, {ID: "y", Score: 7}, {ID: "z", Score: 1}})
	require.Len(t, rows, 3)
	assert.Equal(t, "y", rows[0].Entity.ID)
	assert.Equal(t, "x", rows[1].Entity.ID)
	assert.Equal(t, "z", rows[2].Entity.ID)
}

func TestRankingView_RecomputesOnMutation(t *testing.T) {
	s := NewEntityStore()
	v := NewRankingView(s)

	var calls int
	v.OnChange(func([]RankedEntity) { calls++ })

	require.NoError(t, s.Add(Entity{ID: "a", Name: "Ada"}))
	require.NoError(t, s.Add(Entity{ID: "b", Name: "Bob", Score: 10}))
	assert.Equal(t, "b", v.Rows()[0].Entity.ID)

	score := int64(99)
	require.NoError(t, s.Update("a", Patch{Score: &score}))
	assert.Equal(t, "a", v.Rows()[0].Entity.ID)

	require.NoError(t, s.Select("a"))
	assert.Equal(t, 3, calls, "selection does not re-rank")

	require.NoError(t, s.Remove("a"))
	require.Len(t, v.Rows(), 1)
	assert.Equal(t, 4, calls)
}

func TestFormatScore(t *testing.T) {
	cases := map[int64]string{
		0:              "+0",
		12:             "+12",
		-999:           "-999",
		3_400:          "+3.4K",
		-2_000_000:     "-2.0M",
		1_500_000_000:  "+1.5B",
		-1_000_000_000: "-1.0B",
		999_999:        "+1000.0K",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatScore(in), "FormatScore(%d)", in)
	}
}
