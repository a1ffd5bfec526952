package board

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreToPosition_Anchors(t *testing.T) {
	assert.Equal(t, 0.0, ScoreToPosition(-MaxAbsScore))
	assert.Equal(t, 50.0, ScoreToPosition(0))
	assert.Equal(t, 100.0, ScoreToPosition(MaxAbsScore))
	assert.Equal(t, 100.0, ScoreToPosition(5*MaxAbsScore), "out of range scores are clamped")
	assert.Equal(t, 0.0, ScoreToPosition(-5*MaxAbsScore))
}

func TestPositionToScore_Anchors(t *testing.T) {
	assert.Equal(t, -MaxAbsScore, PositionToScore(0))
	assert.Equal(t, int64(0), PositionToScore(50))
	assert.Equal(t, MaxAbsScore, PositionToScore(100))
	assert.Equal(t, MaxAbsScore, PositionToScore(140))
	assert.Equal(t, -MaxAbsScore, PositionToScore(-3))
}

func TestPositionScore_RoundTrip(t *testing.T) {
	scores := []int64{-MaxAbsScore, -999_999_999, -123_456_789, -1, 0, 1, 42, 1_000_000, 987_654_321, MaxAbsScore}
	for _, s := range scores {
		got := PositionToScore(ScoreToPosition(s))
		assert.LessOrEqual(t, absInt(got-s), int64(1), "round trip of %d gave %d", s, got)
	}
}

func TestScoreToPosition_Monotonic(t *testing.T) {
	prev := ScoreToPosition(-MaxAbsScore)
	for s := -MaxAbsScore; s <= MaxAbsScore; s += 37_000_001 {
		p := ScoreToPosition(s)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestPositionToScore_Monotonic(t *testing.T) {
	inputs := []float64{math.Inf(-1), -1e12, -5, 0, 12.5, 50, 99.9, 100, 250, 1e12, math.Inf(1)}
	prev := PositionToScore(inputs[0])
	for _, p := range inputs[1:] {
		got := PositionToScore(p)
		assert.GreaterOrEqual(t, got, prev, "PositionToScore(%v)", p)
		prev = got
	}

	assert.Equal(t, MaxAbsScore, PositionToScore(1e12))
	assert.Equal(t, MaxAbsScore, PositionToScore(math.Inf(1)))
	assert.Equal(t, -MaxAbsScore, PositionToScore(math.Inf(-1)))
	assert.Equal(t, int64(0), PositionToScore(math.NaN()))
	assert.Equal(t, PositionToScore(clampPosition(math.NaN())), PositionToScore(math.NaN()))
}

func TestScoreToPosition_OutOfRangeScores(t *testing.T) {
	assert.Equal(t, 100.0, ScoreToPosition(math.MaxInt64))
	assert.Equal(t, 0.0, ScoreToPosition(math.MinInt64))
	assert.Equal(t, 100.0, ScoreToPosition(MaxAbsScore+1))
}

func TestResolveOverlap_NoConflict(t *testing.T) {
	assert.Equal(t, 30.0, ResolveOverlap(30, []float64{10, 50}, MinSeparation))
	assert.Equal(t, 30.0, ResolveOverlap(30, nil, MinSeparation))
}

func TestResolveOverlap_PushesAway(t *testing.T) {
	assert.Equal(t, 58.0, ResolveOverlap(53, []float64{50}, MinSeparation), "right of the neighbour goes right")
	assert.Equal(t, 42.0, ResolveOverlap(47, []float64{50}, MinSeparation), "left of the neighbour goes left")
	assert.Equal(t, 42.0, ResolveOverlap(50, []float64{50}, MinSeparation), "a tie goes left")
}

func TestResolveOverlap_ExactSeparationIsLegal(t *testing.T) {
	assert.Equal(t, 58.0, ResolveOverlap(58, []float64{50}, MinSeparation))
	assert.Equal(t, 42.0, ResolveOverlap(42, []float64{50}, MinSeparation))
}

func TestResolveOverlap_ClampsAtEdges(t *testing.T) {
	assert.Equal(t, 100.0, ResolveOverlap(99, []float64{96}, MinSeparation))
	assert.Equal(t, 0.0, ResolveOverlap(1, []float64{4}, MinSeparation))
	assert.Equal(t, 100.0, ResolveOverlap(130, nil, MinSeparation))
}

// Greedy resolution visits neighbours once, so a crowded band can leave the
// candidate too close to one visited earlier.
func TestResolveOverlap_GreedyLimitation(t *testing.T) {
	others := []float64{50, 58}
	got := ResolveOverlap(51, others, MinSeparation)
	assert.Equal(t, 50.0, got)
	assert.Less(t, math.Abs(got-others[0]), MinSeparation)
}

func TestResolveOverlap_NaNCandidate(t *testing.T) {
	assert.Equal(t, 50.0, ResolveOverlap(math.NaN(), nil, MinSeparation))
}

func TestAddScore_Saturates(t *testing.T) {
	assert.Equal(t, MaxAbsScore, addScore(MaxAbsScore-5, 1_000_000))
	assert.Equal(t, -MaxAbsScore, addScore(0, math.MinInt64))
	assert.Equal(t, MaxAbsScore, addScore(0, math.MaxInt64))
	assert.Equal(t, int64(1_000_000), addScore(0, 1_000_000))
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
