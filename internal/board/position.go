package board

import "math"

const (
	// MaxAbsScore bounds a score on both sides of zero.
	MaxAbsScore int64 = 1_000_000_000

	// MinSeparation is the minimum distance, in position units, between two settled entities.
	MinSeparation = 8.0

	// Capacity is the maximum number of entities on one board.
	Capacity = 5

	minPosition = 0.0
	maxPosition = 100.0
)

// ScoreToPosition maps a score onto the [0,100] display scale.
func ScoreToPosition(score int64) float64 {
	pos := float64(clampScore(score)+MaxAbsScore) / float64(2*MaxAbsScore) * 100
	return clampPosition(pos)
}

// PositionToScore is the inverse of ScoreToPosition, rounded to the nearest
// integer. Out-of-range positions are clamped first, NaN maps to the middle.
func PositionToScore(position float64) int64 {
	score := math.Round(clampPosition(position)/100*float64(2*MaxAbsScore) - float64(MaxAbsScore))
	return clampScore(int64(score))
}

// ResolveOverlap pushes candidate away from every position in others that is
// closer than minSeparation. Others are visited once, in order, so the result
// is greedy: with three or more entities crowded into a narrow band it can
// still end up closer than minSeparation to an earlier neighbour.
func ResolveOverlap(candidate float64, others []float64, minSeparation float64) float64 {
	adjusted := clampPosition(candidate)
	for _, other := range others {
		if math.Abs(adjusted-other) >= minSeparation {
			continue
		}
		if adjusted > other {
			adjusted = math.Min(maxPosition, other+minSeparation)
		} else {
			adjusted = math.Max(minPosition, other-minSeparation)
		}
	}
	return adjusted
}

func clampPosition(p float64) float64 {
	if math.IsNaN(p) {
		return 50
	}
	return math.Max(minPosition, math.Min(maxPosition, p))
}

func clampScore(s int64) int64 {
	if s > MaxAbsScore {
		return MaxAbsScore
	}
	if s < -MaxAbsScore {
		return -MaxAbsScore
	}
	return s
}

// addScore adds delta to score without overflowing and clamps the result.
func addScore(score, delta int64) int64 {
	return clampScore(clampScore(score) + clampDelta(delta))
}

// clampDelta limits a delta to twice the score range, enough to cross the whole scale.
func clampDelta(d int64) int64 {
	if d > 2*MaxAbsScore {
		return 2 * MaxAbsScore
	}
	if d < -2*MaxAbsScore {
		return -2 * MaxAbsScore
	}
	return d
}
