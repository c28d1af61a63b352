package game

import "math"

// ScoreDelta implements §4.4's scoring rule verbatim, including its
// degenerate integer-division quirk (§9): the inner `1/(t+33)` is integer
// division and is always 0 for t >= 0, so Δ collapses to 33 for every
// correct first guess. This is a known, deliberate property of the source
// system — preserve it exactly rather than "fixing" it; invariant 6 in §8
// pins Δ(0) == 33.
//
// secondsSinceRoundStart is floor(seconds elapsed since the round's
// GamePlayAudio broadcast) at the moment of the correct guess.
func ScoreDelta(secondsSinceRoundStart int) int {
	if secondsSinceRoundStart < 0 {
		secondsSinceRoundStart = 0
	}
	t := secondsSinceRoundStart * 10 // tenths of a second, per §4.4
	inner := 1 / (t + 33)            // integer division: always 0 for t >= 0
	logPart := int(math.Floor(math.Log10(float64(t + 100))))
	return 33 + inner*2500*logPart
}
