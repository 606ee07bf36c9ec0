package app

// Scorer turns a submission into a score contribution.
// A correct answer earns Base plus a speed bonus that decays linearly from MaxBonus at
// 0ms to 0 at the time limit. Wrong answers earn nothing.
type Scorer struct {
	Base     int
	MaxBonus int
}

// DefaultScorer awards 10 points plus up to 10 for speed.
func DefaultScorer() Scorer {
	return Scorer{Base: 10, MaxBonus: 10}
}

// Score returns the contribution for an answer given after elapsedMillis on a question
// with a limit of limitSeconds.
func (s Scorer) Score(correct bool, elapsedMillis int64, limitSeconds int) int {
	if !correct {
		return 0
	}
	limitMillis := int64(limitSeconds) * 1000
	if limitMillis <= 0 || s.MaxBonus <= 0 {
		return s.Base
	}
	elapsed := clampElapsed(elapsedMillis, limitSeconds)
	bonus := int64(s.MaxBonus) * (limitMillis - elapsed) / limitMillis
	return s.Base + int(bonus)
}

func clampElapsed(elapsedMillis int64, limitSeconds int) int64 {
	limitMillis := int64(limitSeconds) * 1000
	if elapsedMillis < 0 {
		return 0
	}
	if limitMillis > 0 && elapsedMillis > limitMillis {
		return limitMillis
	}
	return elapsedMillis
}
