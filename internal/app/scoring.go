package app

import "math"

// speedBonusMax is the number of points an instant correct answer earns on
// top of the base, decaying linearly to zero at the time limit.
const speedBonusMax = 300

// Score computes the points for a single answer. Incorrect answers score
// zero. Correct ones earn base points plus a speed bonus, scaled by a round
// multiplier that grows with the question index so sustained correctness
// late in a session is worth more.
func Score(correct bool, responseMs, timeLimitMs, questionIndex, basePoints int, multiplierStep float64) int {
	if !correct {
		return 0
	}
	multiplier := 1.0 + float64(questionIndex)*multiplierStep
	speedBonus := 0.0
	if timeLimitMs > 0 && responseMs < timeLimitMs {
		speedBonus = float64(timeLimitMs-responseMs) / float64(timeLimitMs) * speedBonusMax
	}
	return int(math.Round((float64(basePoints) + speedBonus) * multiplier))
}
