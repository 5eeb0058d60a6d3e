// Package fsrs implements the pure scheduling math: initial memory state,
// the forgetting curve, and the stability/difficulty update rules. All
// functions are stateless and safe to call without synchronization.
package fsrs

import (
	"fmt"
	"math"
)

// Grade is the user's response to a card review.
type Grade int

const (
	Forgot Grade = 1
	Hard   Grade = 2
	Good   Grade = 3
	Easy   Grade = 4
)

// Valid reports whether g is one of the four defined grades.
func (g Grade) Valid() bool {
	return g >= Forgot && g <= Easy
}

func (g Grade) String() string {
	switch g {
	case Forgot:
		return "forgot"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("Grade(%d)", int(g))
	}
}

// ParseGrade is the inverse of Grade.String. It is used when reading
// review rows back from the database.
func ParseGrade(s string) (Grade, error) {
	switch s {
	case "forgot":
		return Forgot, nil
	case "hard":
		return Hard, nil
	case "good":
		return Good, nil
	case "easy":
		return Easy, nil
	default:
		return 0, fmt.Errorf("invalid grade: %q", s)
	}
}

// TargetRecall is the desired recall probability at review time.
const TargetRecall = 0.9

// MinInterval and MaxInterval bound the review interval in days.
const (
	MinInterval = 1.0
	MaxInterval = 256.0
)

// Algorithm weights, pinned to the published FSRS-6 defaults. Changing any
// of these is a scheduling change and warrants bumping AlgorithmVersion.
const (
	// w0..w3: initial stability per grade.
	wInitStabilityForgot = 0.212
	wInitStabilityHard   = 1.2931
	wInitStabilityGood   = 2.3065
	wInitStabilityEasy   = 8.2956

	// w4, w5: initial difficulty.
	wInitDifficultyBase  = 6.4133
	wInitDifficultySlope = 0.8334

	// w6 spread over one grade step.
	wDifficultyStep = 3.0194 / 3.0

	// w8..w10: recall stability growth.
	wRecallScale     = 1.8722
	wRecallStability = 0.1666
	wRecallRetention = 0.796

	// w11..w14: forget stability.
	wForgetScale      = 1.4835
	wForgetDifficulty = 0.0614
	wForgetStability  = 0.2629
	wForgetRetention  = 1.6483

	// w15, w16: grade modifiers on recall growth.
	wHardPenalty = 0.6014
	wEasyBonus   = 1.8729
)

// AlgorithmVersion identifies the pinned weight set above.
const AlgorithmVersion = "fsrs-6"

const (
	minStability  = 0.001
	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// decay is ln(TargetRecall), the constant of the forgetting curve.
var decay = math.Log(TargetRecall)

// InitialStability returns the seed stability for a card's first review.
func InitialStability(g Grade) float64 {
	switch g {
	case Forgot:
		return wInitStabilityForgot
	case Hard:
		return wInitStabilityHard
	case Easy:
		return wInitStabilityEasy
	default:
		return wInitStabilityGood
	}
}

// InitialDifficulty returns the seed difficulty for a card's first review,
// clamped to [1, 10].
//
//	D0(G) = w4 - e^(w5 * (G - 1)) + 1
func InitialDifficulty(g Grade) float64 {
	d := wInitDifficultyBase - math.Exp(wInitDifficultySlope*float64(g-1)) + 1
	return clampDifficulty(d)
}

// Retrievability estimates the probability of recall after elapsedDays,
// given the card's stability. The curve is exponential in elapsed time and
// calibrated so that R(stability) = TargetRecall.
func Retrievability(elapsedDays, stability float64) float64 {
	if elapsedDays <= 0 {
		return 1.0
	}
	return math.Exp(decay * elapsedDays / stability)
}

// NextDifficulty updates difficulty by a bounded additive step keyed by the
// grade: Forgot and Hard push it up, Easy pulls it down, Good leaves it
// unchanged. The result is clamped to [1, 10].
func NextDifficulty(difficulty float64, g Grade) float64 {
	return clampDifficulty(difficulty - wDifficultyStep*float64(g-Good))
}

// NextStability computes the post-review stability. Successful recalls grow
// stability multiplicatively; Forgot shrinks it.
func NextStability(difficulty, stability, retrievability float64, g Grade) float64 {
	if g == Forgot {
		return forgetStability(difficulty, stability, retrievability)
	}
	return recallStability(difficulty, stability, retrievability, g)
}

// recallStability implements the growth formula
//
//	S' = S * (1 + e^w8 * (11-D) * S^(-w9) * (e^((1-R)*w10) - 1) * penalty * bonus)
//
// Every factor of the growth term is non-negative, so S' >= S for any
// successful grade.
func recallStability(d, s, r float64, g Grade) float64 {
	penalty := 1.0
	if g == Hard {
		penalty = wHardPenalty
	}
	bonus := 1.0
	if g == Easy {
		bonus = wEasyBonus
	}
	growth := math.Exp(wRecallScale) *
		(11 - d) *
		math.Pow(s, -wRecallStability) *
		(math.Exp((1-r)*wRecallRetention) - 1) *
		penalty * bonus
	return s * (1 + growth)
}

// forgetStability implements the shrinking formula
//
//	S' = w11 * D^(-w12) * ((S+1)^w13 - 1) * e^((1-R)*w14)
//
// capped at the previous stability so a lapse can never grow the memory.
func forgetStability(d, s, r float64) float64 {
	next := wForgetScale *
		math.Pow(d, -wForgetDifficulty) *
		(math.Pow(s+1, wForgetStability) - 1) *
		math.Exp((1-r)*wForgetRetention)
	next = math.Min(next, s)
	return math.Max(next, minStability)
}

// Interval converts a stability into the next review interval in days,
// rounded and clamped to [MinInterval, MaxInterval]. With the exponential
// curve above, the raw interval at the target recall probability is the
// stability itself.
func Interval(targetRecall, stability float64) float64 {
	raw := stability * math.Log(targetRecall) / decay
	return math.Min(math.Max(math.Round(raw), MinInterval), MaxInterval)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}
