package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/hashcards/internal/fsrs"
)

// ScheduleState is a card's memory state, keyed by the card hash. It is
// absent until the card's first review.
type ScheduleState struct {
	Stability      float64
	Difficulty     float64
	DueDate        Date
	ReviewCount    int
	LastReviewedAt time.Time // UTC instant
}

// CorruptScheduleError signals that persisted schedule state violates the
// scheduler's domain invariants. It is unrecoverable: the data is corrupt
// and must not be silently repaired.
type CorruptScheduleError struct {
	Reason string
}

func (e *CorruptScheduleError) Error() string {
	return "corrupt schedule state: " + e.Reason
}

// UpdateSchedule computes the schedule state after grading a card. prev is
// nil for a card's first-ever review. The function is pure: it never
// mutates prev and performs no I/O, so a speculative result can simply be
// discarded.
func UpdateSchedule(prev *ScheduleState, grade fsrs.Grade, now time.Time) (ScheduleState, error) {
	if !grade.Valid() {
		return ScheduleState{}, &CorruptScheduleError{Reason: fmt.Sprintf("invalid grade %d", int(grade))}
	}

	today := LocalDateOf(now)

	var stability, difficulty float64
	var reviewCount int
	if prev == nil {
		stability = fsrs.InitialStability(grade)
		difficulty = fsrs.InitialDifficulty(grade)
		reviewCount = 1
	} else {
		if err := validateState(prev); err != nil {
			return ScheduleState{}, err
		}
		// Elapsed time is measured in whole calendar days, matching the
		// day-granular due dates.
		elapsed := float64(today.DaysSince(LocalDateOf(prev.LastReviewedAt)))
		retr := fsrs.Retrievability(elapsed, prev.Stability)
		stability = fsrs.NextStability(prev.Difficulty, prev.Stability, retr, grade)
		difficulty = fsrs.NextDifficulty(prev.Difficulty, grade)
		reviewCount = prev.ReviewCount + 1
	}

	interval := fsrs.Interval(fsrs.TargetRecall, stability)
	return ScheduleState{
		Stability:      stability,
		Difficulty:     difficulty,
		DueDate:        today.AddDays(int(interval)),
		ReviewCount:    reviewCount,
		LastReviewedAt: now.UTC(),
	}, nil
}

func validateState(s *ScheduleState) error {
	switch {
	case math.IsNaN(s.Stability) || s.Stability <= 0:
		return &CorruptScheduleError{Reason: fmt.Sprintf("stability %v must be positive", s.Stability)}
	case math.IsNaN(s.Difficulty) || s.Difficulty < 1 || s.Difficulty > 10:
		return &CorruptScheduleError{Reason: fmt.Sprintf("difficulty %v outside [1, 10]", s.Difficulty)}
	case s.ReviewCount < 1:
		return &CorruptScheduleError{Reason: fmt.Sprintf("review count %d for a reviewed card", s.ReviewCount)}
	case s.LastReviewedAt.IsZero():
		return &CorruptScheduleError{Reason: "missing last review timestamp"}
	}
	return nil
}
