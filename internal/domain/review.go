package domain

import (
	"time"

	"github.com/conorfennell/hashcards/internal/fsrs"
)

// ReviewEvent records one graded review. Events are staged in memory for
// the duration of a drill session and persisted only when the session
// finishes; Previous is retained so the event can be undone exactly.
type ReviewEvent struct {
	CardHash   string
	Grade      fsrs.Grade
	ReviewedAt time.Time // UTC instant
	Previous   *ScheduleState
	New        ScheduleState
}
