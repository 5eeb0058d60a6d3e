// Package drill drives one study session: a queue of due cards, the
// reveal/grade/undo state machine, and the deferred-commit protocol. All
// review activity stays in memory until the session finishes, so an
// abandoned session leaves the store untouched.
package drill

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/hashcards/internal/domain"
	"github.com/conorfennell/hashcards/internal/fsrs"
)

// State of the session machine.
type State int

const (
	Active State = iota
	Finished
)

// Store is the slice of the persistence layer a session needs: exactly one
// atomic commit when the session finishes.
type Store interface {
	SaveSession(ctx context.Context, sessionID string, startedAt, endedAt time.Time, events []domain.ReviewEvent) error
}

// CommitError wraps a failed session commit. The staged history is
// retained, so Finish may be called again to retry.
type CommitError struct {
	SessionID string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("committing session %s: %v", e.SessionID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// review pairs a staged event with the card it graded, so Undo can put the
// card back in the queue.
type review struct {
	card  domain.Card
	event domain.ReviewEvent
}

// Session is the state of one drill. Every transition takes the lock,
// applies exactly one step, and returns; only the finishing commit touches
// the store.
type Session struct {
	mu sync.Mutex

	id        string
	startedAt time.Time
	store     Store
	now       func() time.Time

	// base is the schedule snapshot taken when the session opened.
	base map[string]domain.ScheduleState

	state     State
	queue     []domain.Card
	reveal    bool
	history   []review
	total     int
	committed bool
}

// NewSession opens a session over a card snapshot. The initial queue is
// the ascending sort of card hashes: deterministic, free of RNG, and
// naturally interleaving decks.
func NewSession(store Store, cards []domain.Card, states map[string]domain.ScheduleState) *Session {
	queue := make([]domain.Card, len(cards))
	copy(queue, cards)
	sort.Slice(queue, func(i, j int) bool { return queue[i].Hash < queue[j].Hash })

	base := make(map[string]domain.ScheduleState, len(states))
	for hash, state := range states {
		base[hash] = state
	}

	return &Session{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
		store:     store,
		now:       time.Now,
		base:      base,
		state:     Active,
		queue:     queue,
		total:     len(queue),
	}
}

// ID returns the session identifier used for the persisted session row.
func (s *Session) ID() string {
	return s.id
}

// Reveal shows the current card's answer. It is a no-op when the queue is
// empty, the answer is already revealed, or the session has finished.
func (s *Session) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Finished || len(s.queue) == 0 {
		return
	}
	s.reveal = true
}

// Grade applies a grade to the revealed card. Forgot sends the card to the
// back of the queue; any other grade retires it for this session. Grading
// the last card finishes the session and commits it.
//
// A Grade without a revealed card is a no-op, which makes double-submitted
// forms harmless.
func (s *Session) Grade(ctx context.Context, grade fsrs.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Finished || !s.reveal || len(s.queue) == 0 {
		return nil
	}

	card := s.queue[0]
	previous := s.previousState(card.Hash)
	now := s.now()

	next, err := domain.UpdateSchedule(previous, grade, now)
	if err != nil {
		return err
	}

	s.history = append(s.history, review{
		card: card,
		event: domain.ReviewEvent{
			CardHash:   card.Hash,
			Grade:      grade,
			ReviewedAt: now.UTC(),
			Previous:   previous,
			New:        next,
		},
	})

	slog.Debug("card graded",
		"card", shortHash(card.Hash),
		"grade", grade.String(),
		"stability", next.Stability,
		"due", next.DueDate.String(),
	)

	if grade == fsrs.Forgot {
		// A forgotten card stays in the session.
		s.queue = append(s.queue[1:], card)
	} else {
		s.queue = s.queue[1:]
	}
	s.reveal = false

	if len(s.queue) == 0 {
		return s.finishLocked(ctx)
	}
	return nil
}

// Undo reverses the most recent grade: the event is discarded and the card
// returns to the front of the queue unrevealed. Undoing from Finished
// reopens the session unless it has already been committed.
func (s *Session) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 || s.committed {
		return
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	if last.event.Grade == fsrs.Forgot {
		// The graded card was requeued at the back; take it out again.
		s.queue = s.queue[:len(s.queue)-1]
	}
	s.queue = append([]domain.Card{last.card}, s.queue...)
	s.reveal = false
	s.state = Active
}

// Finish ends the session from any state, dropping whatever is left in the
// queue without schedule effect, and commits the staged history. It is
// idempotent once the commit has succeeded.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishLocked(ctx)
}

// finishLocked enters Finished and performs the single commit: the session
// row, every staged event, and every schedule upsert in one transaction.
// On failure the history is retained so the commit can be retried.
func (s *Session) finishLocked(ctx context.Context) error {
	if s.committed {
		return nil
	}
	s.state = Finished
	s.reveal = false

	events := make([]domain.ReviewEvent, len(s.history))
	for i, r := range s.history {
		events[i] = r.event
	}

	endedAt := s.now().UTC()
	if err := s.store.SaveSession(ctx, s.id, s.startedAt, endedAt, events); err != nil {
		return &CommitError{SessionID: s.id, Err: err}
	}
	s.committed = true

	slog.Info("session committed",
		"session", s.id,
		"reviews", len(events),
		"remaining", len(s.queue),
	)
	return nil
}

// previousState resolves the schedule state a grade builds on: the latest
// staged event for the card if there is one, else the snapshot taken at
// session start, else nil for a brand-new card.
func (s *Session) previousState(hash string) *domain.ScheduleState {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].event.CardHash == hash {
			state := s.history[i].event.New
			return &state
		}
	}
	if state, ok := s.base[hash]; ok {
		return &state
	}
	return nil
}

// Current returns the card at the front of the queue.
func (s *Session) Current() (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Finished || len(s.queue) == 0 {
		return domain.Card{}, false
	}
	return s.queue[0], true
}

// Revealed reports whether the current card's answer is shown.
func (s *Session) Revealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal
}

// State returns the machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress reports cards remaining, grades staged, and the opening queue
// size.
func (s *Session) Progress() (remaining, reviewed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue), len(s.history), s.total
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
