// Package storage is the SQLite repository for cards, sessions, and
// reviews. Schedule updates for a drill session are committed through
// SaveSession in a single transaction; nothing is written before that.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/hashcards/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout is the persisted form of UTC instants.
const timeLayout = time.RFC3339Nano

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a database connection and brings the schema up to date.
// Use ":memory:" as the dsn for an in-memory database in tests.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; WAL still allows concurrent readers.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

func runMigrations(conn *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsureCards registers any cards not yet present. Existing rows, and in
// particular their schedule fields, are left untouched.
func (db *DB) EnsureCards(ctx context.Context, cards []domain.Card, addedAt time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (card_hash, deck_name, kind, question, answer, cloze_text, cloze_start, cloze_end, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (card_hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer stmt.Close()

	added := addedAt.UTC().Format(timeLayout)
	for _, card := range cards {
		var question, answer, clozeText sql.NullString
		var clozeStart, clozeEnd sql.NullInt64
		switch card.Kind {
		case domain.KindBasic:
			question = sql.NullString{String: card.Question, Valid: true}
			answer = sql.NullString{String: card.Answer, Valid: true}
		case domain.KindCloze:
			clozeText = sql.NullString{String: card.Text, Valid: true}
			clozeStart = sql.NullInt64{Int64: int64(card.ClozeStart), Valid: true}
			clozeEnd = sql.NullInt64{Int64: int64(card.ClozeEnd), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, card.Hash, card.DeckName, string(card.Kind),
			question, answer, clozeText, clozeStart, clozeEnd, added); err != nil {
			return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit card inserts: %w", err)
	}
	return nil
}

// ScheduleStates fetches the schedule state for the given hashes. Hashes
// without a persisted state (new cards) are absent from the result.
func (db *DB) ScheduleStates(ctx context.Context, hashes []string) (map[string]domain.ScheduleState, error) {
	wanted := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		wanted[h] = true
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_hash, last_reviewed_at, stability, difficulty, due_date, review_count
		FROM cards
		WHERE last_reviewed_at IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]domain.ScheduleState)
	for rows.Next() {
		var hash, reviewedAt, dueDate string
		var state domain.ScheduleState
		if err := rows.Scan(&hash, &reviewedAt, &state.Stability, &state.Difficulty, &dueDate, &state.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan schedule state: %w", err)
		}
		if !wanted[hash] {
			continue
		}
		state.LastReviewedAt, err = time.Parse(timeLayout, reviewedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp for card %s: %w", hash, err)
		}
		state.DueDate, err = domain.ParseDate(dueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid due date for card %s: %w", hash, err)
		}
		states[hash] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schedule states: %w", err)
	}
	return states, nil
}

// SaveSession persists a finished drill session: the session row, one
// review row per staged event, and the final schedule state per card, all
// in one transaction. A failure leaves the store untouched.
func (db *DB) SaveSession(ctx context.Context, sessionID string, startedAt, endedAt time.Time, events []domain.ReviewEvent) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, started_at, ended_at)
		VALUES (?, ?, ?)
	`, sessionID, startedAt.UTC().Format(timeLayout), endedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", sessionID, err)
	}

	// Review rows are append-only history.
	for _, ev := range events {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reviews (session_id, card_hash, reviewed_at, grade, stability, difficulty, due_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sessionID, ev.CardHash, ev.ReviewedAt.UTC().Format(timeLayout), ev.Grade.String(),
			ev.New.Stability, ev.New.Difficulty, ev.New.DueDate.String())
		if err != nil {
			return fmt.Errorf("failed to insert review for card %s: %w", ev.CardHash, err)
		}
	}

	// The last event per card carries its final schedule state.
	final := make(map[string]domain.ScheduleState)
	for _, ev := range events {
		final[ev.CardHash] = ev.New
	}
	for hash, state := range final {
		_, err = tx.ExecContext(ctx, `
			UPDATE cards
			SET last_reviewed_at = ?, stability = ?, difficulty = ?, due_date = ?, review_count = ?
			WHERE card_hash = ?
		`, state.LastReviewedAt.UTC().Format(timeLayout), state.Stability, state.Difficulty,
			state.DueDate.String(), state.ReviewCount, hash)
		if err != nil {
			return fmt.Errorf("failed to update schedule for card %s: %w", hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", sessionID, err)
	}
	return nil
}

// DeleteSession removes a session; its reviews cascade.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// CardHashes returns every card hash known to the store.
func (db *DB) CardHashes(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT card_hash FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan card hash: %w", err)
		}
		hashes = append(hashes, hash)
	}
	return hashes, rows.Err()
}

// DeleteCard removes a card and, via cascade, its reviews. Editing a deck
// changes a card's hash, leaving the old row orphaned; this is how those
// rows are cleaned up.
func (db *DB) DeleteCard(ctx context.Context, hash string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE card_hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", hash, err)
	}
	return nil
}

// Stats summarizes the persisted collection.
type Stats struct {
	Cards    int
	Reviewed int
	Due      int
	Sessions int
	Reviews  int
}

// CollectionStats counts cards, reviewed cards, cards due on or before
// today, sessions, and reviews.
func (db *DB) CollectionStats(ctx context.Context, today domain.Date) (Stats, error) {
	var s Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM cards),
			(SELECT count(*) FROM cards WHERE last_reviewed_at IS NOT NULL),
			(SELECT count(*) FROM cards WHERE due_date IS NOT NULL AND due_date <= ?),
			(SELECT count(*) FROM sessions),
			(SELECT count(*) FROM reviews)
	`, today.String()).Scan(&s.Cards, &s.Reviewed, &s.Due, &s.Sessions, &s.Reviews)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return s, nil
}
