// Package collection loads every deck file under a directory into a
// deduplicated, schedule-joined snapshot of cards.
package collection

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conorfennell/hashcards/internal/domain"
	"github.com/conorfennell/hashcards/internal/markdown"
	"github.com/conorfennell/hashcards/internal/parser"
)

// Store is the slice of the persistence layer the loader needs.
type Store interface {
	EnsureCards(ctx context.Context, cards []domain.Card, addedAt time.Time) error
	ScheduleStates(ctx context.Context, hashes []string) (map[string]domain.ScheduleState, error)
}

// Collection is a fixed snapshot of the parsed decks joined with their
// persisted schedule state. A drill session opened on it keeps using the
// snapshot for its whole lifetime.
type Collection struct {
	Root string

	cards  []domain.Card
	byHash map[string]domain.Card
	states map[string]domain.ScheduleState
	macros []Macro
}

// MediaError reports a card whose declared media reference does not
// resolve. It aborts the collection load.
type MediaError struct {
	CardHash string
	File     string
	Ref      string
	Reason   string
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("%s: media file %q referenced by card %s %s", e.File, e.Ref, shortHash(e.CardHash), e.Reason)
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// Load walks root for .md deck files, parses them, deduplicates across
// files (first occurrence wins), validates media references, registers new
// cards with the store, and joins the result with persisted schedule
// state.
//
// Parse failures abort only the failing file and are returned in
// parseErrs; a missing media file or store failure aborts the whole load.
func Load(ctx context.Context, root string, store Store) (*Collection, []error, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving collection root: %w", err)
	}

	macros, err := LoadMacros(filepath.Join(root, "macros.tex"))
	if err != nil {
		return nil, nil, err
	}
	render := newRenderer(macros)

	col := &Collection{
		Root:   root,
		byHash: make(map[string]domain.Card),
		macros: macros,
	}
	var parseErrs []error

	start := time.Now()
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Dot directories (.git and friends) hold no decks.
			if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(deckName(root, path), path, render)
		if parseErr != nil {
			parseErrs = append(parseErrs, parseErr)
			return nil
		}
		for _, card := range cards {
			// Cross-file duplicates collapse silently to the first
			// occurrence.
			if _, dup := col.byHash[card.Hash]; dup {
				continue
			}
			col.byHash[card.Hash] = card
			col.cards = append(col.cards, card)
		}
		return nil
	})
	if walkErr != nil {
		return nil, parseErrs, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	if err := validateMedia(root, col.cards); err != nil {
		return nil, parseErrs, err
	}

	if err := store.EnsureCards(ctx, col.cards, time.Now()); err != nil {
		return nil, parseErrs, fmt.Errorf("registering cards: %w", err)
	}

	hashes := make([]string, 0, len(col.cards))
	for _, card := range col.cards {
		hashes = append(hashes, card.Hash)
	}
	col.states, err = store.ScheduleStates(ctx, hashes)
	if err != nil {
		return nil, parseErrs, fmt.Errorf("loading schedule states: %w", err)
	}

	slog.Debug("collection loaded",
		"root", root,
		"cards", len(col.cards),
		"parse_errors", len(parseErrs),
		"elapsed", time.Since(start),
	)
	return col, parseErrs, nil
}

// deckName is the path of the deck file relative to the collection root,
// without the extension.
func deckName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
}

// newRenderer composes TeX macro expansion with markdown rendering.
func newRenderer(macros []Macro) parser.RenderFunc {
	return func(md string) (string, []string, error) {
		return markdown.Render(ApplyMacros(md, macros))
	}
}

func validateMedia(root string, cards []domain.Card) error {
	for _, card := range cards {
		for _, ref := range card.MediaRefs {
			if _, err := ResolveMedia(root, ref); err != nil {
				return &MediaError{
					CardHash: card.Hash,
					File:     card.FilePath,
					Ref:      ref,
					Reason:   err.Error(),
				}
			}
		}
	}
	return nil
}

// All returns every card in load order.
func (c *Collection) All() []domain.Card {
	return c.cards
}

// Due returns the cards due on or before the given date plus the cards
// that have never been reviewed, sorted ascending by hash.
func (c *Collection) Due(today domain.Date) []domain.Card {
	var due []domain.Card
	for _, card := range c.cards {
		state, reviewed := c.states[card.Hash]
		if !reviewed || !state.DueDate.After(today) {
			due = append(due, card)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Hash < due[j].Hash })
	return due
}

// ByHash looks up a single card.
func (c *Collection) ByHash(hash string) (domain.Card, bool) {
	card, ok := c.byHash[hash]
	return card, ok
}

// States returns a copy of the schedule snapshot keyed by card hash.
func (c *Collection) States() map[string]domain.ScheduleState {
	states := make(map[string]domain.ScheduleState, len(c.states))
	for hash, state := range c.states {
		states[hash] = state
	}
	return states
}

// Render expands the collection's TeX macros in src and renders it to
// HTML. Cloze text is stored raw, so the drill UI renders it with this at
// display time.
func (c *Collection) Render(src string) (string, error) {
	html, _, err := markdown.Render(ApplyMacros(src, c.macros))
	return html, err
}

// ResolveMedia maps a collection-relative media reference to an absolute
// path, rejecting references that do not exist or escape the root.
func ResolveMedia(root, ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return "", fmt.Errorf("is absolute")
	}
	full := filepath.Join(root, filepath.FromSlash(ref))
	if rel, err := filepath.Rel(root, full); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("escapes the collection root")
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("does not exist")
		}
		return "", err
	}
	return full, nil
}
