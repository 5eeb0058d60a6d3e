// Package domain holds the core types: content-addressed cards, calendar
// dates, schedule state, and review events.
package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// Kind discriminates the card variants.
type Kind string

const (
	KindBasic Kind = "basic"
	KindCloze Kind = "cloze"
)

// Card is an immutable flashcard. Its identity is the hex-encoded SHA-256
// digest of its canonical content, so any textual edit or kind change
// produces a new card and resets progress.
//
// Exactly one variant's fields are populated, selected by Kind: Question
// and Answer for basic cards, Text with the [ClozeStart, ClozeEnd) byte
// range for cloze cards.
type Card struct {
	Hash     string
	DeckName string
	FilePath string
	Line     int
	Kind     Kind

	Question string
	Answer   string

	Text       string
	ClozeStart int
	ClozeEnd   int

	// MediaRefs are the media paths this card's content references,
	// collected during markdown rendering. Collection load fails if any
	// of them does not resolve.
	MediaRefs []string
}

// NewBasicCard builds a basic card and computes its content hash.
func NewBasicCard(deckName, filePath string, line int, question, answer string) Card {
	c := Card{
		DeckName: deckName,
		FilePath: filePath,
		Line:     line,
		Kind:     KindBasic,
		Question: question,
		Answer:   answer,
	}
	c.Hash = c.contentHash()
	return c
}

// NewClozeCard builds a cloze card and computes its content hash. The
// [start, end) range must be a valid UTF-8 aligned byte span of text.
func NewClozeCard(deckName, filePath string, line int, text string, start, end int) (Card, error) {
	if start < 0 || end < start || end > len(text) {
		return Card{}, fmt.Errorf("cloze range [%d, %d) out of bounds for %d bytes", start, end, len(text))
	}
	if !utf8.ValidString(text[start:end]) {
		return Card{}, fmt.Errorf("cloze range [%d, %d) splits a UTF-8 sequence", start, end)
	}
	c := Card{
		DeckName:   deckName,
		FilePath:   filePath,
		Line:       line,
		Kind:       KindCloze,
		Text:       text,
		ClozeStart: start,
		ClozeEnd:   end,
	}
	c.Hash = c.contentHash()
	return c, nil
}

// Deletion returns the blanked-out span of a cloze card.
func (c Card) Deletion() string {
	return c.Text[c.ClozeStart:c.ClozeEnd]
}

// contentHash serializes the variant tag and every content field with
// length prefixes, so distinct contents can never produce the same digest.
func (c Card) contentHash() string {
	h := sha256.New()
	switch c.Kind {
	case KindBasic:
		h.Write([]byte("Basic"))
		writeField(h, c.Question)
		writeField(h, c.Answer)
	case KindCloze:
		h.Write([]byte("Cloze"))
		writeField(h, c.Text)
		writeInt(h, c.ClozeStart)
		writeInt(h, c.ClozeEnd)
	default:
		panic(fmt.Sprintf("unknown card kind: %q", c.Kind))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h interface{ Write([]byte) (int, error) }, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
