package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBasicCardHashDeterministic(t *testing.T) {
	a := NewBasicCard("geo", "geo.md", 1, "What is the capital of France?", "Paris")
	b := NewBasicCard("other", "elsewhere.md", 99, "What is the capital of France?", "Paris")
	if a.Hash != b.Hash {
		t.Error("identical content must hash identically regardless of deck or position")
	}
	if len(a.Hash) != 64 {
		t.Errorf("expected a 64-char hex digest, got %d chars", len(a.Hash))
	}
	if strings.ToLower(a.Hash) != a.Hash {
		t.Error("hash must be lowercase hex")
	}
}

func TestBasicCardHashContentSensitive(t *testing.T) {
	base := NewBasicCard("d", "d.md", 1, "What is the capital of France?", "Paris")
	testCases := []struct {
		name     string
		question string
		answer   string
	}{
		{"changed answer", "What is the capital of France?", "Pariz"},
		{"changed question", "What is the capital of Germany?", "Paris"},
		{"field boundary shift", "What is the capital of France?P", "aris"},
		{"trailing space", "What is the capital of France? ", "Paris"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewBasicCard("d", "d.md", 1, tc.question, tc.answer)
			if got.Hash == base.Hash {
				t.Error("distinct content collided")
			}
		})
	}
}

func TestClozeCardHash(t *testing.T) {
	a, err := NewClozeCard("d", "d.md", 1, "Berlin is the capital of Germany.", 0, 6)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewClozeCard("d", "d.md", 1, "Berlin is the capital of Germany.", 0, 7)
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash == b.Hash {
		t.Error("cloze cards with different ranges must not collide")
	}
	if a.Deletion() != "Berlin" {
		t.Errorf("Deletion() = %q", a.Deletion())
	}
}

func TestKindChangesHash(t *testing.T) {
	basic := NewBasicCard("d", "d.md", 1, "x", "")
	cloze, err := NewClozeCard("d", "d.md", 1, "x", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if basic.Hash == cloze.Hash {
		t.Error("kind change must produce a new identity")
	}
}

func TestClozeRangeValidation(t *testing.T) {
	text := "héllo wörld"
	testCases := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{"full text", 0, len(text), false},
		{"empty span", 3, 3, false},
		{"negative start", -1, 3, true},
		{"end before start", 4, 3, true},
		{"end past text", 0, len(text) + 1, true},
		{"splits utf8 sequence", 0, 2, true}, // é is two bytes
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			card, err := NewClozeCard("d", "d.md", 1, text, tc.start, tc.end)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for range [%d, %d)", tc.start, tc.end)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !utf8.ValidString(card.Deletion()) {
				t.Error("deletion is not valid UTF-8")
			}
		})
	}
}
