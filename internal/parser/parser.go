// Package parser turns deck text into canonical cards.
//
// The format is line-oriented. "Q:" opens a question block that runs until
// an "A:" answer block, which ends at a blank line. "C:" opens a cloze
// block whose bracketed spans become one card per deletion. "T:"/"D:" is a
// term/definition shorthand that expands into a forward and a reverse
// basic card. Blank lines separate blocks.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/hashcards/internal/domain"
)

const (
	questionTag   = "Q:"
	answerTag     = "A:"
	clozeTag      = "C:"
	termTag       = "T:"
	definitionTag = "D:"
)

// RenderFunc converts extracted markdown to HTML and reports the media
// paths it references. Rendering happens before hashing, so the canonical
// card content is exactly what gets persisted.
type RenderFunc func(markdown string) (html string, media []string, err error)

// ParseError describes a malformed deck file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

type state int

const (
	seeking state = iota
	inQuestion
	inAnswer
	inCloze
	inTerm
	inDefinition
)

// ParseFile reads the file at path and extracts all cards.
func ParseFile(deckName, path string, render RenderFunc) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(deckName, path, file, render)
}

// Parse extracts all cards from r. Duplicate canonical contents within the
// input collapse to the first occurrence.
func Parse(deckName, file string, r io.Reader, render RenderFunc) ([]domain.Card, error) {
	p := &fileParser{
		deck:   deckName,
		file:   file,
		render: render,
		seen:   make(map[string]bool),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := p.feed(line, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := p.finish(); err != nil {
		return nil, err
	}

	return p.cards, nil
}

type fileParser struct {
	deck   string
	file   string
	render RenderFunc

	state     state
	startLine int
	question  []string
	answer    []string
	block     []string
	term      []string

	cards []domain.Card
	seen  map[string]bool
}

func (p *fileParser) feed(line int, text string) error {
	blank := strings.TrimSpace(text) == ""

	switch p.state {
	case seeking:
		switch {
		case blank:
		case hasTag(text, questionTag):
			p.state = inQuestion
			p.startLine = line
			p.question = []string{tagContent(text, questionTag)}
		case hasTag(text, answerTag):
			return p.errorf(line, "answer tag without a preceding question")
		case hasTag(text, clozeTag):
			p.state = inCloze
			p.startLine = line
			p.block = []string{tagContent(text, clozeTag)}
		case hasTag(text, termTag):
			p.state = inTerm
			p.startLine = line
			p.term = []string{tagContent(text, termTag)}
		case hasTag(text, definitionTag):
			return p.errorf(line, "definition tag without a preceding term")
		default:
			// Prose between cards is not card content.
		}

	case inQuestion:
		// The question runs until the answer tag, blank lines included.
		if hasTag(text, answerTag) {
			p.state = inAnswer
			p.answer = []string{tagContent(text, answerTag)}
		} else {
			p.question = append(p.question, text)
		}

	case inAnswer:
		if blank {
			if err := p.finishBasic(); err != nil {
				return err
			}
			p.state = seeking
		} else {
			p.answer = append(p.answer, text)
		}

	case inCloze:
		if blank {
			if err := p.finishCloze(); err != nil {
				return err
			}
			p.state = seeking
		} else {
			p.block = append(p.block, text)
		}

	case inTerm:
		// The term runs until the definition tag, mirroring Q/A.
		if hasTag(text, definitionTag) {
			p.state = inDefinition
			p.block = []string{tagContent(text, definitionTag)}
		} else {
			p.term = append(p.term, text)
		}

	case inDefinition:
		if blank {
			if err := p.finishTermDef(); err != nil {
				return err
			}
			p.state = seeking
		} else {
			p.block = append(p.block, text)
		}
	}
	return nil
}

// finish closes the trailing block at end of input.
func (p *fileParser) finish() error {
	switch p.state {
	case inQuestion:
		return p.errorf(p.startLine, "question block has no answer tag")
	case inTerm:
		return p.errorf(p.startLine, "term block has no definition tag")
	case inAnswer:
		return p.finishBasic()
	case inCloze:
		return p.finishCloze()
	case inDefinition:
		return p.finishTermDef()
	}
	return nil
}

func (p *fileParser) finishBasic() error {
	question := joinBlock(p.question)
	answer := joinBlock(p.answer)
	p.question, p.answer = nil, nil
	if question == "" || answer == "" {
		return p.errorf(p.startLine, "basic card with an empty side")
	}
	return p.addBasic(p.startLine, question, answer)
}

func (p *fileParser) finishTermDef() error {
	term := joinBlock(p.term)
	definition := joinBlock(p.block)
	p.term, p.block = nil, nil
	if term == "" || definition == "" {
		return p.errorf(p.startLine, "term/definition card with an empty side")
	}
	// The shorthand expands to a forward and a reverse card at parse time.
	if err := p.addBasic(p.startLine, "Define: "+term, definition); err != nil {
		return err
	}
	return p.addBasic(p.startLine, "Term for: "+definition, term)
}

func (p *fileParser) finishCloze() error {
	raw := joinBlock(p.block)
	p.block = nil

	text, spans, err := extractDeletions(raw)
	if err != nil {
		return p.errorf(p.startLine, "%s", err)
	}

	media, err := p.render.mediaOnly(text)
	if err != nil {
		return p.errorf(p.startLine, "rendering cloze text: %s", err)
	}
	for _, span := range spans {
		card, err := domain.NewClozeCard(p.deck, p.file, p.startLine, text, span[0], span[1])
		if err != nil {
			return p.errorf(p.startLine, "%s", err)
		}
		card.MediaRefs = media
		p.add(card)
	}
	return nil
}

func (p *fileParser) addBasic(line int, question, answer string) error {
	questionHTML, questionMedia, err := p.render(question)
	if err != nil {
		return p.errorf(line, "rendering question: %s", err)
	}
	answerHTML, answerMedia, err := p.render(answer)
	if err != nil {
		return p.errorf(line, "rendering answer: %s", err)
	}
	card := domain.NewBasicCard(p.deck, p.file, line, questionHTML, answerHTML)
	card.MediaRefs = append(questionMedia, answerMedia...)
	p.add(card)
	return nil
}

// add records a card unless its canonical content was already seen in this
// file; the first occurrence wins.
func (p *fileParser) add(card domain.Card) {
	if p.seen[card.Hash] {
		return
	}
	p.seen[card.Hash] = true
	p.cards = append(p.cards, card)
}

func (p *fileParser) errorf(line int, format string, args ...any) error {
	return &ParseError{File: p.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// extractDeletions strips the bracket markers from a cloze block and
// returns the clean text with the byte span of each deletion. Brackets are
// ASCII, so removing them cannot break UTF-8 alignment.
func extractDeletions(raw string) (string, [][2]int, error) {
	var clean strings.Builder
	var spans [][2]int
	open := -1
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '[':
			if open >= 0 {
				return "", nil, fmt.Errorf("nested '[' in cloze block")
			}
			open = clean.Len()
		case ']':
			if open < 0 {
				return "", nil, fmt.Errorf("unmatched ']' in cloze block")
			}
			spans = append(spans, [2]int{open, clean.Len()})
			open = -1
		default:
			clean.WriteByte(raw[i])
		}
	}
	if open >= 0 {
		return "", nil, fmt.Errorf("unmatched '[' in cloze block")
	}
	if len(spans) == 0 {
		return "", nil, fmt.Errorf("cloze block has no deletions")
	}
	return clean.String(), spans, nil
}

// mediaOnly runs the renderer for its media references, discarding the
// HTML. Cloze text stays raw so its byte offsets remain valid.
func (r RenderFunc) mediaOnly(markdown string) ([]string, error) {
	_, media, err := r(markdown)
	return media, err
}

func hasTag(line, tag string) bool {
	return strings.HasPrefix(line, tag)
}

// tagContent strips the tag and at most one following space.
func tagContent(line, tag string) string {
	content := line[len(tag):]
	return strings.TrimPrefix(content, " ")
}

func joinBlock(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
