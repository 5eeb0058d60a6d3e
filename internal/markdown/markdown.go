// Package markdown renders card text to HTML and reports the media files
// it references.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Render converts markdown to HTML and returns the collection-relative
// media paths referenced by image links. Absolute URLs are not media
// dependencies and are left untouched.
func Render(source string) (string, []string, error) {
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var refs []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			if dest := string(img.Destination); isMediaRef(dest) {
				refs = append(refs, dest)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("walking markdown tree: %w", err)
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return "", nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), refs, nil
}

// MediaRefs returns only the referenced media paths, without rendering.
// Used for cloze text, which is kept raw so its byte offsets stay valid.
func MediaRefs(source string) ([]string, error) {
	_, refs, err := Render(source)
	return refs, err
}

func isMediaRef(dest string) bool {
	return dest != "" && !strings.Contains(dest, "://")
}
