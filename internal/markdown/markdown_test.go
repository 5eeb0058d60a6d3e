package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	html, refs, err := Render("some *emphasis* and `code`")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<em>emphasis</em>") || !strings.Contains(html, "<code>code</code>") {
		t.Errorf("unexpected HTML: %q", html)
	}
	if len(refs) != 0 {
		t.Errorf("expected no media refs, got %v", refs)
	}
}

func TestRenderCollectsMediaRefs(t *testing.T) {
	src := "![a diagram](img/diagram.png) and ![remote](https://example.com/x.png)"
	html, refs, err := Render(src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<img") {
		t.Errorf("image not rendered: %q", html)
	}
	if len(refs) != 1 || refs[0] != "img/diagram.png" {
		t.Errorf("expected only the local ref, got %v", refs)
	}
}

func TestMediaRefs(t *testing.T) {
	refs, err := MediaRefs("![x](a.png)\n\n![y](b.jpg)")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Errorf("expected two refs, got %v", refs)
	}
}

func TestRenderDeterministic(t *testing.T) {
	a, _, err := Render("# heading\n\ntext")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Render("# heading\n\ntext")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("rendering is not deterministic")
	}
}
