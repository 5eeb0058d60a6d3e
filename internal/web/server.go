// Package web is the drill HTTP UI: one page that shows the front or
// back of the current card and a form whose actions drive the session
// engine. All state lives in the session; the handlers only translate.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/conorfennell/hashcards/internal/collection"
	"github.com/conorfennell/hashcards/internal/domain"
	"github.com/conorfennell/hashcards/internal/drill"
	"github.com/conorfennell/hashcards/internal/fsrs"
)

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the drill HTTP server.
type Server struct {
	session   *drill.Session
	col       *collection.Collection
	router    *http.ServeMux
	templates *template.Template

	// done is closed when the session has been committed, so the caller
	// can shut the server down.
	done chan struct{}
}

// NewServer wires a drill session and its collection into an http.Handler.
func NewServer(session *drill.Session, col *collection.Collection) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		session:   session,
		col:       col,
		router:    http.NewServeMux(),
		templates: tpl,
		done:      make(chan struct{}),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Done is closed once the session has been committed and the summary
// page served.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) routes() {
	s.router.HandleFunc("/media/", s.handleMedia())
	s.router.HandleFunc("/", s.handleDrill())
}

// handleDrill renders the current card on GET and applies a session
// action on POST. Every POST redirects back to GET /, so a browser
// refresh never repeats an action.
func (s *Server) handleDrill() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.renderCard(w)
		case http.MethodPost:
			s.applyAction(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

type cardView struct {
	Deck      string
	Kind      string
	Front     template.HTML
	Back      template.HTML
	Revealed  bool
	Remaining int
	Reviewed  int
	Total     int
}

type summaryView struct {
	Reviewed int
	Total    int
}

func (s *Server) renderCard(w http.ResponseWriter) {
	card, ok := s.session.Current()
	if !ok {
		_, reviewed, total := s.session.Progress()
		if err := s.templates.ExecuteTemplate(w, "summary", summaryView{Reviewed: reviewed, Total: total}); err != nil {
			slog.Error("rendering summary", "error", err)
		}
		return
	}

	front, back, err := s.faces(card)
	if err != nil {
		slog.Error("rendering card", "card", card.Hash, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	remaining, reviewed, total := s.session.Progress()
	view := cardView{
		Deck:      card.DeckName,
		Kind:      string(card.Kind),
		Front:     front,
		Back:      back,
		Revealed:  s.session.Revealed(),
		Remaining: remaining,
		Reviewed:  reviewed,
		Total:     total,
	}
	if err := s.templates.ExecuteTemplate(w, "drill", view); err != nil {
		slog.Error("rendering drill page", "error", err)
	}
}

// faces produces the HTML for the two sides of a card. Basic cards were
// rendered at parse time; cloze text is raw markdown rendered here, with
// the deletion blanked on the front and emphasized on the back.
func (s *Server) faces(card domain.Card) (front, back template.HTML, err error) {
	switch card.Kind {
	case domain.KindBasic:
		return template.HTML(card.Question), template.HTML(card.Answer), nil
	case domain.KindCloze:
		blanked := card.Text[:card.ClozeStart] + "`[...]`" + card.Text[card.ClozeEnd:]
		frontHTML, err := s.col.Render(blanked)
		if err != nil {
			return "", "", err
		}
		shown := card.Text[:card.ClozeStart] + "**" + card.Deletion() + "**" + card.Text[card.ClozeEnd:]
		backHTML, err := s.col.Render(shown)
		if err != nil {
			return "", "", err
		}
		return template.HTML(frontHTML), template.HTML(backHTML), nil
	default:
		return "", "", fmt.Errorf("unknown card kind %q", card.Kind)
	}
}

func (s *Server) applyAction(w http.ResponseWriter, r *http.Request) {
	action := r.PostFormValue("action")

	var err error
	switch action {
	case "Reveal":
		s.session.Reveal()
	case "Forgot", "Hard", "Good", "Easy":
		var grade fsrs.Grade
		grade, err = fsrs.ParseGrade(strings.ToLower(action))
		if err == nil {
			err = s.session.Grade(r.Context(), grade)
		}
	case "Undo":
		s.session.Undo()
	case "End":
		err = s.session.Finish(r.Context())
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
		return
	}

	var commitErr *drill.CommitError
	switch {
	case errors.As(err, &commitErr):
		// The history is retained; End retries the commit.
		slog.Error("session commit failed", "session", commitErr.SessionID, "error", commitErr.Err)
		http.Error(w, "saving the session failed; use End to retry", http.StatusInternalServerError)
		return
	case err != nil:
		slog.Error("drill action failed", "action", action, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if s.session.State() == drill.Finished {
		s.signalDone()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) signalDone() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// handleMedia serves the collection's media files. ResolveMedia rejects
// absolute paths and anything escaping the collection root.
func (s *Server) handleMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/media/")
		full, err := collection.ResolveMedia(s.col.Root, ref)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, full)
	}
}
