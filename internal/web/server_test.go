package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/hashcards/internal/collection"
	"github.com/conorfennell/hashcards/internal/domain"
	"github.com/conorfennell/hashcards/internal/drill"
)

type fakeCollectionStore struct{}

func (fakeCollectionStore) EnsureCards(context.Context, []domain.Card, time.Time) error {
	return nil
}

func (fakeCollectionStore) ScheduleStates(context.Context, []string) (map[string]domain.ScheduleState, error) {
	return map[string]domain.ScheduleState{}, nil
}

type fakeSessionStore struct {
	saved int
}

func (f *fakeSessionStore) SaveSession(_ context.Context, _ string, _, _ time.Time, events []domain.ReviewEvent) error {
	f.saved += len(events)
	return nil
}

func newTestServer(t *testing.T, deck string) (*Server, *fakeSessionStore) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "deck.md"), []byte(deck), 0o644))

	col, parseErrs, err := collection.Load(context.Background(), root, fakeCollectionStore{})
	require.NoError(t, err)
	require.Empty(t, parseErrs)

	store := &fakeSessionStore{}
	session := drill.NewSession(store, col.Due(domain.Today()), col.States())
	srv, err := NewServer(session, col)
	require.NoError(t, err)
	return srv, store
}

func post(t *testing.T, srv *Server, action string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"action": {action}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDrillPageShowsFrontThenBack(t *testing.T) {
	srv, _ := newTestServer(t, "Q: What is 2+2?\nA: Four\n")

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "What is 2+2?")
	assert.NotContains(t, body, "Four", "the answer is hidden until revealed")
	assert.Contains(t, body, `value="Reveal"`)

	rec = post(t, srv, "Reveal")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	body = get(t, srv, "/").Body.String()
	assert.Contains(t, body, "Four")
	assert.Contains(t, body, `value="Good"`)
}

func TestClozeFrontBlanksDeletion(t *testing.T) {
	srv, _ := newTestServer(t, "C: Paris is the capital of [France]\n")

	body := get(t, srv, "/").Body.String()
	assert.Contains(t, body, "[...]")
	assert.NotContains(t, body, "France")

	post(t, srv, "Reveal")
	body = get(t, srv, "/").Body.String()
	assert.Contains(t, body, "<strong>France</strong>")
}

func TestGradingLastCardShowsSummary(t *testing.T) {
	srv, store := newTestServer(t, "Q: q\nA: a\n")

	post(t, srv, "Reveal")
	rec := post(t, srv, "Good")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	body := get(t, srv, "/").Body.String()
	assert.Contains(t, body, "Session complete")
	assert.Equal(t, 1, store.saved)

	select {
	case <-srv.Done():
	default:
		t.Fatal("Done must be closed after the session commits")
	}
}

func TestGradeWithoutRevealIsNoop(t *testing.T) {
	srv, store := newTestServer(t, "Q: q\nA: a\n")

	rec := post(t, srv, "Good")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, store.saved)

	body := get(t, srv, "/").Body.String()
	assert.Contains(t, body, `value="Reveal"`)
}

func TestUnknownActionRejected(t *testing.T) {
	srv, _ := newTestServer(t, "Q: q\nA: a\n")

	rec := post(t, srv, "Shrug")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaServing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img", "pic.png"), []byte("png-bytes"), 0o644))
	deck := "Q: What is this? ![pic](img/pic.png)\nA: A picture\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "deck.md"), []byte(deck), 0o644))

	col, parseErrs, err := collection.Load(context.Background(), root, fakeCollectionStore{})
	require.NoError(t, err)
	require.Empty(t, parseErrs)

	store := &fakeSessionStore{}
	session := drill.NewSession(store, col.Due(domain.Today()), col.States())
	srv, err := NewServer(session, col)
	require.NoError(t, err)

	rec := get(t, srv, "/media/img/pic.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = get(t, srv, "/media/img/missing.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
