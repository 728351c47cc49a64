package viewer

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/outline"
	"github.com/Paintersrp/folio/internal/state"
)

const threePages = "# Alpha\n\none\n\n---\n\n# Beta\n\ntwo\n\n---\n\n# Gamma\n\nthree\n"

func newTestApp(t *testing.T) *state.State {
	t.Helper()
	app, err := state.NewState(state.Options{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// load runs the initial load command and applies its result.
func load(t *testing.T, m *Model) {
	t.Helper()
	msg := m.loadCmd(false)()
	if _, ok := msg.(loadedMsg); !ok {
		t.Fatalf("expected loadedMsg, got %T", msg)
	}
	m.Update(msg)
}

func TestLoadOpensSessionAndNavigates(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, nil)
	defer m.closeSession()
	load(t, m)

	if m.err != nil || m.session == nil {
		t.Fatalf("expected open session, got err %v", m.err)
	}
	if m.loading {
		t.Fatalf("expected loading to finish")
	}

	m.Update(runes("n"))
	m.Update(runes("n"))
	m.Update(runes("n"))
	if got := m.session.State().PageIndex; got != 2 {
		t.Fatalf("expected last page index 2, got %d", got)
	}
	m.Update(runes("p"))
	if got := m.session.State().PageIndex; got != 1 {
		t.Fatalf("expected page index 1, got %d", got)
	}

	m.Update(runes("+"))
	if got := m.session.State().Zoom; got != zoomStep {
		t.Fatalf("expected zoom %v, got %v", zoomStep, got)
	}
	m.Update(runes("-"))
	if got := m.session.State().Zoom; got != 1 {
		t.Fatalf("expected zoom back at 1, got %v", got)
	}

	m.Update(runes("m"))
	if got := m.session.State().Mode; got != document.ModeContinuous {
		t.Fatalf("expected continuous mode, got %s", got)
	}

	if !slices.Contains(app.Config.Recents(), doc) {
		t.Fatalf("expected %s in recents, got %v", doc, app.Config.Recents())
	}
	if view := m.View(); !strings.Contains(view, "page 2/3") {
		t.Fatalf("expected page indicator in view, got:\n%s", view)
	}
}

func TestQuitFlushesViewState(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, nil)
	load(t, m)
	m.Update(runes("n"))

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if m.session != nil {
		t.Fatalf("expected session closed on quit")
	}
	if got := app.Documents.Get(doc).PageIndex; got != 1 {
		t.Fatalf("expected flushed page index 1 in cache, got %d", got)
	}
	if m.View() != "" {
		t.Fatalf("expected empty view after quit")
	}
}

func TestPendingViewAppliedOnLoad(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, &View{Page: 3, Zoom: 2, Mode: document.ModeTwoUp})
	defer m.closeSession()
	load(t, m)

	st := m.session.State()
	if st.PageIndex != 2 || st.Zoom != 2 || st.Mode != document.ModeTwoUp {
		t.Fatalf("unexpected initial view %+v", st)
	}
	if m.pending != nil {
		t.Fatalf("expected pending view consumed")
	}
}

func TestPendingViewReportsOutOfRangePage(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, &View{Page: 9})
	defer m.closeSession()
	load(t, m)

	if m.session.State().PageIndex != 0 {
		t.Fatalf("expected first page to stay selected")
	}
	if !strings.Contains(m.notice, document.ErrPageOutOfRange.Error()) {
		t.Fatalf("expected out of range notice, got %q", m.notice)
	}
}

func TestFailedLoadOffersRetry(t *testing.T) {
	app := newTestApp(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "later.md")

	m := New(app, doc, nil)
	load(t, m)

	if m.err == nil || m.session != nil {
		t.Fatalf("expected load failure without session")
	}
	view := m.View()
	if !strings.Contains(view, document.UserMessage(m.err)) || !strings.Contains(view, "press r to retry") {
		t.Fatalf("expected error message and retry hint, got:\n%s", view)
	}

	writeDoc(t, dir, "later.md", threePages)
	_, cmd := m.Update(runes("r"))
	if cmd == nil || !m.loading {
		t.Fatalf("expected retry to start loading")
	}
	m.Update(cmd())
	defer m.closeSession()

	if m.err != nil || m.session == nil {
		t.Fatalf("expected retry to succeed, got %v", m.err)
	}
	if got := m.session.State().PageCount(); got != 3 {
		t.Fatalf("expected 3 pages after retry, got %d", got)
	}
}

func TestIgnoresResultsForOtherPaths(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, nil)
	st := document.NewState("/elsewhere.md")
	st.Err = document.ErrDocumentNotFound
	m.Update(loadedMsg{state: st})

	if !m.loading || m.err != nil {
		t.Fatalf("expected unrelated load result to be ignored")
	}
}

func TestOutlineJumpAndReorder(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, nil)
	defer m.closeSession()
	load(t, m)

	if len(m.rows) != 3 {
		t.Fatalf("expected three outline rows, got %d", len(m.rows))
	}

	m.Update(runes("o"))
	m.Update(runes("j"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.session.State().PageIndex; got != 1 {
		t.Fatalf("expected jump to page index 1, got %d", got)
	}

	m.Update(runes("K"))
	labels := func() []string {
		var out []string
		for _, r := range m.outline.Roots() {
			out = append(out, r.Label)
		}
		return out
	}
	if got := labels(); !slices.Equal(got, []string{"Beta", "Alpha", "Gamma"}) {
		t.Fatalf("unexpected order after move up: %v", got)
	}
	if m.cursor != 0 {
		t.Fatalf("expected cursor to follow moved entry, got %d", m.cursor)
	}

	m.Update(runes("J"))
	if got := labels(); !slices.Equal(got, []string{"Alpha", "Beta", "Gamma"}) {
		t.Fatalf("unexpected order after move down: %v", got)
	}

	m.Update(runes("w"))
	if m.notice != "outline saved" {
		t.Fatalf("expected save notice, got %q", m.notice)
	}
	if _, err := os.Stat(outline.SidecarPath(doc)); err != nil {
		t.Fatalf("expected sidecar on disk: %v", err)
	}
}

func TestDocumentChangeReloads(t *testing.T) {
	app := newTestApp(t)
	dir := t.TempDir()
	doc := writeDoc(t, dir, "guide.md", threePages)

	m := New(app, doc, nil)
	defer m.closeSession()
	load(t, m)

	writeDoc(t, dir, "guide.md", "# Only\n")
	_, cmd := m.Update(state.DocumentChangedMsg{Path: doc})
	if cmd == nil || !m.loading {
		t.Fatalf("expected reload to start")
	}
	m.Update(m.loadCmd(true)())

	if got := m.session.State().PageCount(); got != 1 {
		t.Fatalf("expected reloaded single page, got %d", got)
	}
}

func TestStatsAndWorkspaceNotices(t *testing.T) {
	app := newTestApp(t)
	m := New(app, filepath.Join(t.TempDir(), "x.md"), nil)

	m.Update(state.CacheStatsMsg{Line: "docs 1 · thumbs 2"})
	m.Update(state.WorkspaceGoneMsg{Root: "/gone"})
	m.loading = false

	view := m.View()
	if !strings.Contains(view, "docs 1 · thumbs 2") {
		t.Fatalf("expected stats line in view, got:\n%s", view)
	}
	if !strings.Contains(view, "workspace moved or removed") {
		t.Fatalf("expected workspace notice in view, got:\n%s", view)
	}
}

func TestOutlinePanelResizePersists(t *testing.T) {
	app := newTestApp(t)
	doc := writeDoc(t, t.TempDir(), "guide.md", threePages)

	m := New(app, doc, nil)
	defer m.closeSession()
	load(t, m)

	start := app.Config.PanelWidth()
	m.Update(runes("o"))
	m.Update(runes(">"))
	if got := app.Config.PanelWidth(); got != start+panelStep {
		t.Fatalf("expected width %v, got %v", start+panelStep, got)
	}
	if m.panelColumns() != int((start+panelStep)/pointsPerColumn) {
		t.Fatalf("unexpected panel columns %d", m.panelColumns())
	}

	for i := 0; i < 20; i++ {
		m.Update(runes("<"))
	}
	if got := app.Config.PanelWidth(); got != minPanelWidth {
		t.Fatalf("expected width clamped to %v, got %v", minPanelWidth, got)
	}
}
