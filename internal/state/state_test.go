package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/folio/internal/dispatch"
	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/thumbnail"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState(Options{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestNewStateCreatesSettings(t *testing.T) {
	s := newTestState(t)

	if _, err := os.Stat(s.Config.Path()); err != nil {
		t.Fatalf("expected settings file: %v", err)
	}
	if s.Config.Capabilities.Secret == "" {
		t.Fatalf("expected bookmark secret to be generated")
	}
	if !s.Registry.Supports("notes.md") || !s.Registry.Supports("scan.PNG") {
		t.Fatalf("expected markdown and image decoders registered")
	}
}

func TestStateLoadsGrantedDocument(t *testing.T) {
	s := newTestState(t)
	root := t.TempDir()
	doc := filepath.Join(root, "guide.md")
	if err := os.WriteFile(doc, []byte("# Guide\n\nHello\n\n---\n\n## Next\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.Capabilities.GrantWorkspace(root); err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}
	files, err := s.Workspace.Files(context.Background())
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one file, got %v (%v)", files, err)
	}

	st := s.Loader.Load(context.Background(), doc)
	if st.Err != nil || st.PageCount() != 2 {
		t.Fatalf("expected two-page document, got %+v", st)
	}

	res := s.Thumbnails.GenerateResult(context.Background(), doc, thumbnail.Size{Width: 60, Height: 80})
	if res.Tier != thumbnail.TierRender {
		t.Fatalf("expected in-process render, got %s", res.Tier)
	}

	s.Invalidate(doc)
	if s.Documents.HasLoadedState(doc) || s.Thumbnails.Cache().Len() != 0 {
		t.Fatalf("expected invalidate to drop cached entries")
	}
	if s.Access.Outstanding() != 0 {
		t.Fatalf("expected all guards released")
	}
}

func TestCacheStatsCmd(t *testing.T) {
	s := newTestState(t)
	s.Documents.Set("/a.md", s.Documents.Get("/a.md"))

	msg := s.CacheStatsCmd()()
	stats, ok := msg.(CacheStatsMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if !strings.Contains(stats.Line, "docs 1") || !strings.Contains(stats.Line, "thumbs 0") {
		t.Fatalf("unexpected stats line %q", stats.Line)
	}
}

func TestStatusLine(t *testing.T) {
	var nilLine *StatusLine
	nilLine.Set("ignored")
	if nilLine.Get() != "" {
		t.Fatalf("expected nil status line to be empty")
	}

	line := &StatusLine{}
	line.Set("ready")
	if line.Get() != "ready" {
		t.Fatalf("expected ready, got %q", line.Get())
	}
}

func TestWatcherReportsDocumentChanges(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspaceWatcher(root)
	if err != nil {
		t.Fatalf("NewWorkspaceWatcher: %v", err)
	}
	defer w.Close()

	changed := make(chan string, 8)
	w.OnChange(func(path string) { changed <- path })

	msgs := make(chan interface{}, 8)
	go func() {
		cmd := w.Start()
		for {
			msg := cmd()
			if msg == nil {
				return
			}
			msgs <- msg
		}
	}()

	ignored := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(ignored, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc := filepath.Join(root, "guide.md")
	if err := os.WriteFile(doc, []byte("# x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case msg := <-msgs:
		changedMsg, ok := msg.(DocumentChangedMsg)
		if !ok || changedMsg.Path != doc {
			t.Fatalf("expected change for %s, got %#v", doc, msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for watcher message")
	}

	select {
	case path := <-changed:
		if path != doc {
			t.Fatalf("expected callback for %s, got %s", doc, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for change callback")
	}
}

func TestWatcherCloseRunsOnCloseOnce(t *testing.T) {
	w, err := NewWorkspaceWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspaceWatcher: %v", err)
	}

	calls := 0
	w.OnClose(func() { calls++ })

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one close callback, got %d", calls)
	}
	if msg := w.Start()(); msg != nil {
		t.Fatalf("expected closed watcher to stop, got %#v", msg)
	}
}

func TestNewWorkspaceWatcherRejectsEmptyRoot(t *testing.T) {
	if _, err := NewWorkspaceWatcher(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestSettleRunsLoopDeliveries(t *testing.T) {
	ui := dispatch.NewLoop(0)
	ui.Start()
	s, err := NewState(Options{Home: t.TempDir(), Executor: ui})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	doc := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(doc, []byte("# Notes\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var delivered int
	s.Loader.LoadAsync(doc, func(st document.State) {
		if st.Err == nil {
			delivered++
		}
	})
	s.Settle()

	if delivered != 1 {
		t.Fatalf("expected one delivery after Settle, got %d", delivered)
	}
	if !s.Documents.HasLoadedState(doc) {
		t.Fatalf("expected the loop to have written the cache")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ui.Do(func() {}); err != dispatch.ErrStopped {
		t.Fatalf("expected Close to stop the loop, got %v", err)
	}
}
