package open

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/state"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()
	s, err := state.NewState(state.Options{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func run(t *testing.T, s *state.State, args ...string) (string, error) {
	t.Helper()
	cmd := NewCmdOpen(s)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOpenPlainPrintsSummary(t *testing.T) {
	s := newTestState(t)
	doc := filepath.Join(t.TempDir(), "guide.md")
	if err := os.WriteFile(doc, []byte("# One\n\n---\n\n# Two\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := run(t, s, doc, "--page", "2", "--zoom", "1.5", "--mode", "two-up")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, want := range []string{"pages:   2", "page:    2", "zoom:    150%", "mode:    two-up", "outline: 2 entries"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
	if !slices.Contains(s.Config.Recents(), doc) {
		t.Fatalf("expected %s recorded as recent", doc)
	}
	if got := s.Documents.Get(doc); got.PageIndex != 1 || got.Mode != document.ModeTwoUp {
		t.Fatalf("expected view state flushed to cache, got %+v", got)
	}
}

func TestOpenReportsUserMessage(t *testing.T) {
	s := newTestState(t)
	doc := filepath.Join(t.TempDir(), "missing.md")

	_, err := run(t, s, doc)
	if err == nil {
		t.Fatalf("expected error for missing document")
	}
	if !strings.Contains(err.Error(), "missing.md") {
		t.Fatalf("expected file name in error, got %v", err)
	}
}

func TestOpenRejectsBadFlags(t *testing.T) {
	s := newTestState(t)
	doc := filepath.Join(t.TempDir(), "guide.md")
	if err := os.WriteFile(doc, []byte("# One\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := map[string][]string{
		"unknown mode":  {doc, "--mode", "spread"},
		"negative zoom": {doc, "--zoom=-1"},
		"page too far":  {doc, "--page", "4"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, s, args...); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}
