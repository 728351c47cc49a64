package workspace

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

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
	cmd := NewCmdWorkspace(s)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGrantListAndRevoke(t *testing.T) {
	s := newTestState(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"a.md", filepath.Join("sub", "b.png"), "skip.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if out, err := run(t, s, "grant", root); err != nil || !strings.Contains(out, root) {
		t.Fatalf("grant: %q %v", out, err)
	}

	out, err := run(t, s, "status")
	if err != nil || !strings.Contains(out, "Workspace: "+root) {
		t.Fatalf("status: %q %v", out, err)
	}

	out, err = run(t, s, "files")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if !strings.Contains(out, "a.md") || !strings.Contains(out, "sub/b.png") || strings.Contains(out, "skip.txt") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if s.Config.FileTokenCount() != 2 {
		t.Fatalf("expected enumeration to grant two files, got %d", s.Config.FileTokenCount())
	}

	if _, err := run(t, s, "revoke", "--all"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if s.Workspace.Status().Configured || s.Config.FileTokenCount() != 0 {
		t.Fatalf("expected workspace and file grants cleared")
	}
	if out, _ := run(t, s, "files"); !strings.Contains(out, "No documents found") {
		t.Fatalf("expected empty listing after revoke, got %q", out)
	}
}

func TestGrantRequiresForceToReplace(t *testing.T) {
	s := newTestState(t)
	first, second := t.TempDir(), t.TempDir()

	if _, err := run(t, s, "grant", first); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := run(t, s, "grant", second); err == nil {
		t.Fatalf("expected replacing without --force to fail")
	}
	if _, err := run(t, s, "grant", first); err != nil {
		t.Fatalf("regranting the same root should succeed: %v", err)
	}
	if _, err := run(t, s, "grant", "--force", second); err != nil {
		t.Fatalf("grant --force: %v", err)
	}
	if got := s.Workspace.Status().Root; got != second {
		t.Fatalf("expected root %q, got %q", second, got)
	}
}

func TestGrantRejectsFiles(t *testing.T) {
	s := newTestState(t)
	file := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := run(t, s, "grant", file); err == nil {
		t.Fatalf("expected error granting a file")
	}
	if _, err := run(t, s); err != nil {
		t.Fatalf("bare workspace command should print help: %v", err)
	}
}

func TestStatusWithoutWorkspace(t *testing.T) {
	s := newTestState(t)
	out, err := run(t, s, "status")
	if err != nil || !strings.Contains(out, "No workspace configured") {
		t.Fatalf("status: %q %v", out, err)
	}
}
