package fzf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/Paintersrp/folio/internal/access"
)

type denyAll struct{}

func (denyAll) StartAccessing(string) bool { return false }
func (denyAll) StopAccessing(string)       {}

func newBroker() *access.Broker {
	return access.NewBroker(access.FilesystemPlatform{}, nil, nil)
}

func TestItemsFromPaths(t *testing.T) {
	items := ItemsFromPaths("/docs", []string{"/docs/a/b.pdf", "/elsewhere/c.md"})

	if items[0].Label != "a/b.pdf" {
		t.Fatalf("expected workspace-relative label, got %q", items[0].Label)
	}
	if items[1].Label != "c.md" {
		t.Fatalf("expected base name for outside path, got %q", items[1].Label)
	}
}

func TestRunReturnsSelectedPath(t *testing.T) {
	f := NewFuzzyFinder(newBroker(), []Item{{Path: "/a.md", Label: "a"}, {Path: "/b.md", Label: "b", Detail: "recent"}}, "Pick")

	var labels []string
	f.find = func(items []Item, label func(int) string, _ ...fuzzyfinder.Option) (int, error) {
		for i := range items {
			labels = append(labels, label(i))
		}
		return 1, nil
	}

	path, err := f.Run()
	if err != nil || path != "/b.md" {
		t.Fatalf("expected /b.md, got %q (%v)", path, err)
	}
	if labels[1] != "b [recent]" {
		t.Fatalf("unexpected label %q", labels[1])
	}
}

func TestRunMapsAbort(t *testing.T) {
	f := NewFuzzyFinder(newBroker(), []Item{{Path: "/a.md"}}, "")
	f.find = func([]Item, func(int) string, ...fuzzyfinder.Option) (int, error) {
		return -1, fuzzyfinder.ErrAbort
	}

	if _, err := f.Run(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	empty := NewFuzzyFinder(newBroker(), nil, "")
	if _, err := empty.Run(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection for empty list, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(md, []byte("# Guide\n\nSome text."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	img := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(img, []byte("not really"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	broker := newBroker()
	if out := Preview(broker, md, 80); !strings.Contains(out, "Guide") {
		t.Fatalf("expected rendered markdown, got %q", out)
	}
	if out := Preview(broker, img, 80); !strings.Contains(out, "PNG") || !strings.Contains(out, "10 bytes") {
		t.Fatalf("expected summary, got %q", out)
	}
	if out := Preview(broker, filepath.Join(dir, "missing.md"), 80); out != "Error reading file" {
		t.Fatalf("expected error text, got %q", out)
	}
}

func TestPreviewRequiresAccess(t *testing.T) {
	md := filepath.Join(t.TempDir(), "secret.md")
	if err := os.WriteFile(md, []byte("# Secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	denied := access.NewBroker(denyAll{}, nil, nil)
	if out := Preview(denied, md, 80); out != "Error reading file" {
		t.Fatalf("expected denied preview, got %q", out)
	}
	if denied.Outstanding() != 0 {
		t.Fatalf("expected no outstanding guards, got %d", denied.Outstanding())
	}
}
