package access_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Paintersrp/folio/internal/access"
	"github.com/Paintersrp/folio/internal/capability"
)

type recordingPlatform struct {
	mu      sync.Mutex
	allow   map[string]bool
	started []string
	stopped []string
}

func newRecordingPlatform(allowed ...string) *recordingPlatform {
	p := &recordingPlatform{allow: make(map[string]bool)}
	for _, path := range allowed {
		p.allow[path] = true
	}
	return p
}

func (p *recordingPlatform) StartAccessing(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.allow[path] {
		return false
	}
	p.started = append(p.started, path)
	return true
}

func (p *recordingPlatform) StopAccessing(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = append(p.stopped, path)
}

type stubResolver struct {
	cap capability.FileCapability
	err error
}

func (r stubResolver) ResolveFile(string) (capability.FileCapability, error) {
	return r.cap, r.err
}

func TestReleaseIsIdempotent(t *testing.T) {
	platform := newRecordingPlatform("/docs/a.pdf")
	broker := access.NewBroker(platform, nil, nil)

	guard, err := broker.AcquireFile("/docs/a.pdf")
	if err != nil {
		t.Fatalf("AcquireFile: %v", err)
	}
	if broker.Outstanding() != 1 {
		t.Fatalf("expected one outstanding guard, got %d", broker.Outstanding())
	}

	guard.Release()
	guard.Release()

	if broker.Outstanding() != 0 {
		t.Fatalf("expected no outstanding guards, got %d", broker.Outstanding())
	}
	if len(platform.stopped) != 1 {
		t.Fatalf("expected one stop, got %d", len(platform.stopped))
	}
}

func TestNilGuardReleaseDoesNotPanic(t *testing.T) {
	var guard *access.Guard
	guard.Release()
}

func TestAcquireFilePrefersCapability(t *testing.T) {
	platform := newRecordingPlatform("/docs/a.pdf")
	resolver := stubResolver{cap: capability.FileCapability{Key: "a.pdf", Path: "/docs/a.pdf", Token: "t"}}
	broker := access.NewBroker(platform, resolver, nil)

	guard, err := broker.AcquireFile("/docs/a.pdf")
	if err != nil {
		t.Fatalf("AcquireFile: %v", err)
	}
	defer guard.Release()

	if guard.Source() != "capability" {
		t.Fatalf("expected capability source, got %q", guard.Source())
	}
}

func TestAcquireFileFallsBackToRawPath(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "no capability", err: capability.ErrNoCapability},
		{name: "stale capability", err: capability.ErrStale},
		{name: "broken capability", err: &capability.CapabilityError{Op: "resolve", Err: errors.New("bad signature")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			platform := newRecordingPlatform("/docs/a.pdf")
			broker := access.NewBroker(platform, stubResolver{err: tt.err}, nil)

			guard, err := broker.AcquireFile("/docs/a.pdf")
			if err != nil {
				t.Fatalf("AcquireFile: %v", err)
			}
			defer guard.Release()

			if guard.Source() != "direct" {
				t.Fatalf("expected direct source, got %q", guard.Source())
			}
		})
	}
}

func TestAcquireFileDenied(t *testing.T) {
	broker := access.NewBroker(newRecordingPlatform(), stubResolver{err: capability.ErrNoCapability}, nil)

	if _, err := broker.AcquireFile("/docs/a.pdf"); !errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if broker.Outstanding() != 0 {
		t.Fatalf("expected no outstanding guards after denial")
	}
}

func TestWithFileReleasesOnEveryExit(t *testing.T) {
	platform := newRecordingPlatform("/docs/a.pdf")
	broker := access.NewBroker(platform, nil, nil)

	if err := broker.WithFile("/docs/a.pdf", func(string) error { return nil }); err != nil {
		t.Fatalf("WithFile success: %v", err)
	}

	failure := errors.New("decode failed")
	if err := broker.WithFile("/docs/a.pdf", func(string) error { return failure }); !errors.Is(err, failure) {
		t.Fatalf("expected fn error, got %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = broker.WithFile("/docs/a.pdf", func(string) error { panic("boom") })
	}()

	if broker.Outstanding() != 0 {
		t.Fatalf("expected every guard released, %d outstanding", broker.Outstanding())
	}
	if len(platform.started) != 3 || len(platform.stopped) != 3 {
		t.Fatalf("expected 3 paired acquisitions, got %d starts and %d stops", len(platform.started), len(platform.stopped))
	}
}

func TestWithWorkspace(t *testing.T) {
	platform := newRecordingPlatform("/docs")
	broker := access.NewBroker(platform, nil, nil)

	var seen string
	ws := capability.WorkspaceCapability{RootPath: "/docs", Token: "t"}
	if err := broker.WithWorkspace(ws, func(root string) error {
		seen = root
		return nil
	}); err != nil {
		t.Fatalf("WithWorkspace: %v", err)
	}
	if seen != "/docs" {
		t.Fatalf("expected root /docs, got %q", seen)
	}

	stale := capability.WorkspaceCapability{RootPath: "/docs", Stale: true}
	if err := broker.WithWorkspace(stale, func(string) error { return nil }); !errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("expected stale workspace to be denied, got %v", err)
	}
	if broker.Outstanding() != 0 {
		t.Fatalf("expected no outstanding guards")
	}
}

func TestFilesystemPlatform(t *testing.T) {
	file := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(file, []byte("# doc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var platform access.FilesystemPlatform
	if !platform.StartAccessing(file) {
		t.Fatalf("expected readable file to be accessible")
	}
	platform.StopAccessing(file)

	if platform.StartAccessing(file + ".missing") {
		t.Fatalf("expected missing file to be refused")
	}
}
