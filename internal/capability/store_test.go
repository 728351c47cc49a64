package capability_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Paintersrp/folio/internal/capability"
	"github.com/Paintersrp/folio/internal/config"
)

func newStore(t *testing.T, opts ...capability.Option) (*capability.Store, *config.Config) {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "settings.yaml"))
	secret, err := cfg.BookmarkSecret()
	if err != nil {
		t.Fatalf("BookmarkSecret: %v", err)
	}
	return capability.NewStore(cfg, capability.NewSignedBookmarker(secret), opts...), cfg
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveWorkspaceNotConfigured(t *testing.T) {
	store, _ := newStore(t)

	if _, err := store.ResolveWorkspace(); !errors.Is(err, capability.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGrantAndResolveWorkspace(t *testing.T) {
	store, cfg := newStore(t)
	root := t.TempDir()

	granted, err := store.GrantWorkspace(root)
	if err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}
	if granted.RootPath != root || granted.Token == "" {
		t.Fatalf("unexpected capability %+v", granted)
	}

	resolved, err := store.ResolveWorkspace()
	if err != nil {
		t.Fatalf("ResolveWorkspace: %v", err)
	}
	if resolved.RootPath != root || resolved.Stale {
		t.Fatalf("unexpected resolved capability %+v", resolved)
	}

	if persistedRoot, token := cfg.WorkspaceToken(); persistedRoot != root || token != granted.Token {
		t.Fatalf("expected settings to hold the grant, got %q/%q", persistedRoot, token)
	}
}

func TestGrantWorkspaceRejectsMissingPath(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.GrantWorkspace(filepath.Join(t.TempDir(), "missing"))
	var capErr *capability.CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
	if capErr.Op != "create" {
		t.Fatalf("expected create op, got %q", capErr.Op)
	}
}

func TestGrantWorkspaceRejectsFile(t *testing.T) {
	store, _ := newStore(t)
	file := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, file)

	if _, err := store.GrantWorkspace(file); err == nil {
		t.Fatalf("expected error granting a file as workspace")
	}
}

func TestStaleWorkspaceClearsToken(t *testing.T) {
	store, cfg := newStore(t)
	root := filepath.Join(t.TempDir(), "workspace")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := store.GrantWorkspace(root); err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}
	if err := os.Rename(root, root+"-moved"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	resolved, err := store.ResolveWorkspace()
	if !errors.Is(err, capability.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if !resolved.Stale {
		t.Fatalf("expected capability to be marked stale")
	}
	if _, token := cfg.WorkspaceToken(); token != "" {
		t.Fatalf("expected stale token to be cleared, got %q", token)
	}

	// Staleness is reported once; afterwards the workspace is simply unset.
	if _, err := store.ResolveWorkspace(); !errors.Is(err, capability.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured after clearing, got %v", err)
	}
}

func TestGrantFileRequiresWorkspace(t *testing.T) {
	store, _ := newStore(t)
	file := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, file)

	if _, err := store.GrantFile(file); !errors.Is(err, capability.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGrantFileRejectsOutsideWorkspace(t *testing.T) {
	store, _ := newStore(t)
	if _, err := store.GrantWorkspace(t.TempDir()); err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}
	outside := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, outside)

	if _, err := store.GrantFile(outside); !errors.Is(err, capability.ErrOutsideWorkspace) {
		t.Fatalf("expected ErrOutsideWorkspace, got %v", err)
	}
}

func TestGrantResolveAndStaleFile(t *testing.T) {
	store, cfg := newStore(t)
	root := t.TempDir()
	file := filepath.Join(root, "sub", "doc.pdf")
	writeFile(t, file)

	if _, err := store.GrantWorkspace(root); err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}

	if _, err := store.ResolveFile(file); !errors.Is(err, capability.ErrNoCapability) {
		t.Fatalf("expected ErrNoCapability before grant, got %v", err)
	}

	granted, err := store.GrantFile(file)
	if err != nil {
		t.Fatalf("GrantFile: %v", err)
	}
	if granted.Key != "doc.pdf" {
		t.Fatalf("expected name key, got %q", granted.Key)
	}

	resolved, err := store.ResolveFile(file)
	if err != nil {
		t.Fatalf("ResolveFile: %v", err)
	}
	if resolved.Path != file || resolved.Token != granted.Token {
		t.Fatalf("unexpected resolved capability %+v", resolved)
	}

	if err := os.Remove(file); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.ResolveFile(file); !errors.Is(err, capability.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if _, ok := cfg.FileToken("doc.pdf"); ok {
		t.Fatalf("expected stale file token to be deleted")
	}
}

func TestKeyPolicies(t *testing.T) {
	tests := []struct {
		name          string
		policy        capability.KeyPolicy
		secondResolve bool
	}{
		{name: "by name shares a slot", policy: capability.KeyByName, secondResolve: false},
		{name: "by path keeps both", policy: capability.KeyByPath, secondResolve: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t, capability.WithKeyPolicy(tt.policy))
			root := t.TempDir()
			first := filepath.Join(root, "a", "report.pdf")
			second := filepath.Join(root, "b", "report.pdf")
			writeFile(t, first)
			writeFile(t, second)

			if _, err := store.GrantWorkspace(root); err != nil {
				t.Fatalf("GrantWorkspace: %v", err)
			}
			if _, err := store.GrantFile(first); err != nil {
				t.Fatalf("GrantFile first: %v", err)
			}

			if _, err := store.ResolveFile(first); err != nil {
				t.Fatalf("ResolveFile first: %v", err)
			}

			_, err := store.ResolveFile(second)
			if tt.secondResolve {
				if !errors.Is(err, capability.ErrNoCapability) {
					t.Fatalf("expected ErrNoCapability before granting second, got %v", err)
				}
				if _, err := store.GrantFile(second); err != nil {
					t.Fatalf("GrantFile second: %v", err)
				}
				if _, err := store.ResolveFile(second); err != nil {
					t.Fatalf("ResolveFile second: %v", err)
				}
				if _, err := store.ResolveFile(first); err != nil {
					t.Fatalf("first grant lost: %v", err)
				}
				return
			}
			if !errors.Is(err, capability.ErrNoCapability) {
				t.Fatalf("expected another path's token to be refused, got %v", err)
			}
		})
	}
}

func TestResolveRejectsForeignSignature(t *testing.T) {
	store, cfg := newStore(t)
	root := t.TempDir()
	if _, err := store.GrantWorkspace(root); err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}

	foreign := capability.NewSignedBookmarker([]byte("another-secret"))
	token, err := foreign.Create(root, capability.ScopeWorkspace)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := cfg.SetWorkspaceToken(root, token); err != nil {
		t.Fatalf("SetWorkspaceToken: %v", err)
	}

	_, err = store.ResolveWorkspace()
	var capErr *capability.CapabilityError
	if !errors.As(err, &capErr) || capErr.Op != "resolve" {
		t.Fatalf("expected resolve CapabilityError, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	store, _ := newStore(t)
	root := t.TempDir()
	file := filepath.Join(root, "doc.md")
	writeFile(t, file)

	if _, err := store.GrantWorkspace(root); err != nil {
		t.Fatalf("GrantWorkspace: %v", err)
	}
	if _, err := store.GrantFile(file); err != nil {
		t.Fatalf("GrantFile: %v", err)
	}

	if err := store.RevokeFile(file); err != nil {
		t.Fatalf("RevokeFile: %v", err)
	}
	if _, err := store.ResolveFile(file); !errors.Is(err, capability.ErrNoCapability) {
		t.Fatalf("expected ErrNoCapability after revoke, got %v", err)
	}

	if err := store.RevokeWorkspace(); err != nil {
		t.Fatalf("RevokeWorkspace: %v", err)
	}
	if _, err := store.ResolveWorkspace(); !errors.Is(err, capability.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured after revoke, got %v", err)
	}
}

func TestParseKeyPolicy(t *testing.T) {
	if capability.ParseKeyPolicy("PATH") != capability.KeyByPath {
		t.Fatalf("expected path policy")
	}
	if capability.ParseKeyPolicy("") != capability.KeyByName {
		t.Fatalf("expected name policy by default")
	}
}
