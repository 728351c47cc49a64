// Package workspace enumerates the documents under the granted workspace
// root, granting per-file capabilities as it goes.
package workspace

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/capability"
	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/pathutil"
)

// CapabilityStore is the subset of capability.Store used for enumeration.
type CapabilityStore interface {
	ResolveWorkspace() (capability.WorkspaceCapability, error)
	ResolveFile(path string) (capability.FileCapability, error)
	GrantFile(path string) (capability.FileCapability, error)
	Batch(fn func() error) error
}

// WorkspaceAccess brackets work on the workspace root.
type WorkspaceAccess interface {
	WithWorkspace(ws capability.WorkspaceCapability, fn func(root string) error) error
}

// File is one enumerated document.
type File struct {
	Path    string
	Rel     string
	Name    string
	Size    int64
	ModTime time.Time
	Granted bool
}

// Status describes the workspace designation.
type Status struct {
	Root       string
	Configured bool
	Stale      bool
	Err        error
}

type Enumerator struct {
	store  CapabilityStore
	access WorkspaceAccess
	exts   []string
	logger *zap.Logger
}

// NewEnumerator lists files with the given extensions. A nil exts uses
// constants.DocumentExtensions.
func NewEnumerator(store CapabilityStore, access WorkspaceAccess, exts []string, logger *zap.Logger) *Enumerator {
	if len(exts) == 0 {
		exts = constants.DocumentExtensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enumerator{store: store, access: access, exts: exts, logger: logger}
}

// Status resolves the workspace without enumerating it.
func (e *Enumerator) Status() Status {
	ws, err := e.store.ResolveWorkspace()
	st := Status{Root: ws.RootPath, Stale: ws.Stale}
	switch {
	case err == nil:
		st.Configured = true
	case errors.Is(err, capability.ErrNotConfigured):
	default:
		st.Err = err
	}
	return st
}

// Files lists documents under the workspace. A missing, stale or
// unresolvable workspace yields an empty list, not an error.
func (e *Enumerator) Files(ctx context.Context) ([]File, error) {
	ws, err := e.store.ResolveWorkspace()
	if err != nil {
		if !errors.Is(err, capability.ErrNotConfigured) {
			e.logger.Warn("workspace unavailable", zap.String("root", ws.RootPath), zap.Error(err))
		}
		return []File{}, nil
	}

	files := []File{}
	saveErr := e.store.Batch(func() error {
		err = e.walk(ctx, ws, &files)
		return nil
	})
	if saveErr != nil {
		e.logger.Warn("failed to save file grants", zap.Error(saveErr))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		e.logger.Warn("workspace enumeration failed", zap.String("root", ws.RootPath), zap.Error(err))
		return []File{}, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

// walk collects documents under the workspace root, granting each one.
func (e *Enumerator) walk(ctx context.Context, ws capability.WorkspaceCapability, files *[]File) error {
	return e.access.WithWorkspace(ws, func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				e.logger.Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), constants.SidecarSuffix) || !pathutil.HasExtension(path, e.exts) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			rel, err := pathutil.WorkspaceRelative(root, path)
			if err != nil {
				return nil
			}
			*files = append(*files, File{
				Path:    path,
				Rel:     rel,
				Name:    d.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Granted: e.ensureGrant(path),
			})
			return nil
		})
	})
}

// ensureGrant reuses a valid token and creates one otherwise.
func (e *Enumerator) ensureGrant(path string) bool {
	if _, err := e.store.ResolveFile(path); err == nil {
		return true
	}
	if _, err := e.store.GrantFile(path); err != nil {
		e.logger.Debug("file grant failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
