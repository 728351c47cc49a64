// Package access brackets every byte read of a sandboxed path with a
// scoped grant that is released on all exit paths.
package access

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/capability"
	"github.com/Paintersrp/folio/internal/metrics"
	"github.com/Paintersrp/folio/internal/pathutil"
)

// ErrAccessDenied is returned when no grant could be obtained for a path.
var ErrAccessDenied = errors.New("access denied")

// Platform starts and stops elevated access to a path.
type Platform interface {
	StartAccessing(path string) bool
	StopAccessing(path string)
}

// FileResolver looks up stored file capabilities.
type FileResolver interface {
	ResolveFile(path string) (capability.FileCapability, error)
}

const (
	sourceCapability = "capability"
	sourceDirect     = "direct"
	sourceWorkspace  = "workspace"
)

// Broker hands out guards and tracks how many are held.
type Broker struct {
	platform Platform
	resolver FileResolver
	logger   *zap.Logger

	outstanding atomic.Int64
}

// NewBroker builds a broker. resolver may be nil, in which case every file
// acquisition goes straight to the raw path.
func NewBroker(platform Platform, resolver FileResolver, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		platform: platform,
		resolver: resolver,
		logger:   logger,
	}
}

// Guard holds access to one path until released.
type Guard struct {
	path   string
	source string
	broker *Broker
	once   sync.Once
}

// Path is the path the guard grants access to.
func (g *Guard) Path() string {
	return g.path
}

// Source reports how the guard was obtained.
func (g *Guard) Source() string {
	return g.source
}

// Release gives up access. Extra calls do nothing.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		g.broker.platform.StopAccessing(g.path)
		n := g.broker.outstanding.Add(-1)
		metrics.SetGuardsOutstanding(n)
	})
}

func (b *Broker) newGuard(path, source string) *Guard {
	n := b.outstanding.Add(1)
	metrics.SetGuardsOutstanding(n)
	metrics.RecordAccess(source)
	return &Guard{path: path, source: source, broker: b}
}

// Outstanding returns the number of guards acquired and not yet released.
func (b *Broker) Outstanding() int {
	return int(b.outstanding.Load())
}

// AcquireWorkspace starts access to the workspace root. Stale or tokenless
// capabilities are refused.
func (b *Broker) AcquireWorkspace(ws capability.WorkspaceCapability) (*Guard, error) {
	if ws.Stale || ws.Token == "" || ws.RootPath == "" {
		return nil, fmt.Errorf("%w: workspace %q has no valid capability", ErrAccessDenied, ws.RootPath)
	}
	if !b.platform.StartAccessing(ws.RootPath) {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, ws.RootPath)
	}
	return b.newGuard(ws.RootPath, sourceWorkspace), nil
}

// AcquireFile starts access to path using its stored capability, falling
// back to a direct attempt on the raw path when none is usable.
func (b *Broker) AcquireFile(path string) (*Guard, error) {
	abs, err := pathutil.Absolute(path)
	if err != nil || abs == "" {
		return nil, fmt.Errorf("%w: %q", ErrAccessDenied, path)
	}

	if b.resolver != nil {
		fc, err := b.resolver.ResolveFile(abs)
		switch {
		case err == nil:
			if b.platform.StartAccessing(fc.Path) {
				return b.newGuard(fc.Path, sourceCapability), nil
			}
			b.logger.Debug("capability did not grant access", zap.String("path", abs))
		case errors.Is(err, capability.ErrNoCapability):
		default:
			b.logger.Debug("file capability unusable, trying raw path",
				zap.String("path", abs),
				zap.Error(err),
			)
		}
	}

	if b.platform.StartAccessing(abs) {
		return b.newGuard(abs, sourceDirect), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAccessDenied, abs)
}

// WithFile runs fn while holding access to path. The guard is released when
// fn returns or panics.
func (b *Broker) WithFile(path string, fn func(resolved string) error) error {
	guard, err := b.AcquireFile(path)
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn(guard.Path())
}

// WithWorkspace runs fn while holding access to the workspace root.
func (b *Broker) WithWorkspace(ws capability.WorkspaceCapability, fn func(root string) error) error {
	guard, err := b.AcquireWorkspace(ws)
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn(guard.Path())
}
