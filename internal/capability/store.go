// Package capability persists and resolves revocable access tokens for the
// workspace root and for individual files inside it.
package capability

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/metrics"
	"github.com/Paintersrp/folio/internal/pathutil"
)

// WorkspaceCapability is the grant for the designated workspace root.
type WorkspaceCapability struct {
	RootPath string
	Token    string
	Stale    bool
}

// FileCapability is the grant for one file inside the workspace.
type FileCapability struct {
	Key   string
	Path  string
	Token string
}

// KeyPolicy decides how per-file tokens are keyed in settings.
type KeyPolicy int

const (
	// KeyByName keys tokens by base file name. Same-named files in
	// different directories share a slot.
	KeyByName KeyPolicy = iota
	// KeyByPath keys tokens by the full resolved path.
	KeyByPath
)

// Key returns the settings key for path.
func (p KeyPolicy) Key(path string) string {
	if p == KeyByPath {
		return path
	}
	return filepath.Base(path)
}

func (p KeyPolicy) String() string {
	if p == KeyByPath {
		return "path"
	}
	return "name"
}

// ParseKeyPolicy maps a settings value to a policy, defaulting to KeyByName.
func ParseKeyPolicy(value string) KeyPolicy {
	if strings.EqualFold(strings.TrimSpace(value), "path") {
		return KeyByPath
	}
	return KeyByName
}

// Settings is the persisted token storage the store reads and writes.
type Settings interface {
	WorkspaceToken() (root string, token string)
	SetWorkspaceToken(root, token string) error
	ClearWorkspaceToken() error
	FileToken(key string) (string, bool)
	SetFileToken(key, token string) error
	DeleteFileToken(key string) error
}

type batcher interface {
	Batch(fn func() error) error
}

// Store owns capability tokens. It is safe for concurrent use.
type Store struct {
	settings   Settings
	bookmarker Bookmarker
	policy     KeyPolicy
	logger     *zap.Logger

	mu sync.Mutex
}

type Option func(*Store)

func WithKeyPolicy(policy KeyPolicy) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore constructs a store backed by settings and bookmarker.
func NewStore(settings Settings, bookmarker Bookmarker, opts ...Option) *Store {
	s := &Store{
		settings:   settings,
		bookmarker: bookmarker,
		policy:     KeyByName,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active key policy.
func (s *Store) Policy() KeyPolicy {
	return s.policy
}

// GrantWorkspace designates root as the workspace, replacing any previous
// designation.
func (s *Store) GrantWorkspace(root string) (WorkspaceCapability, error) {
	abs, err := pathutil.Absolute(root)
	if err != nil || abs == "" {
		if err == nil {
			err = errors.New("path must be provided")
		}
		return WorkspaceCapability{}, &CapabilityError{Op: "create", Path: root, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.bookmarker.Create(abs, ScopeWorkspace)
	if err != nil {
		return WorkspaceCapability{}, &CapabilityError{Op: "create", Path: abs, Err: err}
	}
	if err := s.settings.SetWorkspaceToken(abs, token); err != nil {
		return WorkspaceCapability{}, err
	}

	s.logger.Info("workspace granted", zap.String("root", abs))
	return WorkspaceCapability{RootPath: abs, Token: token}, nil
}

// ResolveWorkspace returns the persisted workspace grant. A stale token is
// cleared from settings and reported with ErrStale alongside a capability
// whose Stale flag is set.
func (s *Store) ResolveWorkspace() (WorkspaceCapability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveWorkspaceLocked()
}

func (s *Store) resolveWorkspaceLocked() (WorkspaceCapability, error) {
	root, token := s.settings.WorkspaceToken()
	if token == "" {
		return WorkspaceCapability{RootPath: root}, ErrNotConfigured
	}

	res, err := s.bookmarker.Resolve(token)
	if err != nil {
		return WorkspaceCapability{RootPath: root}, &CapabilityError{Op: "resolve", Path: root, Err: err}
	}

	if res.Stale {
		if err := s.settings.ClearWorkspaceToken(); err != nil {
			s.logger.Warn("failed to clear stale workspace token", zap.Error(err))
		}
		metrics.RecordStaleCapability(string(ScopeWorkspace))
		s.logger.Warn("workspace capability is stale", zap.String("root", res.Path))
		return WorkspaceCapability{RootPath: res.Path, Stale: true}, ErrStale
	}

	return WorkspaceCapability{RootPath: res.Path, Token: token}, nil
}

// GrantFile creates a token for path. The workspace must resolve and contain
// path.
// Batch runs fn with token writes persisted once at the end when the
// settings support deferred saves.
func (s *Store) Batch(fn func() error) error {
	if b, ok := s.settings.(batcher); ok {
		return b.Batch(fn)
	}
	return fn()
}

func (s *Store) GrantFile(path string) (FileCapability, error) {
	abs, err := pathutil.Absolute(path)
	if err != nil || abs == "" {
		if err == nil {
			err = errors.New("path must be provided")
		}
		return FileCapability{}, &CapabilityError{Op: "create", Path: path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.resolveWorkspaceLocked()
	if err != nil {
		return FileCapability{}, err
	}
	if !pathutil.Within(ws.RootPath, abs) {
		return FileCapability{}, &CapabilityError{Op: "create", Path: abs, Err: ErrOutsideWorkspace}
	}

	token, err := s.bookmarker.Create(abs, ScopeFile)
	if err != nil {
		return FileCapability{}, &CapabilityError{Op: "create", Path: abs, Err: err}
	}

	key := s.policy.Key(abs)
	if err := s.settings.SetFileToken(key, token); err != nil {
		return FileCapability{}, err
	}
	return FileCapability{Key: key, Path: abs, Token: token}, nil
}

// ResolveFile returns the stored grant for path. A stale token is deleted
// and reported with ErrStale.
func (s *Store) ResolveFile(path string) (FileCapability, error) {
	abs, err := pathutil.Absolute(path)
	if err != nil || abs == "" {
		return FileCapability{}, ErrNoCapability
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.policy.Key(abs)
	token, ok := s.settings.FileToken(key)
	if !ok {
		return FileCapability{}, ErrNoCapability
	}

	res, err := s.bookmarker.Resolve(token)
	if err != nil {
		return FileCapability{}, &CapabilityError{Op: "resolve", Path: abs, Err: err}
	}

	if res.Stale {
		if err := s.settings.DeleteFileToken(key); err != nil {
			s.logger.Warn("failed to delete stale file token", zap.String("key", key), zap.Error(err))
		}
		metrics.RecordStaleCapability(string(ScopeFile))
		return FileCapability{}, ErrStale
	}

	// Under name keying another directory's file may own the slot.
	if res.Path != abs {
		s.logger.Debug("file token belongs to another path",
			zap.String("key", key),
			zap.String("requested", abs),
			zap.String("owner", res.Path),
		)
		return FileCapability{}, ErrNoCapability
	}

	return FileCapability{Key: key, Path: res.Path, Token: token}, nil
}

// RevokeWorkspace forgets the workspace token.
func (s *Store) RevokeWorkspace() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.ClearWorkspaceToken()
}

// RevokeFile forgets the token stored for path.
func (s *Store) RevokeFile(path string) error {
	abs, err := pathutil.Absolute(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.DeleteFileToken(s.policy.Key(abs))
}
