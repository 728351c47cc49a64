package state

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/access"
	"github.com/Paintersrp/folio/internal/capability"
	"github.com/Paintersrp/folio/internal/config"
	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/dispatch"
	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/logging"
	"github.com/Paintersrp/folio/internal/platform"
	"github.com/Paintersrp/folio/internal/platform/imagedoc"
	"github.com/Paintersrp/folio/internal/platform/markdoc"
	"github.com/Paintersrp/folio/internal/platform/preview"
	"github.com/Paintersrp/folio/internal/thumbnail"
	"github.com/Paintersrp/folio/internal/workspace"
)

// State wires the caches and services for one process.
type State struct {
	Config       *config.Config
	Home         string
	Logger       *zap.Logger
	Registry     *platform.Registry
	Capabilities *capability.Store
	Access       *access.Broker
	Documents    *document.Cache
	Loader       *document.Loader
	Thumbnails   *thumbnail.Generator
	Workspace    *workspace.Enumerator
	Pool         *dispatch.Pool
	Executor     dispatch.Executor
	Debounce     time.Duration
	Watcher      *WorkspaceWatcher
	Status       *StatusLine
}

// Options tune NewState.
type Options struct {
	// Home overrides the user's home directory.
	Home string
	// ConfigPath overrides the settings file location.
	ConfigPath string
	// Executor is the UI-synchronous context. Defaults to running inline. A
	// *dispatch.Loop passed here is stopped by Close.
	Executor dispatch.Executor
	// Config is used as-is when set, skipping the settings lookup.
	Config *config.Config
	// Watch starts a watcher on the workspace root when one is granted.
	Watch bool
}

func NewState(opts Options) (*State, error) {
	home := opts.Home
	if home == "" {
		var err error
		if home, err = GetHomeDir(); err != nil {
			return nil, err
		}
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = LoadConfig(home, opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	logger := logging.Named(logging.L(), constants.AppName)

	secret, err := cfg.BookmarkSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmark secret: %w", err)
	}

	debounce, err := cfg.Debounce()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.ThumbnailTimeout()
	if err != nil {
		return nil, err
	}

	executor := opts.Executor
	if executor == nil {
		executor = dispatch.Immediate{}
	}

	registry := platform.NewRegistry()
	registry.Register(imagedoc.Decoder{}, imagedoc.Extensions...)
	registry.Register(markdoc.NewDecoder(), markdoc.Extensions...)

	store := capability.NewStore(cfg, capability.NewSignedBookmarker(secret),
		capability.WithKeyPolicy(capability.ParseKeyPolicy(cfg.Capabilities.KeyPolicy)),
		capability.WithLogger(logging.Named(logger, "capability")),
	)
	broker := access.NewBroker(access.FilesystemPlatform{}, store, logging.Named(logger, "access"))
	pool := dispatch.NewPool(cfg.Documents.Workers)

	docs := document.NewCache()
	loader := document.NewLoader(docs, broker, registry,
		document.WithPool(pool),
		document.WithExecutor(executor),
		document.WithLogger(logging.Named(logger, "document")),
	)

	thumbOpts := []thumbnail.Option{
		thumbnail.WithPool(pool),
		thumbnail.WithExecutor(executor),
		thumbnail.WithTimeout(timeout),
		thumbnail.WithLogger(logging.Named(logger, "thumbnail")),
	}
	if tmpl := cfg.Thumbnails.Preview; strings.TrimSpace(tmpl.Exec) != "" {
		cmd := &preview.Command{Exec: tmpl.Exec, Args: append([]string(nil), tmpl.Args...)}
		thumbOpts = append(thumbOpts, thumbnail.WithPreviewer(cmd, min(cfg.Thumbnails.Scale, cfg.Thumbnails.MaxScale)))
	}
	thumbs := thumbnail.NewGenerator(thumbnail.NewCache(cfg.Thumbnails.Capacity), broker, registry, registry, thumbOpts...)

	s := &State{
		Config:       cfg,
		Home:         home,
		Logger:       logger,
		Registry:     registry,
		Capabilities: store,
		Access:       broker,
		Documents:    docs,
		Loader:       loader,
		Thumbnails:   thumbs,
		Workspace:    workspace.NewEnumerator(store, broker, nil, logging.Named(logger, "workspace")),
		Pool:         pool,
		Executor:     executor,
		Debounce:     debounce,
		Status:       &StatusLine{},
	}

	if opts.Watch {
		if err := s.StartWatcher(); err != nil {
			logger.Warn("workspace watcher unavailable", zap.Error(err))
		}
	}

	return s, nil
}

// StartWatcher watches the granted workspace and invalidates caches on change.
func (s *State) StartWatcher() error {
	if s.Watcher != nil {
		return nil
	}
	ws, err := s.Capabilities.ResolveWorkspace()
	if err != nil {
		return err
	}

	watcher, err := NewWorkspaceWatcher(ws.RootPath)
	if err != nil {
		return err
	}
	watcher.OnChange(func(path string) {
		s.Executor.Post(func() { s.Invalidate(path) })
	})
	watcher.OnRootGone(func() {
		s.Executor.Post(func() {
			// Resolution notices the missing root and discards the token.
			if _, err := s.Capabilities.ResolveWorkspace(); errors.Is(err, capability.ErrStale) {
				s.Status.Set("workspace moved or removed; grant it again")
			}
		})
	})
	s.Watcher = watcher
	return nil
}

// Invalidate drops cached state and thumbnails for path.
func (s *State) Invalidate(path string) {
	s.Documents.Clear(path)
	s.Thumbnails.Invalidate(path)
}

// OpenSession starts a viewer session on a loaded document state.
func (s *State) OpenSession(st document.State) (*document.Session, error) {
	return document.NewSession(s.Documents, st,
		document.WithDebounce(s.Debounce),
		document.WithSessionExecutor(s.Executor),
	)
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

// LoadConfig reads settings from configPath, or from the default location
// under home.
func LoadConfig(home, configPath string) (*config.Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(home + constants.ConfigDir)
		viper.SetConfigName(constants.ConfigFile)
		viper.SetConfigType(constants.ConfigFileType)
	}
	_ = viper.ReadInConfig()

	if configPath != "" {
		return config.LoadFile(configPath)
	}

	if err := config.EnsureConfigExists(home); err != nil {
		return nil, err
	}
	return config.Load(home)
}

// Settle waits for background loads and thumbnails, then for the deliveries
// they posted to the executor.
func (s *State) Settle() {
	s.Pool.Wait()
	if loop, ok := s.Executor.(*dispatch.Loop); ok {
		_ = loop.Do(func() {})
	}
}

// Close releases the watcher and waits for background work.
func (s *State) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.Watcher != nil {
		if err := s.Watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Watcher = nil
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	if loop, ok := s.Executor.(*dispatch.Loop); ok {
		loop.Stop()
	}
	if s.Config != nil {
		if err := s.Config.Save(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
