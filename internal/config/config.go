package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/recent"
)

// CommandTemplate describes an external command invocation.
type CommandTemplate struct {
	Exec string   `yaml:"exec" json:"exec"`
	Args []string `yaml:"args" json:"args"`
}

type WorkspaceSettings struct {
	Root  string `yaml:"root"  json:"root"`
	Token string `yaml:"token" json:"token"`
}

type CapabilitySettings struct {
	KeyPolicy  string            `yaml:"key_policy"  json:"key_policy"`
	Secret     string            `yaml:"secret"      json:"secret"`
	FileTokens map[string]string `yaml:"file_tokens" json:"file_tokens"`
}

type ThumbnailSettings struct {
	Capacity int             `yaml:"capacity"  json:"capacity"`
	Timeout  string          `yaml:"timeout"   json:"timeout"`
	Scale    float64         `yaml:"scale"     json:"scale"`
	MaxScale float64         `yaml:"max_scale" json:"max_scale"`
	Preview  CommandTemplate `yaml:"preview"   json:"preview"`
}

type DocumentSettings struct {
	Debounce string `yaml:"debounce" json:"debounce"`
	Workers  int    `yaml:"workers"  json:"workers"`
}

type LogSettings struct {
	Level  string `yaml:"level"  json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// Config is the persisted application settings.
type Config struct {
	Version        int                `yaml:"version"          json:"version"`
	Workspace      WorkspaceSettings  `yaml:"workspace"        json:"workspace"`
	RecentFiles    []string           `yaml:"recent_files"     json:"recent_files"`
	Capabilities   CapabilitySettings `yaml:"capabilities"     json:"capabilities"`
	LeftPanelWidth float64            `yaml:"left_panel_width" json:"left_panel_width"`
	Thumbnails     ThumbnailSettings  `yaml:"thumbnails"       json:"thumbnails"`
	Documents      DocumentSettings   `yaml:"documents"        json:"documents"`
	Log            LogSettings        `yaml:"log"              json:"log"`

	Recent *recent.List `yaml:"-" json:"-"`

	mu    sync.Mutex `yaml:"-"`
	path  string     `yaml:"-"`
	batch int        `yaml:"-"`
	dirty bool       `yaml:"-"`
}

const (
	KeyPolicyName = "name"
	KeyPolicyPath = "path"
)

// legacyConfig is the flat, unversioned layout written before settings
// carried a version field.
type legacyConfig struct {
	WorkspaceRoot     string            `yaml:"workspace_root"`
	WorkspaceBookmark string            `yaml:"workspace_bookmark"`
	RecentFiles       []string          `yaml:"recent_files"`
	FileBookmarks     map[string]string `yaml:"file_bookmarks"`
	LeftPanelWidth    float64           `yaml:"left_panel_width"`
}

// New returns default settings that save to path.
func New(path string) *Config {
	cfg := &Config{path: path}
	cfg.ensureDefaults()
	return cfg
}

func (cfg *Config) ensureDefaults() {
	cfg.Version = constants.SettingsVersion
	if cfg.Capabilities.FileTokens == nil {
		cfg.Capabilities.FileTokens = make(map[string]string)
	}
	cfg.Capabilities.KeyPolicy = strings.ToLower(strings.TrimSpace(cfg.Capabilities.KeyPolicy))
	if cfg.Capabilities.KeyPolicy != KeyPolicyPath {
		cfg.Capabilities.KeyPolicy = KeyPolicyName
	}
	if cfg.LeftPanelWidth <= 0 {
		cfg.LeftPanelWidth = constants.DefaultLeftPanelWidth
	}
	if cfg.Thumbnails.Capacity <= 0 {
		cfg.Thumbnails.Capacity = constants.DefaultThumbnailEntries
	}
	if strings.TrimSpace(cfg.Thumbnails.Timeout) == "" {
		cfg.Thumbnails.Timeout = constants.DefaultThumbnailTimeout
	}
	if cfg.Thumbnails.Scale <= 0 {
		cfg.Thumbnails.Scale = constants.DefaultThumbnailScale
	}
	if cfg.Thumbnails.MaxScale <= 0 || cfg.Thumbnails.MaxScale > constants.MaxThumbnailScale {
		cfg.Thumbnails.MaxScale = constants.MaxThumbnailScale
	}
	if strings.TrimSpace(cfg.Documents.Debounce) == "" {
		cfg.Documents.Debounce = constants.DefaultDebounce
	}
	if cfg.Documents.Workers <= 0 {
		cfg.Documents.Workers = constants.DefaultWorkers
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	cfg.Recent = recent.New(cfg.RecentFiles, constants.MaxRecentFiles)
	cfg.RecentFiles = cfg.Recent.Paths()
}

// Load reads the settings file under home. A missing or empty file yields
// defaults; an unversioned file is migrated from the legacy layout.
func Load(home string) (*Config, error) {
	return LoadFile(GetConfigPath(home))
}

// LoadFile reads settings from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return New(path), nil
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	var cfg *Config
	if _, ok := raw["version"]; ok {
		cfg = &Config{}
		// Unknown keys from newer schema versions are ignored.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
	} else {
		var legacy legacyConfig
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		cfg = migrateLegacyConfig(&legacy)
	}

	cfg.path = path
	cfg.ensureDefaults()
	if _, err := cfg.ThumbnailTimeout(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	if _, err := cfg.Debounce(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	cfg.syncViper()
	return cfg, nil
}

func migrateLegacyConfig(legacy *legacyConfig) *Config {
	cfg := &Config{
		Workspace: WorkspaceSettings{
			Root:  legacy.WorkspaceRoot,
			Token: legacy.WorkspaceBookmark,
		},
		RecentFiles:    legacy.RecentFiles,
		LeftPanelWidth: legacy.LeftPanelWidth,
		Capabilities: CapabilitySettings{
			FileTokens: legacy.FileBookmarks,
		},
	}
	return cfg
}

// syncViper publishes file values as viper defaults so flags and environment
// variables still take precedence.
func (cfg *Config) syncViper() {
	viper.SetDefault("workspace.root", cfg.Workspace.Root)
	viper.SetDefault("log.level", cfg.Log.Level)
	viper.SetDefault("log.format", cfg.Log.Format)
	viper.SetDefault("log.output", cfg.Log.Output)
	viper.SetDefault("thumbnails.timeout", cfg.Thumbnails.Timeout)
	viper.SetDefault("documents.debounce", cfg.Documents.Debounce)
}

// Path returns the file the settings are saved to.
func (cfg *Config) Path() string {
	return cfg.path
}

// Save writes the settings atomically.
func (cfg *Config) Save() error {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return cfg.saveLocked()
}

func (cfg *Config) saveLocked() error {
	if cfg.path == "" {
		return fmt.Errorf("config path is not set")
	}
	cfg.Version = constants.SettingsVersion
	if cfg.Recent != nil {
		cfg.RecentFiles = cfg.Recent.Paths()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.path), 0o755); err != nil {
		return err
	}

	tmp := cfg.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, cfg.path); err != nil {
		os.Remove(tmp)
		return err
	}
	cfg.syncViper()
	return nil
}

func (cfg *Config) update(fn func()) error {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	fn()
	if cfg.batch > 0 {
		cfg.dirty = true
		return nil
	}
	return cfg.saveLocked()
}

// Batch runs fn with saves deferred, then writes the file once if anything
// changed. Batches nest; only the outermost one saves.
func (cfg *Config) Batch(fn func() error) error {
	cfg.mu.Lock()
	cfg.batch++
	cfg.mu.Unlock()

	err := fn()

	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.batch--
	if cfg.batch > 0 || !cfg.dirty {
		return err
	}
	cfg.dirty = false
	if saveErr := cfg.saveLocked(); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	return err
}

// WorkspaceToken returns the persisted workspace root and token.
func (cfg *Config) WorkspaceToken() (string, string) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return cfg.Workspace.Root, cfg.Workspace.Token
}

// SetWorkspaceToken replaces the workspace designation.
func (cfg *Config) SetWorkspaceToken(root, token string) error {
	return cfg.update(func() {
		cfg.Workspace.Root = root
		cfg.Workspace.Token = token
	})
}

// ClearWorkspaceToken drops the token but keeps the root for display.
func (cfg *Config) ClearWorkspaceToken() error {
	return cfg.update(func() {
		cfg.Workspace.Token = ""
	})
}

func (cfg *Config) FileToken(key string) (string, bool) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	token, ok := cfg.Capabilities.FileTokens[key]
	return token, ok && token != ""
}

func (cfg *Config) SetFileToken(key, token string) error {
	return cfg.update(func() {
		cfg.Capabilities.FileTokens[key] = token
	})
}

func (cfg *Config) DeleteFileToken(key string) error {
	return cfg.update(func() {
		delete(cfg.Capabilities.FileTokens, key)
	})
}

// ClearFileTokens removes every per-file token.
func (cfg *Config) ClearFileTokens() error {
	return cfg.update(func() {
		cfg.Capabilities.FileTokens = make(map[string]string)
	})
}

// FileTokenCount returns the number of stored per-file tokens.
func (cfg *Config) FileTokenCount() int {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return len(cfg.Capabilities.FileTokens)
}

// KeyByPath reports whether per-file tokens are keyed by full path rather
// than file name.
func (cfg *Config) KeyByPath() bool {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return cfg.Capabilities.KeyPolicy == KeyPolicyPath
}

// BookmarkSecret returns the token signing secret, generating and persisting
// one on first use.
func (cfg *Config) BookmarkSecret() ([]byte, error) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if cfg.Capabilities.Secret != "" {
		return base64.StdEncoding.DecodeString(cfg.Capabilities.Secret)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate bookmark secret: %w", err)
	}
	cfg.Capabilities.Secret = base64.StdEncoding.EncodeToString(secret)
	if err := cfg.saveLocked(); err != nil {
		return nil, err
	}
	return secret, nil
}

// RotateBookmarkSecret replaces the signing secret, invalidating every
// previously issued token.
func (cfg *Config) RotateBookmarkSecret() error {
	return cfg.update(func() {
		cfg.Capabilities.Secret = ""
		cfg.Workspace.Token = ""
		cfg.Capabilities.FileTokens = make(map[string]string)
	})
}

// AddRecent records path as the most recently opened file.
func (cfg *Config) AddRecent(path string) error {
	var addErr error
	err := cfg.update(func() {
		addErr = cfg.Recent.Add(path)
	})
	if addErr != nil {
		return addErr
	}
	return err
}

func (cfg *Config) RemoveRecent(path string) error {
	var removeErr error
	err := cfg.update(func() {
		removeErr = cfg.Recent.Remove(path)
	})
	if removeErr != nil {
		return removeErr
	}
	return err
}

func (cfg *Config) ClearRecent() error {
	return cfg.update(func() {
		cfg.Recent.Clear()
	})
}

// Recents returns the recent files, most recent first.
func (cfg *Config) Recents() []string {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return cfg.Recent.Paths()
}

// PanelWidth returns the outline panel width in points.
func (cfg *Config) PanelWidth() float64 {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	return cfg.LeftPanelWidth
}

func (cfg *Config) SetLeftPanelWidth(width float64) error {
	if width <= 0 {
		return fmt.Errorf("left panel width must be positive, got %v", width)
	}
	return cfg.update(func() {
		cfg.LeftPanelWidth = width
	})
}

// ThumbnailTimeout parses the tier-2 thumbnail timeout.
func (cfg *Config) ThumbnailTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(cfg.Thumbnails.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid thumbnails.timeout %q: %w", cfg.Thumbnails.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("thumbnails.timeout must be positive, got %s", d)
	}
	return d, nil
}

// Debounce parses the view-state write-through delay.
func (cfg *Config) Debounce() (time.Duration, error) {
	d, err := time.ParseDuration(cfg.Documents.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid documents.debounce %q: %w", cfg.Documents.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("documents.debounce cannot be negative, got %s", d)
	}
	return d, nil
}
