package state

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/pathutil"
)

// DocumentChangedMsg reports a document created, written, removed or
// renamed under the workspace.
type DocumentChangedMsg struct {
	Path string
}

// WorkspaceGoneMsg reports that the workspace root itself was removed or
// renamed.
type WorkspaceGoneMsg struct {
	Root string
}

type WatcherErrMsg struct {
	Err error
}

// WorkspaceWatcher turns filesystem events under the workspace into
// messages and callbacks.
type WorkspaceWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	done       chan struct{}
	once       sync.Once
	mu         sync.Mutex
	onChange   func(string)
	onRootGone func()
	onClose    func()
}

func NewWorkspaceWatcher(root string) (*WorkspaceWatcher, error) {
	normalizedRoot := pathutil.NormalizePath(root)
	if normalizedRoot == "" {
		return nil, errors.New("workspace root cannot be empty")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &WorkspaceWatcher{
		watcher: w,
		root:    normalizedRoot,
		done:    make(chan struct{}),
	}

	if err := watcher.addRecursive(normalizedRoot); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return watcher, nil
}

// Root is the watched directory.
func (w *WorkspaceWatcher) Root() string {
	return w.root
}

// Start returns a command that blocks until the next relevant event. Run
// it again after each message to keep watching.
func (w *WorkspaceWatcher) Start() tea.Cmd {
	if w == nil {
		return nil
	}

	return func() tea.Msg {
		for {
			msg, ok := w.next()
			if !ok {
				return nil
			}
			if msg != nil {
				return msg
			}
		}
	}
}

// next waits for one event. A nil message with ok set means the event was
// not relevant.
func (w *WorkspaceWatcher) next() (tea.Msg, bool) {
	select {
	case <-w.done:
		return nil, false
	case event, ok := <-w.watcher.Events:
		if !ok {
			return nil, false
		}
		return w.handle(event), true
	case err, ok := <-w.watcher.Errors:
		if !ok {
			return nil, false
		}
		if err != nil {
			return WatcherErrMsg{Err: err}, true
		}
		return nil, true
	}
}

func (w *WorkspaceWatcher) handle(event fsnotify.Event) tea.Msg {
	name := pathutil.NormalizePath(event.Name)

	if name == w.root && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if fn := w.rootGoneFunc(); fn != nil {
			fn()
		}
		return WorkspaceGoneMsg{Root: w.root}
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			_ = w.addRecursive(name)
			return nil
		}
	}

	if !w.isRelevant(event.Op, name) {
		return nil
	}

	if fn := w.changeFunc(); fn != nil {
		fn(name)
	}
	return DocumentChangedMsg{Path: name}
}

func (w *WorkspaceWatcher) Close() error {
	if w == nil {
		return nil
	}

	var closeErr error
	w.once.Do(func() {
		close(w.done)
		closeErr = w.watcher.Close()
		w.mu.Lock()
		fn := w.onClose
		w.mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	return closeErr
}

// OnChange registers a callback that receives the absolute path of each
// changed document.
func (w *WorkspaceWatcher) OnChange(fn func(string)) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// OnRootGone registers a callback invoked when the root is removed or
// renamed.
func (w *WorkspaceWatcher) OnRootGone(fn func()) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRootGone = fn
}

// OnClose registers a callback that is invoked exactly once when the watcher
// shuts down.
func (w *WorkspaceWatcher) OnClose(fn func()) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

func (w *WorkspaceWatcher) changeFunc() func(string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onChange
}

func (w *WorkspaceWatcher) rootGoneFunc() func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onRootGone
}

func (w *WorkspaceWatcher) addRecursive(root string) error {
	normalized := pathutil.NormalizePath(root)
	return filepath.WalkDir(normalized, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return filepath.SkipDir
			}
			return err
		}

		if !d.IsDir() {
			return nil
		}
		if path != normalized && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		return w.watcher.Add(path)
	})
}

func (w *WorkspaceWatcher) isRelevant(op fsnotify.Op, path string) bool {
	if op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !pathutil.Within(w.root, path) || path == w.root {
		return false
	}
	return pathutil.HasExtension(path, constants.DocumentExtensions)
}
