package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/access"
	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/dispatch"
	"github.com/Paintersrp/folio/internal/metrics"
	"github.com/Paintersrp/folio/internal/pathutil"
	"github.com/Paintersrp/folio/internal/platform"
)

// FileAccess brackets reads of a path with a scoped grant.
type FileAccess interface {
	WithFile(path string, fn func(resolved string) error) error
}

// Loader fills the cache. Decoding runs on the worker pool; cache writes and
// deliveries from LoadAsync are posted to the UI executor.
type Loader struct {
	cache   *Cache
	files   FileAccess
	decoder platform.Decoder
	pool    *dispatch.Pool
	ui      dispatch.Executor
	logger  *zap.Logger

	generation atomic.Uint64

	stat     func(string) (fs.FileInfo, error)
	readFile func(string) ([]byte, error)
	now      func() time.Time
}

type LoaderOption func(*Loader)

func WithPool(pool *dispatch.Pool) LoaderOption {
	return func(l *Loader) {
		if pool != nil {
			l.pool = pool
		}
	}
}

func WithExecutor(ui dispatch.Executor) LoaderOption {
	return func(l *Loader) {
		if ui != nil {
			l.ui = ui
		}
	}
}

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(cache *Cache, files FileAccess, decoder platform.Decoder, opts ...LoaderOption) *Loader {
	l := &Loader{
		cache:    cache,
		files:    files,
		decoder:  decoder,
		ui:       dispatch.Immediate{},
		logger:   zap.NewNop(),
		stat:     os.Stat,
		readFile: os.ReadFile,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.pool == nil {
		l.pool = dispatch.NewPool(constants.DefaultWorkers)
	}
	return l
}

// Cache returns the cache the loader writes to.
func (l *Loader) Cache() *Cache {
	return l.cache
}

func validatePath(path string) (string, error) {
	abs, err := pathutil.Absolute(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if abs == "" {
		return "", fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	return abs, nil
}

// Load returns the cached state for path, decoding it first if needed.
// Failures are reported through State.Err and cached.
func (l *Loader) Load(ctx context.Context, path string) State {
	abs, err := validatePath(path)
	if err != nil {
		st := NewState(path)
		st.Err = err
		return st
	}

	if cached := l.cache.Get(abs); cached.Loaded {
		return cached
	}

	st := l.decode(ctx, abs)
	l.store(abs, st)
	return st
}

// LoadAsync decodes path off the caller's goroutine and hands the resulting
// state to deliver on the UI executor, after it has been cached.
func (l *Loader) LoadAsync(path string, deliver func(State)) {
	abs, err := validatePath(path)
	if err != nil {
		st := NewState(path)
		st.Err = err
		l.post(deliver, st)
		return
	}

	if cached := l.cache.Get(abs); cached.Loaded {
		l.post(deliver, cached)
		return
	}

	err = l.pool.Go(context.Background(), func(ctx context.Context) {
		st := l.decode(ctx, abs)
		l.ui.Post(func() {
			l.store(abs, st)
			if deliver != nil {
				deliver(st)
			}
		})
	})
	if err != nil {
		st := NewState(abs)
		st.Err = err
		l.post(deliver, st)
	}
}

// Retry clears the cached state for path and loads it again.
func (l *Loader) Retry(ctx context.Context, path string) State {
	if abs, err := validatePath(path); err == nil {
		l.cache.Clear(abs)
	}
	return l.Load(ctx, path)
}

func (l *Loader) RetryAsync(path string, deliver func(State)) {
	if abs, err := validatePath(path); err == nil {
		l.cache.Clear(abs)
	}
	l.LoadAsync(path, deliver)
}

// Wait blocks until background loads have finished.
func (l *Loader) Wait() {
	l.pool.Wait()
}

func (l *Loader) post(deliver func(State), st State) {
	if deliver == nil {
		return
	}
	l.ui.Post(func() { deliver(st) })
}

// store writes a completed load. Loads are not cancelled, so whichever
// finishes last owns the entry.
func (l *Loader) store(path string, st State) {
	l.cache.Set(path, st)
}

func (l *Loader) decode(ctx context.Context, path string) (st State) {
	start := l.now()
	st = NewState(path)
	outcome := "success"

	defer func() {
		if r := recover(); r != nil {
			st = NewState(path)
			st.Err = &DecodeError{Path: path, Err: fmt.Errorf("decoder panic: %v", r)}
			outcome = "decode_error"
		}
		metrics.RecordDocumentLoad(outcome, l.now().Sub(start))
		if st.Err != nil {
			l.logger.Warn("document load failed",
				zap.String("path", path),
				zap.String("outcome", outcome),
				zap.Error(st.Err),
			)
		}
	}()

	if err := ctx.Err(); err != nil {
		st.Err = err
		outcome = "canceled"
		return st
	}

	info, err := l.stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		st.Err = fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		outcome = "not_found"
		return st
	case err != nil && !errors.Is(err, fs.ErrPermission):
		st.Err = fmt.Errorf("%w: %v", ErrInvalidPath, err)
		outcome = "invalid"
		return st
	case err == nil && info.IsDir():
		st.Err = fmt.Errorf("%w: %s is a directory", ErrInvalidPath, path)
		outcome = "invalid"
		return st
	}

	var doc platform.Document
	err = l.files.WithFile(path, func(resolved string) error {
		data, err := l.readFile(resolved)
		if err != nil {
			return err
		}
		doc, err = l.decoder.Decode(resolved, data)
		if err != nil {
			return &DecodeError{Path: resolved, Err: err}
		}
		return nil
	})
	if err != nil {
		var decodeErr *DecodeError
		switch {
		case errors.Is(err, access.ErrAccessDenied):
			outcome = "denied"
		case errors.As(err, &decodeErr):
			outcome = "decode_error"
		default:
			outcome = "read_error"
		}
		st.Err = err
		return st
	}

	if doc == nil || doc.PageCount() <= 0 {
		st.Err = fmt.Errorf("%w: %s", ErrEmptyDocument, path)
		outcome = "empty"
		return st
	}

	st.Document = doc
	st.Loaded = true
	st.generation = l.generation.Add(1)
	return st
}
