package document

import (
	"sync"
	"time"

	"github.com/Paintersrp/folio/internal/dispatch"
	"github.com/Paintersrp/folio/internal/metrics"
)

// DefaultDebounce is the delay before view changes are written to the cache.
const DefaultDebounce = 500 * time.Millisecond

// Session is one viewer's handle on a loaded document. Navigation changes
// apply to the session immediately and reach the cache after the debounce
// delay, so continuous gestures do not churn the cache.
type Session struct {
	cache    *Cache
	ui       dispatch.Executor
	debounce time.Duration

	mu     sync.Mutex
	state  State
	dirty  bool
	timer  *time.Timer
	closed bool
}

type SessionOption func(*Session)

func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

func WithSessionExecutor(ui dispatch.Executor) SessionOption {
	return func(s *Session) {
		if ui != nil {
			s.ui = ui
		}
	}
}

// NewSession starts a session on a loaded state.
func NewSession(cache *Cache, st State, opts ...SessionOption) (*Session, error) {
	if !st.Loaded {
		return nil, ErrNotLoaded
	}
	s := &Session{
		cache:    cache,
		ui:       dispatch.Immediate{},
		debounce: DefaultDebounce,
		state:    st,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the session's current view.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetPage(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.state.PageCount() {
		return ErrPageOutOfRange
	}
	if index != s.state.PageIndex {
		s.state.PageIndex = index
		s.scheduleLocked()
	}
	return nil
}

// NextPage advances one page and reports whether it moved.
func (s *Session) NextPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.PageIndex+1 >= s.state.PageCount() {
		return false
	}
	s.state.PageIndex++
	s.scheduleLocked()
	return true
}

func (s *Session) PrevPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.PageIndex == 0 {
		return false
	}
	s.state.PageIndex--
	s.scheduleLocked()
	return true
}

// SetZoom rejects non-positive factors and clamps the rest to
// [MinZoom, MaxZoom]. It returns the applied factor.
func (s *Session) SetZoom(zoom float64) (float64, error) {
	if zoom <= 0 {
		return 0, ErrInvalidZoom
	}
	zoom = min(max(zoom, MinZoom), MaxZoom)

	s.mu.Lock()
	defer s.mu.Unlock()
	if zoom != s.state.Zoom {
		s.state.Zoom = zoom
		s.scheduleLocked()
	}
	return zoom, nil
}

func (s *Session) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode != s.state.Mode {
		s.state.Mode = mode
		s.scheduleLocked()
	}
	return nil
}

func (s *Session) scheduleLocked() {
	if s.closed {
		return
	}
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.debounce == 0 {
		s.timer = nil
		s.ui.Post(s.write)
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.ui.Post(s.write)
	})
}

// Flush writes pending changes now.
func (s *Session) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.write()
}

// Close flushes and stops further write-through.
func (s *Session) Close() {
	s.Flush()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// write publishes the view fields onto the cache entry, provided the entry
// still holds the document this session was opened on. A cleared or
// reloaded entry is left alone.
func (s *Session) write() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	st := s.state
	s.dirty = false
	s.mu.Unlock()

	s.cache.Update(st.Path, func(current State, present bool) (State, bool) {
		if !present || !current.Loaded || current.generation != st.generation {
			return current, false
		}
		current.PageIndex = st.PageIndex
		current.Zoom = st.Zoom
		current.Mode = st.Mode
		return current, true
	})
	metrics.RecordViewFlush()
}
