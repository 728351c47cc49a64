// Package document caches decoded documents and their view state, and runs
// the load protocol that fills the cache.
package document

import (
	"sync"

	"github.com/Paintersrp/folio/internal/metrics"
)

// Cache maps paths to document state. It is safe for concurrent use; the
// last writer for a path wins.
type Cache struct {
	mu     sync.RWMutex
	states map[string]State
	order  []string
}

func NewCache() *Cache {
	return &Cache{states: make(map[string]State)}
}

// Get returns the state for path, or a fresh unloaded state.
func (c *Cache) Get(path string) State {
	c.mu.RLock()
	st, ok := c.states[path]
	c.mu.RUnlock()

	metrics.RecordDocumentLookup(ok && st.Loaded)
	if !ok {
		return NewState(path)
	}
	return st
}

// Set replaces the state for path.
func (c *Cache) Set(path string, st State) {
	st.Path = path
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.states[path]; !ok {
		c.order = append(c.order, path)
	}
	c.states[path] = st
}

// Update applies fn to the current state for path. fn returns false to leave
// the entry untouched.
func (c *Cache) Update(path string, fn func(current State, present bool) (State, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, present := c.states[path]
	if !present {
		current = NewState(path)
	}
	next, ok := fn(current, present)
	if !ok {
		return false
	}
	next.Path = path
	if !present {
		c.order = append(c.order, path)
	}
	c.states[path] = next
	return true
}

func (c *Cache) Clear(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.states[path]; !ok {
		return
	}
	delete(c.states, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[string]State)
	c.order = nil
}

// HasLoadedState reports whether path holds a successfully loaded document.
func (c *Cache) HasLoadedState(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.states[path]
	return ok && st.Loaded
}

// Paths lists cached paths in the order they were first set.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}
