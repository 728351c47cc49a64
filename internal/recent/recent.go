// Package recent keeps the most-recently-opened document list.
package recent

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultLimit is the number of entries kept when no limit is given.
const DefaultLimit = 10

// List is an ordered most-recent-first set of paths.
type List struct {
	Items []string
	Limit int
}

// New builds a list from persisted items, dropping blanks and duplicates and
// trimming to limit.
func New(items []string, limit int) *List {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &List{Limit: limit}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		l.Items = append(l.Items, item)
	}
	l.trim()
	return l
}

// Add moves path to the front, inserting it if absent. The oldest entry is
// evicted once the list exceeds its limit.
func (l *List) Add(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path must be provided")
	}

	filtered := make([]string, 0, len(l.Items)+1)
	filtered = append(filtered, path)
	for _, item := range l.Items {
		if item != path {
			filtered = append(filtered, item)
		}
	}
	l.Items = filtered
	l.trim()
	return nil
}

func (l *List) Remove(path string) error {
	for i, item := range l.Items {
		if item == path {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("recent file %q does not exist", path)
}

func (l *List) Clear() {
	l.Items = nil
}

func (l *List) Contains(path string) bool {
	for _, item := range l.Items {
		if item == path {
			return true
		}
	}
	return false
}

// Paths returns a copy of the entries, most recent first.
func (l *List) Paths() []string {
	return append([]string(nil), l.Items...)
}

func (l *List) trim() {
	limit := l.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(l.Items) > limit {
		l.Items = l.Items[:limit]
	}
}
