package state

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusLine is a shared one-line summary shown by the viewer footer.
type StatusLine struct {
	mu   sync.RWMutex
	line string
}

func (s *StatusLine) Set(line string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.line = line
	s.mu.Unlock()
}

func (s *StatusLine) Get() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.line
}

// CacheStatsMsg notifies subscribers that the status line was refreshed.
type CacheStatsMsg struct {
	Line string
}

// CacheStatsCmd summarizes cache occupancy and returns a message consumers
// can use to rerender.
func (s *State) CacheStatsCmd() tea.Cmd {
	if s == nil {
		return nil
	}

	return func() tea.Msg {
		return CacheStatsMsg{Line: s.cacheStats()}
	}
}

func (s *State) cacheStats() string {
	parts := []string{}
	if s.Documents != nil {
		parts = append(parts, fmt.Sprintf("docs %d", s.Documents.Len()))
	}
	if s.Thumbnails != nil {
		parts = append(parts, fmt.Sprintf("thumbs %d", s.Thumbnails.Cache().Len()))
	}
	if s.Access != nil {
		if n := s.Access.Outstanding(); n > 0 {
			parts = append(parts, fmt.Sprintf("guards %d", n))
		}
	}
	return strings.Join(parts, " · ")
}
