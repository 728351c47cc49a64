package document

import (
	"fmt"
	"strings"

	"github.com/Paintersrp/folio/internal/platform"
)

// Mode is how pages are laid out in the viewer.
type Mode string

const (
	ModeSinglePage Mode = "single"
	ModeContinuous Mode = "continuous"
	ModeTwoUp      Mode = "two-up"
)

var modes = []Mode{ModeSinglePage, ModeContinuous, ModeTwoUp}

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(value string) (Mode, error) {
	for _, m := range modes {
		if strings.EqualFold(strings.TrimSpace(value), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, value)
}

// Next cycles to the following mode.
func (m Mode) Next() Mode {
	for i, candidate := range modes {
		if candidate == m {
			return modes[(i+1)%len(modes)]
		}
	}
	return ModeSinglePage
}

const (
	MinZoom = 0.1
	MaxZoom = 16.0
)

// State is the cached view of one document.
type State struct {
	Path      string
	Document  platform.Document
	PageIndex int
	Zoom      float64
	Mode      Mode
	Loaded    bool
	Err       error

	// generation identifies the load that produced Document.
	generation uint64
}

// NewState returns the unloaded state for path.
func NewState(path string) State {
	return State{Path: path, Zoom: 1, Mode: ModeSinglePage}
}

// PageCount is zero until the document is loaded.
func (s State) PageCount() int {
	if !s.Loaded || s.Document == nil {
		return 0
	}
	return s.Document.PageCount()
}
