package flags

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/tui/viewer"
)

func AddView(cmd *cobra.Command) {
	cmd.Flags().IntP("page", "p", 0, "Page to show first (1-based)")
	cmd.Flags().Float64P("zoom", "z", 0, "Initial zoom factor")
	cmd.Flags().StringP("mode", "m", "", "Display mode: single, continuous or two-up")
}

// HandleView returns the requested initial view, or nil when no view flag
// was given.
func HandleView(cmd *cobra.Command) (*viewer.View, error) {
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return nil, fmt.Errorf("error retrieving page flag: %w", err)
	}
	zoom, err := cmd.Flags().GetFloat64("zoom")
	if err != nil {
		return nil, fmt.Errorf("error retrieving zoom flag: %w", err)
	}
	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return nil, fmt.Errorf("error retrieving mode flag: %w", err)
	}

	if page == 0 && zoom == 0 && mode == "" {
		return nil, nil
	}
	if page < 0 {
		return nil, fmt.Errorf("%w: page must be positive", document.ErrPageOutOfRange)
	}
	if zoom < 0 {
		return nil, document.ErrInvalidZoom
	}

	v := &viewer.View{Page: page, Zoom: zoom}
	if mode != "" {
		if v.Mode, err = document.ParseMode(mode); err != nil {
			return nil, err
		}
	}
	return v, nil
}
