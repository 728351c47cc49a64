package flags

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/thumbnail"
)

func AddSize(cmd *cobra.Command, width, height int) {
	cmd.Flags().IntP("width", "W", width, "Thumbnail width in pixels")
	cmd.Flags().IntP("height", "H", height, "Thumbnail height in pixels")
}

func HandleSize(cmd *cobra.Command) (thumbnail.Size, error) {
	width, err := cmd.Flags().GetInt("width")
	if err != nil {
		return thumbnail.Size{}, fmt.Errorf("error retrieving width flag: %w", err)
	}
	height, err := cmd.Flags().GetInt("height")
	if err != nil {
		return thumbnail.Size{}, fmt.Errorf("error retrieving height flag: %w", err)
	}
	if width <= 0 || height <= 0 {
		return thumbnail.Size{}, fmt.Errorf("thumbnail size must be positive, got %dx%d", width, height)
	}
	return thumbnail.Size{Width: width, Height: height}, nil
}
