package thumb

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/state"
	pathcmd "github.com/Paintersrp/folio/pkg/cmd"
	"github.com/Paintersrp/folio/pkg/flags"
)

func NewCmdThumb(s *state.State) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:     "thumb <file>",
		Aliases: []string{"thumbnail"},
		Short:   "Write a first-page thumbnail image",
		Long: heredoc.Doc(`
			Renders the first page of a document to an image file. When the
			document cannot be rendered the configured preview command is
			tried, and a placeholder is drawn as a last resort.
		`),
		Example: heredoc.Doc(`
			folio thumb paper.md
			folio thumb scan.tiff --width 320 --height 400 --out cover.jpg
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := pathcmd.ResolveDocumentPath(s, args[0])
			if err != nil {
				return err
			}
			size, err := flags.HandleSize(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = DefaultOutput(path)
			}

			res := s.Thumbnails.GenerateResult(cmd.Context(), path, size)
			if err := imaging.Save(res.Image, out); err != nil {
				return fmt.Errorf("failed to write thumbnail: %w", err)
			}

			b := res.Image.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%dx%d, %s)\n", out, b.Dx(), b.Dy(), res.Tier)
			return nil
		},
	}

	flags.AddSize(cmd, 160, 200)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output image path (default <name>.thumb.png)")

	return cmd
}

// DefaultOutput names the thumbnail for path in the working directory.
func DefaultOutput(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".thumb.png"
}
