package outline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/outline"
	"github.com/Paintersrp/folio/internal/state"
	pathcmd "github.com/Paintersrp/folio/pkg/cmd"
)

func NewCmdOutline(s *state.State) *cobra.Command {
	var (
		sidecar bool
		raw     bool
		write   bool
	)

	cmd := &cobra.Command{
		Use:     "outline <file>",
		Aliases: []string{"toc"},
		Short:   "Print a document's table of contents",
		Long: heredoc.Doc(`
			Prints the outline of a document as a nested list. Edits saved from
			the viewer are kept in a sidecar file next to the document and are
			applied with --sidecar.
		`),
		Example: heredoc.Doc(`
			folio outline book.md
			folio outline book.md --sidecar --raw
			folio outline book.md --write
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := pathcmd.ResolveDocumentPath(s, args[0])
			if err != nil {
				return err
			}

			st := s.Loader.Load(cmd.Context(), path)
			if st.Err != nil {
				return fmt.Errorf("%s: %s", filepath.Base(path), document.UserMessage(st.Err))
			}

			m := outline.NewManager()
			m.LoadFrom(st.Document)
			if sidecar {
				if _, err := m.LoadSidecar(s.Access, path); err != nil {
					return err
				}
			}
			if write {
				if err := m.SaveSidecar(s.Access, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outline.SidecarPath(path))
			}

			m.ExpandAll()
			md := Markdown(filepath.Base(path), m.Flatten())
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				return err
			}
			rendered, err := r.Render(md)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sidecar, "sidecar", false, "Apply saved outline edits")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print plain Markdown without styling")
	cmd.Flags().BoolVar(&write, "write", false, "Save the outline to the sidecar file")

	return cmd
}

// Markdown renders outline rows as a nested Markdown list.
func Markdown(title string, rows []outline.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(rows) == 0 {
		b.WriteString("_No outline_\n")
		return b.String()
	}
	for _, row := range rows {
		b.WriteString(strings.Repeat("  ", row.Depth))
		b.WriteString("- ")
		b.WriteString(row.Node.Label)
		if row.Node.PageRef != nil {
			fmt.Fprintf(&b, " (p. %d)", *row.Node.PageRef+1)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
