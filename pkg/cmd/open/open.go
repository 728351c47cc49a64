package open

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/fzf"
	"github.com/Paintersrp/folio/internal/state"
	"github.com/Paintersrp/folio/internal/tui/viewer"
	pathcmd "github.com/Paintersrp/folio/pkg/cmd"
	"github.com/Paintersrp/folio/pkg/flags"
)

type options struct {
	plain bool
	query string
}

func NewCmdOpen(s *state.State) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "open [file]",
		Aliases: []string{"o"},
		Short:   "Open a document in the viewer",
		Long: heredoc.Doc(`
			Opens a document in the terminal viewer. Without an argument a fuzzy
			finder lists the workspace documents and recent files.

			When output is not a terminal, or with --plain, a summary of the
			document is printed instead.
		`),
		Example: heredoc.Doc(`
			folio open papers/attention.md
			folio open scan.png --zoom 2 --mode two-up
			folio open --query report
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := flags.HandleView(cmd)
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path, err = pathcmd.ResolveDocumentPath(s, args[0])
			} else {
				path, err = pathcmd.PickDocument(cmd.Context(), s, opts.query)
				if errors.Is(err, fzf.ErrNoSelection) {
					return nil
				}
			}
			if err != nil {
				return err
			}

			if opts.plain || !isTerminal(cmd.OutOrStdout()) {
				return printSummary(cmd, s, path, view)
			}

			if err := s.StartWatcher(); err != nil {
				s.Logger.Debug("viewer running without watcher", zap.Error(err))
			}
			return viewer.Run(s, path, view)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Print a summary instead of starting the viewer")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Initial fuzzy finder query")
	flags.AddView(cmd)

	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printSummary(cmd *cobra.Command, s *state.State, path string, view *viewer.View) error {
	out := cmd.OutOrStdout()
	st := s.Loader.Load(cmd.Context(), path)
	if st.Err != nil {
		return fmt.Errorf("%s: %s", filepath.Base(path), document.UserMessage(st.Err))
	}

	session, err := s.OpenSession(st)
	if err != nil {
		return err
	}
	defer session.Close()
	if err := applyView(session, view); err != nil {
		return err
	}

	if err := s.Config.AddRecent(path); err != nil {
		s.Logger.Warn("failed to record recent file", zap.Error(err))
	}

	cur := session.State()
	w, h := cur.Document.PageSize(cur.PageIndex)
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "  pages:   %d\n", cur.PageCount())
	fmt.Fprintf(out, "  page:    %d (%.0fx%.0f pt)\n", cur.PageIndex+1, w, h)
	fmt.Fprintf(out, "  zoom:    %.0f%%\n", cur.Zoom*100)
	fmt.Fprintf(out, "  mode:    %s\n", cur.Mode)
	fmt.Fprintf(out, "  outline: %d entries\n", len(cur.Document.Outline()))
	return nil
}

func applyView(session *document.Session, view *viewer.View) error {
	if view == nil {
		return nil
	}
	if view.Page > 0 {
		if err := session.SetPage(view.Page - 1); err != nil {
			return err
		}
	}
	if view.Zoom != 0 {
		if _, err := session.SetZoom(view.Zoom); err != nil {
			return err
		}
	}
	if view.Mode != "" {
		return session.SetMode(view.Mode)
	}
	return nil
}
