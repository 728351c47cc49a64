package recent

import (
	"fmt"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/state"
	pathcmd "github.com/Paintersrp/folio/pkg/cmd"
)

var writeClipboard = clipboard.WriteAll

func NewCmdRecent(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recent",
		Aliases: []string{"r"},
		Short:   "Show recently opened documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return list(cmd, s)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recent documents, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return list(cmd, s)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget all recent documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := s.Config.ClearRecent(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recent documents cleared")
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <file>",
			Short: "Forget one recent document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := pathcmd.ResolveDocumentPath(s, args[0])
				if err != nil {
					return err
				}
				return s.Config.RemoveRecent(path)
			},
		},
		newCmdCopy(s),
	)

	return cmd
}

func newCmdCopy(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "copy [n]",
		Short: "Copy the path of a recent document to the clipboard",
		Example: heredoc.Doc(`
			folio recent copy
			folio recent copy 3
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recents := s.Config.Recents()
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid index %q: %w", args[0], err)
				}
				n = v
			}
			if n < 1 || n > len(recents) {
				return fmt.Errorf("no recent document at position %d", n)
			}

			path := recents[n-1]
			if err := writeClipboard(path); err != nil {
				return fmt.Errorf("failed to copy to clipboard: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s\n", path)
			return nil
		},
	}
}

func list(cmd *cobra.Command, s *state.State) error {
	recents := s.Config.Recents()
	if len(recents) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recent documents")
		return nil
	}
	for i, path := range recents {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i+1, path)
	}
	return nil
}
