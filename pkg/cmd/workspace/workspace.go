package workspace

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/capability"
	"github.com/Paintersrp/folio/internal/pathutil"
	"github.com/Paintersrp/folio/internal/state"
	pathcmd "github.com/Paintersrp/folio/pkg/cmd"
)

func NewCmdWorkspace(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage the workspace folder grant",
		Long: heredoc.Doc(`
			The workspace is the folder folio may read documents from. Granting
			it stores a signed token in the settings file; files opened inside
			it receive their own tokens on first use.
		`),
	}

	cmd.AddCommand(
		newCmdGrant(s),
		newCmdStatus(s),
		newCmdFiles(s),
		newCmdRevoke(s),
	)

	return cmd
}

func newCmdGrant(s *state.State) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "grant <dir>",
		Short: "Designate a folder as the workspace",
		Example: heredoc.Doc(`
			folio workspace grant ~/papers
			folio ws grant ./books --force
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := pathutil.Absolute(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("cannot use %q as workspace: %w", root, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("cannot use %q as workspace: not a directory", root)
			}

			current := s.Workspace.Status()
			if current.Configured && current.Root != root && !force {
				return fmt.Errorf("workspace already set to %q; pass --force to replace it", current.Root)
			}

			if _, err := s.Capabilities.GrantWorkspace(root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workspace set to %s\n", root)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing workspace")
	return cmd
}

func newCmdStatus(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the workspace grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			st := s.Workspace.Status()

			switch {
			case st.Configured:
				fmt.Fprintf(out, "Workspace: %s\n", st.Root)
			case st.Stale:
				fmt.Fprintf(out, "Workspace: %s (moved or removed; grant it again)\n", st.Root)
			case st.Err != nil && !errors.Is(st.Err, capability.ErrNotConfigured):
				fmt.Fprintf(out, "Workspace: %s (unavailable: %v)\n", st.Root, st.Err)
			default:
				fmt.Fprintln(out, "No workspace configured")
			}

			fmt.Fprintf(out, "File grants: %d (keyed by %s)\n", s.Config.FileTokenCount(), s.Capabilities.Policy())
			return nil
		},
	}
}

func newCmdFiles(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List documents in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := s.Workspace.Files(cmd.Context())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, f := range files {
				granted := ""
				if f.Granted {
					granted = "granted"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", f.Rel, f.Size, f.ModTime.Format("2006-01-02 15:04"), granted)
			}
			return w.Flush()
		},
	}
}

func newCmdRevoke(s *state.State) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "revoke [file]",
		Short: "Forget the workspace grant, or one file's grant",
		Example: heredoc.Doc(`
			folio workspace revoke
			folio workspace revoke notes/old.md
			folio workspace revoke --all
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				path, err := pathcmd.ResolveDocumentPath(s, args[0])
				if err != nil {
					return err
				}
				if err := s.Capabilities.RevokeFile(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Revoked access to %s\n", path)
				return nil
			}

			if err := s.Capabilities.RevokeWorkspace(); err != nil {
				return err
			}
			if all {
				if err := s.Config.ClearFileTokens(); err != nil {
					return err
				}
			}
			fmt.Fprintln(out, "Workspace access revoked")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also forget every file grant")
	return cmd
}
