package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/constants"
	"github.com/Paintersrp/folio/internal/state"
	"github.com/Paintersrp/folio/pkg/cmd/open"
	"github.com/Paintersrp/folio/pkg/cmd/outline"
	"github.com/Paintersrp/folio/pkg/cmd/recent"
	"github.com/Paintersrp/folio/pkg/cmd/stats"
	"github.com/Paintersrp/folio/pkg/cmd/thumb"
	"github.com/Paintersrp/folio/pkg/cmd/workspace"
)

func NewCmdRoot(s *state.State, opts *Options) (*cobra.Command, error) {
	openCmd := open.NewCmdOpen(s)

	cmd := &cobra.Command{
		Use:   "folio",
		Short: "Browse and read documents from a granted workspace folder.",
		Long: heredoc.Doc(`
			folio keeps revocable grants to a workspace folder and the documents
			inside it, remembers where you left off in each document, and renders
			first-page thumbnails.

			  folio workspace grant ~/papers
			  folio open
		`),
		Version:      constants.Version,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		// A bare invocation opens the picker.
		RunE: func(cmd *cobra.Command, args []string) error {
			openCmd.SetContext(cmd.Context())
			return openCmd.RunE(openCmd, args)
		},
	}

	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		workspace.NewCmdWorkspace(s),
		openCmd,
		thumb.NewCmdThumb(s),
		outline.NewCmdOutline(s),
		recent.NewCmdRecent(s),
		stats.NewCmdStats(s),
	)

	return cmd, nil
}
