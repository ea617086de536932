// Package verified implements the verified command: browsing verified
// sheets, showing the votes on file and reviewing those the server allows.
package verified

import (
	"github.com/spf13/cobra"

	"github.com/sirekapreview/reviewer/cmd/internal/sheetcmd"
	"github.com/sirekapreview/reviewer/internal/app"
	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/review"
	"github.com/sirekapreview/reviewer/internal/shell"
)

// Command creates the verified command. Without a subcommand it starts the
// interactive shell in inspect mode.
func Command(settings *conf.Settings, opts ...app.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verified",
		Short: "Browse verified sheets",
		Args:  cobra.NoArgs,
		RunE:  sheetcmd.InteractiveRunE(settings, review.ModeInspect, opts...),
	}

	cmd.AddCommand(
		sheetcmd.ListCommand(settings, review.ModeInspect, opts...),
		showCommand(settings, opts...),
		sheetcmd.SubmitCommand("review", "Submit a new tally for a verified sheet that is open for review",
			settings, review.ModeInspect, opts...),
	)
	return cmd
}

func showCommand(settings *conf.Settings, opts ...app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "show <sheet-id>",
		Short: "Show a sheet and the votes recorded for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := sheetcmd.Open(cmd, settings, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			detail, err := a.Client.GetSheet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			shell.PrintDetail(cmd.OutOrStdout(), args[0], detail)
			return nil
		},
	}
}
