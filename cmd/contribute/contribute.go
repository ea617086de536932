// Package contribute implements the contribute command for reviewing
// unverified sheets.
package contribute

import (
	"github.com/spf13/cobra"

	"github.com/sirekapreview/reviewer/cmd/internal/sheetcmd"
	"github.com/sirekapreview/reviewer/internal/app"
	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/review"
)

// Command creates the contribute command. Without a subcommand it starts the
// interactive review shell.
func Command(settings *conf.Settings, opts ...app.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contribute",
		Short: "Review unverified sheets",
		Long: `Page through unverified sheets and submit the vote counts read from each one.

Examples:
  # Interactive review
  sheetreview contribute

  # List the third page
  sheetreview contribute list --page 3

  # Submit a tally directly
  sheetreview contribute submit 3201050001 120 80 15 --captcha <token>`,
		Args: cobra.NoArgs,
		RunE: sheetcmd.InteractiveRunE(settings, review.ModeContribute, opts...),
	}

	cmd.AddCommand(
		sheetcmd.ListCommand(settings, review.ModeContribute, opts...),
		sheetcmd.SubmitCommand("submit", "Submit the vote counts for an unverified sheet",
			settings, review.ModeContribute, opts...),
	)
	return cmd
}
