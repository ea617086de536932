// Package level implements the level command.
package level

import (
	"github.com/spf13/cobra"

	"github.com/sirekapreview/reviewer/cmd/internal/sheetcmd"
	"github.com/sirekapreview/reviewer/internal/app"
	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/shell"
)

// Command prints the contributor level and the reviews left until the next one.
func Command(settings *conf.Settings, opts ...app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "level",
		Short: "Show your contributor level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := sheetcmd.Open(cmd, settings, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			shell.PrintLevel(cmd.OutOrStdout(), a.Ledger.Status(), a.Ledger.Levels())
			return nil
		},
	}
}
