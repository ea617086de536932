// Package progress implements the progress command, which prints the
// nationwide verification progress and the candidate vote shares.
package progress

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sirekapreview/reviewer/cmd/internal/sheetcmd"
	"github.com/sirekapreview/reviewer/internal/app"
	"github.com/sirekapreview/reviewer/internal/conf"
	progresspkg "github.com/sirekapreview/reviewer/internal/progress"
)

// Command creates the progress command.
func Command(settings *conf.Settings, opts ...app.Option) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show how many sheets have been verified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := language.Parse(lang)
			if err != nil {
				return fmt.Errorf("invalid language %q: %w", lang, err)
			}

			a, err := sheetcmd.Open(cmd, settings, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			p, err := a.Progress.Progress(cmd.Context())
			if err != nil {
				return err
			}
			Print(cmd.OutOrStdout(), message.NewPrinter(tag), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "Language tag used for number formatting, e.g. en or id")
	return cmd
}

// Print writes p with numbers formatted by printer.
func Print(w io.Writer, printer *message.Printer, p progresspkg.Progress) {
	_, _ = printer.Fprintf(w, "verified sheets: %d of %d (%.2f%%)\n",
		p.CheckedCount(), p.TotalExpected, p.Percent())

	shares := p.Shares()
	for i, total := range p.Snapshot.CandidateTotals {
		_, _ = printer.Fprintf(w, "candidate %d: %d votes (%.1f%%)\n", i+1, total, shares[i]*100)
	}
}
