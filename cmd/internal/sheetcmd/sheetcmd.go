// Package sheetcmd holds the pieces shared by the contribute and verified
// commands: opening the engine, listing a page, the interactive shell and
// one-shot submission.
package sheetcmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sirekapreview/reviewer/internal/app"
	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/review"
	"github.com/sirekapreview/reviewer/internal/sheets"
	"github.com/sirekapreview/reviewer/internal/shell"
)

// Open builds the engine for cmd, printing notifications to its output.
func Open(cmd *cobra.Command, settings *conf.Settings, opts ...app.Option) (*app.App, error) {
	opts = append(opts[:len(opts):len(opts)], app.WithConsole(cmd.OutOrStdout()))
	return app.New(cmd.Context(), settings, opts...)
}

// InteractiveRunE runs the review shell for mode on stdin and stdout.
func InteractiveRunE(settings *conf.Settings, mode review.Mode, opts ...app.Option) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := Open(cmd, settings, opts...)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if _, err := a.StartMetricsEndpoint(cmd.Context()); err != nil {
			return err
		}

		cat, err := a.NewCatalog(mode)
		if err != nil {
			return err
		}
		session, err := a.NewSession(mode, cat)
		if err != nil {
			return err
		}

		if mode == review.ModeContribute {
			shell.PrintLevel(cmd.OutOrStdout(), a.Ledger.Status(), a.Ledger.Levels())
		}
		return shell.New(cat, session, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
	}
}

// ListCommand prints one page of the collection mode browses.
func ListCommand(settings *conf.Settings, mode review.Mode, opts ...app.Option) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List a page of %s sheets", mode.Collection()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := Open(cmd, settings, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			cat, err := a.NewCatalog(mode)
			if err != nil {
				return err
			}
			listing, err := cat.Load(cmd.Context(), page)
			if err != nil {
				return err
			}
			shell.PrintListing(cmd.OutOrStdout(), listing)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to list, starting at 1")
	return cmd
}

// SubmitCommand submits one tally without the interactive shell. In
// ModeInspect the sheet must allow a review.
func SubmitCommand(use, short string, settings *conf.Settings, mode review.Mode, opts ...app.Option) *cobra.Command {
	var captcha string

	cmd := &cobra.Command{
		Use:   use + " <sheet-id> <candidate1> <candidate2> <candidate3>",
		Short: short,
		Args:  cobra.ExactArgs(1 + sheets.CandidateCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			tally, err := parseTally(args[1:])
			if err != nil {
				return err
			}

			a, err := Open(cmd, settings, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			cat, err := a.NewCatalog(mode)
			if err != nil {
				return err
			}
			session, err := a.NewSession(mode, cat)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := session.Select(ctx, sheets.SheetSummary{ID: args[0]}); err != nil {
				return err
			}
			for i, n := range tally {
				if err := session.SetCountValue(i, n); err != nil {
					return err
				}
			}
			if captcha != "" {
				if err := session.CaptchaSolved(captcha); err != nil {
					return err
				}
			}

			outcome, err := session.Submit(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sheet %s: %s\n", args[0], outcome.Kind)
			if !outcome.OK() {
				return outcome.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&captcha, "captcha", "", "Captcha token; sent as null when empty")
	return cmd
}

func parseTally(args []string) (sheets.VoteTally, error) {
	var tally sheets.VoteTally
	for i, raw := range args {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > sheets.MaxVotesPerCandidate {
			return tally, errors.Newf("candidate %d: %q is not a vote count", i+1, raw).
				Category(errors.CategoryValidation).
				Component("cli").
				Build()
		}
		tally[i] = n
	}
	return tally, nil
}
