// Package shell is the line-oriented terminal front end of a review
// session. It reads commands such as "select 2", "count 1 120" and "submit"
// and drives a catalog and a session with them.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirekapreview/reviewer/internal/catalog"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/review"
	"github.com/sirekapreview/reviewer/internal/sheets"
)

const prompt = "> "

// Catalog is the listing the shell pages through. *catalog.Catalog
// implements it.
type Catalog interface {
	Load(ctx context.Context, page int) (catalog.Listing, error)
	Reload(ctx context.Context) (catalog.Listing, error)
	Next(ctx context.Context) (catalog.Listing, error)
	Prev(ctx context.Context) (catalog.Listing, error)
	Current() catalog.Listing
}

// Session is the state machine the shell drives. *review.Session
// implements it.
type Session interface {
	View() review.View
	Select(ctx context.Context, sheet sheets.SheetSummary) error
	SetCount(candidate int, raw string) error
	CaptchaSolved(token string) error
	CaptchaExpired() error
	CaptchaErrored() error
	Submit(ctx context.Context) (sheets.Outcome, error)
	Cancel() error
}

// Shell reads commands from in and writes listings and state to out.
type Shell struct {
	catalog Catalog
	session Session
	in      io.Reader
	out     io.Writer
	log     logger.Logger
}

// New returns a Shell. Notifications are printed by the session's notifier,
// not by the shell.
func New(cat Catalog, session Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		catalog: cat,
		session: session,
		in:      in,
		out:     out,
		log:     logger.Global().Module("shell"),
	}
}

type handler func(ctx context.Context, args []string) error

// Run loads the first page and processes commands until "quit", end of
// input or ctx cancellation. Command errors are printed and the loop
// continues.
func (s *Shell) Run(ctx context.Context) error {
	if listing, err := s.catalog.Load(ctx, 1); err != nil {
		s.printError(err)
	} else {
		PrintListing(s.out, listing)
	}
	s.printHelp()

	handlers := map[string]handler{
		"list":    s.list,
		"l":       s.list,
		"next":    s.page(s.catalog.Next),
		"n":       s.page(s.catalog.Next),
		"prev":    s.page(s.catalog.Prev),
		"p":       s.page(s.catalog.Prev),
		"reload":  s.page(s.catalog.Reload),
		"r":       s.page(s.catalog.Reload),
		"page":    s.gotoPage,
		"select":  s.selectSheet,
		"s":       s.selectSheet,
		"count":   s.count,
		"c":       s.count,
		"captcha": s.captcha,
		"submit":  s.submit,
		"cancel":  s.cancel,
		"status":  s.status,
	}

	scanner := bufio.NewScanner(s.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _ = fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(s.out)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name, args := strings.ToLower(fields[0]), fields[1:]

		switch name {
		case "quit", "exit", "q":
			return nil
		case "help", "h", "?":
			s.printHelp()
			continue
		}

		h, ok := handlers[name]
		if !ok {
			_, _ = fmt.Fprintf(s.out, "unknown command %q, type help for a list\n", name)
			continue
		}
		if err := h(ctx, args); err != nil {
			s.printError(err)
		}
	}
}

func (s *Shell) list(_ context.Context, _ []string) error {
	PrintListing(s.out, s.catalog.Current())
	return nil
}

func (s *Shell) page(load func(context.Context) (catalog.Listing, error)) handler {
	return func(ctx context.Context, _ []string) error {
		listing, err := load(ctx)
		if err != nil {
			return err
		}
		PrintListing(s.out, listing)
		return nil
	}
}

func (s *Shell) gotoPage(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("page <number>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return usage("page <number>")
	}
	listing, err := s.catalog.Load(ctx, n)
	if err != nil {
		return err
	}
	PrintListing(s.out, listing)
	return nil
}

// selectSheet accepts a 1-based position on the current page or a sheet ID.
func (s *Shell) selectSheet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("select <position|sheet-id>")
	}
	sheet, ok := findSheet(s.catalog.Current().Sheets, args[0])
	if !ok {
		return errors.Newf("sheet %q is not on this page", args[0]).
			Category(errors.CategoryValidation).
			Component("shell").
			Build()
	}
	if err := s.session.Select(ctx, sheet); err != nil {
		return err
	}
	PrintView(s.out, s.session.View())
	return nil
}

func findSheet(list []sheets.SheetSummary, ref string) (sheets.SheetSummary, bool) {
	if pos, err := strconv.Atoi(ref); err == nil && pos >= 1 && pos <= len(list) {
		return list[pos-1], true
	}
	for _, sheet := range list {
		if sheet.ID == ref {
			return sheet, true
		}
	}
	return sheets.SheetSummary{}, false
}

func (s *Shell) count(_ context.Context, args []string) error {
	if len(args) != 2 {
		return usage("count <candidate 1-3> <votes>")
	}
	candidate, err := strconv.Atoi(args[0])
	if err != nil || candidate < 1 || candidate > sheets.CandidateCount {
		return usage("count <candidate 1-3> <votes>")
	}
	if err := s.session.SetCount(candidate-1, args[1]); err != nil {
		return err
	}
	PrintTally(s.out, s.session.View().Tally)
	return nil
}

// captcha takes a solved token, or "expired" / "error" to clear it.
func (s *Shell) captcha(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usage("captcha <token|expired|error>")
	}
	switch args[0] {
	case "expired":
		return s.session.CaptchaExpired()
	case "error":
		return s.session.CaptchaErrored()
	default:
		return s.session.CaptchaSolved(args[0])
	}
}

func (s *Shell) submit(ctx context.Context, _ []string) error {
	outcome, err := s.session.Submit(ctx)
	if err != nil {
		return err
	}
	s.log.Debug("submission finished", logger.String("outcome", outcome.Kind.String()))
	PrintListing(s.out, s.catalog.Current())
	return nil
}

func (s *Shell) cancel(_ context.Context, _ []string) error {
	if err := s.session.Cancel(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(s.out, "selection cleared")
	return nil
}

func (s *Shell) status(_ context.Context, _ []string) error {
	PrintView(s.out, s.session.View())
	return nil
}

func (s *Shell) printError(err error) {
	_, _ = fmt.Fprintf(s.out, "error: %v\n", err)
}

func (s *Shell) printHelp() {
	_, _ = fmt.Fprint(s.out, `commands:
  list | next | prev | reload | page <n>
  select <position|sheet-id>
  count <candidate 1-3> <votes>
  captcha <token|expired|error>
  submit | cancel | status | quit
`)
}

func usage(text string) error {
	return errors.Newf("usage: %s", text).
		Category(errors.CategoryValidation).
		Component("shell").
		Build()
}
