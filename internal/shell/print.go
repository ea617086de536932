package shell

import (
	"fmt"
	"io"

	"github.com/sirekapreview/reviewer/internal/catalog"
	"github.com/sirekapreview/reviewer/internal/ledger"
	"github.com/sirekapreview/reviewer/internal/review"
	"github.com/sirekapreview/reviewer/internal/sheets"
)

// PrintListing writes a page of sheets with 1-based positions.
func PrintListing(w io.Writer, listing catalog.Listing) {
	if !listing.Loaded {
		_, _ = fmt.Fprintln(w, "no page loaded")
		return
	}
	_, _ = fmt.Fprintf(w, "%s sheets, page %d/%d\n", listing.Collection, listing.Page, listing.TotalPages)
	if len(listing.Sheets) == 0 {
		_, _ = fmt.Fprintln(w, "  (empty)")
		return
	}
	for i, sheet := range listing.Sheets {
		_, _ = fmt.Fprintf(w, "  %2d. %s  %s\n", i+1, sheet.ID, sheet.ImageURL)
	}
}

// PrintDetail writes a sheet's record including the votes already on file.
func PrintDetail(w io.Writer, id string, detail *sheets.SheetDetail) {
	_, _ = fmt.Fprintf(w, "sheet %s\n", id)
	_, _ = fmt.Fprintf(w, "  image:      %s\n", detail.ImageURL)
	_, _ = fmt.Fprintf(w, "  verified:   %t\n", detail.Verified)
	_, _ = fmt.Fprintf(w, "  can review: %t\n", detail.CanReview)
	for i, v := range detail.Votes {
		_, _ = fmt.Fprintf(w, "  candidate %d: %d\n", i+1, v)
	}
}

// PrintTally writes the counts being entered.
func PrintTally(w io.Writer, tally sheets.VoteTally) {
	_, _ = fmt.Fprintf(w, "tally: %d / %d / %d (total %d)\n", tally[0], tally[1], tally[2], tally.Sum())
}

// PrintView writes the session state and, when a sheet is focused, its
// tally and captcha status.
func PrintView(w io.Writer, v review.View) {
	_, _ = fmt.Fprintf(w, "state: %s (%s)\n", v.State, v.Mode)
	if v.Sheet == nil {
		return
	}
	if v.Detail != nil {
		PrintDetail(w, v.Sheet.ID, v.Detail)
	} else {
		_, _ = fmt.Fprintf(w, "sheet %s  %s\n", v.Sheet.ID, v.Sheet.ImageURL)
	}
	if !v.Editable() {
		_, _ = fmt.Fprintln(w, "  read-only")
		return
	}
	PrintTally(w, v.Tally)
	captcha := "not solved"
	if v.Captcha.Set {
		captcha = "solved"
	}
	_, _ = fmt.Fprintf(w, "captcha: %s\n", captcha)
}

// PrintLevel writes the contributor level gauge: the current label and how
// many reviews remain until the next one.
func PrintLevel(w io.Writer, status ledger.Status, levels []ledger.Level) {
	_, _ = fmt.Fprintf(w, "level: %s (%d sheets reviewed)\n", status.Level.Label, status.Count)
	next := status.LevelIndex + 1
	if status.AtMax || next >= len(levels) {
		_, _ = fmt.Fprintln(w, "highest level reached")
		return
	}
	_, _ = fmt.Fprintf(w, "%d more to %s (at %d)\n", status.Remaining, levels[next].Label, status.NextBoundary)
}
