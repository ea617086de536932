package review

import (
	"github.com/sirekapreview/reviewer/internal/sheets"
)

// State is the position of a Session in the review lifecycle.
type State int

const (
	StateIdle State = iota
	StateSelected
	StateTallying
	StateSubmitting
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateTallying:
		return "tallying"
	case StateSubmitting:
		return "submitting"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Mode selects which collection a session reviews.
type Mode int

const (
	// ModeContribute reviews unverified sheets. No detail is fetched.
	ModeContribute Mode = iota
	// ModeInspect browses verified sheets. The detail is fetched on select and
	// a tally may only be submitted when the server allows a review.
	ModeInspect
)

func (m Mode) String() string {
	if m == ModeInspect {
		return "inspect"
	}
	return "contribute"
}

// Collection returns the listing the mode pages through.
func (m Mode) Collection() sheets.Collection {
	if m == ModeInspect {
		return sheets.CollectionVerified
	}
	return sheets.CollectionUnverified
}

// Captcha holds the token issued by the captcha widget. The zero value is
// the unset (null) token.
type Captcha struct {
	Token string
	Set   bool
}

// View is a copy of the session state.
type View struct {
	State       State
	Mode        Mode
	Sheet       *sheets.SheetSummary
	Detail      *sheets.SheetDetail
	Tally       sheets.VoteTally
	Captcha     Captcha
	LastOutcome *sheets.Outcome
}

// Editable reports whether the tally may be edited and submitted.
func (v View) Editable() bool {
	if v.State != StateSelected && v.State != StateTallying {
		return false
	}
	return v.Mode == ModeContribute || (v.Detail != nil && v.Detail.CanReview)
}
