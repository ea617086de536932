package review

import (
	"github.com/sirekapreview/reviewer/internal/errors"
)

const componentName = "review"

var (
	// ErrNoVotes blocks a submit whose tally is all zero.
	ErrNoVotes = errors.NewStd("no votes entered")
	// ErrInvalidTransition is returned for an action the current state does not allow.
	ErrInvalidTransition = errors.NewStd("invalid session transition")
	// ErrInvalidCandidate is returned for a candidate index outside 0..2.
	ErrInvalidCandidate = errors.NewStd("invalid candidate")
	// ErrReadOnly is returned when editing a verified sheet the server does not open for review.
	ErrReadOnly = errors.NewStd("sheet is read-only")
	// ErrSubmissionInFlight is returned when cancelling or resubmitting during a submission.
	ErrSubmissionInFlight = errors.NewStd("submission in flight")
)

func transitionError(sentinel error, action string, from State) error {
	return errors.Newf("%w: %s while %s", sentinel, action, from).
		Category(errors.CategoryState).
		Component(componentName).
		Context("action", action).
		Context("state", from.String()).
		Build()
}

func validationError(sentinel error, format string, args ...any) error {
	return errors.Newf("%w: "+format, append([]any{sentinel}, args...)...).
		Category(errors.CategoryValidation).
		Component(componentName).
		Build()
}
