// Package review implements the review session: a state machine that takes
// one sheet from selection through tallying to a resolved submission.
//
//	Idle -> Selected -> Tallying -> Submitting -> Resolved -> Idle
//
// Submission failures never leave the machine stuck. Every outcome resolves
// the session, notifies the volunteer, returns to Idle and reloads the
// catalog page. Only an all-zero tally blocks the transition.
package review

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/sirekapreview/reviewer/internal/catalog"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/notification"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
	"github.com/sirekapreview/reviewer/internal/sheets"
)

// DetailFetcher loads a sheet's full record. *sheets.Client implements it.
type DetailFetcher interface {
	GetSheet(ctx context.Context, id string) (*sheets.SheetDetail, error)
}

// Submitter sends a tally. *sheets.Client implements it.
type Submitter interface {
	SubmitVotes(ctx context.Context, id string, tally sheets.VoteTally, captcha string) sheets.Outcome
}

// AttemptRecorder counts dispatched submissions. *ledger.Ledger implements it.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context) (int, error)
}

// PageReloader refreshes the listing after a submission. *catalog.Catalog
// implements it.
type PageReloader interface {
	Reload(ctx context.Context) (catalog.Listing, error)
}

// Notifier reports outcomes to the volunteer. *notification.Dispatcher
// implements it.
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// Deps are the collaborators of a Session. Details is required in
// ModeInspect; Notifier may be nil.
type Deps struct {
	Submitter Submitter
	Details   DetailFetcher
	Ledger    AttemptRecorder
	Catalog   PageReloader
	Notifier  Notifier
}

// Session is one volunteer's review state machine. It is safe for
// concurrent use; network calls run without the lock.
type Session struct {
	mu          sync.Mutex
	mode        Mode
	state       State
	sheet       *sheets.SheetSummary
	detail      *sheets.SheetDetail
	tally       sheets.VoteTally
	captcha     Captcha
	lastOutcome *sheets.Outcome

	deps     Deps
	observer func(View)
	log      logger.Logger
	metrics  *metrics.ReviewMetrics
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.ReviewMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithObserver registers fn to receive a View after every state change.
// fn is called without the session lock held.
func WithObserver(fn func(View)) Option {
	return func(s *Session) { s.observer = fn }
}

// NewSession returns an idle session.
func NewSession(mode Mode, deps Deps, opts ...Option) (*Session, error) {
	missing := ""
	switch {
	case deps.Submitter == nil:
		missing = "submitter"
	case deps.Ledger == nil:
		missing = "ledger"
	case deps.Catalog == nil:
		missing = "catalog"
	case mode == ModeInspect && deps.Details == nil:
		missing = "detail fetcher"
	}
	if missing != "" {
		return nil, errors.Newf("review session needs a %s", missing).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}

	s := &Session{
		mode: mode,
		deps: deps,
		log:  logger.Global().Module(componentName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select focuses sheet. In ModeInspect the detail is fetched first; if that
// fails the session stays Idle, the volunteer is notified and the error is
// returned.
func (s *Session) Select(ctx context.Context, sheet sheets.SheetSummary) error {
	if st := s.State(); st != StateIdle {
		return transitionError(ErrInvalidTransition, "select", st)
	}

	var detail *sheets.SheetDetail
	if s.mode == ModeInspect {
		d, err := s.deps.Details.GetSheet(ctx, sheet.ID)
		if err != nil {
			logf := s.log.Warn
			if errors.IsNotFound(err) {
				logf = s.log.Info
			}
			logf("sheet detail unavailable",
				logger.String("sheet_id", sheet.ID),
				logger.Error(err))
			s.notify(ctx, notification.DetailUnavailable(sheet.ID))
			return err
		}
		detail = d
	}

	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return transitionError(ErrInvalidTransition, "select", st)
	}
	s.state = StateSelected
	s.sheet = &sheet
	s.detail = detail
	s.tally = sheets.VoteTally{}
	s.captcha = Captcha{}
	v := s.viewLocked()
	s.mu.Unlock()

	s.log.Debug("sheet selected",
		logger.String("sheet_id", sheet.ID),
		logger.String("mode", s.mode.String()))
	s.emit(v)
	return nil
}

// Begin opens the tally for editing: Selected -> Tallying. It is a no-op
// when already Tallying.
func (s *Session) Begin() error {
	return s.edit("begin", func() {})
}

// SetCount parses raw as the count for candidate (0-based). Input that does
// not start with a number counts as 0 and negative values are clamped to 0.
func (s *Session) SetCount(candidate int, raw string) error {
	return s.SetCountValue(candidate, parseCount(raw))
}

// SetCountValue sets the count for candidate (0-based), clamped to
// [0, sheets.MaxVotesPerCandidate].
func (s *Session) SetCountValue(candidate, n int) error {
	if candidate < 0 || candidate >= sheets.CandidateCount {
		return validationError(ErrInvalidCandidate, "candidate %d outside 0..%d", candidate, sheets.CandidateCount-1)
	}
	return s.edit("set count", func() {
		s.tally[candidate] = min(max(n, 0), sheets.MaxVotesPerCandidate)
	})
}

// CaptchaSolved stores the token issued by the captcha widget. An empty
// token leaves the captcha unset.
func (s *Session) CaptchaSolved(token string) error {
	return s.edit("captcha solved", func() {
		s.captcha = Captcha{Token: token, Set: token != ""}
	})
}

// CaptchaExpired resets the captcha to unset.
func (s *Session) CaptchaExpired() error {
	return s.edit("captcha expired", func() { s.captcha = Captcha{} })
}

// CaptchaErrored resets the captcha to unset.
func (s *Session) CaptchaErrored() error {
	return s.edit("captcha errored", func() { s.captcha = Captcha{} })
}

// edit applies fn in Selected or Tallying and leaves the session Tallying.
func (s *Session) edit(action string, fn func()) error {
	s.mu.Lock()
	if err := s.checkEditableLocked(action); err != nil {
		s.mu.Unlock()
		return err
	}
	fn()
	s.state = StateTallying
	v := s.viewLocked()
	s.mu.Unlock()

	s.emit(v)
	return nil
}

func (s *Session) checkEditableLocked(action string) error {
	switch s.state {
	case StateSelected, StateTallying:
	case StateSubmitting:
		return transitionError(ErrSubmissionInFlight, action, s.state)
	default:
		return transitionError(ErrInvalidTransition, action, s.state)
	}
	if !s.viewLocked().Editable() {
		return errors.Newf("%w: sheet %s does not accept reviews", ErrReadOnly, s.sheet.ID).
			Category(errors.CategoryValidation).
			Component(componentName).
			Build()
	}
	return nil
}

// Submit dispatches the tally. An all-zero tally is rejected with ErrNoVotes
// and the session stays Tallying with its values. Otherwise the ledger
// records the attempt, the tally is sent once, and the outcome is reported,
// after which the session is Idle and the catalog page has been reloaded.
// Server and network failures are returned in the Outcome, not as err.
func (s *Session) Submit(ctx context.Context) (sheets.Outcome, error) {
	s.mu.Lock()
	if err := s.checkEditableLocked("submit"); err != nil {
		s.mu.Unlock()
		return sheets.Outcome{}, err
	}
	s.state = StateTallying

	if s.tally.Empty() {
		sheetID := s.sheet.ID
		s.mu.Unlock()

		s.metrics.RecordZeroTally()
		s.log.Debug("submit blocked: no votes", logger.String("sheet_id", sheetID))
		s.notify(ctx, notification.NoVotes(sheetID))
		return sheets.Outcome{}, validationError(ErrNoVotes, "sheet %s", sheetID)
	}

	s.state = StateSubmitting
	sheetID := s.sheet.ID
	tally := s.tally
	captcha := s.captcha.Token
	v := s.viewLocked()
	s.mu.Unlock()
	s.emit(v)

	if n, err := s.deps.Ledger.RecordAttempt(ctx); err != nil {
		s.log.Warn("contribution not persisted, continuing with submission",
			logger.Int("count", n),
			logger.Error(err))
	}

	outcome := s.deps.Submitter.SubmitVotes(ctx, sheetID, tally, captcha)
	s.metrics.RecordSubmission(outcome.Kind.String())

	s.mu.Lock()
	s.state = StateResolved
	s.lastOutcome = &outcome
	v = s.viewLocked()
	s.mu.Unlock()
	s.emit(v)

	s.notify(ctx, notification.ForOutcome(sheetID, outcome))

	s.mu.Lock()
	s.resetLocked()
	v = s.viewLocked()
	s.mu.Unlock()
	s.emit(v)

	s.reload(ctx)
	return outcome, nil
}

// Cancel abandons the session without side effects. It is refused while a
// submission is in flight.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return transitionError(ErrSubmissionInFlight, "cancel", StateSubmitting)
	}
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.resetLocked()
	v := s.viewLocked()
	s.mu.Unlock()

	s.emit(v)
	return nil
}

func (s *Session) resetLocked() {
	s.state = StateIdle
	s.sheet = nil
	s.detail = nil
	s.tally = sheets.VoteTally{}
	s.captcha = Captcha{}
}

func (s *Session) reload(ctx context.Context) {
	_, err := s.deps.Catalog.Reload(ctx)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrSuperseded):
		s.log.Debug("catalog reload superseded by a newer page request")
	default:
		s.log.Warn("catalog reload after submission failed", logger.Error(err))
	}
}

func (s *Session) notify(ctx context.Context, n *notification.Notification) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, n); err != nil {
		s.log.Warn("notification not delivered",
			logger.String("message_key", n.MessageKey()),
			logger.Error(err))
	}
}

func (s *Session) emit(v View) {
	if s.observer != nil {
		s.observer(v)
	}
}

func (s *Session) viewLocked() View {
	v := View{
		State:   s.state,
		Mode:    s.mode,
		Tally:   s.tally,
		Captcha: s.captcha,
	}
	if s.sheet != nil {
		sheet := *s.sheet
		v.Sheet = &sheet
	}
	if s.detail != nil {
		detail := *s.detail
		v.Detail = &detail
	}
	if s.lastOutcome != nil {
		outcome := *s.lastOutcome
		v.LastOutcome = &outcome
	}
	return v
}

// parseCount reads a leading integer from raw the way a form field would:
// surrounding space is ignored, trailing junk is dropped, and anything that
// does not start with a number is 0. Numbers too large to parse read as
// the per-candidate maximum.
func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	switch {
	case errors.Is(err, strconv.ErrRange) && raw[0] != '-':
		return sheets.MaxVotesPerCandidate
	case err != nil || n < 0:
		return 0
	}
	return n
}
