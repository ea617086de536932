package sheets

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/sirekapreview/reviewer/internal/errors"
)

// Sentinels for API failures. Errors returned by Client wrap one of these
// inside an EnhancedError, so match them with errors.Is.
var (
	ErrTransport          = errors.NewStd("no response from review server")
	ErrCaptchaRejected    = errors.NewStd("captcha rejected")
	ErrAlreadyContributed = errors.NewStd("already contributed to this sheet")
	ErrSheetNotFound      = errors.NewStd("sheet not found")
	ErrUnknownServer      = errors.NewStd("unexpected server response")
	ErrMalformedResponse  = errors.NewStd("malformed server response")
)

const componentName = "sheets"

// call describes one API round trip for logging and error context.
type call struct {
	label     string // metrics endpoint label
	method    string
	url       string
	requestID string
	timeout   time.Duration
	start     time.Time
}

// transportError classifies a failed round trip. Timeouts and DNS failures
// keep their detail in the context but all share ErrTransport.
func transportError(err error, c call) error {
	reason := "network"
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "cancelled"
	case errors.As(err, &dnsErr):
		reason = "dns"
	}

	return errors.Newf("%w: %s %s: %w", ErrTransport, c.method, redactURL(c.url), err).
		Category(errors.CategoryNetwork).
		Component(componentName).
		NetworkContext(c.url, c.timeout).
		Timing(c.label, time.Since(c.start)).
		Context("method", c.method).
		Context("reason", reason).
		Context("request_id", c.requestID).
		Build()
}

// statusError maps a non-2xx status to its sentinel and category. Statuses
// the API documents are low priority; anything else is high.
func statusError(kind OutcomeKind, status int, c call) error {
	var sentinel error
	var category errors.ErrorCategory
	priority := errors.PriorityLow
	switch kind {
	case OutcomeCaptchaRejected:
		sentinel, category = ErrCaptchaRejected, errors.CategoryValidation
	case OutcomeAlreadyContributed:
		sentinel, category = ErrAlreadyContributed, errors.CategoryConflict
	case OutcomeSheetNotFound:
		sentinel, category = ErrSheetNotFound, errors.CategoryNotFound
	default:
		sentinel, category, priority = ErrUnknownServer, errors.CategoryHTTP, errors.PriorityHigh
	}

	return errors.Newf("%w: %s %s returned %d", sentinel, c.method, redactURL(c.url), status).
		Category(category).
		Component(componentName).
		Priority(priority).
		Timing(c.label, time.Since(c.start)).
		Context("status_code", status).
		Context("method", c.method).
		Context("request_id", c.requestID).
		Build()
}

// redactURL drops query and user info before a URL lands in an error message.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid url]"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
