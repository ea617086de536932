package sheets

import "net/http"

// OutcomeKind classifies the result of a vote submission.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTransportError
	OutcomeCaptchaRejected
	OutcomeAlreadyContributed
	OutcomeSheetNotFound
	OutcomeUnknownServerError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeCaptchaRejected:
		return "captcha_rejected"
	case OutcomeAlreadyContributed:
		return "already_contributed"
	case OutcomeSheetNotFound:
		return "sheet_not_found"
	case OutcomeUnknownServerError:
		return "unknown_server_error"
	default:
		return "unknown"
	}
}

// MessageKey is the user-facing message key reported for the outcome.
func (k OutcomeKind) MessageKey() string {
	switch k {
	case OutcomeSuccess:
		return "contribute.success"
	case OutcomeTransportError:
		return "contribute.failed-to-connect"
	case OutcomeCaptchaRejected:
		return "contribute.captcha-failed"
	case OutcomeAlreadyContributed:
		return "contribute.already-contributed"
	case OutcomeSheetNotFound:
		return "contribute.not-found"
	default:
		return "contribute.unknown-error"
	}
}

// ClassifyStatus maps an HTTP status code from POST /sheet/{id} to an outcome.
func ClassifyStatus(status int) OutcomeKind {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == http.StatusBadRequest:
		return OutcomeCaptchaRejected
	case status == http.StatusForbidden:
		return OutcomeAlreadyContributed
	case status == http.StatusNotFound:
		return OutcomeSheetNotFound
	default:
		return OutcomeUnknownServerError
	}
}

// Outcome is the resolved result of one submission. Err is nil only for
// OutcomeSuccess; StatusCode is 0 for transport errors.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Err        error
}

// OK reports whether the server accepted the submission.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}
