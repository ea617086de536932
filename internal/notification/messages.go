package notification

import (
	"github.com/sirekapreview/reviewer/internal/sheets"
)

// NoVotesKey is the message key for a submission blocked by an all-zero tally.
const NoVotesKey = "contribute.no-votes"

// DetailUnavailableKey is the message key for a failed sheet detail fetch.
const DetailUnavailableKey = "verified.detail-unavailable"

type message struct {
	typ      Type
	priority Priority
	title    string
	text     string
}

var messages = map[string]message{
	"contribute.success": {
		TypeSuccess, PriorityLow,
		"Thank you!", "Your reading was submitted.",
	},
	"contribute.failed-to-connect": {
		TypeError, PriorityHigh,
		"Connection failed", "Could not reach the review server. Check your connection and try again.",
	},
	"contribute.captcha-failed": {
		TypeError, PriorityMedium,
		"Captcha failed", "The captcha was rejected. Solve it again before submitting.",
	},
	"contribute.already-contributed": {
		TypeWarning, PriorityMedium,
		"Already reviewed", "You have already submitted a reading for this sheet.",
	},
	"contribute.not-found": {
		TypeError, PriorityMedium,
		"Sheet not found", "This sheet no longer exists on the server.",
	},
	"contribute.unknown-error": {
		TypeError, PriorityHigh,
		"Something went wrong", "The server returned an unexpected response. Please try again later.",
	},
	NoVotesKey: {
		TypeWarning, PriorityLow,
		"No votes entered", "Enter at least one vote before submitting.",
	},
	DetailUnavailableKey: {
		TypeError, PriorityMedium,
		"Sheet unavailable", "Could not load the details of this sheet.",
	},
}

// FromKey builds the notification for a message key. Unknown keys fall back
// to the generic error message.
func FromKey(key string) *Notification {
	m, ok := messages[key]
	if !ok {
		m = messages["contribute.unknown-error"]
	}
	return NewNotification(m.typ, m.priority, m.title, m.text).
		WithMetadata(MetadataKeyMessageKey, key)
}

// ForOutcome builds the notification reported for a resolved submission.
func ForOutcome(sheetID string, outcome sheets.Outcome) *Notification {
	n := FromKey(outcome.Kind.MessageKey()).
		WithComponent("review").
		WithMetadata(MetadataKeySheetID, sheetID)
	if outcome.StatusCode != 0 {
		n.WithMetadata(MetadataKeyStatusCode, outcome.StatusCode)
	}
	return n
}

// NoVotes builds the notification for a blocked all-zero submission.
func NoVotes(sheetID string) *Notification {
	return FromKey(NoVotesKey).
		WithComponent("review").
		WithMetadata(MetadataKeySheetID, sheetID)
}

// DetailUnavailable builds the notification for a failed detail fetch.
func DetailUnavailable(sheetID string) *Notification {
	return FromKey(DetailUnavailableKey).
		WithComponent("review").
		WithMetadata(MetadataKeySheetID, sheetID)
}
