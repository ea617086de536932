// Package notification delivers user-facing messages about review outcomes
// to the console and to optional push services.
package notification

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Type represents the category of a notification.
type Type string

const (
	TypeSuccess Type = "success"
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Priority represents the urgency level of a notification.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Metadata keys set by the outcome constructors.
const (
	MetadataKeyMessageKey = "messageKey"
	MetadataKeySheetID    = "sheetId"
	MetadataKeyStatusCode = "statusCode"
)

// Notification is a single message for the volunteer.
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Priority  Priority       `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewNotification creates a notification with a unique ID and timestamp.
func NewNotification(notifType Type, priority Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Type:      notifType,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// WithComponent sets the source component and returns n for chaining.
func (n *Notification) WithComponent(component string) *Notification {
	n.Component = component
	return n
}

// WithMetadata sets a metadata entry and returns n for chaining.
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}

// MessageKey returns the message key the notification was built from, if any.
func (n *Notification) MessageKey() string {
	key, _ := n.Metadata[MetadataKeyMessageKey].(string)
	return key
}

// Clone returns a copy that does not share the metadata map.
func (n *Notification) Clone() *Notification {
	c := *n
	c.Metadata = maps.Clone(n.Metadata)
	return &c
}
