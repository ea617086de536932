package notification

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Provider delivers notifications to one destination.
type Provider interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// ConsoleProvider prints notifications as single lines.
type ConsoleProvider struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleProvider(w io.Writer) *ConsoleProvider {
	return &ConsoleProvider{w: w}
}

func (c *ConsoleProvider) Name() string { return "console" }

func (c *ConsoleProvider) Send(_ context.Context, n *Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s %s: %s\n", badge(n.Type), n.Title, n.Message)
	return err
}

func badge(t Type) string {
	switch t {
	case TypeSuccess:
		return "[ok]"
	case TypeWarning:
		return "[!]"
	case TypeError:
		return "[x]"
	default:
		return "[i]"
	}
}
