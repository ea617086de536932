package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/sirekapreview/reviewer/internal/errors"
)

// ShoutrrrProvider pushes notifications to every configured shoutrrr URL
// through a single sender.
type ShoutrrrProvider struct {
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrProvider validates urls and builds the sender. The URLs often
// embed tokens, so they never appear in returned errors.
func NewShoutrrrProvider(urls []string, timeout time.Duration) (*ShoutrrrProvider, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(errors.NewStd(errors.ScrubMessage(err.Error()))).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Context("url_count", len(urls)).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrProvider{urls: slices.Clone(urls), sender: sender}, nil
}

func (s *ShoutrrrProvider) Name() string { return "shoutrrr" }

// Send delivers n to all URLs and returns the first failure. The router
// enforces its own timeout.
func (s *ShoutrrrProvider) Send(_ context.Context, n *Notification) error {
	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return errors.New(errors.NewStd(errors.ScrubMessage(err.Error()))).
				Category(errors.CategoryIntegration).
				Component(componentName).
				Context("provider", s.Name()).
				Build()
		}
	}
	return nil
}
