package notify

import (
	"context"
	"errors"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// Multi fans deliveries out to several channels. Every channel is
// attempted; errors are joined so one dead channel never hides the
// others. An empty channel set is a delivery failure: nobody received
// anything, and callers must not record success.
type Multi []ports.Notifier

var _ ports.Notifier = (Multi)(nil)

// ErrNoChannels reports a delivery attempt with no channels configured.
var ErrNoChannels = errors.New("no notification channels configured")

// SendBriefing delivers to all channels.
func (m Multi) SendBriefing(ctx context.Context, briefing *domain.Briefing) error {
	if len(m) == 0 {
		return ErrNoChannels
	}
	var errs []error
	for _, n := range m {
		if err := n.SendBriefing(ctx, briefing); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendAlert delivers to all channels.
func (m Multi) SendAlert(ctx context.Context, title, message string) error {
	if len(m) == 0 {
		return ErrNoChannels
	}
	var errs []error
	for _, n := range m {
		if err := n.SendAlert(ctx, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
