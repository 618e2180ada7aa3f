// Package notify delivers operator notifications. Messages are dispatched to
// every registered sender; one failing channel does not block the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given subject and body.
	Send(ctx context.Context, subject, body string) error
	// Name returns the channel identifier (e.g. "telegram").
	Name() string
}

// Notifier fans a notification out to all senders. With no senders
// configured it is a no-op, so callers can always hold a non-nil Notifier.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends to every sender. Individual sender failures are collected and
// returned combined; delivery to the remaining senders proceeds.
func (n *Notifier) Notify(ctx context.Context, subject, body string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, subject, body); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("subject", subject),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
