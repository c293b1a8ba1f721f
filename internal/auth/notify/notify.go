// Package notify delivers verification codes and welcome messages.
//
// Senders (LogNotifier, SendGridNotifier) do the delivery synchronously.
// Dispatcher wraps a sender with a bounded queue so request handlers never
// wait on an email provider.
package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

// LogNotifier writes messages to the log instead of delivering them. It is
// the development default; codes appear in the service log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

func (n LogNotifier) SendCode(ctx context.Context, email, code, displayName string, purpose domain.Purpose) error {
	n.logger().InfoContext(ctx, "verification code",
		"email", email,
		"display_name", displayName,
		"purpose", purpose,
		"code", code,
		"expires_in", purpose.TTL().String(),
	)
	return nil
}

func (n LogNotifier) SendWelcome(ctx context.Context, email, displayName string) error {
	n.logger().InfoContext(ctx, "welcome message", "email", email, "display_name", displayName)
	return nil
}
