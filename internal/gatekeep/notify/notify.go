// Package notify delivers one-time codes to users.
package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Dispatcher sends a one-time code to an email address. Implementations
// must not retry; the caller decides whether to issue a fresh code.
type Dispatcher interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogDispatcher writes codes to the log instead of sending them. It is
// only wired in dev and test environments.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) SendCode(ctx context.Context, email, code string) error {
	d.Logger.WarnContext(ctx, "one-time code (log dispatcher, not delivered)",
		slog.String("to", MaskEmail(email)),
		slog.String("code", code),
	)
	return nil
}

// MaskEmail keeps the first character of the local part and the domain:
// "owner@example.com" becomes "o****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "****"
	}
	return email[:1] + "****" + email[at:]
}
