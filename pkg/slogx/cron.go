package slogx

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts a slog.Logger to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

// CronLogger returns a cron.Logger writing to l. Scheduler chatter is
// logged at debug; job errors and recovered panics at error.
func CronLogger(l *slog.Logger) cron.Logger {
	if l == nil {
		l = slog.Default()
	}
	return cronLogger{l: l.With("component", "cron")}
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
