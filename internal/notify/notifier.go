// Package notify reports operational events (export results, store outages) to people.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier delivers a human readable message.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(ctx context.Context, level Level, message string) error {
	logger := n.Logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}
	var evt *zerolog.Event
	switch level {
	case LevelError:
		evt = logger.Error()
	case LevelWarning:
		evt = logger.Warn()
	default:
		evt = logger.Info()
	}
	evt.Str("component", "notify").Msg(strings.TrimSpace(message))
	return nil
}

// Multi fans a notification out to every notifier, joining their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, level Level, message string) error {
	var joined error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, level, message); err != nil {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Level, string) error { return nil }
