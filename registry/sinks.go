package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ruteri/weighted-membership-registry/interfaces"
)

var (
	_ interfaces.EventSink = (*LogSink)(nil)
	_ interfaces.EventSink = MultiSink{}
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(ctx context.Context, registry interfaces.Address, events []interfaces.Event) error {
	for _, event := range events {
		attrs := []any{
			slog.String("registry", registry.String()),
			slog.String("kind", string(event.Kind)),
		}
		if event.Member != nil {
			attrs = append(attrs, slog.String("member", event.Member.String()))
		}
		if event.OldAdmin != nil && event.NewAdmin != nil {
			attrs = append(attrs,
				slog.String("old_admin", event.OldAdmin.String()),
				slog.String("new_admin", event.NewAdmin.String()))
		}
		s.log.InfoContext(ctx, "Registry event", attrs...)
	}
	return nil
}

// MultiSink publishes to every sink and joins their errors.
type MultiSink []interfaces.EventSink

func (m MultiSink) Publish(ctx context.Context, registry interfaces.Address, events []interfaces.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, registry, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
