package sentry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Init configures the global Sentry client. With an empty dsn reporting
// is disabled and Init returns false.
func Init(dsn, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:                   dsn,
		Environment:           environment,
		Release:               release,
		AttachStacktrace:      true,
		SendDefaultPII:        false,
		BeforeSend:            ScrubEvent,
		BeforeSendTransaction: ScrubTransaction,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

// Flush waits for buffered events to be delivered.
func Flush() {
	sentry.Flush(flushTimeout)
}

// Reporter sends acquisition failures to Sentry.
type Reporter struct {
	hub *sentry.Hub
}

// NewReporter reports through the current hub. A nil hub client makes
// every report a no-op.
func NewReporter() *Reporter {
	return &Reporter{hub: sentry.CurrentHub()}
}

// NewReporterWithHub is used by tests to capture events.
func NewReporterWithHub(hub *sentry.Hub) *Reporter {
	return &Reporter{hub: hub}
}

func (r *Reporter) ReportFailure(ctx context.Context, err error, tags map[string]string) {
	if err == nil || r.hub.Client() == nil {
		return
	}

	hub := r.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		scope.SetLevel(sentry.LevelError)
	})
	if id := hub.CaptureException(err); id != nil {
		slog.DebugContext(ctx, "failure reported", slog.String("sentry_event_id", string(*id)))
	}
}
