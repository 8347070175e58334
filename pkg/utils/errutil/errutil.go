package errutil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

// Handle logs the error with its goerr values and reports it to Sentry when configured.
// The error is returned unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logging.From(ctx).Error(msg, errorAttrs(err)...)
	capture(ctx, err, msg)

	return err
}

// HandleHTTP logs the error and writes a JSON error response. Only 5xx errors are sent to Sentry.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	attrs := append([]any{"status", statusCode}, errorAttrs(err)...)
	if statusCode >= http.StatusInternalServerError {
		logging.From(ctx).Error("HTTP error", attrs...)
		capture(ctx, err, "HTTP error")
	} else {
		logging.From(ctx).Warn("HTTP error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = writeJSONError(w, err.Error())
}

func errorAttrs(err error) []any {
	attrs := []any{"error", err.Error()}
	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs,
			slog.Any("values", ge.Values()),
			slog.Any("stack", ge.Stacks()),
		)
	}
	return attrs
}

func capture(ctx context.Context, err error, msg string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		var ge *goerr.Error
		if errors.As(err, &ge) {
			for k, v := range ge.Values() {
				scope.SetExtra(k, v)
			}
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered Sentry events to be sent
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
