package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration

	// wrap decorates the schedule; tests use it to skip real waits
	wrap func(backoff.BackOff) backoff.BackOff
}

// schedule doubles from base up to max without jitter, bounded by attempts and ctx
func (p retryPolicy) schedule(ctx context.Context) backoff.BackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     p.base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.max,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()

	var b backoff.BackOff = exp
	if p.wrap != nil {
		b = p.wrap(b)
	}
	retries := max(p.attempts-1, 0)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

var rejectedHTTPStatus = map[int]bool{
	http.StatusBadRequest:   true,
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

// isRejection reports whether the provider refused the request itself
func isRejection(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound:
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && rejectedHTTPStatus[apiErr.HTTPStatusCode] {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && rejectedHTTPStatus[reqErr.HTTPStatusCode] {
		return true
	}
	var genaiErr *genai.APIError
	if errors.As(err, &genaiErr) && rejectedHTTPStatus[genaiErr.Code] {
		return true
	}

	// providers that flatten the HTTP error into text
	msg := err.Error()
	for _, marker := range []string{
		"status code: 401", "status code: 403", "Unauthorized", "Forbidden",
		"UNAUTHENTICATED", "PERMISSION_DENIED",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isPermanent reports whether retrying err cannot help
func isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, model.ErrProviderRejected) || errors.Is(err, model.ErrInvalidConfig) {
		return true
	}
	return isRejection(err)
}

// do runs fn until it succeeds, fails permanently or runs out of attempts
func (p retryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	calls := 0
	permanent := false

	operation := func() error {
		calls++
		err := fn(ctx)
		if err != nil && isPermanent(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logging.From(ctx).Warn("provider call failed, retrying",
			"op", op,
			"attempt", calls,
			"wait", wait.String(),
			"error", err.Error())
	}

	err := backoff.RetryNotify(operation, p.schedule(ctx), notify)
	if err == nil {
		return nil
	}

	switch {
	case permanent && isRejection(err):
		return goerr.Wrap(model.ErrProviderRejected, "provider rejected request",
			goerr.V("op", op),
			goerr.V("cause", err.Error()))
	case permanent:
		return err
	case ctx.Err() != nil:
		return goerr.Wrap(ctx.Err(), "retry wait aborted", goerr.V("op", op))
	}

	return goerr.Wrap(model.ErrProviderExhausted, "provider call failed after retries",
		goerr.V("op", op),
		goerr.V("attempts", calls),
		goerr.V("cause", err.Error()))
}
