package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/plylist/internal/services"
)

func isRateLimited(err error) bool {
	return services.KindOf(err) == services.KindRateLimited
}

// backoff returns the wait before retry number attempt (1-based): RetryWait doubled per attempt, or the
// server's Retry-After when that is longer.
func (o SyncOpts) backoff(attempt int, err error) time.Duration {
	wait := o.RetryWait << (attempt - 1)
	if ra := services.RetryAfter(err); ra > wait {
		wait = ra
	}
	return wait
}

// call runs fn under the per-call timeout, retrying up to MaxRetries times while retryable holds.
//
// A per-call timeout counts as a transient failure. Auth failures invalidate the session and are never retried.
func (e *SyncEngine) call(ctx context.Context, s *session, op string, retryable func(error) bool, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := e.attempt(ctx, s, op, fn)
		if err == nil {
			return nil
		}
		s.observe(err)

		if ctx.Err() != nil || attempt >= e.opts.MaxRetries || !retryable(err) {
			return err
		}

		wait := e.opts.backoff(attempt+1, err)
		e.logger.Debug("retrying", "platform", s.platform.Name(), "op", op, "attempt", attempt+1, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *SyncEngine) attempt(ctx context.Context, s *session, op string, fn func(context.Context) error) error {
	callCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) && services.KindOf(err) == services.KindUnknown {
		err = &services.PlatformError{Kind: services.KindTransient, Platform: s.platform.Name(), Op: op, Err: err}
	}
	return err
}
