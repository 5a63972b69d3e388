// Package retry implements the retry-once policy for rate-limited calls.
package retry

import (
	"context"
	"time"

	"github.com/mnbots/mnbot/internal/telegram"
)

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Options struct {
	Sleep SleepFunc
	// OnWait is called before suspending on a rate-limit signal.
	OnWait func(wait time.Duration)
}

// Once runs op. When op fails with a rate-limit signal, Once waits the
// signaled duration and runs op one more time, returning that result as is.
// Any other error is returned without a retry.
func Once(ctx context.Context, op func(context.Context) error, opts Options) error {
	err := op(ctx)
	wait, limited := telegram.RetryAfter(err)
	if !limited {
		return err
	}

	if opts.OnWait != nil {
		opts.OnWait(wait)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	if sleepErr := sleep(ctx, wait); sleepErr != nil {
		return err
	}

	return op(ctx)
}
