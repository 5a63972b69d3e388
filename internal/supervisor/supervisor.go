// Package supervisor restarts the bot session after failures.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/internal/logging"
	"github.com/mnbots/mnbot/internal/retry"
)

var ErrGaveUp = errors.New("supervisor: restart limit reached")

type Options struct {
	// MinBackoff is the first restart delay. It doubles after every failure.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// MaxRestarts bounds restarts after the initial run. Zero means unlimited.
	MaxRestarts int
	Sleep       retry.SleepFunc
}

// Run calls fn until it returns nil, ctx is canceled, or the restart limit is
// reached. A panic in fn counts as a failure.
func Run(ctx context.Context, name string, fn func(ctx context.Context) error, opts Options, log zerolog.Logger) error {
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 5 * time.Second
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = opts.MinBackoff
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	log = logging.Component(log, "supervisor").With().Str("name", name).Logger()

	backoff := opts.MinBackoff
	restarts := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		started := time.Now()
		err := runOnce(ctx, fn, log)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			log.Info().Msg("stopped")
			return nil
		}
		if err == nil {
			return nil
		}

		if opts.MaxRestarts > 0 && restarts >= opts.MaxRestarts {
			log.Error().Err(err).Int("restarts", restarts).Msg("giving up")
			return fmt.Errorf("%w: %s: %v", ErrGaveUp, name, err)
		}
		restarts++
		log.Error().Err(err).Dur("ran", time.Since(started)).Dur("backoff", backoff).Int("restart", restarts).Msg("crashed, restarting")

		if err := opts.Sleep(ctx, backoff); err != nil {
			return nil
		}
		backoff *= 2
		if backoff > opts.MaxBackoff {
			backoff = opts.MaxBackoff
		}
	}
}

func runOnce(ctx context.Context, fn func(ctx context.Context) error, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
