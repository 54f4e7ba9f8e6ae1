package wrapper

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/logger"
)

// RetryConfig configures NewRetry.
type RetryConfig struct {
	// Attempts is the total number of tries. Values below 2 disable retrying.
	Attempts uint `yaml:"attempts" default:"0"`

	// Delay is the base backoff delay.
	Delay time.Duration `yaml:"delay" default:"100ms"`

	// MaxJitter is the maximum random jitter added to each delay.
	MaxJitter time.Duration `yaml:"max_jitter" default:"50ms"`
}

// RetryWrapper retries failed invocations with backoff and jitter.
type RetryWrapper struct {
	cfg    RetryConfig
	logger logger.Logger
	next   callback.Callback
}

// NewRetry returns a wrapper retrying failed invocations. Validation errors are not retried.
func NewRetry(cfg RetryConfig, log logger.Logger) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &RetryWrapper{
			cfg:    cfg,
			logger: log.Named("evwrap.retry"),
			next:   next,
		}
	}
}

// Name returns the name of the wrapped callback.
func (w *RetryWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *RetryWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	ctx = orBackground(ctx)
	if w.cfg.Attempts < 2 {
		return w.next.Invoke(ctx, args...)
	}

	log := w.logger.WithContext(ctx).With("callback", w.Name())

	var delayType retry.DelayTypeFunc = retry.BackOffDelay
	if w.cfg.MaxJitter > 0 {
		delayType = retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)
	}

	return retry.DoWithData(
		func() (any, error) {
			return w.next.Invoke(ctx, args...)
		},
		retry.Attempts(w.cfg.Attempts),
		retry.Delay(w.cfg.Delay),
		retry.MaxJitter(w.cfg.MaxJitter),
		retry.DelayType(delayType),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errx.GetType(err) != errx.T_Validation
		}),
		retry.OnRetry(func(n uint, err error) {
			log.With(
				"attempt", n+1,
				"max_attempts", w.cfg.Attempts,
				"error", errObject(err),
			).Warn("retrying event invocation")
		}),
		retry.Context(ctx),
	)
}
