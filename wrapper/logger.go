package wrapper

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/logger"
	"github.com/rise-and-shine/evwrap/mask"
)

// LoggerWrapper logs every invocation with its duration and outcome. Arguments are
// logged through mask.Args so fields tagged `mask:"true"` never reach the log.
type LoggerWrapper struct {
	logger logger.Logger
	next   callback.Callback
}

// NewLogger returns a wrapper logging invocations to log.
func NewLogger(log logger.Logger) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &LoggerWrapper{
			logger: log.Named("evwrap.logger"),
			next:   next,
		}
	}
}

// Name returns the name of the wrapped callback.
func (w *LoggerWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *LoggerWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	start := time.Now()

	result, err := invokeWithRecovery(ctx, w.next, args)

	log := w.logger.
		WithContext(ctx).
		With(
			"callback", w.Name(),
			"execution_time", time.Since(start).String(),
			"args", mask.Args(args),
		)

	if err != nil {
		log.With("error", errObject(err)).Error("event invocation failed")
	} else {
		log.Info("event invoked")
	}

	return result, err
}

func errObject(err error) map[string]any {
	e := errx.AsErrorX(err)
	return map[string]any{
		"code":    e.Code(),
		"message": e.Error(),
		"type":    e.Type().String(),
		"trace":   e.Trace(),
		"fields":  e.Fields(),
		"details": e.Details(),
	}
}
