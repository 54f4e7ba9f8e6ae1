package wrapper

import (
	"context"
	"fmt"
	"runtime"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/logger"
)

const (
	// CodePanicRecovered is the code of errors produced from recovered panics.
	CodePanicRecovered = "PANIC_RECOVERED"

	stackTraceSize = 4096
)

// RecoveryWrapper turns panics of the wrapped callback into errors.
type RecoveryWrapper struct {
	logger logger.Logger
	next   callback.Callback
}

// NewRecovery returns a wrapper recovering panics and logging them to log.
func NewRecovery(log logger.Logger) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &RecoveryWrapper{
			logger: log.Named("evwrap.recovery"),
			next:   next,
		}
	}
}

// Name returns the name of the wrapped callback.
func (w *RecoveryWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *RecoveryWrapper) Invoke(ctx context.Context, args ...any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)

			w.logger.
				WithContext(ctx).
				With("callback", w.Name()).
				Errorx(err)
		}
	}()

	return w.next.Invoke(ctx, args...)
}

// invokeWithRecovery shields outer wrappers from panics raised deeper in the chain.
func invokeWithRecovery(ctx context.Context, next callback.Callback, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	return next.Invoke(ctx, args...)
}

func panicError(r any) error {
	stackTrace := make([]byte, stackTraceSize)
	stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

	return errx.New("panic recovered in event invocation",
		errx.WithCode(CodePanicRecovered),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"stack_trace":  string(stackTrace),
			"panic_values": fmt.Sprintf("%v", r),
		}),
	)
}
