package wrapper

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/alert"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/logger"
	"github.com/rise-and-shine/evwrap/meta"
)

const alertTimeout = 3 * time.Second

// AlertWrapper reports failed invocations to an alert provider.
type AlertWrapper struct {
	logger   logger.Logger
	provider alert.Provider
	next     callback.Callback
}

// NewAlert returns a wrapper sending failed invocations to provider. Alerts are sent in
// the background; the invocation result is returned unchanged.
func NewAlert(provider alert.Provider, log logger.Logger) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &AlertWrapper{
			logger:   log.Named("evwrap.alerting"),
			provider: provider,
			next:     next,
		}
	}
}

// Name returns the name of the wrapped callback.
func (w *AlertWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *AlertWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	ctx = orBackground(ctx)
	result, err := w.next.Invoke(ctx, args...)
	if err == nil {
		return result, nil
	}

	details := make(map[string]string)
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		details[string(k)] = v
	}

	code := errx.AsErrorX(err).Code()
	operation := "event: " + w.Name()
	msg := err.Error()

	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	go func() {
		defer cancel()

		if sendErr := w.provider.SendError(alertCtx, code, msg, operation, details); sendErr != nil {
			w.logger.With("alert_send_error", sendErr.Error()).Warn("failed to send error alert")
		}
	}()

	return result, err
}
