package wrapper

import (
	"context"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/rise-and-shine/evwrap/callback"
)

const metricPrefix = "evwrap."

// TimingWrapper records invocation durations and error counts in a metrics registry.
type TimingWrapper struct {
	timer  metrics.Timer
	errors metrics.Counter
	next   callback.Callback
}

// NewTiming returns a wrapper recording into registry. A nil registry means
// metrics.DefaultRegistry.
//
// Metrics are named evwrap.<callback>.duration and evwrap.<callback>.errors.
func NewTiming(registry metrics.Registry) callback.Wrapper {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	return func(next callback.Callback) callback.Callback {
		name := metricPrefix + callback.NameOf(next)
		return &TimingWrapper{
			timer:  metrics.GetOrRegisterTimer(name+".duration", registry),
			errors: metrics.GetOrRegisterCounter(name+".errors", registry),
			next:   next,
		}
	}
}

// Name returns the name of the wrapped callback.
func (w *TimingWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *TimingWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	start := time.Now()
	defer w.timer.UpdateSince(start)

	result, err := w.next.Invoke(ctx, args...)
	if err != nil {
		w.errors.Inc(1)
	}
	return result, err
}
