package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"
	"github.com/rise-and-shine/evwrap/alert"
	"github.com/rise-and-shine/evwrap/binder"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/cfgloader"
	"github.com/rise-and-shine/evwrap/chain"
	"github.com/rise-and-shine/evwrap/event"
	"github.com/rise-and-shine/evwrap/logger"
	"github.com/rise-and-shine/evwrap/meta"
	"github.com/rise-and-shine/evwrap/tracing"
	"github.com/rise-and-shine/evwrap/wrapper"
)

const (
	serviceName    = "evwrap-demo"
	serviceVersion = "0.1.0"
)

type Config struct {
	Logger   logger.Config  `yaml:"logger"`
	Tracing  tracing.Config `yaml:"tracing"`
	Alert    alert.Config   `yaml:"alert"`
	Wrappers wrapper.Config `yaml:"wrappers"`
}

// greeter stands in for a third-party object whose methods get registered as events.
type greeter struct {
	prefix string
}

func (g *greeter) Greet(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errx.New("name is empty", errx.WithType(errx.T_Validation))
	}
	return g.prefix + ", " + name, nil
}

// loop stands in for the external event loop: it only invokes what it was given.
type loop struct {
	queue []queued
}

type queued struct {
	cb   callback.Callback
	args []any
}

func (l *loop) register(cb callback.Callback, args ...any) {
	l.queue = append(l.queue, queued{cb: cb, args: args})
}

func (l *loop) run(ctx context.Context, log logger.Logger) {
	for _, q := range l.queue {
		result, err := q.cb.Invoke(ctx, q.args...)
		if err != nil {
			log.Warnx(err)
			continue
		}
		log.With("result", result).Debug("callback returned")
	}
	l.queue = nil
}

func main() {
	cfg := cfgloader.MustLoad[Config]()

	logger.SetGlobal(cfg.Logger)
	log := logger.Named("main")
	defer func() { _ = logger.Sync() }()

	meta.SetServiceInfo(serviceName, serviceVersion)

	shutdown, err := tracing.InitGlobalTracer(cfg.Tracing, serviceName, serviceVersion)
	if err != nil {
		log.Errorx(err)
		return
	}
	defer func() {
		if shutdownErr := shutdown(); shutdownErr != nil {
			log.Warnx(shutdownErr)
		}
	}()

	if err = alert.SetGlobal(cfg.Alert, logger.Get()); err != nil {
		log.Warnx(err)
	}

	registry := metrics.NewRegistry()
	handles := wrapper.Install(chain.Default(), wrapper.Stack(cfg.Wrappers, wrapper.Deps{
		Logger:   logger.Get(),
		Registry: registry,
		Alert:    alert.Global(),
	}))
	defer wrapper.Uninstall(chain.Default(), handles)

	ctx := context.Background()
	l := &loop{}

	upper, err := event.WrapFunc(ctx, func(_ context.Context, args ...any) (any, error) {
		return strings.ToUpper(fmt.Sprint(args...)), nil
	})
	if err != nil {
		log.Errorx(err)
		return
	}
	l.register(upper, "hello")

	greet, err := binder.Bind(ctx, &greeter{prefix: "Hello"}, "Greet")
	if err != nil {
		log.Errorx(err)
		return
	}
	l.register(greet, "world")
	l.register(greet, "")

	// events created inside the block also get the slow-call marker
	err = chain.With(ctx, []callback.Wrapper{slowMarker(log, 10*time.Millisecond)}, func(ctx context.Context) error {
		sleepy, wrapErr := event.WrapFunc(ctx, func(ctx context.Context, _ ...any) (any, error) {
			select {
			case <-time.After(20 * time.Millisecond):
				return "done", nil
			case <-ctx.Done():
				return nil, errx.Wrap(ctx.Err())
			}
		})
		if wrapErr != nil {
			return wrapErr
		}
		l.register(sleepy)
		return nil
	})
	if err != nil {
		log.Errorx(err)
		return
	}

	l.run(ctx, log)

	for _, ev := range []*event.Event{upper, greet} {
		md := ev.Metadata()
		log.With("event_id", md.ID, "wrappers", len(md.Wrappers), "name", ev.Name()).Info("event metadata")
	}

	registry.Each(func(name string, m any) {
		if t, ok := m.(metrics.Timer); ok {
			log.With("metric", name, "count", t.Count(), "mean", time.Duration(t.Mean()).String()).Info("timing")
		}
	})
}

func slowMarker(log logger.Logger, threshold time.Duration) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return callback.Named(callback.NameOf(next), callback.Func(func(ctx context.Context, args ...any) (any, error) {
			start := time.Now()
			result, err := next.Invoke(ctx, args...)
			if d := time.Since(start); d > threshold {
				log.WithContext(ctx).With("duration", d.String()).Warn("slow callback")
			}
			return result, err
		}))
	}
}
