package wrapper_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/code19m/errx"
	json "github.com/goccy/go-json"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/chain"
	"github.com/rise-and-shine/evwrap/event"
	"github.com/rise-and-shine/evwrap/logger"
	"github.com/rise-and-shine/evwrap/meta"
	"github.com/rise-and-shine/evwrap/wrapper"
)

func observedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func ok(result any) callback.Callback {
	return callback.Named("test.ok", callback.Func(func(context.Context, ...any) (any, error) {
		return result, nil
	}))
}

func failing(err error) callback.Callback {
	return callback.Named("test.failing", callback.Func(func(context.Context, ...any) (any, error) {
		return nil, err
	}))
}

func panicking() callback.Callback {
	return callback.Named("test.panicking", callback.Func(func(context.Context, ...any) (any, error) {
		panic("kaboom")
	}))
}

func TestLoggerWrapper(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		log, logs := observedLogger()
		cb := wrapper.NewLogger(log)(ok("fine"))

		result, err := cb.Invoke(t.Context(), 1, "a")
		require.NoError(t, err)
		assert.Equal(t, "fine", result)

		entries := logs.FilterMessage("event invoked").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "test.ok", entries[0].ContextMap()["callback"])
		assert.Equal(t, "test.ok", callback.NameOf(cb))
	})

	t.Run("error", func(t *testing.T) {
		log, logs := observedLogger()
		boom := errx.New("boom", errx.WithCode("BOOM"))

		_, err := wrapper.NewLogger(log)(failing(boom)).Invoke(t.Context())
		assert.Equal(t, boom, err)

		entries := logs.FilterMessage("event invocation failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("panic becomes error", func(t *testing.T) {
		log, logs := observedLogger()

		_, err := wrapper.NewLogger(log)(panicking()).Invoke(t.Context())
		assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
		assert.Equal(t, 1, logs.FilterMessage("event invocation failed").Len())
	})
}

type secretNode struct {
	Name  string
	Token string `mask:"true"`
	Next  *secretNode
}

type login struct {
	User     string
	Password string `mask:"true"`
}

func TestLoggerWrapperMasksArgs(t *testing.T) {
	log, logs := observedLogger()
	cb := wrapper.NewLogger(log)(ok(nil))

	head := &secretNode{Name: "a", Token: "tok-a"}
	head.Next = &secretNode{Name: "b", Token: "tok-b", Next: head}

	done := make(chan error, 1)
	go func() {
		_, err := cb.Invoke(t.Context(),
			head,
			[]login{{User: "u", Password: "hunter2"}},
			map[string]any{"c": login{Password: "hunter3"}},
		)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("logging a cyclic argument did not return")
	}

	entries := logs.FilterMessage("event invoked").All()
	require.Len(t, entries, 1)

	out, err := json.Marshal(entries[0].ContextMap()["args"])
	require.NoError(t, err)

	for _, secret := range []string{"tok-a", "tok-b", "hunter2", "hunter3"} {
		assert.NotContains(t, string(out), secret)
	}
	assert.Contains(t, string(out), "***cycle***")
	assert.Contains(t, string(out), "***masked-string***")
}

func TestWrappersAcceptNilContext(t *testing.T) {
	provider := &fakeAlertProvider{sent: make(chan string, 1)}
	ws := map[string]callback.Wrapper{
		"timeout": wrapper.NewTimeout(time.Second),
		"tracing": wrapper.NewTracing(),
		"meta":    wrapper.NewMetaInject(),
		"retry":   wrapper.NewRetry(wrapper.RetryConfig{Attempts: 2, Delay: time.Millisecond}, logger.Nop()),
		"alert":   wrapper.NewAlert(provider, logger.Nop()),
		"logger":  wrapper.NewLogger(logger.Nop()),
		"timing":  wrapper.NewTiming(metrics.NewRegistry()),
	}

	for name, w := range ws {
		t.Run(name, func(t *testing.T) {
			var seen context.Context
			cb := w(callback.Func(func(ctx context.Context, _ ...any) (any, error) {
				seen = ctx
				return "ok", nil
			}))

			require.NotPanics(t, func() {
				result, err := cb.Invoke(nil, 1) //nolint:staticcheck // nil context is accepted
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
			})
			if name != "logger" && name != "timing" {
				assert.NotNil(t, seen)
			}
		})
	}
}

func TestRecoveryWrapper(t *testing.T) {
	log, logs := observedLogger()

	var result any
	var err error
	require.NotPanics(t, func() {
		result, err = wrapper.NewRecovery(log)(panicking()).Invoke(t.Context())
	})

	assert.Nil(t, result)
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
	assert.Equal(t, 1, logs.Len())

	result, err = wrapper.NewRecovery(log)(ok(1)).Invoke(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestTimingWrapper(t *testing.T) {
	registry := metrics.NewRegistry()
	w := wrapper.NewTiming(registry)

	okCb := w(ok(nil))
	for range 3 {
		_, err := okCb.Invoke(t.Context())
		require.NoError(t, err)
	}

	_, err := w(failing(errors.New("x"))).Invoke(t.Context())
	require.Error(t, err)

	timer, isTimer := registry.Get("evwrap.test.ok.duration").(metrics.Timer)
	require.True(t, isTimer)
	assert.Equal(t, int64(3), timer.Count())

	okErrors, isCounter := registry.Get("evwrap.test.ok.errors").(metrics.Counter)
	require.True(t, isCounter)
	assert.Zero(t, okErrors.Count())

	failErrors, isCounter := registry.Get("evwrap.test.failing.errors").(metrics.Counter)
	require.True(t, isCounter)
	assert.Equal(t, int64(1), failErrors.Count())
}

func TestTimeoutWrapper(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	cb := wrapper.NewTimeout(time.Minute)(callback.Func(func(ctx context.Context, _ ...any) (any, error) {
		deadline, hasDeadline = ctx.Deadline()
		return nil, nil
	}))

	_, err := cb.Invoke(t.Context())
	require.NoError(t, err)
	assert.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestMetaInjectWrapper(t *testing.T) {
	var got map[meta.ContextKey]string
	inner := callback.Func(func(ctx context.Context, _ ...any) (any, error) {
		got = meta.ExtractMetaFromContext(ctx)
		return nil, nil
	})
	cb := wrapper.NewMetaInject()(inner)

	t.Run("generates trace id", func(t *testing.T) {
		_, err := cb.Invoke(t.Context())
		require.NoError(t, err)
		assert.Contains(t, got[meta.TraceID], "man-")
	})

	t.Run("injects service info", func(t *testing.T) {
		meta.SetServiceInfo("evwrap-test", "v0.0.1")

		_, err := cb.Invoke(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "evwrap-test", got[meta.ServiceName])
		assert.Equal(t, "v0.0.1", got[meta.ServiceVersion])
	})

	t.Run("keeps existing trace id", func(t *testing.T) {
		ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{meta.TraceID: "trace-1"})

		_, err := cb.Invoke(ctx)
		require.NoError(t, err)
		assert.Equal(t, "trace-1", got[meta.TraceID])
	})
}

func TestRetryWrapper(t *testing.T) {
	cfg := wrapper.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxJitter: time.Millisecond}

	t.Run("retries until success", func(t *testing.T) {
		var calls atomic.Int32
		cb := wrapper.NewRetry(cfg, logger.Nop())(callback.Func(func(context.Context, ...any) (any, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("flaky")
			}
			return "ok", nil
		}))

		result, err := cb.Invoke(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		var calls atomic.Int32
		cb := wrapper.NewRetry(cfg, logger.Nop())(callback.Func(func(context.Context, ...any) (any, error) {
			calls.Add(1)
			return nil, errx.New("down", errx.WithCode("DOWN"))
		}))

		_, err := cb.Invoke(t.Context())
		assert.True(t, errx.IsCodeIn(err, "DOWN"))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("validation errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		cb := wrapper.NewRetry(cfg, logger.Nop())(callback.Func(func(context.Context, ...any) (any, error) {
			calls.Add(1)
			return nil, errx.New("bad input", errx.WithType(errx.T_Validation))
		}))

		_, err := cb.Invoke(t.Context())
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("disabled below two attempts", func(t *testing.T) {
		var calls atomic.Int32
		cb := wrapper.NewRetry(wrapper.RetryConfig{Attempts: 1}, logger.Nop())(
			callback.Func(func(context.Context, ...any) (any, error) {
				calls.Add(1)
				return nil, errors.New("x")
			}),
		)

		_, err := cb.Invoke(t.Context())
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

type fakeAlertProvider struct {
	sent chan string
}

func (p *fakeAlertProvider) SendError(_ context.Context, errCode, _, operation string, _ map[string]string) error {
	p.sent <- errCode + "|" + operation
	return nil
}

func TestAlertWrapper(t *testing.T) {
	provider := &fakeAlertProvider{sent: make(chan string, 1)}
	w := wrapper.NewAlert(provider, logger.Nop())

	_, err := w(ok(nil)).Invoke(t.Context())
	require.NoError(t, err)

	boom := errx.New("boom", errx.WithCode("BOOM"))
	_, err = w(failing(boom)).Invoke(t.Context())
	assert.Equal(t, boom, err)

	select {
	case got := <-provider.sent:
		assert.Equal(t, "BOOM|event: test.failing", got)
	case <-time.After(time.Second):
		t.Fatal("alert was not sent")
	}

	select {
	case got := <-provider.sent:
		t.Fatalf("unexpected alert %q", got)
	default:
	}
}

func TestTracingWrapper(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	w := wrapper.NewTracing()

	_, err := w(ok(nil)).Invoke(t.Context())
	require.NoError(t, err)
	_, err = w(failing(errors.New("x"))).Invoke(t.Context())
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "test.ok", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "test.failing", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestStack(t *testing.T) {
	tests := []struct {
		name string
		cfg  wrapper.Config
		deps wrapper.Deps
		want int
	}{
		{name: "defaults", cfg: wrapper.Config{}, want: 5},
		{
			name: "everything",
			cfg: wrapper.Config{
				EnableAlerting: true,
				Timeout:        time.Second,
				Retry:          wrapper.RetryConfig{Attempts: 2},
			},
			deps: wrapper.Deps{Alert: &fakeAlertProvider{}},
			want: 8,
		},
		{
			name: "alerting without provider",
			cfg:  wrapper.Config{EnableAlerting: true},
			want: 5,
		},
		{
			name: "all disabled",
			cfg: wrapper.Config{
				DisableMeta:     true,
				DisableTracing:  true,
				DisableLogging:  true,
				DisableTiming:   true,
				DisableRecovery: true,
			},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, wrapper.Stack(tc.cfg, tc.deps), tc.want)
		})
	}
}

func TestInstallWrapsEvents(t *testing.T) {
	c := chain.New()
	log, logs := observedLogger()
	registry := metrics.NewRegistry()

	handles := wrapper.Install(c, wrapper.Stack(wrapper.Config{DisableTracing: true}, wrapper.Deps{
		Logger:   log,
		Registry: registry,
	}))
	require.Len(t, handles, 4)

	ev, err := event.NewFactory(c).Wrap(t.Context(), panicking())
	require.NoError(t, err)

	_, err = ev.Invoke(t.Context())
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))

	failed := logs.FilterMessage("event invocation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "test.panicking", failed[0].ContextMap()["callback"])
	assert.NotEmpty(t, failed[0].ContextMap()[string(meta.EventID)])
	assert.NotEmpty(t, failed[0].ContextMap()[string(meta.TraceID)])

	timer, isTimer := registry.Get("evwrap.test.panicking.duration").(metrics.Timer)
	require.True(t, isTimer)
	assert.Equal(t, int64(1), timer.Count())

	wrapper.Uninstall(c, handles)
	assert.Zero(t, c.Len())
}
