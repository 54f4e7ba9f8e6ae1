package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // global logger singleton
var (
	global   atomic.Value // stores Logger
	setOnce  sync.Once
	initOnce sync.Once
)

// SetGlobal configures the global logger. It must be called at most once, before any
// global logging function is used.
func SetGlobal(cfg Config) {
	called := false
	setOnce.Do(func() {
		initOnce.Do(func() {})

		l, err := New(cfg)
		if err != nil {
			panic("[logger]: failed to initialize global logger: " + err.Error())
		}
		global.Store(holder{l})
		called = true
	})
	if !called {
		panic("[logger]: SetGlobal can only be called once")
	}
}

// holder keeps the concrete type stored in the atomic.Value constant.
type holder struct {
	Logger
}

// Get returns the global logger, creating a debug pretty logger on first use.
func Get() Logger {
	if h, ok := global.Load().(holder); ok {
		return h.Logger
	}
	initOnce.Do(func() {
		l, err := New(Config{Level: levelDebug, Encoding: EncodingPretty})
		if err != nil {
			panic("[logger]: failed to initialize default logger: " + err.Error())
		}
		global.Store(holder{l})
	})
	return global.Load().(holder).Logger //nolint:forcetypeassert // always a holder
}

// Debug logs a message at debug level using the global logger.
func Debug(msg any) { Get().Debug(msg) }

// Info logs a message at info level using the global logger.
func Info(msg any) { Get().Info(msg) }

// Warn logs a message at warn level using the global logger.
func Warn(msg any) { Get().Warn(msg) }

// Error logs a message at error level using the global logger.
func Error(msg any) { Get().Error(msg) }

// Errorx logs err at error level using the global logger.
func Errorx(err error) { Get().Errorx(err) }

// With returns the global logger with the key-value pairs attached.
func With(keysAndValues ...any) Logger { return Get().With(keysAndValues...) }

// WithContext returns the global logger enriched with metadata from ctx.
func WithContext(ctx context.Context) Logger { return Get().WithContext(ctx) }

// Named returns a named child of the global logger.
func Named(name string) Logger { return Get().Named(name) }

// Sync flushes the global logger.
func Sync() error { return Get().Sync() }
